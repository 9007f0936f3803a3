package config

import (
	"fmt"
	"time"
)

func validate(c *Config) error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("exchange.api_key and exchange.api_secret are required")
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key is required")
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle.model is required")
	}
	if d, err := time.ParseDuration(c.Trading.Interval); err != nil || d <= 0 {
		return fmt.Errorf("trading.interval is not a valid duration: %q", c.Trading.Interval)
	}
	if c.Trading.MinConviction < 0 || c.Trading.MinConviction > 1 {
		return fmt.Errorf("trading.min_conviction must be in [0,1], got %v", c.Trading.MinConviction)
	}
	if c.Trading.MaxLeverage < 1 || c.Trading.MaxLeverage > 125 {
		return fmt.Errorf("trading.max_leverage must be in [1,125], got %d", c.Trading.MaxLeverage)
	}
	if c.News.Enabled && c.News.APIKey == "" {
		return fmt.Errorf("news.api_key is required when news.enabled")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return fmt.Errorf("notify.telegram.bot_token and chat_id are required when enabled")
	}
	return nil
}
