package binance

import "time"

// Config carries credentials and transport settings for the futures client.
type Config struct {
	APIKey      string
	APISecret   string
	Testnet     bool
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	return c
}
