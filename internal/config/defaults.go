package config

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Trading.Symbol == "" {
		c.Trading.Symbol = "BTCUSDT"
	}
	if c.Trading.Interval == "" {
		c.Trading.Interval = "1m"
	}
	if c.Trading.MinConviction <= 0 {
		c.Trading.MinConviction = 0.55
	}
	if c.Trading.MinNotionalUSD <= 0 {
		c.Trading.MinNotionalUSD = 100
	}
	if c.Trading.MaxLeverage <= 0 {
		c.Trading.MaxLeverage = 20
	}
	if c.Exchange.TimeoutSeconds <= 0 {
		c.Exchange.TimeoutSeconds = 15
	}
	if c.Oracle.APIURL == "" {
		c.Oracle.APIURL = "https://api.openai.com/v1"
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = 60
	}
	if c.Oracle.MaxRetries <= 0 {
		c.Oracle.MaxRetries = 2
	}
	if c.Oracle.RegistryPath == "" {
		c.Oracle.RegistryPath = "configs/oracle.yaml"
	}
	if c.News.Query == "" {
		c.News.Query = "bitcoin"
	}
	if c.News.Limit <= 0 {
		c.News.Limit = 10
	}
	if c.News.TimeoutSeconds <= 0 {
		c.News.TimeoutSeconds = 10
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/trading.db"
	}
	if c.Report.HTTPAddr == "" {
		c.Report.HTTPAddr = ":8360"
	}
	if c.Advanced.ProtectAlertAttempts <= 0 {
		c.Advanced.ProtectAlertAttempts = 8
	}
	if c.Advanced.ProtectBackoffSeconds <= 0 {
		c.Advanced.ProtectBackoffSeconds = 1
	}
	if c.Advanced.ProtectBackoffMax <= 0 {
		c.Advanced.ProtectBackoffMax = 30
	}
	if c.Advanced.FillPollAttempts <= 0 {
		c.Advanced.FillPollAttempts = 10
	}
	if c.Advanced.FillPollSeconds <= 0 {
		c.Advanced.FillPollSeconds = 0.5
	}
	if c.Advanced.BreakerThreshold <= 0 {
		c.Advanced.BreakerThreshold = 5
	}
	if c.Advanced.BreakerTimeoutSeconds <= 0 {
		c.Advanced.BreakerTimeoutSeconds = 120
	}
	if c.Advanced.CollectorRetries <= 0 {
		c.Advanced.CollectorRetries = 3
	}
	if c.Advanced.CollectorBackoffSecond <= 0 {
		c.Advanced.CollectorBackoffSecond = 2
	}
}
