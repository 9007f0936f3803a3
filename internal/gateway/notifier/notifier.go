package notifier

// Notifier pushes operator-facing alerts: entries, exits, and anything that
// needs a human to look at the account.
type Notifier interface {
	SendText(text string) error
}

// Nop discards all notifications. Used when no channel is configured.
type Nop struct{}

func (Nop) SendText(string) error { return nil }
