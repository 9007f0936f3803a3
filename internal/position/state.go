package position

// State is the lifecycle phase of the single tracked position.
type State string

const (
	// StateFlat: no position, no working entry.
	StateFlat State = "FLAT"
	// StateEntrySubmitted: market entry sent, fill not yet confirmed.
	StateEntrySubmitted State = "ENTRY_SUBMITTED"
	// StateEntryFilledUnprotected: position exists on the exchange but its
	// protective orders are not confirmed yet. The machine never rests here;
	// it is traversed inside Submit.
	StateEntryFilledUnprotected State = "ENTRY_FILLED_UNPROTECTED"
	// StateOpen: position held with both protective orders working.
	StateOpen State = "OPEN"
	// StateExitPending: position gone from the exchange, close bookkeeping
	// in progress.
	StateExitPending State = "EXIT_PENDING"
	// StateClosed: ledger close written; collapses to FLAT immediately.
	StateClosed State = "CLOSED"
)
