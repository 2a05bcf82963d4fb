package types

type Intent string

const (
	IntentEnter Intent = "ENTER"
	IntentExit  Intent = "EXIT"
	IntentNone  Intent = "NONE"
)

// Signal is a strategy's decision for one symbol in one cycle.
type Signal struct {
	Symbol string
	Intent Intent
	// Reason is a short tag, e.g. RSI_BUY_SIGNAL
	Reason string
}
