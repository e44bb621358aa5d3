package city

// Result is the outcome of one tool invocation.
type Result int

const (
	OK Result = iota
	Failed
	InsufficientFunds
	MustClearFirst
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case Failed:
		return "failed"
	case InsufficientFunds:
		return "insufficient_funds"
	case MustClearFirst:
		return "must_clear_first"
	default:
		return "unknown"
	}
}
