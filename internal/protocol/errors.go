package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy = "E_WORLD_BUSY"

	// Tool layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownTool   = "E_UNKNOWN_TOOL"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrNoFunds       = "E_NO_FUNDS"
	ErrBlocked       = "E_BLOCKED"
	ErrRateLimit     = "E_RATE_LIMIT"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrWorldBusy:       {},
	ErrBadRequest:      {},
	ErrUnknownTool:     {},
	ErrInvalidTarget:   {},
	ErrNoFunds:         {},
	ErrBlocked:         {},
	ErrRateLimit:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
