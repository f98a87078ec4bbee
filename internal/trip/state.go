package trip

// State is a step in a trip's lifecycle.
type State int

const (
	StateResolvingIdentity State = iota
	StateLoadingRoute
	StateSendingBatch
	StatePacing
	StateSendingFinalStatus
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateResolvingIdentity:  "resolving_identity",
	StateLoadingRoute:       "loading_route",
	StateSendingBatch:       "sending_batch",
	StatePacing:             "pacing",
	StateSendingFinalStatus: "sending_final_status",
	StateDone:               "done",
	StateFailed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
