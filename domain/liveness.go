package domain

// LivenessState is the heartbeat state of a connection.
// ALIVE -> AWAITING_PONG -> (ALIVE | DEAD). DEAD is terminal.
type LivenessState int

const (
	Alive LivenessState = iota
	AwaitingPong
	Dead
)

func (s LivenessState) String() string {
	switch s {
	case Alive:
		return "ALIVE"
	case AwaitingPong:
		return "AWAITING_PONG"
	case Dead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}
