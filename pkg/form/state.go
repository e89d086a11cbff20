package form

import "fmt"

// State is the submission lifecycle of one form.
//
//	Idle -> Validating -> Rejected           (a field failed)
//	Idle -> Validating -> Submitting -> Accepted | Rejected
//	any  -> Idle                             (edit or reset)
type State int

const (
	Idle State = iota
	Validating
	Submitting
	Accepted
	Rejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Observer is notified after every state change. It runs outside the engine
// lock and may read engine state.
type Observer func(from, to State)

// Result is the message shown after a submit attempt that reached the
// submission stage.
type Result struct {
	Message string `json:"message"`
	IsError bool   `json:"isError"`
}
