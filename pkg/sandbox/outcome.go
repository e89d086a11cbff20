package sandbox

import "fmt"

// OutcomeKind classifies the result of running submit logic.
type OutcomeKind int

const (
	// NoOpinion means the logic returned something other than a string; the
	// submission proceeds.
	NoOpinion OutcomeKind = iota
	// Rejected means the logic returned a string, shown to the user as an
	// error.
	Rejected
	// Faulted means the logic could not run to completion.
	Faulted
)

func (k OutcomeKind) String() string {
	switch k {
	case NoOpinion:
		return "no_opinion"
	case Rejected:
		return "rejected"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of one evaluation. Message is empty for NoOpinion.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

func NoOpinionOutcome() Outcome { return Outcome{Kind: NoOpinion} }

func RejectedOutcome(message string) Outcome {
	return Outcome{Kind: Rejected, Message: message}
}

func FaultedOutcome(message string) Outcome {
	return Outcome{Kind: Faulted, Message: message}
}

func (o Outcome) String() string {
	if o.Kind == NoOpinion {
		return o.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", o.Kind, o.Message)
}
