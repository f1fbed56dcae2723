package transitions

import "synnergy-platform/core"

// OutcomeKind tags which of the four taxonomy buckets a transition's
// result fell into (spec.md §4.3 "Outcome taxonomy").
type OutcomeKind uint8

const (
	KindSuccessfulExecution OutcomeKind = iota
	KindPaidConsensusError
	KindUnpaidConsensusError
	KindInternalError
)

// Outcome is the result of running one transition through the pipeline.
type Outcome struct {
	Kind  OutcomeKind
	Fee   core.Credits
	Error ConsensusError
	// StateDiffSummary is a short, human-readable description of the
	// mutation applied on SuccessfulExecution; empty otherwise.
	StateDiffSummary string
}

// Success builds a SuccessfulExecution outcome.
func Success(fee core.Credits, summary string) Outcome {
	return Outcome{Kind: KindSuccessfulExecution, Fee: fee, StateDiffSummary: summary}
}

// Paid builds a PaidConsensusError outcome: the processing fee is still
// charged, no other mutation lands (spec.md §4.3).
func Paid(err ConsensusError, fee core.Credits) Outcome {
	return Outcome{Kind: KindPaidConsensusError, Error: err, Fee: fee}
}

// Unpaid builds an UnpaidConsensusError outcome: the transition is
// rejected outright with no fee charged (structural/signature failure).
func Unpaid(err ConsensusError) Outcome {
	return Outcome{Kind: KindUnpaidConsensusError, Error: err}
}

// Internal builds an InternalError outcome: an engine bug or storage
// failure that aborts the whole block.
func Internal(err error) Outcome {
	return Outcome{Kind: KindInternalError, Error: NewConsensusError("InternalError", err.Error())}
}
