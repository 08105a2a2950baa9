package encoding

import "time"

// OutcomeKind labels how a job terminated.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeTimedOut  OutcomeKind = "timed_out"
)

// JobOutcome is the terminal result of one job. Exactly one of the payload
// fields is meaningful per kind: OutputBytes for success, Reason for failure.
// Elapsed is recorded for every kind.
type JobOutcome struct {
	Kind        OutcomeKind
	OutputBytes []byte
	Reason      error
	Elapsed     time.Duration
}

// Succeeded reports whether the job produced output.
func (o JobOutcome) Succeeded() bool {
	return o.Kind == OutcomeSucceeded
}

func succeededOutcome(output []byte, elapsed time.Duration) JobOutcome {
	return JobOutcome{Kind: OutcomeSucceeded, OutputBytes: output, Elapsed: elapsed}
}

func failedOutcome(reason error, elapsed time.Duration) JobOutcome {
	return JobOutcome{Kind: OutcomeFailed, Reason: reason, Elapsed: elapsed}
}

func timedOutOutcome(reason error, elapsed time.Duration) JobOutcome {
	return JobOutcome{Kind: OutcomeTimedOut, Reason: reason, Elapsed: elapsed}
}
