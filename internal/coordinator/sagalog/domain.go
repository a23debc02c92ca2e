// Package sagalog defines the domain types for the Saga Log pattern.
//
// A Saga Log is a durable audit trail of every state transition a saga goes
// through. Rows can be correlated with a distributed trace via trace_id, and
// the sequence of rows for one saga tells exactly which steps were applied
// and which were compensated.
package sagalog

import "time"

// Status is the state recorded by a log entry. The coordinator writes the
// step statuses below; workflows built on it may record their own states.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusStepFailed   Status = "STEP_FAILED"
	StatusCompensating Status = "COMPENSATING"
	StatusCompensated  Status = "COMPENSATED"
	StatusCompleted    Status = "COMPLETED"
	StatusFailed       Status = "FAILED"
)

// SagaLog is a single row in the saga_logs table.
type SagaLog struct {
	ID string

	// SagaID groups the rows of one saga execution.
	SagaID string

	// Seq orders the rows of a saga, starting at 1. Assigned on Save.
	Seq int

	Status Status

	// CurrentStep is the name of the step that was just executed or failed.
	CurrentStep string

	// Payload is the JSON input that started the saga, stored on the first row.
	Payload string

	// ErrorMessages is a JSON array of failure details.
	ErrorMessages string

	// TraceID and SpanID identify the span that was active when the entry
	// was written.
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
