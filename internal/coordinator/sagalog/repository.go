package sagalog

import "context"

// Repository persists saga log entries. The table is append-only.
type Repository interface {
	// Save appends entry, assigning its ID and Seq.
	Save(ctx context.Context, entry *SagaLog) error

	// History returns every entry of a saga in Seq order.
	History(ctx context.Context, sagaID string) ([]SagaLog, error)
}
