package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("storage: row not found")
	ErrConflict  = errors.New("storage: etag mismatch")
	ErrRowExists = errors.New("storage: row already exists")
)

// Row is one record inside a partition. Fields hold the stored values as
// strings; callers encode and decode structured values at this boundary.
// ETag changes on every write and is opaque to callers.
type Row struct {
	PartitionKey string
	RowKey       string
	Fields       map[string]string
	ETag         string
	Timestamp    time.Time
}

// Table is the contract over the partitioned key-value store. All writes go
// through a single round-trip; drivers do not retry on their own.
type Table interface {
	// Get returns the row at (partitionKey, rowKey) or ErrNotFound.
	Get(ctx context.Context, partitionKey, rowKey string) (*Row, error)

	// Query returns at most limit rows from a partition. Order follows the
	// driver's native scan order and is not guaranteed to be row-key order.
	Query(ctx context.Context, partitionKey string, limit int) ([]Row, error)

	// Merge updates only the given fields on an existing row, leaving the
	// rest intact, and returns the merged row with its new ETag. A non-empty
	// etag makes the write conditional: ErrConflict when the stored row has
	// moved on since that etag was read.
	Merge(ctx context.Context, partitionKey, rowKey string, fields map[string]string, etag string) (*Row, error)

	// InsertBatch inserts all rows into one partition as a single
	// all-or-nothing unit. ErrRowExists when any row key is already taken;
	// no row is visible after a failed batch.
	InsertBatch(ctx context.Context, partitionKey string, rows []Row) error

	// Delete removes one row, ErrNotFound when it does not exist.
	Delete(ctx context.Context, partitionKey, rowKey string) error
}

func cloneFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
