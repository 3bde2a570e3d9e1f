package storage

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// memoryTable keeps partitions in process memory. It backs tests and local
// development; the conditional-write semantics match the durable drivers.
type memoryTable struct {
	mu         sync.RWMutex
	partitions map[string]map[string]*Row
	seq        uint64
}

func NewMemory() Table {
	return &memoryTable{partitions: make(map[string]map[string]*Row)}
}

func (t *memoryTable) nextETag() string {
	t.seq++
	return strconv.FormatUint(t.seq, 10)
}

func (t *memoryTable) Get(ctx context.Context, partitionKey, rowKey string) (*Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.partitions[partitionKey][rowKey]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRow(row), nil
}

func (t *memoryTable) Query(ctx context.Context, partitionKey string, limit int) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	// Map iteration order stands in for the store's native scan order.
	rows := make([]Row, 0, limit)
	for _, row := range t.partitions[partitionKey] {
		if len(rows) == limit {
			break
		}
		rows = append(rows, *copyRow(row))
	}
	return rows, nil
}

func (t *memoryTable) Merge(ctx context.Context, partitionKey, rowKey string, fields map[string]string, etag string) (*Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.partitions[partitionKey][rowKey]
	if !ok {
		return nil, ErrNotFound
	}
	if etag != "" && row.ETag != etag {
		return nil, ErrConflict
	}

	for k, v := range fields {
		row.Fields[k] = v
	}
	row.ETag = t.nextETag()
	row.Timestamp = time.Now().UTC()
	return copyRow(row), nil
}

func (t *memoryTable) InsertBatch(ctx context.Context, partitionKey string, rows []Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	partition := t.partitions[partitionKey]
	for _, row := range rows {
		if _, exists := partition[row.RowKey]; exists {
			return ErrRowExists
		}
	}

	if partition == nil {
		partition = make(map[string]*Row)
		t.partitions[partitionKey] = partition
	}
	now := time.Now().UTC()
	for _, row := range rows {
		stored := copyRow(&row)
		stored.PartitionKey = partitionKey
		stored.ETag = t.nextETag()
		stored.Timestamp = now
		partition[row.RowKey] = stored
	}
	return nil
}

func (t *memoryTable) Delete(ctx context.Context, partitionKey, rowKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.partitions[partitionKey][rowKey]; !ok {
		return ErrNotFound
	}
	delete(t.partitions[partitionKey], rowKey)
	return nil
}

func copyRow(row *Row) *Row {
	out := *row
	out.Fields = cloneFields(row.Fields)
	return &out
}
