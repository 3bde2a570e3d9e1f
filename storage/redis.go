package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	metaETag      = "_etag"
	metaTimestamp = "_ts"
)

// redisTable stores each row as a hash keyed <table>:row:<partition>:<rowKey>
// and keeps a set of row keys per partition for scans. WATCH/MULTI gives the
// conditional-merge and all-or-nothing batch semantics of the Table contract.
type redisTable struct {
	client *redis.Client
	table  string
}

func NewRedis(client *redis.Client, table string) Table {
	return &redisTable{client: client, table: table}
}

func (t *redisTable) rowKey(partitionKey, rowKey string) string {
	return fmt.Sprintf("%s:row:%s:%s", t.table, partitionKey, rowKey)
}

func (t *redisTable) indexKey(partitionKey string) string {
	return fmt.Sprintf("%s:idx:%s", t.table, partitionKey)
}

func (t *redisTable) Get(ctx context.Context, partitionKey, rowKey string) (*Row, error) {
	vals, err := t.client.HGetAll(ctx, t.rowKey(partitionKey, rowKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	return rowFromHash(partitionKey, rowKey, vals), nil
}

func (t *redisTable) Query(ctx context.Context, partitionKey string, limit int) ([]Row, error) {
	keys, err := t.client.SMembers(ctx, t.indexKey(partitionKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis query: %w", err)
	}

	rows := make([]Row, 0, limit)
	for _, key := range keys {
		if len(rows) == limit {
			break
		}
		vals, err := t.client.HGetAll(ctx, t.rowKey(partitionKey, key)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis query: %w", err)
		}
		if len(vals) == 0 {
			// Row deleted after the index was read; skip it.
			continue
		}
		rows = append(rows, *rowFromHash(partitionKey, key, vals))
	}
	return rows, nil
}

func (t *redisTable) Merge(ctx context.Context, partitionKey, rowKey string, fields map[string]string, etag string) (*Row, error) {
	key := t.rowKey(partitionKey, rowKey)
	var merged *Row

	err := t.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(current) == 0 {
			return ErrNotFound
		}
		if etag != "" && current[metaETag] != etag {
			return ErrConflict
		}

		for k, v := range fields {
			current[k] = v
		}
		current[metaETag] = bumpETag(current[metaETag])
		current[metaTimestamp] = time.Now().UTC().Format(time.RFC3339Nano)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hashArgs(current)...)
			return nil
		})
		if err != nil {
			return err
		}

		merged = rowFromHash(partitionKey, rowKey, current)
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the row between WATCH and EXEC.
		return nil, ErrConflict
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("redis merge: %w", err)
	}
	return merged, nil
}

func (t *redisTable) InsertBatch(ctx context.Context, partitionKey string, rows []Row) error {
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, t.rowKey(partitionKey, row.RowKey))
	}

	err := t.client.Watch(ctx, func(tx *redis.Tx) error {
		for _, key := range keys {
			n, err := tx.Exists(ctx, key).Result()
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrRowExists
			}
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, row := range rows {
				vals := cloneFields(row.Fields)
				vals[metaETag] = "1"
				vals[metaTimestamp] = now
				pipe.HSet(ctx, keys[i], hashArgs(vals)...)
				pipe.SAdd(ctx, t.indexKey(partitionKey), row.RowKey)
			}
			return nil
		})
		return err
	}, keys...)

	if errors.Is(err, redis.TxFailedErr) {
		return ErrRowExists
	}
	if errors.Is(err, ErrRowExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("redis batch insert: %w", err)
	}
	return nil
}

func (t *redisTable) Delete(ctx context.Context, partitionKey, rowKey string) error {
	n, err := t.client.Del(ctx, t.rowKey(partitionKey, rowKey)).Result()
	if err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := t.client.SRem(ctx, t.indexKey(partitionKey), rowKey).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func rowFromHash(partitionKey, rowKey string, vals map[string]string) *Row {
	row := &Row{
		PartitionKey: partitionKey,
		RowKey:       rowKey,
		Fields:       make(map[string]string, len(vals)),
		ETag:         vals[metaETag],
	}
	if ts, err := time.Parse(time.RFC3339Nano, vals[metaTimestamp]); err == nil {
		row.Timestamp = ts
	}
	for k, v := range vals {
		if k == metaETag || k == metaTimestamp {
			continue
		}
		row.Fields[k] = v
	}
	return row
}

func bumpETag(etag string) string {
	n, err := strconv.ParseUint(etag, 10, 64)
	if err != nil {
		return "1"
	}
	return strconv.FormatUint(n+1, 10)
}

func hashArgs(vals map[string]string) []interface{} {
	args := make([]interface{}, 0, len(vals)*2)
	for k, v := range vals {
		args = append(args, k, v)
	}
	return args
}
