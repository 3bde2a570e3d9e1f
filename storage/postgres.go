package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// SurveyRow is the relational shape of a partitioned row. main.go migrates it
// alongside the rest of the schema.
type SurveyRow struct {
	PartitionKey string `gorm:"primaryKey;size:512"`
	RowKey       string `gorm:"primaryKey;size:512"`
	Fields       string `gorm:"type:jsonb;not null"`
	ETag         int64  `gorm:"column:etag;not null"`
	UpdatedAt    time.Time
}

type postgresTable struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) Table {
	return &postgresTable{db: db}
}

func (t *postgresTable) Get(ctx context.Context, partitionKey, rowKey string) (*Row, error) {
	var rec SurveyRow
	err := t.db.WithContext(ctx).
		Where("partition_key = ? AND row_key = ?", partitionKey, rowKey).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get: %w", err)
	}
	return rowFromRecord(&rec)
}

func (t *postgresTable) Query(ctx context.Context, partitionKey string, limit int) ([]Row, error) {
	var recs []SurveyRow
	err := t.db.WithContext(ctx).
		Where("partition_key = ?", partitionKey).
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}

	rows := make([]Row, 0, len(recs))
	for i := range recs {
		row, err := rowFromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, *row)
	}
	return rows, nil
}

func (t *postgresTable) Merge(ctx context.Context, partitionKey, rowKey string, fields map[string]string, etag string) (*Row, error) {
	// The conditional UPDATE on etag decides the race; the loop only re-reads
	// for unconditional merges that lost to a concurrent writer.
	for {
		var rec SurveyRow
		err := t.db.WithContext(ctx).
			Where("partition_key = ? AND row_key = ?", partitionKey, rowKey).
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("postgres merge: %w", err)
		}
		if etag != "" && strconv.FormatInt(rec.ETag, 10) != etag {
			return nil, ErrConflict
		}

		merged, err := decodeFields(rec.Fields)
		if err != nil {
			return nil, err
		}
		for k, v := range fields {
			merged[k] = v
		}
		encoded, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("postgres merge: %w", err)
		}

		now := time.Now().UTC()
		res := t.db.WithContext(ctx).Model(&SurveyRow{}).
			Where("partition_key = ? AND row_key = ? AND etag = ?", partitionKey, rowKey, rec.ETag).
			Updates(map[string]interface{}{
				"fields":     string(encoded),
				"etag":       rec.ETag + 1,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("postgres merge: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			if etag != "" {
				return nil, ErrConflict
			}
			continue
		}

		return &Row{
			PartitionKey: partitionKey,
			RowKey:       rowKey,
			Fields:       merged,
			ETag:         strconv.FormatInt(rec.ETag+1, 10),
			Timestamp:    now,
		}, nil
	}
}

func (t *postgresTable) InsertBatch(ctx context.Context, partitionKey string, rows []Row) error {
	recs := make([]SurveyRow, 0, len(rows))
	for _, row := range rows {
		encoded, err := json.Marshal(row.Fields)
		if err != nil {
			return fmt.Errorf("postgres batch insert: %w", err)
		}
		recs = append(recs, SurveyRow{
			PartitionKey: partitionKey,
			RowKey:       row.RowKey,
			Fields:       string(encoded),
			ETag:         1,
		})
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&recs).Error
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrRowExists
	}
	if err != nil {
		return fmt.Errorf("postgres batch insert: %w", err)
	}
	return nil
}

func (t *postgresTable) Delete(ctx context.Context, partitionKey, rowKey string) error {
	res := t.db.WithContext(ctx).
		Where("partition_key = ? AND row_key = ?", partitionKey, rowKey).
		Delete(&SurveyRow{})
	if res.Error != nil {
		return fmt.Errorf("postgres delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func rowFromRecord(rec *SurveyRow) (*Row, error) {
	fields, err := decodeFields(rec.Fields)
	if err != nil {
		return nil, err
	}
	return &Row{
		PartitionKey: rec.PartitionKey,
		RowKey:       rec.RowKey,
		Fields:       fields,
		ETag:         strconv.FormatInt(rec.ETag, 10),
		Timestamp:    rec.UpdatedAt,
	}, nil
}

func decodeFields(encoded string) (map[string]string, error) {
	fields := make(map[string]string)
	if err := json.Unmarshal([]byte(encoded), &fields); err != nil {
		return nil, fmt.Errorf("postgres fields decode: %w", err)
	}
	return fields, nil
}
