package models

import (
	"fmt"
	"time"

	"opensurvey/storage"
)

// RowKeyInfo is the reserved row key for a survey's metadata row. Question
// rows use numeric string row keys ("1", "2", ...).
const RowKeyInfo = "info"

// Stored field names, matching the shapes the table service holds.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDueDate     = "dueDate"
	FieldQuestion    = "question"
	FieldAnswers     = "answers"
	FieldTotals      = "totals"
)

type SurveyInfo struct {
	SurveyID    string    `json:"survey_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	ETag        string    `json:"-"`
	Updated     time.Time `json:"updated"`
}

// Survey is one partition's worth of rows: the info row plus its questions.
// Info is nil when the partition has question rows but no info row (a
// degraded but valid state, since deletes do not cascade).
type Survey struct {
	SurveyID  string      `json:"survey_id"`
	Info      *SurveyInfo `json:"info,omitempty"`
	Questions []Question  `json:"questions"`
}

func SurveyInfoFromRow(row *storage.Row) (*SurveyInfo, error) {
	info := &SurveyInfo{
		SurveyID:    row.PartitionKey,
		Title:       row.Fields[FieldTitle],
		Description: row.Fields[FieldDescription],
		ETag:        row.ETag,
		Updated:     row.Timestamp,
	}
	if raw := row.Fields[FieldDueDate]; raw != "" {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("survey %q info row: bad dueDate %q: %w", row.PartitionKey, raw, err)
		}
		info.DueDate = due
	}
	return info, nil
}

func (s *SurveyInfo) ToRow() storage.Row {
	return storage.Row{
		PartitionKey: s.SurveyID,
		RowKey:       RowKeyInfo,
		Fields: map[string]string{
			FieldTitle:       s.Title,
			FieldDescription: s.Description,
			FieldDueDate:     s.DueDate.UTC().Format(time.RFC3339),
		},
	}
}
