package models

import (
	"encoding/json"
	"fmt"
	"time"

	"opensurvey/storage"
)

// Question is one question row of a survey. Answers and Totals are parallel:
// Totals[i] counts the submissions that picked Answers[i]. The stored row
// keeps both as JSON strings; this type is the only place they are decoded.
type Question struct {
	SurveyID string    `json:"survey_id"`
	ID       string    `json:"id"`
	Text     string    `json:"question"`
	Answers  []string  `json:"answers"`
	Totals   []int64   `json:"totals"`
	ETag     string    `json:"-"`
	Updated  time.Time `json:"updated"`
}

func QuestionFromRow(row *storage.Row) (*Question, error) {
	q := &Question{
		SurveyID: row.PartitionKey,
		ID:       row.RowKey,
		Text:     row.Fields[FieldQuestion],
		ETag:     row.ETag,
		Updated:  row.Timestamp,
	}
	if err := json.Unmarshal([]byte(row.Fields[FieldAnswers]), &q.Answers); err != nil {
		return nil, fmt.Errorf("question %s/%s: bad answers field: %w", row.PartitionKey, row.RowKey, err)
	}
	if err := json.Unmarshal([]byte(row.Fields[FieldTotals]), &q.Totals); err != nil {
		return nil, fmt.Errorf("question %s/%s: bad totals field: %w", row.PartitionKey, row.RowKey, err)
	}
	if len(q.Answers) != len(q.Totals) {
		return nil, fmt.Errorf("question %s/%s: %d answers but %d totals",
			row.PartitionKey, row.RowKey, len(q.Answers), len(q.Totals))
	}
	return q, nil
}

func (q *Question) ToRow() storage.Row {
	return storage.Row{
		PartitionKey: q.SurveyID,
		RowKey:       q.ID,
		Fields: map[string]string{
			FieldQuestion: q.Text,
			FieldAnswers:  EncodeStrings(q.Answers),
			FieldTotals:   EncodeTotals(q.Totals),
		},
	}
}

func EncodeStrings(values []string) string {
	encoded, _ := json.Marshal(values)
	return string(encoded)
}

func EncodeTotals(totals []int64) string {
	encoded, _ := json.Marshal(totals)
	return string(encoded)
}
