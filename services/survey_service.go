package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"opensurvey/models"
	"opensurvey/storage"
)

// MaxQuestionRows caps how many rows a partition scan returns, info row
// included. The limit is enforced by the storage driver.
const MaxQuestionRows = 5

// storageOpTimeout bounds every single storage round-trip. A timed-out call
// surfaces as a wrapped context error; nothing is assumed committed.
const storageOpTimeout = 5 * time.Second

func opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storageOpTimeout)
}

// SurveyService owns the record schema: it is the only layer that maps
// between survey entities and stored rows. Every call is a single storage
// round-trip with no caching in between.
type SurveyService struct {
	table storage.Table
}

func NewSurveyService(table storage.Table) *SurveyService {
	return &SurveyService{table: table}
}

// GetSurvey scans the survey's partition and splits the rows into the info
// row and its questions. At most MaxQuestionRows rows are read.
func (s *SurveyService) GetSurvey(ctx context.Context, surveyID string) (*models.Survey, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	rows, err := s.table.Query(ctx, surveyID, MaxQuestionRows)
	if err != nil {
		return nil, fmt.Errorf("query survey %q: %w", surveyID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("survey %q: %w", surveyID, ErrSurveyNotFound)
	}

	survey := &models.Survey{SurveyID: surveyID, Questions: []models.Question{}}
	for i := range rows {
		if rows[i].RowKey == models.RowKeyInfo {
			info, err := models.SurveyInfoFromRow(&rows[i])
			if err != nil {
				return nil, err
			}
			survey.Info = info
			continue
		}
		question, err := models.QuestionFromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		survey.Questions = append(survey.Questions, *question)
	}
	return survey, nil
}

// ListQuestions returns the survey's question rows in the store's native
// scan order, which is not guaranteed to be row-key order.
func (s *SurveyService) ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	survey, err := s.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return survey.Questions, nil
}

func (s *SurveyService) GetSurveyInfo(ctx context.Context, surveyID string) (*models.SurveyInfo, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	row, err := s.table.Get(ctx, surveyID, models.RowKeyInfo)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("survey %q: %w", surveyID, ErrSurveyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get survey %q info: %w", surveyID, err)
	}
	return models.SurveyInfoFromRow(row)
}

func (s *SurveyService) GetQuestion(ctx context.Context, surveyID, questionID string) (*models.Question, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	row, err := s.table.Get(ctx, surveyID, questionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("question %s/%s: %w", surveyID, questionID, ErrQuestionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question %s/%s: %w", surveyID, questionID, err)
	}
	return models.QuestionFromRow(row)
}

// PutQuestionTotals writes the totals field only, leaving questionText and
// answers untouched on the stored row. A non-empty etag makes the write
// conditional; storage.ErrConflict surfaces unwrapped so callers can react.
func (s *SurveyService) PutQuestionTotals(ctx context.Context, surveyID, questionID string, totals []int64, etag string) (*models.Question, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	fields := map[string]string{models.FieldTotals: models.EncodeTotals(totals)}
	row, err := s.table.Merge(ctx, surveyID, questionID, fields, etag)
	if err != nil {
		return nil, err
	}
	return models.QuestionFromRow(row)
}

// DeleteRow removes a single row, no cascade: deleting the info row leaves
// question rows in place. Storage errors pass through as reported.
func (s *SurveyService) DeleteRow(ctx context.Context, surveyID, rowID string) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	return s.table.Delete(ctx, surveyID, rowID)
}
