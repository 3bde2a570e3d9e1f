package services

import (
	"context"
	"errors"
	"fmt"

	"opensurvey/models"
	"opensurvey/storage"
)

// maxSubmitAttempts bounds the read-increment-write loop. Each attempt
// re-reads the question, so neither a conflicting writer nor a transient
// storage failure can make stale totals reach the store.
const maxSubmitAttempts = 5

// TallyService turns a submitted answer index into a durable increment of
// one question's tally vector. Updates to the same question are serialized
// by the conditional write on the etag read alongside the totals: a losing
// writer re-reads and retries instead of overwriting the winner's count.
type TallyService struct {
	surveys *SurveyService
}

func NewTallyService(surveys *SurveyService) *TallyService {
	return &TallyService{surveys: surveys}
}

// SubmitAnswer increments totals[answerIndex] on the given question and
// returns the updated question. The index is validated against the stored
// answer set before anything is written.
func (s *TallyService) SubmitAnswer(ctx context.Context, surveyID, questionID string, answerIndex int) (*models.Question, error) {
	var lastErr error

	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		question, err := s.surveys.GetQuestion(ctx, surveyID, questionID)
		if err != nil {
			return nil, err
		}

		if answerIndex < 0 || answerIndex >= len(question.Totals) {
			return nil, fmt.Errorf("%w: index %d, question %s/%s has %d answers",
				ErrInvalidAnswerIndex, answerIndex, surveyID, questionID, len(question.Answers))
		}

		totals := append([]int64(nil), question.Totals...)
		totals[answerIndex]++

		updated, err := s.surveys.PutQuestionTotals(ctx, surveyID, questionID, totals, question.ETag)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, storage.ErrNotFound) {
			// Question deleted between read and write.
			return nil, fmt.Errorf("question %s/%s: %w", surveyID, questionID, ErrQuestionNotFound)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("submit answer %s/%s: %w", surveyID, questionID, ctx.Err())
		}
		// Conflict or transient storage failure: loop with a fresh read.
		lastErr = err
	}

	if errors.Is(lastErr, storage.ErrConflict) {
		return nil, fmt.Errorf("question %s/%s after %d attempts: %w",
			surveyID, questionID, maxSubmitAttempts, ErrConcurrencyExhausted)
	}
	return nil, fmt.Errorf("submit answer %s/%s: %w", surveyID, questionID, lastErr)
}
