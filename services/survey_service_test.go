package services

import (
	"context"
	"testing"

	"opensurvey/models"
	"opensurvey/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServices(t *testing.T) (storage.Table, *SurveyService, *TallyService, *ProvisionService) {
	t.Helper()

	table := storage.NewMemory()
	surveys := NewSurveyService(table)
	return table, surveys, NewTallyService(surveys), NewProvisionService(table, surveys)
}

func createTestSurvey(t *testing.T, provisions *ProvisionService, surveyID string, questions ...CreateQuestionRequest) {
	t.Helper()

	_, err := provisions.CreateSurvey(context.Background(), &CreateSurveyRequest{
		SurveyID:  surveyID,
		Title:     "Test Survey",
		Questions: questions,
	})
	require.NoError(t, err)
}

func TestGetSurvey(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)
	ctx := context.Background()
	createTestSurvey(t, provisions, "s1",
		CreateQuestionRequest{Text: "q1?", Answers: []string{"A", "B"}},
		CreateQuestionRequest{Text: "q2?", Answers: []string{"C", "D", "E"}},
	)

	survey, err := surveys.GetSurvey(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, survey.Info)
	assert.Equal(t, "Test Survey", survey.Info.Title)
	assert.Len(t, survey.Questions, 2)

	_, err = surveys.GetSurvey(ctx, "nope")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestGetSurveyWithoutInfoRow(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)
	ctx := context.Background()
	createTestSurvey(t, provisions, "s1",
		CreateQuestionRequest{Text: "q1?", Answers: []string{"A", "B"}})

	// Orphaned surveys are degraded but valid: no cascade on info delete.
	require.NoError(t, surveys.DeleteRow(ctx, "s1", models.RowKeyInfo))

	survey, err := surveys.GetSurvey(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, survey.Info)
	assert.Len(t, survey.Questions, 1)
}

func TestListQuestionsScanBound(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)

	questions := make([]CreateQuestionRequest, 8)
	for i := range questions {
		questions[i] = CreateQuestionRequest{Text: "q?", Answers: []string{"A", "B"}}
	}
	createTestSurvey(t, provisions, "big", questions...)

	listed, err := surveys.ListQuestions(context.Background(), "big")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(listed), MaxQuestionRows)
	assert.NotEmpty(t, listed)
}

func TestGetQuestion(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)
	ctx := context.Background()
	createTestSurvey(t, provisions, "s1",
		CreateQuestionRequest{Text: "q1?", Answers: []string{"A", "B"}})

	question, err := surveys.GetQuestion(ctx, "s1", "1")
	require.NoError(t, err)
	assert.Equal(t, "q1?", question.Text)
	assert.Equal(t, []int64{0, 0}, question.Totals)
	assert.NotEmpty(t, question.ETag)

	_, err = surveys.GetQuestion(ctx, "s1", "9")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestPutQuestionTotalsMergesOnlyTotals(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)
	ctx := context.Background()
	createTestSurvey(t, provisions, "s1",
		CreateQuestionRequest{Text: "q1?", Answers: []string{"A", "B"}})

	before, err := surveys.GetQuestion(ctx, "s1", "1")
	require.NoError(t, err)

	updated, err := surveys.PutQuestionTotals(ctx, "s1", "1", []int64{2, 3}, before.ETag)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, updated.Totals)
	assert.Equal(t, "q1?", updated.Text)
	assert.Equal(t, []string{"A", "B"}, updated.Answers)

	_, err = surveys.PutQuestionTotals(ctx, "s1", "1", []int64{9, 9}, before.ETag)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestDeleteRowPassesStorageErrorsThrough(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)
	ctx := context.Background()
	createTestSurvey(t, provisions, "s1",
		CreateQuestionRequest{Text: "q1?", Answers: []string{"A", "B"}})

	require.NoError(t, surveys.DeleteRow(ctx, "s1", "1"))
	assert.ErrorIs(t, surveys.DeleteRow(ctx, "s1", "1"), storage.ErrNotFound)
}
