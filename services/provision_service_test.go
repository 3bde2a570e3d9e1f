package services

import (
	"context"
	"errors"
	"testing"

	"opensurvey/models"
	"opensurvey/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenBatchTable rejects every batch, standing in for a table service that
// failed mid-batch but honored its all-or-nothing contract.
type brokenBatchTable struct {
	storage.Table
}

func (t *brokenBatchTable) InsertBatch(ctx context.Context, partitionKey string, rows []storage.Row) error {
	return errors.New("service unavailable")
}

func TestCreateSurveyStock(t *testing.T) {
	_, _, _, provisions := newTestServices(t)

	survey, err := provisions.CreateSurvey(context.Background(), &CreateSurveyRequest{SurveyID: "s1"})
	require.NoError(t, err)

	require.NotNil(t, survey.Info)
	assert.Equal(t, "Survey One Title", survey.Info.Title)
	assert.Equal(t, "Survey One Description....", survey.Info.Description)
	require.Len(t, survey.Questions, 2)

	byID := map[string]models.Question{}
	for _, q := range survey.Questions {
		byID[q.ID] = q
	}
	assert.Equal(t, []string{"Nothing", "Everything"}, byID["1"].Answers)
	assert.Equal(t, []int64{0, 0}, byID["1"].Totals)
	assert.Equal(t, []string{"water", "Coffee", "Juice"}, byID["2"].Answers)
	assert.Equal(t, []int64{0, 0, 0}, byID["2"].Totals)
}

func TestCreateSurveyGeneratesID(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)

	survey, err := provisions.CreateSurvey(context.Background(), &CreateSurveyRequest{
		Title:     "Anonymous",
		Questions: []CreateQuestionRequest{{Text: "q?", Answers: []string{"A", "B"}}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, survey.SurveyID)

	fetched, err := surveys.GetSurvey(context.Background(), survey.SurveyID)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", fetched.Info.Title)
}

func TestCreateSurveyDuplicate(t *testing.T) {
	_, _, _, provisions := newTestServices(t)
	ctx := context.Background()

	_, err := provisions.CreateSurvey(ctx, &CreateSurveyRequest{SurveyID: "s1"})
	require.NoError(t, err)

	_, err = provisions.CreateSurvey(ctx, &CreateSurveyRequest{SurveyID: "s1"})
	assert.ErrorIs(t, err, ErrBatchCreate)
	assert.ErrorIs(t, err, storage.ErrRowExists)
}

func TestCreateSurveyAtomicOnFailure(t *testing.T) {
	table := storage.NewMemory()
	surveys := NewSurveyService(table)
	provisions := NewProvisionService(&brokenBatchTable{Table: table}, surveys)

	_, err := provisions.CreateSurvey(context.Background(), &CreateSurveyRequest{
		SurveyID:  "s1",
		Title:     "Doomed",
		Questions: []CreateQuestionRequest{{Text: "q?", Answers: []string{"A", "B"}}},
	})
	assert.ErrorIs(t, err, ErrBatchCreate)

	// No partial survey: the partition must be completely empty.
	_, err = surveys.GetSurvey(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSurveyNotFound)
}

func TestDeleteRowNoCascade(t *testing.T) {
	_, surveys, _, provisions := newTestServices(t)
	ctx := context.Background()
	createTestSurvey(t, provisions, "s1",
		CreateQuestionRequest{Text: "q?", Answers: []string{"A", "B"}})

	require.NoError(t, provisions.DeleteRow(ctx, "s1", models.RowKeyInfo))

	// Question rows survive the info row's deletion.
	question, err := surveys.GetQuestion(ctx, "s1", "1")
	require.NoError(t, err)
	assert.Equal(t, "q?", question.Text)

	assert.ErrorIs(t, provisions.DeleteRow(ctx, "s1", "info"), storage.ErrNotFound)
}
