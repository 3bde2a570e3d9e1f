package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"opensurvey/models"
	"opensurvey/storage"

	"github.com/google/uuid"
)

// ProvisionService creates and removes survey records. A new survey's info
// row and question rows go to the store as one all-or-nothing batch, so a
// half-created survey is never visible.
type ProvisionService struct {
	table   storage.Table
	surveys *SurveyService
}

func NewProvisionService(table storage.Table, surveys *SurveyService) *ProvisionService {
	return &ProvisionService{table: table, surveys: surveys}
}

type CreateSurveyRequest struct {
	SurveyID    string                  `json:"survey_id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	DueDate     time.Time               `json:"due_date"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"omitempty,dive"`
}

type CreateQuestionRequest struct {
	Text    string   `json:"question" binding:"required"`
	Answers []string `json:"answers" binding:"required,min=2"`
}

// CreateSurvey provisions the survey and returns it as stored. An empty
// SurveyID gets a generated one; an empty question set falls back to the
// stock survey. On error no row was written; the caller decides whether to
// retry the whole batch.
func (s *ProvisionService) CreateSurvey(ctx context.Context, req *CreateSurveyRequest) (*models.Survey, error) {
	surveyID := req.SurveyID
	if surveyID == "" {
		surveyID = uuid.NewString()
	}

	plan := *req
	if plan.Title == "" && plan.Description == "" && len(plan.Questions) == 0 {
		plan = stockSurvey()
	}

	rows := make([]storage.Row, 0, len(plan.Questions)+1)
	info := models.SurveyInfo{
		SurveyID:    surveyID,
		Title:       plan.Title,
		Description: plan.Description,
		DueDate:     plan.DueDate,
	}
	rows = append(rows, info.ToRow())

	for i, qReq := range plan.Questions {
		question := models.Question{
			SurveyID: surveyID,
			ID:       strconv.Itoa(i + 1),
			Text:     qReq.Text,
			Answers:  qReq.Answers,
			Totals:   make([]int64, len(qReq.Answers)),
		}
		rows = append(rows, question.ToRow())
	}

	batchCtx, cancel := opCtx(ctx)
	defer cancel()
	if err := s.table.InsertBatch(batchCtx, surveyID, rows); err != nil {
		return nil, fmt.Errorf("%w: survey %q: %w", ErrBatchCreate, surveyID, err)
	}

	return s.surveys.GetSurvey(ctx, surveyID)
}

// DeleteRow removes one row of a survey. Single row, not batched.
func (s *ProvisionService) DeleteRow(ctx context.Context, surveyID, rowID string) error {
	return s.surveys.DeleteRow(ctx, surveyID, rowID)
}

// stockSurvey is the fixture survey provisioned when a create request names
// nothing but the survey id.
func stockSurvey() CreateSurveyRequest {
	return CreateSurveyRequest{
		Title:       "Survey One Title",
		Description: "Survey One Description....",
		DueDate:     time.Date(2015, time.December, 1, 0, 0, 0, 0, time.UTC),
		Questions: []CreateQuestionRequest{
			{Text: "What would you like to do today?", Answers: []string{"Nothing", "Everything"}},
			{Text: "What would you like to drink?", Answers: []string{"water", "Coffee", "Juice"}},
		},
	}
}
