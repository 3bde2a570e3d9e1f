package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"opensurvey/services"

	"github.com/gin-gonic/gin"
)

type SurveyHandler struct {
	surveyService *services.SurveyService
	tallyService  *services.TallyService
}

func NewSurveyHandler(surveyService *services.SurveyService, tallyService *services.TallyService) *SurveyHandler {
	return &SurveyHandler{
		surveyService: surveyService,
		tallyService:  tallyService,
	}
}

var questionFormTmpl = template.Must(template.New("question").Parse(`<!DOCTYPE html>
<html>
 <head>
   <meta name="viewport" content="initial-scale=1.0, user-scalable=no">
   <meta charset="utf-8">
   <title>Question: {{.Text}}</title>
 </head>
 <body>
     <form method="post">
         <h1>{{.Text}}</h1>
{{- range $i, $answer := .Answers}}
         <input type="radio" name="answer" value="{{$i}}"><label>{{$answer}}</label>
{{- end}}
         <div>
             <button type="submit" name="action">Submit</button>
         </div>
     </form>
 </body>
</html>
`))

func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	survey, err := h.surveyService.GetSurvey(c.Request.Context(), c.Param("survey"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, survey)
}

func (h *SurveyHandler) GetQuestion(c *gin.Context) {
	question, err := h.surveyService.GetQuestion(c.Request.Context(), c.Param("survey"), c.Param("question"))
	if err != nil {
		respondError(c, err)
		return
	}

	switch c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) {
	case gin.MIMEHTML:
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := questionFormTmpl.Execute(c.Writer, question); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
		}
	default:
		c.JSON(http.StatusOK, question)
	}
}

type submitAnswerRequest struct {
	Answer string `json:"answer" form:"answer" binding:"required"`
}

func (h *SurveyHandler) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answerIndex, err := strconv.Atoi(req.Answer)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answer must be an index into the question's answers"})
		return
	}

	question, err := h.tallyService.SubmitAnswer(c.Request.Context(), c.Param("survey"), c.Param("question"), answerIndex)
	if err != nil {
		respondError(c, err)
		return
	}

	// Form submissions land on the chart, like the original survey pages did.
	if c.ContentType() == gin.MIMEPOSTForm {
		c.Redirect(http.StatusFound, c.Param("question")+"/chart")
		return
	}
	c.JSON(http.StatusOK, question)
}

// GetQuestionChart reshapes a question's tallies for charting: one
// [answer, total, label] triple per answer.
func (h *SurveyHandler) GetQuestionChart(c *gin.Context) {
	question, err := h.surveyService.GetQuestion(c.Request.Context(), c.Param("survey"), c.Param("question"))
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([][]interface{}, 0, len(question.Answers))
	for i, answer := range question.Answers {
		results = append(results, []interface{}{answer, question.Totals[i], question.Totals[i]})
	}

	c.JSON(http.StatusOK, gin.H{
		"question": question.Text,
		"results":  results,
		"updated":  question.Updated,
	})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSurveyNotFound),
		errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidAnswerIndex):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConcurrencyExhausted):
		// Transient: the client can safely retry the submission.
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
