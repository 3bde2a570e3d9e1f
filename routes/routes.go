package routes

import (
	"net/http"

	"opensurvey/handlers"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	surveyHandler *handlers.SurveyHandler,
	adminHandler *handlers.AdminHandler,
) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "welcome to my survey app")
	})

	// Survey routes (public)
	survey := router.Group("/survey")
	{
		survey.GET("/:survey", surveyHandler.GetSurvey)
		survey.GET("/:survey/:question", surveyHandler.GetQuestion)
		survey.POST("/:survey/:question", surveyHandler.SubmitAnswer)
		survey.GET("/:survey/:question/chart", surveyHandler.GetQuestionChart)
	}

	// Admin routes
	admin := router.Group("/admin")
	{
		admin.GET("/create/:survey", adminHandler.CreateStockSurvey)
		admin.GET("/delete/:survey/:row", adminHandler.DeleteRow)
		admin.POST("/surveys", adminHandler.CreateSurvey)
		admin.DELETE("/surveys/:survey/rows/:row", adminHandler.DeleteRow)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
