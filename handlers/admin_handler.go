package handlers

import (
	"errors"
	"net/http"

	"opensurvey/services"
	"opensurvey/storage"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	provisionService *services.ProvisionService
}

func NewAdminHandler(provisionService *services.ProvisionService) *AdminHandler {
	return &AdminHandler{provisionService: provisionService}
}

// CreateStockSurvey provisions the fixture survey under the id in the path.
func (h *AdminHandler) CreateStockSurvey(c *gin.Context) {
	req := services.CreateSurveyRequest{SurveyID: c.Param("survey")}

	survey, err := h.provisionService.CreateSurvey(c.Request.Context(), &req)
	if err != nil {
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, survey)
}

func (h *AdminHandler) CreateSurvey(c *gin.Context) {
	var req services.CreateSurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	survey, err := h.provisionService.CreateSurvey(c.Request.Context(), &req)
	if err != nil {
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, survey)
}

func (h *AdminHandler) DeleteRow(c *gin.Context) {
	err := h.provisionService.DeleteRow(c.Request.Context(), c.Param("survey"), c.Param("row"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "row not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "survey row deleted"})
}

func respondCreateError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrRowExists) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	// Batch create failed atomically; nothing was written.
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
