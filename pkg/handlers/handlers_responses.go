package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

func validAvailability(s string) bool {
	switch models.NormalizeTimeSlot(s) {
	case models.SlotMorning, models.SlotAfternoon, models.SlotBoth:
		return true
	}
	return false
}

// SubmitResponse collects one survey response for the submission key's form
func (h *Handler) SubmitResponse(c *gin.Context) {
	formID := c.GetString("formId")

	var form database.SurveyForm
	if err := h.DB.Where("form_id = ?", formID).First(&form).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}
	if !form.Open {
		c.JSON(http.StatusForbidden, gin.H{"error": "Form is closed"})
		return
	}

	var req struct {
		Name         string `json:"name"`
		Section      string `json:"section"`
		Grade        int    `json:"grade"`
		Availability string `json:"availability"`
		PRChoice     string `json:"prChoice"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.Grade < 1 || req.Grade > 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "grade must be between 1 and 4"})
		return
	}
	if !validAvailability(req.Availability) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid availability"})
		return
	}
	if req.PRChoice != "" && req.PRChoice != models.PRChoiceJoin && req.PRChoice != models.PRChoiceNone {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prChoice"})
		return
	}

	response := database.Response{
		ResponseID:   uuid.NewString(),
		FormID:       formID,
		EventYear:    form.EventYear,
		Name:         req.Name,
		Section:      req.Section,
		Grade:        req.Grade,
		Availability: string(models.NormalizeTimeSlot(req.Availability)),
		PRChoice:     req.PRChoice,
	}
	if err := h.DB.Create(&response).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save response"})
		return
	}

	h.RecordUsage(c, 1)

	c.JSON(http.StatusOK, gin.H{"responseId": response.ResponseID})
}
