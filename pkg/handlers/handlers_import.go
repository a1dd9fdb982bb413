package handlers

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/logging"
	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

// ImportResponses handles a CSV roster upload for a form. Expected columns:
// name, section, grade, availability, pr_choice (header order is free).
// Bad rows are skipped and counted rather than failing the whole upload.
func (h *Handler) ImportResponses(c *gin.Context) {
	formID := c.PostForm("formId")
	if formID == "" {
		formID = c.Query("formId")
	}
	if formID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "formId is required"})
		return
	}

	var form database.SurveyForm
	if err := h.DB.Where("form_id = ?", formID).First(&form).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	file, err := c.FormFile("responses_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "responses_file is required"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open responses file"})
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read responses header"})
		return
	}
	cols := make(map[string]int)
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"name", "grade", "availability"} {
		if _, ok := cols[required]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing column: " + required})
			return
		}
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	imported := 0
	skipped := 0
	var rows []database.Response
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		name := field(record, "name")
		grade, gradeErr := strconv.Atoi(field(record, "grade"))
		availability := string(models.NormalizeTimeSlot(field(record, "availability")))
		prChoice := field(record, "pr_choice")

		if name == "" || gradeErr != nil || grade < 1 || grade > 4 || !validAvailability(availability) {
			skipped++
			continue
		}
		if prChoice != "" && prChoice != models.PRChoiceJoin && prChoice != models.PRChoiceNone {
			skipped++
			continue
		}

		rows = append(rows, database.Response{
			ResponseID:   uuid.NewString(),
			FormID:       formID,
			EventYear:    form.EventYear,
			Name:         name,
			Section:      field(record, "section"),
			Grade:        grade,
			Availability: availability,
			PRChoice:     prChoice,
		})
		imported++
	}

	if len(rows) > 0 {
		if err := h.DB.Create(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save imported responses"})
			return
		}
	}

	logging.Log.Infof("imported %d responses for form %s (%d skipped)", imported, formID, skipped)

	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
	})
}
