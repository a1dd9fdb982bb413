package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/festivalcrew/poster-crew-api/pkg/assign"
	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/logging"
	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

// RunAssignment executes the auto-assignment for one event's form and
// persists the batch. Prior auto assignments for the event are replaced in
// the same transaction; manual assignments stay and pre-seed the balancing.
func (h *Handler) RunAssignment(c *gin.Context) {
	var req struct {
		Year         int    `json:"year"`
		FormID       string `json:"formId"`
		IncludeOther bool   `json:"includeOther"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Year == 0 || req.FormID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year and formId are required"})
		return
	}

	var responses []database.Response
	h.DB.Where("event_year = ? AND form_id = ?", req.Year, req.FormID).Find(&responses)

	var teamRows []database.Team
	h.DB.Where("event_year = ?", req.Year).Find(&teamRows)

	var existing []database.Assignment
	h.DB.Where("event_year = ?", req.Year).Find(&existing)

	manualByResponse := make(map[string]bool)
	var manual []models.Assignment
	for _, a := range existing {
		if a.AssignedBy == models.AssignedByManual {
			manualByResponse[a.ResponseID] = true
			manual = append(manual, a.ToModel())
		}
	}

	// PR opt-outs and already-placed respondents never reach the engine.
	var participants []models.Participant
	var placed []models.Participant
	prStandby := 0
	for i := range responses {
		r := &responses[i]
		if manualByResponse[r.ResponseID] {
			placed = append(placed, r.ToParticipant())
			continue
		}
		if r.PRChoice == models.PRChoiceNone {
			prStandby++
			continue
		}
		participants = append(participants, r.ToParticipant())
	}

	teams := make([]models.Team, len(teamRows))
	for i := range teamRows {
		teams[i] = teamRows[i].ToModel()
	}

	engine := assign.NewEngine(participants, teams, req.IncludeOther)
	engine.Prefill(manual, placed)
	assignments := engine.Run()

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_year = ? AND assigned_by = ?", req.Year, models.AssignedByAuto).
			Delete(&database.Assignment{}).Error; err != nil {
			return err
		}
		for _, a := range assignments {
			row := database.Assignment{
				ResponseID: a.ResponseID,
				TeamID:     a.TeamID,
				EventYear:  req.Year,
				AssignedAt: a.AssignedAt,
				AssignedBy: a.AssignedBy,
				TimeSlot:   string(a.TimeSlot),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not persist assignments"})
		return
	}

	stats := models.AssignStats{
		Total:      len(participants),
		Assigned:   len(assignments),
		Unassigned: len(participants) - len(assignments),
		PRStandby:  prStandby,
	}
	logging.Log.WithFields(map[string]interface{}{
		"year":       req.Year,
		"formId":     req.FormID,
		"total":      stats.Total,
		"assigned":   stats.Assigned,
		"unassigned": stats.Unassigned,
		"prStandby":  stats.PRStandby,
	}).Info("auto-assignment run completed")

	c.JSON(http.StatusOK, models.AssignResponse{Assignments: assignments, Stats: stats})
}

// PreviewAssignment runs the engine on a JSON payload without persisting
// anything. This is the stateless boundary contract of the engine.
func (h *Handler) PreviewAssignment(c *gin.Context) {
	var input models.AssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Participants == nil || input.Teams == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participants and teams are required"})
		return
	}

	assignments := assign.NewEngine(input.Participants, input.Teams, input.IncludeOther).Run()

	c.JSON(http.StatusOK, models.AssignResponse{
		Assignments: assignments,
		Stats: models.AssignStats{
			Total:      len(input.Participants),
			Assigned:   len(assignments),
			Unassigned: len(input.Participants) - len(assignments),
		},
	})
}

// ManualAssign places one response on one team, bypassing the engine.
// This is how PR teams are filled and how admins fix up leftovers.
func (h *Handler) ManualAssign(c *gin.Context) {
	var req struct {
		ResponseID string `json:"responseId"`
		TeamID     string `json:"teamId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ResponseID == "" || req.TeamID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "responseId and teamId are required"})
		return
	}

	var response database.Response
	if err := h.DB.Where("response_id = ?", req.ResponseID).First(&response).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
		return
	}
	var team database.Team
	if err := h.DB.Where("team_id = ?", req.TeamID).First(&team).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	var count int64
	h.DB.Model(&database.Assignment{}).
		Where("team_id = ? AND response_id <> ?", req.TeamID, req.ResponseID).
		Count(&count)
	teamModel := team.ToModel()
	capacity := teamModel.Capacity()
	if int(count) >= capacity {
		c.JSON(http.StatusConflict, gin.H{"error": "Team is at capacity"})
		return
	}

	slot := resolveManualSlot(team.ToModel().TimeSlot, models.NormalizeTimeSlot(response.Availability))

	row := database.Assignment{
		ResponseID: req.ResponseID,
		TeamID:     req.TeamID,
		EventYear:  response.EventYear,
		AssignedAt: time.Now().UTC(),
		AssignedBy: models.AssignedByManual,
		TimeSlot:   string(slot),
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("response_id = ?", req.ResponseID).Delete(&database.Assignment{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save assignment"})
		return
	}

	c.JSON(http.StatusOK, row.ToModel())
}

// resolveManualSlot picks the stored slot for a manual placement: a
// slot-fixed team dictates it, otherwise the volunteer's stated half-day,
// defaulting to morning for fully flexible combinations.
func resolveManualSlot(teamSlot, availability models.TimeSlot) models.TimeSlot {
	if teamSlot == models.SlotMorning || teamSlot == models.SlotAfternoon {
		return teamSlot
	}
	if availability == models.SlotMorning || availability == models.SlotAfternoon {
		return availability
	}
	return models.SlotMorning
}

// ClearAssignments deletes an event's auto assignments so a fresh run
// starts from a clean slate. Manual assignments are kept.
func (h *Handler) ClearAssignments(c *gin.Context) {
	year := c.Query("year")
	if year == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
		return
	}
	res := h.DB.Where("event_year = ? AND assigned_by = ?", year, models.AssignedByAuto).
		Delete(&database.Assignment{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not clear assignments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": res.RowsAffected})
}

// ValidateInput handles a dry-run shape check of an assignment payload
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.AssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(input.Participants) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one participant is required"})
		return
	}
	if len(input.Teams) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one team is required"})
		return
	}

	// Check for duplicate IDs
	responseIDs := make(map[string]bool)
	for _, p := range input.Participants {
		if responseIDs[p.ResponseID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate response ID: " + p.ResponseID})
			return
		}
		responseIDs[p.ResponseID] = true
		if p.Grade < 1 || p.Grade > 4 {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Invalid grade for response: " + p.ResponseID})
			return
		}
	}

	teamIDs := make(map[string]bool)
	for _, t := range input.Teams {
		if teamIDs[t.TeamID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate team ID: " + t.TeamID})
			return
		}
		teamIDs[t.TeamID] = true
		if !validTeamSlot(string(t.TimeSlot)) {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Invalid timeSlot for team: " + t.TeamID})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"participant_count": len(input.Participants),
			"team_count":        len(input.Teams),
		},
	})
}
