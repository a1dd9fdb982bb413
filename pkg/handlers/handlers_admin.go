package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

func validTeamSlot(slot string) bool {
	switch models.NormalizeTimeSlot(slot) {
	case models.SlotMorning, models.SlotAfternoon, models.SlotBoth, models.SlotPR, models.SlotOther:
		return true
	}
	return false
}

// CreateEvent registers a festival edition
func (h *Handler) CreateEvent(c *gin.Context) {
	var req database.Event
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Year == 0 || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year and name are required"})
		return
	}
	req.ID = 0
	if err := h.DB.Create(&req).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create event"})
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListEvents returns all events, newest first
func (h *Handler) ListEvents(c *gin.Context) {
	var events []database.Event
	h.DB.Order("year desc").Find(&events)
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// UpdateEvent updates an event's name or active flag
func (h *Handler) UpdateEvent(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	var req struct {
		Name   *string `json:"name"`
		Active *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	res := h.DB.Model(&database.Event{}).Where("year = ?", year).Updates(updates)
	if res.Error != nil || res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event updated"})
}

// DeleteEvent removes an event
func (h *Handler) DeleteEvent(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	h.DB.Where("year = ?", year).Delete(&database.Event{})
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

// CreateArea registers a distribution area
func (h *Handler) CreateArea(c *gin.Context) {
	var req struct {
		Code          string   `json:"code"`
		Name          string   `json:"name"`
		AdjacentCodes []string `json:"adjacentCodes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Code == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required"})
		return
	}
	area := database.Area{
		Code:          req.Code,
		Name:          req.Name,
		AdjacentCodes: database.JoinList(req.AdjacentCodes),
	}
	if err := h.DB.Create(&area).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create area"})
		return
	}
	c.JSON(http.StatusOK, area)
}

// ListAreas returns all distribution areas
func (h *Handler) ListAreas(c *gin.Context) {
	var areas []database.Area
	h.DB.Order("code").Find(&areas)
	c.JSON(http.StatusOK, gin.H{"areas": areas})
}

// DeleteArea removes a distribution area
func (h *Handler) DeleteArea(c *gin.Context) {
	h.DB.Where("code = ?", c.Param("code")).Delete(&database.Area{})
	c.JSON(http.StatusOK, gin.H{"message": "Area deleted"})
}

type teamRequest struct {
	TeamID          string   `json:"teamId"`
	TeamCode        string   `json:"teamCode"`
	TeamName        string   `json:"teamName"`
	TimeSlot        string   `json:"timeSlot"`
	AssignedArea    string   `json:"assignedArea"`
	AdjacentAreas   []string `json:"adjacentAreas"`
	MaxMembers      int      `json:"maxMembers"`
	PreferredGrades []int    `json:"preferredGrades"`
	EventYear       int      `json:"eventYear"`
}

// CreateTeam registers a distribution team
func (h *Handler) CreateTeam(c *gin.Context) {
	var req teamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TeamName == "" || req.EventYear == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "teamName and eventYear are required"})
		return
	}
	if !validTeamSlot(req.TimeSlot) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeSlot"})
		return
	}
	if req.TeamID == "" {
		req.TeamID = uuid.NewString()
	}
	if req.MaxMembers <= 0 {
		req.MaxMembers = models.DefaultMaxMembers
	}
	team := database.Team{
		TeamID:          req.TeamID,
		TeamCode:        req.TeamCode,
		TeamName:        req.TeamName,
		TimeSlot:        string(models.NormalizeTimeSlot(req.TimeSlot)),
		AssignedArea:    req.AssignedArea,
		AdjacentAreas:   database.JoinList(req.AdjacentAreas),
		MaxMembers:      req.MaxMembers,
		PreferredGrades: database.JoinGrades(req.PreferredGrades),
		EventYear:       req.EventYear,
	}
	if err := h.DB.Create(&team).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create team"})
		return
	}
	c.JSON(http.StatusOK, team)
}

// ListTeams returns teams, optionally filtered by event year
func (h *Handler) ListTeams(c *gin.Context) {
	q := h.DB.Order("team_id")
	if year := c.Query("year"); year != "" {
		q = q.Where("event_year = ?", year)
	}
	var teams []database.Team
	q.Find(&teams)
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

// UpdateTeam replaces a team's editable fields
func (h *Handler) UpdateTeam(c *gin.Context) {
	teamID := c.Param("teamId")
	var req teamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TimeSlot != "" && !validTeamSlot(req.TimeSlot) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timeSlot"})
		return
	}
	updates := map[string]interface{}{}
	if req.TeamCode != "" {
		updates["team_code"] = req.TeamCode
	}
	if req.TeamName != "" {
		updates["team_name"] = req.TeamName
	}
	if req.TimeSlot != "" {
		updates["time_slot"] = string(models.NormalizeTimeSlot(req.TimeSlot))
	}
	if req.AssignedArea != "" {
		updates["assigned_area"] = req.AssignedArea
	}
	if req.AdjacentAreas != nil {
		updates["adjacent_areas"] = database.JoinList(req.AdjacentAreas)
	}
	if req.MaxMembers > 0 {
		updates["max_members"] = req.MaxMembers
	}
	if req.PreferredGrades != nil {
		updates["preferred_grades"] = database.JoinGrades(req.PreferredGrades)
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	res := h.DB.Model(&database.Team{}).Where("team_id = ?", teamID).Updates(updates)
	if res.Error != nil || res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team updated"})
}

// DeleteTeam removes a team and its assignments
func (h *Handler) DeleteTeam(c *gin.Context) {
	teamID := c.Param("teamId")
	h.DB.Where("team_id = ?", teamID).Delete(&database.Assignment{})
	h.DB.Where("team_id = ?", teamID).Delete(&database.Team{})
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
}

// CreateForm registers a survey form for an event
func (h *Handler) CreateForm(c *gin.Context) {
	var req struct {
		FormID    string `json:"formId"`
		EventYear int    `json:"eventYear"`
		Title     string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EventYear == 0 || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "eventYear and title are required"})
		return
	}
	if req.FormID == "" {
		req.FormID = uuid.NewString()
	}
	form := database.SurveyForm{
		FormID:    req.FormID,
		EventYear: req.EventYear,
		Title:     req.Title,
		Open:      true,
	}
	if err := h.DB.Create(&form).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create form"})
		return
	}
	c.JSON(http.StatusOK, form)
}

// ListForms returns forms, optionally filtered by event year
func (h *Handler) ListForms(c *gin.Context) {
	q := h.DB.Order("event_year desc")
	if year := c.Query("year"); year != "" {
		q = q.Where("event_year = ?", year)
	}
	var forms []database.SurveyForm
	q.Find(&forms)
	c.JSON(http.StatusOK, gin.H{"forms": forms})
}

// UpdateForm opens or closes a form, or renames it
func (h *Handler) UpdateForm(c *gin.Context) {
	var req struct {
		Title *string `json:"title"`
		Open  *bool   `json:"open"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Open != nil {
		updates["open"] = *req.Open
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	res := h.DB.Model(&database.SurveyForm{}).Where("form_id = ?", c.Param("formId")).Updates(updates)
	if res.Error != nil || res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form updated"})
}

// DeleteForm removes a form
func (h *Handler) DeleteForm(c *gin.Context) {
	h.DB.Where("form_id = ?", c.Param("formId")).Delete(&database.SurveyForm{})
	c.JSON(http.StatusOK, gin.H{"message": "Form deleted"})
}

// ListResponses returns collected responses filtered by year and form
func (h *Handler) ListResponses(c *gin.Context) {
	q := h.DB.Order("created_at")
	if year := c.Query("year"); year != "" {
		q = q.Where("event_year = ?", year)
	}
	if formID := c.Query("formId"); formID != "" {
		q = q.Where("form_id = ?", formID)
	}
	var responses []database.Response
	q.Find(&responses)
	c.JSON(http.StatusOK, gin.H{"responses": responses})
}
