package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

// Dashboard returns the fill state of an event: per-team counts against
// capacity, slot and section distributions, and who is still unplaced.
func (h *Handler) Dashboard(c *gin.Context) {
	year := c.Query("year")
	if year == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year is required"})
		return
	}

	var teams []database.Team
	h.DB.Where("event_year = ?", year).Order("team_id").Find(&teams)

	var responses []database.Response
	h.DB.Where("event_year = ?", year).Find(&responses)

	var assignments []database.Assignment
	h.DB.Where("event_year = ?", year).Find(&assignments)

	teamCounts := make(map[string]int)
	assignedResponses := make(map[string]bool)
	slotCounts := make(map[string]int)
	for _, a := range assignments {
		teamCounts[a.TeamID]++
		assignedResponses[a.ResponseID] = true
		slotCounts[a.TimeSlot]++
	}

	teamStats := make([]gin.H, 0, len(teams))
	for i := range teams {
		t := &teams[i]
		m := t.ToModel()
		teamStats = append(teamStats, gin.H{
			"teamId":       t.TeamID,
			"teamCode":     t.TeamCode,
			"teamName":     t.TeamName,
			"timeSlot":     t.TimeSlot,
			"assignedArea": t.AssignedArea,
			"assigned":     teamCounts[t.TeamID],
			"capacity":     m.Capacity(),
		})
	}

	sectionCounts := make(map[string]int)
	var unassigned []gin.H
	prStandby := 0
	for i := range responses {
		r := &responses[i]
		sectionCounts[r.Section]++
		if assignedResponses[r.ResponseID] {
			continue
		}
		if r.PRChoice == models.PRChoiceNone {
			prStandby++
			continue
		}
		unassigned = append(unassigned, gin.H{
			"responseId":   r.ResponseID,
			"name":         r.Name,
			"section":      r.Section,
			"grade":        r.Grade,
			"availability": r.Availability,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"year":       year,
		"teams":      teamStats,
		"slots":      slotCounts,
		"sections":   sectionCounts,
		"unassigned": unassigned,
		"totals": gin.H{
			"responses":  len(responses),
			"assigned":   len(assignedResponses),
			"unassigned": len(unassigned),
			"pr_standby": prStandby,
		},
	})
}
