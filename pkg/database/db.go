package database

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/festivalcrew/poster-crew-api/pkg/logging"
	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

// Event represents one festival edition
type Event struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Year   int    `gorm:"unique;not null" json:"year"`
	Name   string `gorm:"not null" json:"name"`
	Active bool   `gorm:"default:true" json:"active"`
}

// Area represents one geographic distribution area
type Area struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Code          string `gorm:"unique;not null" json:"code"`
	Name          string `gorm:"not null" json:"name"`
	AdjacentCodes string `json:"adjacentCodes"` // pipe-separated area codes
}

// Team represents the teams table; list fields are stored pipe-separated
type Team struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	TeamID          string `gorm:"unique;not null" json:"teamId"`
	TeamCode        string `gorm:"not null" json:"teamCode"`
	TeamName        string `gorm:"not null" json:"teamName"`
	TimeSlot        string `gorm:"not null" json:"timeSlot"`
	AssignedArea    string `json:"assignedArea"`
	AdjacentAreas   string `json:"adjacentAreas"`
	MaxMembers      int    `gorm:"default:10" json:"maxMembers"`
	PreferredGrades string `json:"preferredGrades"`
	EventYear       int    `gorm:"index" json:"eventYear"`
}

// ToModel converts the stored row into the engine's team shape.
func (t *Team) ToModel() models.Team {
	return models.Team{
		TeamID:          t.TeamID,
		TeamCode:        t.TeamCode,
		TeamName:        t.TeamName,
		TimeSlot:        models.NormalizeTimeSlot(t.TimeSlot),
		AssignedArea:    t.AssignedArea,
		AdjacentAreas:   SplitList(t.AdjacentAreas),
		MaxMembers:      t.MaxMembers,
		PreferredGrades: SplitGrades(t.PreferredGrades),
	}
}

// SurveyForm represents one collection form for an event
type SurveyForm struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	FormID    string `gorm:"unique;not null" json:"formId"`
	EventYear int    `gorm:"index;not null" json:"eventYear"`
	Title     string `gorm:"not null" json:"title"`
	Open      bool   `gorm:"default:true" json:"open"`
}

// Response represents one collected survey response
type Response struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ResponseID   string    `gorm:"unique;not null" json:"responseId"`
	FormID       string    `gorm:"index;not null" json:"formId"`
	EventYear    int       `gorm:"index;not null" json:"eventYear"`
	Name         string    `gorm:"not null" json:"name"`
	Section      string    `json:"section"`
	Grade        int       `json:"grade"`
	Availability string    `json:"availability"`
	PRChoice     string    `json:"prChoice"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ToParticipant converts the stored row into the engine's participant shape.
func (r *Response) ToParticipant() models.Participant {
	return models.Participant{
		ResponseID:   r.ResponseID,
		Name:         r.Name,
		Section:      r.Section,
		Grade:        r.Grade,
		Availability: models.NormalizeTimeSlot(r.Availability),
	}
}

// Assignment represents the assignments table; one row per placed response
type Assignment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ResponseID string    `gorm:"unique;not null" json:"responseId"`
	TeamID     string    `gorm:"index;not null" json:"teamId"`
	EventYear  int       `gorm:"index;not null" json:"eventYear"`
	AssignedAt time.Time `json:"assignedAt"`
	AssignedBy string    `gorm:"not null" json:"assignedBy"`
	TimeSlot   string    `gorm:"not null" json:"timeSlot"`
}

// ToModel converts the stored row into the engine's assignment shape.
func (a *Assignment) ToModel() models.Assignment {
	return models.Assignment{
		ResponseID: a.ResponseID,
		TeamID:     a.TeamID,
		AssignedAt: a.AssignedAt,
		AssignedBy: a.AssignedBy,
		TimeSlot:   models.TimeSlot(a.TimeSlot),
	}
}

// MasterUser represents the admin accounts table
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// FormKey represents the submission keys table; each key authorizes
// submissions to exactly one form
type FormKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"key"`
	FormID     string     `gorm:"index;not null" json:"formId"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"keyPreview"`
	RateLimit  int        `gorm:"default:10000" json:"rateLimit"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsed   *time.Time `json:"lastUsed"`
}

// FormUsage represents per-key per-day submission counters
type FormUsage struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	KeyID          uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"keyId"`
	Date           string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount   int    `gorm:"default:0" json:"requestCount"`
	TotalResponses int    `gorm:"default:0" json:"totalResponses"`
}

// SplitList splits a pipe-separated stored list, dropping empty entries.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList joins values into the pipe-separated stored form.
func JoinList(vals []string) string {
	return strings.Join(vals, "|")
}

// SplitGrades parses a pipe-separated grade list, skipping non-numbers.
func SplitGrades(s string) []int {
	var out []int
	for _, part := range SplitList(s) {
		if g, err := strconv.Atoi(part); err == nil {
			out = append(out, g)
		}
	}
	return out
}

// JoinGrades joins grades into the pipe-separated stored form.
func JoinGrades(grades []int) string {
	parts := make([]string, len(grades))
	for i, g := range grades {
		parts[i] = strconv.Itoa(g)
	}
	return strings.Join(parts, "|")
}

// InitDB initializes the database connection and migrates the schema
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "postercrew.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		logging.Log.Fatalf("failed to connect database: %v", err)
	}

	// Auto Migration
	db.AutoMigrate(&Event{}, &Area{}, &Team{}, &SurveyForm{}, &Response{},
		&Assignment{}, &MasterUser{}, &FormKey{}, &FormUsage{})

	return db
}
