package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/festivalcrew/poster-crew-api/pkg/auth"
	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/models"
)

// setupRouter builds a handler over a throwaway sqlite database. Admin
// routes are mounted without the JWT middleware; auth has its own test.
func setupRouter(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	t.Setenv("DATA_PATH", filepath.Join(t.TempDir(), "test.db"))
	t.Setenv("FORM_KEY_SECRET", "test-secret")

	db := database.InitDB()
	h := &Handler{DB: db}

	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/admin/login", h.Login)
	r.POST("/admin/events", h.CreateEvent)
	r.GET("/admin/events", h.ListEvents)
	r.POST("/admin/teams", h.CreateTeam)
	r.GET("/admin/teams", h.ListTeams)
	r.POST("/admin/forms", h.CreateForm)
	r.POST("/admin/import/responses", h.ImportResponses)
	r.POST("/admin/assign", h.RunAssignment)
	r.DELETE("/admin/assignments", h.ClearAssignments)
	r.POST("/admin/assignments/manual", h.ManualAssign)
	r.GET("/admin/dashboard", h.Dashboard)
	r.POST("/admin/keys", h.GenerateKey)

	api := r.Group("/api")
	api.Use(h.FormKeyMiddleware())
	{
		api.POST("/responses", h.SubmitResponse)
		api.POST("/validate", h.ValidateInput)
		api.POST("/assign/preview", h.PreviewAssignment)
	}

	return db, r
}

func performRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			panic("failed to marshal request body: " + err.Error())
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func seedEvent(t *testing.T, db *gorm.DB, year int) {
	t.Helper()
	require.NoError(t, db.Create(&database.Event{Year: year, Name: "Festival", Active: true}).Error)
}

func seedForm(t *testing.T, db *gorm.DB, formID string, year int) {
	t.Helper()
	require.NoError(t, db.Create(&database.SurveyForm{FormID: formID, EventYear: year, Title: "Volunteer survey", Open: true}).Error)
}

func seedTeam(t *testing.T, db *gorm.DB, teamID, slot string, max, year int) {
	t.Helper()
	require.NoError(t, db.Create(&database.Team{
		TeamID: teamID, TeamCode: teamID, TeamName: "Team " + teamID,
		TimeSlot: slot, MaxMembers: max, EventYear: year,
	}).Error)
}

func seedResponse(t *testing.T, db *gorm.DB, responseID, formID string, year int, section string, grade int, availability, prChoice string) {
	t.Helper()
	require.NoError(t, db.Create(&database.Response{
		ResponseID: responseID, FormID: formID, EventYear: year,
		Name: "P " + responseID, Section: section, Grade: grade,
		Availability: availability, PRChoice: prChoice,
	}).Error)
}

func TestRunAssignment(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)
	seedTeam(t, db, "t-am", "morning", 10, 2026)
	seedTeam(t, db, "t-pm", "afternoon", 10, 2026)
	seedResponse(t, db, "r1", "f1", 2026, "band", 2, "morning", "")
	seedResponse(t, db, "r2", "f1", 2026, "band", 2, "afternoon", "")
	seedResponse(t, db, "r3", "f1", 2026, "band", 3, "both", "none") // PR standby

	res := performRequest(router, http.MethodPost, "/admin/assign",
		gin.H{"year": 2026, "formId": "f1"}, nil)

	require.Equal(t, http.StatusOK, res.Code)

	var out models.AssignResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Stats.Total)
	assert.Equal(t, 2, out.Stats.Assigned)
	assert.Equal(t, 0, out.Stats.Unassigned)
	assert.Equal(t, 1, out.Stats.PRStandby)

	var rows []database.Assignment
	db.Find(&rows)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, models.AssignedByAuto, row.AssignedBy)
		assert.NotEqual(t, "r3", row.ResponseID)
	}

	// Re-running replaces the batch and reproduces the same placements.
	res = performRequest(router, http.MethodPost, "/admin/assign",
		gin.H{"year": 2026, "formId": "f1"}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var again models.AssignResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &again))
	require.Len(t, again.Assignments, len(out.Assignments))
	for i := range out.Assignments {
		assert.Equal(t, out.Assignments[i].TeamID, again.Assignments[i].TeamID)
	}
	db.Find(&rows)
	assert.Len(t, rows, 2)
}

func TestRunAssignment_MissingData(t *testing.T) {
	_, router := setupRouter(t)

	res := performRequest(router, http.MethodPost, "/admin/assign", gin.H{"year": 2026}, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = performRequest(router, http.MethodPost, "/admin/assign", gin.H{"formId": "f1"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestRunAssignment_KeepsManualAssignments(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)
	seedTeam(t, db, "t1", "morning", 10, 2026)
	seedResponse(t, db, "r1", "f1", 2026, "band", 2, "morning", "")
	seedResponse(t, db, "r2", "f1", 2026, "band", 2, "morning", "")

	res := performRequest(router, http.MethodPost, "/admin/assignments/manual",
		gin.H{"responseId": "r1", "teamId": "t1"}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = performRequest(router, http.MethodPost, "/admin/assign",
		gin.H{"year": 2026, "formId": "f1"}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var out models.AssignResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	// Only r2 went through the engine; r1 keeps its manual placement.
	assert.Equal(t, 1, out.Stats.Total)
	assert.Equal(t, 1, out.Stats.Assigned)

	var manualRow database.Assignment
	require.NoError(t, db.Where("response_id = ?", "r1").First(&manualRow).Error)
	assert.Equal(t, models.AssignedByManual, manualRow.AssignedBy)
}

func TestClearAssignments(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)
	seedTeam(t, db, "t1", "morning", 10, 2026)
	seedResponse(t, db, "r1", "f1", 2026, "band", 2, "morning", "")

	performRequest(router, http.MethodPost, "/admin/assign", gin.H{"year": 2026, "formId": "f1"}, nil)

	res := performRequest(router, http.MethodDelete, "/admin/assignments?year=2026", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var count int64
	db.Model(&database.Assignment{}).Count(&count)
	assert.Zero(t, count)
}

func TestManualAssign_CapacityConflict(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)
	seedTeam(t, db, "t1", "pr", 1, 2026)
	seedResponse(t, db, "r1", "f1", 2026, "band", 2, "both", "join")
	seedResponse(t, db, "r2", "f1", 2026, "band", 2, "both", "join")

	res := performRequest(router, http.MethodPost, "/admin/assignments/manual",
		gin.H{"responseId": "r1", "teamId": "t1"}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	res = performRequest(router, http.MethodPost, "/admin/assignments/manual",
		gin.H{"responseId": "r2", "teamId": "t1"}, nil)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestPreviewAssignment(t *testing.T) {
	db, router := setupRouter(t)

	input := models.AssignInput{
		Participants: []models.Participant{
			{ResponseID: "r1", Name: "A", Section: "band", Grade: 2, Availability: models.SlotMorning},
			{ResponseID: "r2", Name: "B", Section: "band", Grade: 2, Availability: models.SlotAfternoon},
		},
		Teams: []models.Team{
			{TeamID: "t-am", TeamName: "AM", TimeSlot: models.SlotMorning},
			{TeamID: "t-pm", TeamName: "PM", TimeSlot: models.SlotAfternoon},
		},
	}
	key := auth.GenerateFormKey("f1")
	res := performRequest(router, http.MethodPost, "/api/assign/preview", input,
		map[string]string{"Authorization": "Bearer " + key})

	require.Equal(t, http.StatusOK, res.Code)
	var out models.AssignResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Stats.Assigned)

	// Preview must not persist anything.
	var count int64
	db.Model(&database.Assignment{}).Count(&count)
	assert.Zero(t, count)
}

func TestValidateInput(t *testing.T) {
	_, router := setupRouter(t)
	key := auth.GenerateFormKey("f1")
	headers := map[string]string{"Authorization": "Bearer " + key}

	res := performRequest(router, http.MethodPost, "/api/validate", models.AssignInput{
		Participants: []models.Participant{
			{ResponseID: "r1", Grade: 2, Availability: models.SlotMorning},
			{ResponseID: "r1", Grade: 2, Availability: models.SlotMorning},
		},
		Teams: []models.Team{{TeamID: "t1", TimeSlot: models.SlotMorning}},
	}, headers)
	require.Equal(t, http.StatusOK, res.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, false, out["valid"])

	res = performRequest(router, http.MethodPost, "/api/validate", models.AssignInput{
		Participants: []models.Participant{{ResponseID: "r1", Grade: 2, Availability: models.SlotMorning}},
		Teams:        []models.Team{{TeamID: "t1", TimeSlot: models.SlotMorning}},
	}, headers)
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, true, out["valid"])
}

func TestSubmitResponse(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)

	key := auth.GenerateFormKey("f1")
	res := performRequest(router, http.MethodPost, "/api/responses",
		gin.H{"name": "Aoi", "section": "band", "grade": 2, "availability": "all", "prChoice": "join"},
		map[string]string{"Authorization": "Bearer " + key})

	require.Equal(t, http.StatusOK, res.Code)

	var saved database.Response
	require.NoError(t, db.First(&saved).Error)
	assert.Equal(t, "f1", saved.FormID)
	assert.Equal(t, 2026, saved.EventYear)
	assert.Equal(t, "both", saved.Availability) // legacy "all" normalized
	assert.NotEmpty(t, saved.ResponseID)

	var usage database.FormUsage
	require.NoError(t, db.First(&usage).Error)
	assert.Equal(t, 1, usage.RequestCount)
}

func TestSubmitResponse_BadKey(t *testing.T) {
	_, router := setupRouter(t)

	res := performRequest(router, http.MethodPost, "/api/responses",
		gin.H{"name": "Aoi", "grade": 2, "availability": "morning"},
		map[string]string{"Authorization": "Bearer fk.f1.deadbeef"})

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestImportResponses(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("formId", "f1"))
	fw, err := w.CreateFormFile("responses_file", "roster.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("name,section,grade,availability,pr_choice\n" +
		"Aoi,band,2,morning,\n" +
		"Ren,choir,3,all,join\n" +
		"Bad,,9,morning,\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/import/responses", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.EqualValues(t, 2, out["imported"])
	assert.EqualValues(t, 1, out["skipped"])

	var count int64
	db.Model(&database.Response{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestDashboard(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)
	seedTeam(t, db, "t1", "morning", 2, 2026)
	seedResponse(t, db, "r1", "f1", 2026, "band", 2, "morning", "")
	seedResponse(t, db, "r2", "f1", 2026, "choir", 1, "afternoon", "")

	performRequest(router, http.MethodPost, "/admin/assign", gin.H{"year": 2026, "formId": "f1"}, nil)

	res := performRequest(router, http.MethodGet, "/admin/dashboard?year=2026", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var out struct {
		Teams  []map[string]interface{} `json:"teams"`
		Totals map[string]interface{}   `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	require.Len(t, out.Teams, 1)
	assert.EqualValues(t, 1, out.Teams[0]["assigned"]) // only r1 fits a morning team
	assert.EqualValues(t, 2, out.Teams[0]["capacity"])
	assert.EqualValues(t, 2, out.Totals["responses"])
	assert.EqualValues(t, 1, out.Totals["unassigned"])
}

func TestGenerateKey(t *testing.T) {
	db, router := setupRouter(t)
	seedEvent(t, db, 2026)
	seedForm(t, db, "f1", 2026)

	res := performRequest(router, http.MethodPost, "/admin/keys",
		gin.H{"formId": "f1", "name": "main form"}, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	key, _ := out["key"].(string)
	require.NotEmpty(t, key)

	formID, err := auth.VerifyFormKey(key)
	require.NoError(t, err)
	assert.Equal(t, "f1", formID)

	res = performRequest(router, http.MethodPost, "/admin/keys",
		gin.H{"formId": "missing"}, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestAuthMiddleware(t *testing.T) {
	db, _ := setupRouter(t)
	h := &Handler{DB: db}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/events", h.AuthMiddleware(), h.ListEvents)

	res := performRequest(r, http.MethodGet, "/admin/events", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = performRequest(r, http.MethodGet, "/admin/events", nil,
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	token, err := auth.CreateToken("admin")
	require.NoError(t, err)
	res = performRequest(r, http.MethodGet, "/admin/events", nil,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, res.Code)
}
