package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/festivalcrew/poster-crew-api/pkg/auth"
	"github.com/festivalcrew/poster-crew-api/pkg/database"
)

// Handler contains dependencies for the route handlers
type Handler struct {
	DB *gorm.DB
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// FormKeyMiddleware verifies the HMAC submission key for survey routes
func (h *Handler) FormKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Submission key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		formID, err := auth.VerifyFormKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid submission key signature"})
			c.Abort()
			return
		}

		// Fetch or create the key record to track usage
		var formKey database.FormKey
		h.DB.Where(database.FormKey{Key: key}).FirstOrCreate(&formKey, database.FormKey{
			Key:       key,
			FormID:    formID,
			Name:      formID,
			RateLimit: 10000,
		})

		c.Set("formKey", &formKey)
		c.Set("formId", formID)
		c.Next()
	}
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a submission key for a form using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		FormID string `json:"formId"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.FormID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "formId is required"})
		return
	}

	var form database.SurveyForm
	if err := h.DB.Where("form_id = ?", req.FormID).First(&form).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	if req.Name == "" {
		req.Name = form.Title
	}

	key := auth.GenerateFormKey(req.FormID)

	// Create preview (e.g., fk....****)
	preview := ""
	if len(key) > 8 {
		preview = key[:3] + "..." + key[len(key)-4:]
	} else {
		preview = "****"
	}

	formKey := database.FormKey{
		Key:        key,
		FormID:     req.FormID,
		Name:       req.Name,
		KeyPreview: preview,
		RateLimit:  10000,
	}

	if err := h.DB.Where(database.FormKey{Key: key}).FirstOrCreate(&formKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"formId": req.FormID,
		"name":   req.Name,
		"key":    key,
	})
}

// ListKeys returns all submission keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.FormKey
	h.DB.Find(&keys)
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey deletes a submission key
func (h *Handler) RevokeKey(c *gin.Context) {
	id := c.Param("id")
	if err := h.DB.Delete(&database.FormKey{}, id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id := c.Param("id")
	var usage []database.FormUsage
	h.DB.Where("key_id = ?", id).Order("date desc").Limit(30).Find(&usage)
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// RecordUsage records submission-key usage using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, responseCount int) {
	formKeyRaw, exists := c.Get("formKey")
	if !exists {
		return
	}
	formKey := formKeyRaw.(*database.FormKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":   gorm.Expr("request_count + ?", 1),
			"total_responses": gorm.Expr("total_responses + ?", responseCount),
		}),
	}).Create(&database.FormUsage{
		KeyID:          formKey.ID,
		Date:           today,
		RequestCount:   1,
		TotalResponses: responseCount,
	})

	now := time.Now()
	h.DB.Model(formKey).Update("last_used", &now)
}
