package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/festivalcrew/poster-crew-api/pkg/auth"
	"github.com/festivalcrew/poster-crew-api/pkg/database"
	"github.com/festivalcrew/poster-crew-api/pkg/handlers"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	// Initialize DB
	db := database.InitDB()
	_ = auth.EnsureAdminExists(db)
	h := &handlers.Handler{DB: db}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	r = gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Poster Crew API",
			"version": "1.2.0",
		})
	})

	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/events", h.CreateEvent)
		admin.GET("/events", h.ListEvents)
		admin.PUT("/events/:year", h.UpdateEvent)
		admin.DELETE("/events/:year", h.DeleteEvent)

		admin.POST("/areas", h.CreateArea)
		admin.GET("/areas", h.ListAreas)
		admin.DELETE("/areas/:code", h.DeleteArea)

		admin.POST("/teams", h.CreateTeam)
		admin.GET("/teams", h.ListTeams)
		admin.PUT("/teams/:teamId", h.UpdateTeam)
		admin.DELETE("/teams/:teamId", h.DeleteTeam)

		admin.POST("/forms", h.CreateForm)
		admin.GET("/forms", h.ListForms)
		admin.PUT("/forms/:formId", h.UpdateForm)
		admin.DELETE("/forms/:formId", h.DeleteForm)

		admin.GET("/responses", h.ListResponses)
		admin.POST("/import/responses", h.ImportResponses)

		admin.POST("/assign", h.RunAssignment)
		admin.DELETE("/assignments", h.ClearAssignments)
		admin.POST("/assignments/manual", h.ManualAssign)
		admin.GET("/dashboard", h.Dashboard)

		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.FormKeyMiddleware())
	{
		api.POST("/responses", h.SubmitResponse)
		api.POST("/validate", h.ValidateInput)
		api.POST("/assign/preview", h.PreviewAssignment)
	}
}

// Handler is the Vercel serverless entrypoint
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
