package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/internal/api/handlers"
	"github.com/idealempregos/portal/internal/api/middleware"
	"github.com/idealempregos/portal/internal/services"
	"github.com/idealempregos/portal/internal/utils"
)

type Deps struct {
	Candidates   *handlers.CandidateHandler
	Auth         *handlers.AuthHandler
	Applications *handlers.ApplicationHandler
	Admin        *handlers.AdminHandler

	AuthService services.AuthService
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.APIError{Code: utils.CodeNotFound, Message: "Recurso não encontrado."})
	})

	api := r.Group("/api")

	api.POST("/candidates", d.Candidates.Save)
	api.GET("/candidates/:email", d.Candidates.Get)
	api.POST("/login", d.Auth.Login)
	api.POST("/applications", d.Applications.Apply)

	// Protected routes (admin token)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminToken(d.AuthService), middleware.RequireAdmin())

	admin.GET("/applications", d.Admin.ListApplications)
	admin.POST("/applications/:id/status", d.Admin.SetStatus)
	admin.POST("/logout", d.Admin.Logout)
}
