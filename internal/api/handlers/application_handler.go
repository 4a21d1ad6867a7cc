package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/internal/services"
	"github.com/idealempregos/portal/internal/utils"
)

type ApplicationHandler struct {
	svc services.ApplicationService
}

func NewApplicationHandler(svc services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{svc: svc}
}

type ApplyRequest struct {
	Email    string `json:"email"`
	JobID    string `json:"jobId"`
	JobTitle string `json:"jobTitle"`
}

func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ApplicationHandler.Apply", msgUnreadableBody, err))
		return
	}

	app, err := h.svc.Apply(c.Request.Context(), req.Email, req.JobID, req.JobTitle)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app.View(),
		"message":     "Candidatura registrada com sucesso.",
	})
}
