package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/internal/api/middleware"
	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/services"
	"github.com/idealempregos/portal/internal/utils"
)

type AdminHandler struct {
	applications services.ApplicationService
	auth         services.AuthService
}

func NewAdminHandler(applications services.ApplicationService, auth services.AuthService) *AdminHandler {
	return &AdminHandler{applications: applications, auth: auth}
}

func (h *AdminHandler) ListApplications(c *gin.Context) {
	admin, ok := requireAdmin(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	views, err := h.applications.ListAll(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	summary, err := h.applications.Summary(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"admin":        admin,
		"summary":      summary,
		"applications": views,
	})
}

type SetStatusRequest struct {
	Status models.ApplicationStatus `json:"status" binding:"required"`
}

func (h *AdminHandler) SetStatus(c *gin.Context) {
	const op = "AdminHandler.SetStatus"

	if _, ok := requireAdmin(c); !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "Identificador de candidatura inválido.", err))
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "Informe o novo status da candidatura.", err))
		return
	}

	app, err := h.applications.SetStatus(c.Request.Context(), uint(id), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app.View(),
		"message":     "Candidatura marcada como " + app.Status.Label() + ".",
	})
}

func (h *AdminHandler) Logout(c *gin.Context) {
	if _, ok := requireAdmin(c); !ok {
		return
	}

	if err := h.auth.Logout(c.Request.Context(), c.GetString(middleware.CtxAdminToken)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sessão de administrador encerrada."})
}
