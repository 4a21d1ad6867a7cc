package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/idealempregos/portal/internal/services"
	"github.com/idealempregos/portal/internal/utils"
)

type AuthHandler struct {
	svc services.AuthService
}

func NewAuthHandler(svc services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type LoginRequest struct {
	Email string `json:"email" binding:"required"`
	Senha string `json:"senha" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	const op = "AuthHandler.Login"

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "Informe e-mail e senha para continuar.", err))
			return
		}
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "Formato de login inválido.", err))
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Senha)
	if err != nil {
		writeError(c, err)
		return
	}

	body := gin.H{
		"candidate": res.Candidate,
		"message":   "Login realizado com sucesso.",
	}
	if res.AdminToken != "" {
		body["adminToken"] = res.AdminToken
		body["adminTokenExpiresAt"] = res.AdminExpiresAt
	}
	c.JSON(http.StatusOK, body)
}
