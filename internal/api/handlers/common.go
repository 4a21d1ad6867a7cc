package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/internal/api/middleware"
	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireAdmin(c *gin.Context) (*models.Candidate, bool) {
	if v, ok := c.Get(middleware.CtxAdmin); ok {
		if a, ok := v.(*models.Candidate); ok && a != nil {
			return a, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "Sessão de administrador inválida ou expirada. Faça login novamente.", nil))
	return nil, false
}
