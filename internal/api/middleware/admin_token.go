package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/internal/services"
	"github.com/idealempregos/portal/internal/utils"
)

const (
	AdminTokenHeader = "X-Admin-Token"

	CtxAdmin      = "admin"
	CtxAdminEmail = "admin_email"
	CtxAdminToken = "admin_token"
	CtxRole       = "role"
	CtxRequestID  = "request_id"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func abortWithError(c *gin.Context, err error) {
	code := utils.CodeInternal
	var ae *utils.AppError
	if errors.As(err, &ae) {
		code = ae.Code
	}
	c.AbortWithStatusJSON(utils.HTTPStatus(err), apiError{
		Code:    code,
		Message: utils.Message(err, "Não foi possível validar a sessão no momento."),
	})
}

// AdminToken validates the admin token on every request of the group. The
// token comes from X-Admin-Token, or from a Bearer Authorization header.
func AdminToken(auth services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(AdminTokenHeader))
		if raw == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}

		admin, err := auth.Authorize(c.Request.Context(), raw)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(CtxAdmin, admin)
		c.Set(CtxAdminEmail, admin.Email)
		c.Set(CtxAdminToken, raw)
		c.Set(CtxRole, "admin")
		c.Next()
	}
}
