package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/idealempregos/portal/internal/models"
	"github.com/idealempregos/portal/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	adminTokenIssuer = "idealempregos-admin"

	msgAdminSessionInvalid = "Sessão de administrador inválida ou expirada. Faça login novamente."
	msgAdminOnly           = "Acesso restrito a administradores."
	msgSessionStoreDown    = "Não foi possível validar a sessão de administrador no momento. Tente novamente em instantes."
)

// AdminSessionStore persists issued admin sessions so tokens can be revoked.
// Implemented by sqlrepo.AdminSessionRepo and redisrepo.AdminSessionRepo.
type AdminSessionStore interface {
	Create(ctx context.Context, s *models.AdminSession) error
	Get(ctx context.Context, id string) (*models.AdminSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

type AdminTokenConfig struct {
	AdminEmail string
	Secret     []byte
	TTL        time.Duration
}

type LoginResult struct {
	Candidate      *models.Candidate
	AdminToken     string
	AdminExpiresAt time.Time
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Authorize resolves an admin token to the admin's candidate row.
	Authorize(ctx context.Context, token string) (*models.Candidate, error)
	Logout(ctx context.Context, token string) error
}

type authService struct {
	candidates CandidateService
	sessions   AdminSessionStore
	cfg        AdminTokenConfig
	log        logrus.FieldLogger
	now        func() time.Time
}

func NewAuthService(candidates CandidateService, sessions AdminSessionStore, cfg AdminTokenConfig, log logrus.FieldLogger) AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Hour
	}
	cfg.AdminEmail = strings.TrimSpace(cfg.AdminEmail)
	return &authService{
		candidates: candidates,
		sessions:   sessions,
		cfg:        cfg,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "AuthService.Login"

	c, err := s.candidates.VerifyLogin(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.IsAdmin = s.isAdmin(c)
	res := &LoginResult{Candidate: c}
	if !c.IsAdmin {
		return res, nil
	}

	now := s.now()
	sess := &models.AdminSession{
		ID:       uuid.NewString(),
		Email:    c.Email,
		CriadoEm: now,
		ExpiraEm: now.Add(s.cfg.TTL),
	}

	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   c.Email,
		Issuer:    adminTokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiraEm),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "Não foi possível validar seu login no momento.", err)
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, s.sessionStoreError(op, "persist admin session", err)
	}

	s.log.WithFields(logrus.Fields{"op": op, "admin": c.Email, "session_id": sess.ID}).Info("admin session issued")

	res.AdminToken = token
	res.AdminExpiresAt = sess.ExpiraEm
	return res, nil
}

func (s *authService) Authorize(ctx context.Context, token string) (*models.Candidate, error) {
	const op = "AuthService.Authorize"

	sess, err := s.activeSession(ctx, op, token)
	if err != nil {
		return nil, err
	}

	c, err := s.candidates.GetByEmail(ctx, sess.Email)
	if err != nil {
		if utils.IsCode(err, utils.CodeNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, msgAdminSessionInvalid, err)
		}
		return nil, err
	}
	if !s.isAdmin(c) {
		return nil, utils.E(utils.CodeForbidden, op, msgAdminOnly, nil)
	}
	return c, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	const op = "AuthService.Logout"

	sess, err := s.activeSession(ctx, op, token)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, sess.ID, s.now()); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeUnauthorized, op, msgAdminSessionInvalid, err)
		}
		return s.sessionStoreError(op, "revoke admin session", err)
	}
	return nil
}

// activeSession validates the token signature and claims, then checks the
// server-side session has not expired or been revoked.
func (s *authService) activeSession(ctx context.Context, op, raw string) (*models.AdminSession, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Informe o token de administrador.", nil)
	}

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || tok == nil || !tok.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, msgAdminSessionInvalid, err)
	}

	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, msgAdminSessionInvalid, err)
		}
		return nil, s.sessionStoreError(op, "load admin session", err)
	}
	if !sess.Active(s.now()) || sess.Email != claims.Subject {
		return nil, utils.E(utils.CodeUnauthorized, op, msgAdminSessionInvalid, nil)
	}
	return sess, nil
}

// sessionStoreError reports a session backend (redis or the database) that
// could not be reached.
func (s *authService) sessionStoreError(op, step string, err error) error {
	s.log.WithFields(logrus.Fields{"op": op, "step": step}).WithError(err).Error("admin session store failure")
	return utils.E(utils.CodeUnavailable, op, msgSessionStoreDown, err)
}

// isAdmin requires both the flag set by admin seeding and a match with the
// currently configured admin e-mail.
func (s *authService) isAdmin(c *models.Candidate) bool {
	return s.cfg.AdminEmail != "" && c.IsAdmin && c.Email == s.cfg.AdminEmail
}
