package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/idealempregos/portal/config"
	"github.com/idealempregos/portal/internal/api/handlers"
	"github.com/idealempregos/portal/internal/api/middleware"
	"github.com/idealempregos/portal/internal/logger"
	"github.com/idealempregos/portal/internal/models"
	sqlrepo "github.com/idealempregos/portal/internal/repositories/sqlrepo"
	"github.com/idealempregos/portal/internal/services"
	"github.com/idealempregos/portal/internal/storage"
	"github.com/idealempregos/portal/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	root   string
}

// newTestServer seeds the admin account after running beforeSeed, if given.
func newTestServer(t *testing.T, beforeSeed ...func(services.CandidateService)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	db, err := config.OpenSQLite(filepath.Join(root, "site.db"))
	require.NoError(t, err)
	require.NoError(t, sqlrepo.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := logger.Discard()
	hasher := utils.NewPasswordHasher(utils.SchemeBcrypt)
	hasher.BcryptCost = bcrypt.MinCost

	candidateRepo := sqlrepo.NewCandidateRepo(db)
	applicationRepo := sqlrepo.NewApplicationRepo(db)

	candidateSvc := services.NewCandidateService(candidateRepo,
		storage.NewResumeSink(storage.NewLocalUploader(root), 1<<20), hasher, log)
	applicationSvc := services.NewApplicationService(applicationRepo, candidateRepo, log)
	authSvc := services.NewAuthService(candidateSvc, sqlrepo.NewAdminSessionRepo(db), services.AdminTokenConfig{
		AdminEmail: adminEmail,
		Secret:     []byte("test-secret-test-secret-test-sec"),
		TTL:        time.Hour,
	}, log)

	for _, fn := range beforeSeed {
		fn(candidateSvc)
	}
	require.NoError(t, candidateSvc.EnsureAdmin(context.Background(), adminEmail, adminPassword))

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	RegisterRoutes(r, Deps{
		Candidates:   handlers.NewCandidateHandler(candidateSvc, 1<<20),
		Auth:         handlers.NewAuthHandler(authSvc),
		Applications: handlers.NewApplicationHandler(applicationSvc),
		Admin:        handlers.NewAdminHandler(applicationSvc, authSvc),
		AuthService:  authSvc,
	})

	return &testServer{router: r, db: db, root: root}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func jsonRequest(method, path string, body any, headers ...string) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return req
}

type filePart struct {
	name    string
	content []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("curriculo", file.name)
		require.NoError(t, err)
		_, err = fw.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/candidates", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func anaForm() map[string]string {
	return map[string]string{
		"nome":     "Ana",
		"email":    "ana@example.com",
		"telefone": "11 90000-0000",
		"area":     "tech",
		"alertas":  "sim",
		"senha":    "abcdef",
	}
}

func candidateOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	c, ok := body["candidate"].(map[string]any)
	require.True(t, ok, "candidate missing in %v", body)
	return c
}

func adminLogin(t *testing.T, s *testServer) string {
	t.Helper()
	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": adminEmail, "senha": adminPassword}))
	require.Equal(t, http.StatusOK, w.Code)
	tok, _ := body["adminToken"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", body["message"])
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestUnknownRouteIsJSON(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/nada", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(utils.CodeNotFound), body["code"])
}

func TestCandidateRegisterLoginUpdateScenario(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, multipartRequest(t, anaForm(), &filePart{name: "cv.pdf", content: []byte("%PDF-1.4 ana")}))
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, "Cadastro salvo com sucesso.", body["message"])
	cand := candidateOf(t, body)
	assert.Equal(t, "tech", cand["areaInteresse"])
	assert.Equal(t, true, cand["recebeAlertas"])
	assert.NotContains(t, cand, "senhaHash")
	assert.NotContains(t, cand, "senha_hash")
	resumePath, _ := cand["curriculoPath"].(string)
	require.NotEmpty(t, resumePath)
	assert.True(t, strings.HasPrefix(resumePath, "uploads/"))
	assert.FileExists(t, filepath.Join(s.root, filepath.FromSlash(resumePath)))

	w, body = s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "ana@example.com", "senha": "abcdef"}))
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, "tech", candidateOf(t, body)["areaInteresse"])
	assert.Equal(t, false, candidateOf(t, body)["isAdmin"])
	assert.NotContains(t, body, "adminToken")

	w, body = s.do(t, jsonRequest(http.MethodPost, "/api/candidates", map[string]string{"email": "ana@example.com", "telefone": "21 98888-7777"}))
	require.Equal(t, http.StatusOK, w.Code, body)

	w, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/candidates/"+url.PathEscape("ana@example.com"), nil))
	require.Equal(t, http.StatusOK, w.Code, body)
	cand = candidateOf(t, body)
	assert.Equal(t, "21 98888-7777", cand["telefone"])
	assert.Equal(t, "ana@example.com", cand["email"])
	assert.Equal(t, "tech", cand["areaInteresse"])
	assert.Equal(t, resumePath, cand["curriculoPath"])
	assert.Equal(t, true, cand["recebeAlertas"])

	var count int64
	require.NoError(t, s.db.Model(&models.Candidate{}).Where("email = ?", "ana@example.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCandidateMultipartAlertsUnchecked(t *testing.T) {
	s := newTestServer(t)

	form := anaForm()
	delete(form, "alertas")
	w, body := s.do(t, multipartRequest(t, form, &filePart{name: "cv.rtf", content: []byte(`{\rtf1 ana}`)}))
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, false, candidateOf(t, body)["recebeAlertas"])
}

func TestCandidateJSONFieldAliases(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/candidates", map[string]any{
		"nome":          "Bruno",
		"email":         "bruno@example.com",
		"areaInteresse": "vendas",
		"alertas":       "sim",
		"senha":         "segredo1",
	}))
	require.Equal(t, http.StatusOK, w.Code, body)
	cand := candidateOf(t, body)
	assert.Equal(t, "vendas", cand["areaInteresse"])
	assert.Equal(t, true, cand["recebeAlertas"])
	assert.Nil(t, cand["curriculoPath"])

	w, body = s.do(t, jsonRequest(http.MethodPost, "/api/candidates", map[string]any{
		"email":          "bruno@example.com",
		"area_interesse": "marketing",
		"recebe_alertas": false,
	}))
	require.Equal(t, http.StatusOK, w.Code, body)
	cand = candidateOf(t, body)
	assert.Equal(t, "marketing", cand["areaInteresse"])
	assert.Equal(t, false, cand["recebeAlertas"])
}

func TestCandidateValidationFailures(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]*http.Request{
		"multipart without resume": multipartRequest(t, anaForm(), nil),
		"executable extension":     multipartRequest(t, anaForm(), &filePart{name: "cv.exe", content: []byte("MZ\x90\x00")}),
		"missing password": jsonRequest(http.MethodPost, "/api/candidates", map[string]string{
			"nome": "Ana", "email": "ana@example.com", "area": "tech",
		}),
		"short password": jsonRequest(http.MethodPost, "/api/candidates", map[string]string{
			"nome": "Ana", "email": "ana@example.com", "area": "tech", "senha": "abc",
		}),
		"missing name": jsonRequest(http.MethodPost, "/api/candidates", map[string]string{
			"email": "ana@example.com", "area": "tech", "senha": "abcdef",
		}),
	}

	plain := httptest.NewRequest(http.MethodPost, "/api/candidates", strings.NewReader("email=ana@example.com"))
	plain.Header.Set("Content-Type", "text/plain")
	cases["unsupported content type"] = plain

	broken := httptest.NewRequest(http.MethodPost, "/api/candidates", strings.NewReader("{not json"))
	broken.Header.Set("Content-Type", "application/json")
	cases["malformed json"] = broken

	for name, req := range cases {
		w, body := s.do(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
		assert.NotEmpty(t, body["message"], name)
	}

	var count int64
	require.NoError(t, s.db.Model(&models.Candidate{}).Where("email = ?", "ana@example.com").Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetUnknownCandidate(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/candidates/ninguem@example.com", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Nenhum cadastro foi encontrado para o e-mail informado.", body["message"])
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, multipartRequest(t, anaForm(), &filePart{name: "cv.pdf", content: []byte("%PDF-1.4")}))
	require.Equal(t, http.StatusOK, w.Code)

	wrong, wrongBody := s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "ana@example.com", "senha": "errada"}))
	unknown, unknownBody := s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "x@example.com", "senha": "errada"}))
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongBody, unknownBody)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "ana@example.com"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	broken := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{"))
	broken.Header.Set("Content-Type", "application/json")
	w, body := s.do(t, broken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Formato de login inválido.", body["message"])
}

func TestApplyAndAdminReview(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, multipartRequest(t, anaForm(), &filePart{name: "cv.pdf", content: []byte("%PDF-1.4")}))
	require.Equal(t, http.StatusOK, w.Code)

	apply := map[string]string{"email": "ana@example.com", "jobId": "dev-go", "jobTitle": "Dev Go"}
	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/applications", apply))
	require.Equal(t, http.StatusOK, w.Code, body)
	app := body["application"].(map[string]any)
	assert.Equal(t, "em_analise", app["status"])
	id := int(app["id"].(float64))

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/applications", map[string]string{"email": "ninguem@example.com", "jobId": "dev-go"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/applications", map[string]string{"email": "ana@example.com"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := adminLogin(t, s)

	w, body = s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil, middleware.AdminTokenHeader, token))
	require.Equal(t, http.StatusOK, w.Code, body)
	apps := body["applications"].([]any)
	require.Len(t, apps, 1)
	assert.Equal(t, "Ana", apps[0].(map[string]any)["candidate"].(map[string]any)["nome"])
	summary := body["summary"].([]any)
	require.Len(t, summary, 1)
	assert.EqualValues(t, 1, summary[0].(map[string]any)["emAnalise"])
	assert.Equal(t, adminEmail, body["admin"].(map[string]any)["email"])

	statusPath := fmt.Sprintf("/api/admin/applications/%d/status", id)
	w, body = s.do(t, jsonRequest(http.MethodPost, statusPath, map[string]string{"status": "aceito"}, middleware.AdminTokenHeader, token))
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, "aceito", body["application"].(map[string]any)["status"])
	assert.Equal(t, "Candidatura marcada como aceita.", body["message"])

	// re-applying keeps the decision
	w, body = s.do(t, jsonRequest(http.MethodPost, "/api/applications", apply))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "aceito", body["application"].(map[string]any)["status"])

	w, _ = s.do(t, jsonRequest(http.MethodPost, statusPath, map[string]string{"status": "talvez"}, middleware.AdminTokenHeader, token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/admin/applications/abc/status", map[string]string{"status": "aceito"}, middleware.AdminTokenHeader, token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/admin/applications/999/status", map[string]string{"status": "aceito"}, middleware.AdminTokenHeader, token))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// bearer header works too
	w, _ = s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil, "Authorization", "Bearer "+token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireValidToken(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(utils.CodeUnauthorized), body["code"])

	w, _ = s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil, middleware.AdminTokenHeader, "forjado"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := adminLogin(t, s)
	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/admin/logout", nil, middleware.AdminTokenHeader, token))
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil, middleware.AdminTokenHeader, token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesForbiddenAfterDemotion(t *testing.T) {
	s := newTestServer(t)
	token := adminLogin(t, s)

	require.NoError(t, s.db.Model(&models.Candidate{}).Where("email = ?", adminEmail).Update("is_admin", false).Error)

	w, body := s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil, middleware.AdminTokenHeader, token))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(utils.CodeForbidden), body["code"])
}

func TestRegularCandidateGetsNoAdminToken(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, multipartRequest(t, anaForm(), &filePart{name: "cv.pdf", content: []byte("%PDF-1.4")}))
	require.Equal(t, http.StatusOK, w.Code)

	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "ana@example.com", "senha": "abcdef"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, body, "adminToken")
	assert.NotContains(t, body, "adminTokenExpiresAt")
}

func loginStatus(t *testing.T, s *testServer, email, senha string) (int, map[string]any) {
	t.Helper()
	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": email, "senha": senha}))
	return w.Code, body
}

func TestPublicFormCannotTakeOverAdmin(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/candidates", map[string]string{
		"email": adminEmail, "senha": "invasor123", "nome": "Intruso", "area": "tech",
	}))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(utils.CodeForbidden), body["code"])

	form := anaForm()
	form["email"] = adminEmail
	form["senha"] = "invasor123"
	w, _ = s.do(t, multipartRequest(t, form, &filePart{name: "cv.pdf", content: []byte("%PDF-1.4")}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	code, body := loginStatus(t, s, adminEmail, "invasor123")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotContains(t, body, "adminToken")

	token := adminLogin(t, s)
	w, body = s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil, middleware.AdminTokenHeader, token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Administrador Ideal Empregos", body["admin"].(map[string]any)["nome"])
}

func TestAdminSeedResetsPreRegisteredPassword(t *testing.T) {
	s := newTestServer(t, func(candidates services.CandidateService) {
		sub := models.CandidateSubmission{
			Email:         adminEmail,
			Nome:          strPtr("Intruso"),
			AreaInteresse: strPtr("tech"),
			Senha:         strPtr("invasor123"),
		}
		_, err := candidates.Upsert(context.Background(), sub)
		require.NoError(t, err)
	})

	code, body := loginStatus(t, s, adminEmail, "invasor123")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.NotContains(t, body, "adminToken")

	token := adminLogin(t, s)
	w, _ := s.do(t, jsonRequest(http.MethodGet, "/api/admin/applications", nil, middleware.AdminTokenHeader, token))
	assert.Equal(t, http.StatusOK, w.Code)
}

func strPtr(s string) *string { return &s }
