package services

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/idealempregos/portal/config"
	"github.com/idealempregos/portal/internal/logger"
	"github.com/idealempregos/portal/internal/models"
	sqlrepo "github.com/idealempregos/portal/internal/repositories/sqlrepo"
	"github.com/idealempregos/portal/internal/storage"
	"github.com/idealempregos/portal/internal/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	root         string
	candidateRep sqlrepo.CandidateRepository
	appRep       sqlrepo.ApplicationRepository
	sessions     *sqlrepo.AdminSessionRepo
	candidates   *candidateService
	applications *applicationService
}

func fastHasher() *utils.PasswordHasher {
	h := utils.NewPasswordHasher(utils.SchemeBcrypt)
	h.BcryptCost = bcrypt.MinCost
	return h
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

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
	candRepo := sqlrepo.NewCandidateRepo(db)
	appRepo := sqlrepo.NewApplicationRepo(db)
	sink := storage.NewResumeSink(storage.NewLocalUploader(root), 0)

	return &testEnv{
		db:           db,
		root:         root,
		candidateRep: candRepo,
		appRep:       appRepo,
		sessions:     sqlrepo.NewAdminSessionRepo(db),
		candidates:   NewCandidateService(candRepo, sink, fastHasher(), log).(*candidateService),
		applications: NewApplicationService(appRepo, candRepo, log).(*applicationService),
	}
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func resume(name string, content []byte) *models.ResumeUpload {
	return &models.ResumeUpload{
		FileName: name,
		Size:     int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}

func newSubmission(email string) models.CandidateSubmission {
	return models.CandidateSubmission{
		Email:         email,
		Nome:          strPtr("Ana Souza"),
		Telefone:      strPtr("11 99999-0000"),
		AreaInteresse: strPtr("tecnologia"),
		RecebeAlertas: boolPtr(true),
		Senha:         strPtr("segredo1"),
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
