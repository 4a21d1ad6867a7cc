package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/idealempregos/portal/config"
	"github.com/idealempregos/portal/internal/api/handlers"
	"github.com/idealempregos/portal/internal/api/middleware"
	"github.com/idealempregos/portal/internal/api/routes"
	"github.com/idealempregos/portal/internal/logger"
	"github.com/idealempregos/portal/internal/repositories/redisrepo"
	sqlrepo "github.com/idealempregos/portal/internal/repositories/sqlrepo"
	"github.com/idealempregos/portal/internal/services"
	"github.com/idealempregos/portal/internal/storage"
	"github.com/idealempregos/portal/internal/utils"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}

	ctx := context.Background()

	// Init relational store
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		log.WithError(err).Fatal("database init error")
	}
	if err := sqlrepo.Migrate(db); err != nil {
		log.WithError(err).Fatal("database migrate error")
	}
	log.WithField("driver", cfg.DBDriver).Info("database ready")

	// Resume storage
	uploader, closeUploader := newUploader(ctx, cfg, log)
	defer closeUploader()

	// Admin sessions
	sessions, closeSessions := newSessionStore(ctx, cfg, db, log)
	defer closeSessions()

	// Repos
	candidateRepo := sqlrepo.NewCandidateRepo(db)
	applicationRepo := sqlrepo.NewApplicationRepo(db)

	// Services
	candidateSvc := services.NewCandidateService(
		candidateRepo,
		storage.NewResumeSink(uploader, cfg.MaxUploadBytes),
		utils.NewPasswordHasher(cfg.PasswordScheme),
		log,
	)
	applicationSvc := services.NewApplicationService(applicationRepo, candidateRepo, log)
	authSvc := services.NewAuthService(candidateSvc, sessions, services.AdminTokenConfig{
		AdminEmail: cfg.AdminEmail,
		Secret:     cfg.AdminTokenSecret,
		TTL:        cfg.AdminTokenTTL,
	}, log)

	if cfg.AdminConfigured() {
		if err := candidateSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.WithError(err).Fatal("admin seed error")
		}
		log.WithField("admin_email", cfg.AdminEmail).Info("admin account ready")
	} else {
		log.Warnf("%s/%s not set: admin panel disabled", config.AdminEmailEnv, config.AdminPasswordEnv)
	}
	if cfg.GeneratedSecret {
		log.Warn("ADMIN_TOKEN_SECRET not set: using a random key, admin tokens will not survive a restart")
	}

	// Start Gin server
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Candidates:   handlers.NewCandidateHandler(candidateSvc, cfg.MaxUploadBytes),
		Auth:         handlers.NewAuthHandler(authSvc),
		Applications: handlers.NewApplicationHandler(applicationSvc),
		Admin:        handlers.NewAdminHandler(applicationSvc, authSvc),
		AuthService:  authSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server startup failed")
		}
	}()
	log.WithFields(logrus.Fields{"port": cfg.Port, "data_dir": cfg.DataDir}).Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("server exited")
}

func newUploader(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.Uploader, func()) {
	if cfg.ResumeBucket == "" {
		log.WithField("dir", cfg.UploadsDir()).Info("resumes stored on local disk")
		return storage.NewLocalUploader(cfg.DataDir), func() {}
	}

	u, err := storage.NewGCSUploader(ctx, cfg.ResumeBucket)
	if err != nil {
		log.WithError(err).Fatal("GCS init error")
	}
	log.WithField("bucket", cfg.ResumeBucket).Info("resumes stored in GCS")
	return u, func() { _ = u.Close() }
}

func newSessionStore(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logrus.Logger) (services.AdminSessionStore, func()) {
	if cfg.RedisAddr != "" {
		rdb, err := config.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Fatal("redis init error")
		}
		log.Info("admin sessions stored in redis")
		return redisrepo.NewAdminSessionRepo(rdb), func() { _ = rdb.Close() }
	}

	repo := sqlrepo.NewAdminSessionRepo(db)
	if n, err := repo.PurgeExpired(ctx, time.Now().UTC()); err != nil {
		log.WithError(err).Warn("purge expired admin sessions")
	} else if n > 0 {
		log.WithField("purged", n).Info("expired admin sessions removed")
	}
	return repo, func() {}
}
