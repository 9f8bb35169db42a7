package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"formscan/internal/asset"
	"formscan/internal/backend/httpbackend"
	"formscan/internal/config"
	"formscan/internal/handler"
	"formscan/internal/port"
	"formscan/internal/repository/noop"
	"formscan/internal/repository/postgres"
	"formscan/internal/router"
	"formscan/internal/service"
	noopstorage "formscan/internal/storage/noop"
	s3storage "formscan/internal/storage/s3"
)

// @title						Formscan Review Gateway API
// @version					1.0
// @description				Relays inspection-form jobs to the OCR backend and drives operator review sessions.
// @BasePath					/api/v1
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Review audit log, optional
	var db *sqlx.DB
	var auditRepo port.ReviewAuditRepository
	if cfg.Audit.Enabled {
		db, err = postgres.NewDB(ctx, &cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		auditRepo = postgres.NewReviewAuditRepo(db)
	} else {
		auditRepo = noop.NewReviewAuditRepo()
	}

	// Export archive, optional
	var archive port.ObjectStorage
	if cfg.Archive.Enabled {
		archive, err = s3storage.NewArchiveStore(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	} else {
		archive = noopstorage.NewNoopStorage()
	}

	// Initialize services
	backend := httpbackend.NewClient(&cfg.Backend)
	resolver := asset.NewResolver(cfg.Backend.PublicURL)
	extractor := service.NewExtractor(backend, resolver, cfg.Document.ReviewThreshold)
	exportSvc := service.NewExportService(backend, archive, service.ExportArchiveConfig{
		Bucket: cfg.S3.Bucket,
		Prefix: cfg.Archive.Prefix,
	})
	sessions := service.NewSessionManager(extractor, exportSvc, auditRepo, service.SessionManagerConfig{
		ExtractTimeout: cfg.Backend.Timeout,
	})
	defer sessions.CloseAll()

	var authSvc service.AuthService
	if cfg.Auth.Enabled {
		authSvc = service.NewAuthService(cfg.JWT)
	}

	reaper := service.NewSessionReaper(sessions, service.SessionReaperConfig{
		Interval: cfg.Session.ReapInterval,
		TTL:      cfg.Session.TTL,
	})
	go reaper.Start(ctx)

	// Initialize handlers
	proxyH := handler.NewProxyHandler(backend, exportSvc, cfg.Backend.PublicURL)
	sessionH := handler.NewSessionHandler(sessions)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(authSvc, cfg.CORS.AllowedOrigins, proxyH, sessionH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (backend %s)", cfg.Server.Port, cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
