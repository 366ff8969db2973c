// Command server runs the portal HTTP API.
//
// It loads configuration from the environment (optionally a .env file),
// opens the SQLite store, selects the blob-storage backend, wires the Gin
// router, and serves until SIGINT/SIGTERM, then drains in-flight requests.
package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/arcornucopia-stack/cornucopia-portal/docs"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/config"
	httpapi "github.com/arcornucopia-stack/cornucopia-portal/internal/http"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/observability"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/storage"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title        Cornucopia Portal API
// @version      1.0
// @description  Submission, review, and distribution backend for partner 3D assets.
// @BasePath     /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	docs.SwaggerInfo.BasePath = cfg.APIBasePath

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	// Ops hook: apply the schema and exit, for deploy pipelines that migrate
	// before rolling the service.
	if sysutil.IsTruthy(os.Getenv("MIGRATE_ONLY")) {
		log.Info().Str("path", cfg.DBPath).Msg("migrations applied, exiting")
		return
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Fatal().Err(err).Msg("gorm tracing plugin failed")
		}
	}

	blobs, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("blob storage setup failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, blobs, verifierFromEnv(), cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openBlobStore builds the configured blob backend. The local backend is the
// default; GCS is used in deployed environments.
func openBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Backend {
	case config.StorageGCS:
		return storage.NewGCS(ctx, cfg.GCSBucket)
	default:
		return storage.NewLocal(cfg.LocalBlobDir)
	}
}

// verifierFromEnv returns the credential verifier. When AUTH_SHARED_SECRET is
// set, sign-in requires that exact secret (constant-time compared); when it
// is unset, credential verification is delegated to the fronting platform and
// sign-in only resolves the account profile.
func verifierFromEnv() identity.VerifyCredential {
	shared := os.Getenv("AUTH_SHARED_SECRET")
	if shared == "" {
		return nil
	}
	want := []byte(shared)
	return func(_ context.Context, _, secret string) error {
		if subtle.ConstantTimeCompare([]byte(secret), want) != 1 {
			return identity.ErrInvalidCredential
		}
		return nil
	}
}
