// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotent upload replay, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/arcornucopia-stack/cornucopia-portal/internal/config"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/http/handlers"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/http/middleware"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/identity"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/repo"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/services"
	"github.com/arcornucopia-stack/cornucopia-portal/internal/storage"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), upload idempotency
// and rate limiting, CORS and security headers, health and metrics endpoints,
// and then mounts the versioned API under cfg.APIBasePath. The login endpoint
// is public; everything else requires a bearer session.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with credential scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (upload cap plus multipart framing slack)
//  6. Metrics
//  7. Session tagging (non-enforcing; identity for steps 8 and 9)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, blobs storage.BlobStore, verify identity.VerifyCredential, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	auth := &identity.Service{
		DB:     db,
		Verify: verify,
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.SessionTTL,
	}
	resolve := sessionResolver(auth)

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"Authorization", // bearer session tokens must never reach the logs
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit: the upload cap plus 64 KiB of multipart
	// framing slack so a file at exactly the cap is judged by the service,
	// not truncated by the transport.
	r.Use(limitBody(cfg.MaxUploadBytes + 64<<10))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Best-effort session resolution so the idempotency lookup and the
	// rate-limit key see the caller identity. Enforcement stays with
	// RequireSession on the authenticated group.
	r.Use(middleware.TagSession(resolve))

	// 8) Upload replay detection (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, uploaderUID, businessID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, uploaderUID, businessID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/storage
	subSvc := &services.SubmissionService{
		DB:             db,
		Blobs:          blobs,
		MaxFileBytes:   cfg.MaxUploadBytes,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	catSvc := &services.CatalogService{DB: db}
	distSvc := &services.DistributionService{
		DB:          db,
		Submissions: subSvc,
		Catalog:     catSvc,
	}
	regSvc := &services.SubscriptionService{DB: db}
	anSvc := &services.AnalyticsService{DB: db}

	h := handlers.New(auth, subSvc, catSvc, distSvc, regSvc, anSvc)

	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)

	// Public: sign-in only
	api.POST("/auth/login", h.Login)

	// Everything else requires a resolved session
	authed := api.Group("", middleware.RequireSession(resolve))
	{
		// Submissions
		authed.POST("/submissions", h.Upload)
		authed.GET("/submissions", h.ListSubmissions)
		authed.GET("/submissions/queue", h.Queue)
		authed.POST("/submissions/:id/approve", h.Approve)
		authed.POST("/submissions/:id/reject", h.Reject)
		authed.POST("/submissions/:id/push", h.Push)

		// Catalog and distribution
		authed.GET("/models", h.ListModels)
		authed.GET("/models/:key", h.GetModel)
		authed.POST("/models/:key/dispatch", h.Dispatch)
		authed.POST("/models/:key/send-to-subscribers", h.SendToSubscribers)

		// Subscriptions
		authed.PUT("/partners/:id/subscribers", h.SetSubscribers)
		authed.GET("/partners/:id/subscribers", h.GetSubscribers)

		// Analytics
		authed.GET("/stats", h.Stats)
		authed.GET("/engagement", h.Engagement)
		authed.POST("/events", h.RecordEvent)
	}
}

// sessionResolver adapts the identity service's token verification to the
// middleware's resolver contract.
func sessionResolver(auth *identity.Service) middleware.SessionResolver {
	return func(_ context.Context, token string) (identity.Session, error) {
		sess, err := auth.Resolve(token)
		if err != nil {
			return identity.Session{}, err
		}
		return *sess, nil
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
