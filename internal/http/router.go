// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
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

	"github.com/tbourn/go-post-scheduler/internal/config"
	"github.com/tbourn/go-post-scheduler/internal/domain"
	"github.com/tbourn/go-post-scheduler/internal/http/handlers"
	"github.com/tbourn/go-post-scheduler/internal/http/middleware"
	"github.com/tbourn/go-post-scheduler/internal/repo"
	"github.com/tbourn/go-post-scheduler/internal/services"
)

// postRepoShim adapts the repository free functions to the services.PostRepo
// interface expected by the SchedulerService. This keeps services decoupled
// from the concrete repo package while reusing existing functions.
type postRepoShim struct{}

// CreatePost proxies repo.CreatePost.
func (postRepoShim) CreatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost) error {
	return repo.CreatePost(ctx, db, p)
}

// GetPost proxies repo.GetPost.
func (postRepoShim) GetPost(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ScheduledPost, error) {
	return repo.GetPost(ctx, db, id, userID)
}

// UpdatePost proxies repo.UpdatePost.
func (postRepoShim) UpdatePost(ctx context.Context, db *gorm.DB, p *domain.ScheduledPost, expectedVersion int64) error {
	return repo.UpdatePost(ctx, db, p, expectedVersion)
}

// DeletePost proxies repo.DeletePost.
func (postRepoShim) DeletePost(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeletePost(ctx, db, id, userID)
}

// quotaRepoShim adapts repo.CountPending to services.QuotaRepo.
type quotaRepoShim struct{}

func (quotaRepoShim) CountPending(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (int64, error) {
	return repo.CountPending(ctx, db, userID, from, to)
}

// submissionRepoShim adapts submission functions to services.SubmissionRepo.
type submissionRepoShim struct{}

func (submissionRepoShim) AppendSubmission(ctx context.Context, db *gorm.DB, postID string, resp *domain.SubmissionResponse, success bool, externalID string) error {
	return repo.AppendSubmission(ctx, db, postID, resp, success, externalID)
}

func (submissionRepoShim) ListSubmissions(ctx context.Context, db *gorm.DB, postID string) ([]domain.SubmissionResponse, error) {
	return repo.ListSubmissions(ctx, db, postID)
}

// listingRepoShim adapts paged read functions to services.ListingRepo.
type listingRepoShim struct{}

func (listingRepoShim) CountPosts(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountPosts(ctx, db, userID)
}

func (listingRepoShim) ListPostsPage(ctx context.Context, db *gorm.DB, userID, order string, offset, limit int) ([]domain.ScheduledPost, error) {
	return repo.ListPostsPage(ctx, db, userID, order, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with header masking
//  4. Recovery: capture panics after logger
//  5. Body size limiter, gzip compression
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with masking
	r.Use(middleware.Logger(middleware.LogOptions{
		MaskHeaders: []string{
			"X-User-Privileges", // roles are not for log sinks
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB) and response compression
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Timezone", "X-User-Privileges", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "PAGING_INFO", "ETag", "Content-Length"},
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-User-Timezone", "X-User-Privileges", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "PAGING_INFO", "ETag", "Content-Length"},
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

	// Swagger UI (off by default; gate with SWAGGER_ENABLED)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	quotaSvc := services.NewQuotaService(db, quotaRepoShim{}, cfg.DailyPostLimit)
	schedSvc := services.NewSchedulerService(db, postRepoShim{}, quotaSvc)
	listSvc := services.NewListingService(db, listingRepoShim{})
	subSvc := services.NewSubmissionService(db, submissionRepoShim{})

	h := handlers.New(schedSvc, listSvc, subSvc, quotaSvc)
	h.IdempotencyTTL = cfg.IdempotencyTTL

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Scheduled posts
		api.GET("/scheduledPosts", h.ListPosts)
		api.POST("/scheduledPosts", h.SchedulePost)
		api.GET("/scheduledPosts/available", h.Available)
		api.GET("/scheduledPosts/:id", h.GetPost)
		api.PUT("/scheduledPosts/:id", h.UpdatePost)
		api.DELETE("/scheduledPosts/:id", h.DeletePost)

		// Dispatch worker callback
		api.POST("/scheduledPosts/:id/submissions", h.RecordSubmission)
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
