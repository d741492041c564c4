// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, idempotency, and rate
// limiting.
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
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/descode/descode-backend/internal/config"
	"github.com/descode/descode-backend/internal/docstore"
	"github.com/descode/descode-backend/internal/domain"
	"github.com/descode/descode-backend/internal/http/handlers"
	"github.com/descode/descode-backend/internal/http/middleware"
	"github.com/descode/descode-backend/internal/llm"
	"github.com/descode/descode-backend/internal/repo"
	"github.com/descode/descode-backend/internal/retrieval"
	"github.com/descode/descode-backend/internal/services"
	"github.com/descode/descode-backend/internal/spam"
)

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the ChatService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type chatRepoShim struct{}

// CreateChat proxies repo.CreateChat.
func (chatRepoShim) CreateChat(ctx context.Context, db *gorm.DB, userID, title string, allowExternal bool) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title, allowExternal)
}

// ListChats proxies repo.ListChats.
func (chatRepoShim) ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChats(ctx, db, userID)
}

// GetChat proxies repo.GetChat.
func (chatRepoShim) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}

// UpdateChat proxies repo.UpdateChat.
func (chatRepoShim) UpdateChat(ctx context.Context, db *gorm.DB, id, userID string, title *string, allowExternal *bool) error {
	return repo.UpdateChat(ctx, db, id, userID, title, allowExternal)
}

// DeleteChat proxies repo.DeleteChat.
func (chatRepoShim) DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteChat(ctx, db, id, userID)
}

// CountChats proxies repo.CountChats (pagination support).
func (chatRepoShim) CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountChats(ctx, db, userID)
}

// ListChatsPage proxies repo.ListChatsPage (pagination support).
func (chatRepoShim) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

// docListerShim exposes the active document set to the retrieval pipeline.
type docListerShim struct{ db *gorm.DB }

// ListActiveDocuments proxies repo.ListDocuments.
func (l docListerShim) ListActiveDocuments(ctx context.Context) ([]domain.Document, error) {
	return repo.ListDocuments(ctx, l.db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, compression, CORS and security headers, authentication, health and
// metrics endpoints, and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. CORS and Security headers
//
// Idempotency validation and rate limiting are group middleware, not global:
// both key on the caller identity, so they run inside the authenticated group
// after Auth has resolved it (public helper routes get IP-keyed limiting).
func RegisterRoutes(r *gin.Engine, db *gorm.DB, ai llm.Completer, embedder llm.Embedder, files *docstore.FileStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction. X-User-ID is an identity and
	// idempotency keys can embed client-side semantics; neither belongs in
	// access logs.
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"Authorization",
			middleware.HeaderUserID,
			middleware.HeaderIdempotencyKey,
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (10 MiB: message and document uploads carry files)
	r.Use(limitBody(10 << 20))

	// 6) Compress responses (document and chat listings benefit most)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
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
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey},
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

	// Dependency injection: services ← repo/db/retrieval/provider
	retriever := &retrieval.Retriever{
		Docs:       docListerShim{db: db},
		Texts:      files,
		Embedder:   embedder,
		ChunkSize:  cfg.Retrieval.ChunkSize,
		TopKPerDoc: cfg.Retrieval.TopKPerDoc,
	}

	chatSvc := services.NewChatService(db, chatRepoShim{})
	msgSvc := &services.MessageService{
		DB:             db,
		Retriever:      retriever,
		Completer:      ai,
		Spam:           spam.NewWindowTracker(cfg.Spam.Limit, cfg.Spam.Window),
		MaxPromptRunes: 4000,
		TitleMaxLen:    60,
		TitleLocale:    language.English,
	}
	docSvc := &services.DocumentService{DB: db, Store: files}

	h := handlers.New(chatSvc, msgSvc, docSvc, files, ai)

	// Idempotency validation: marks replays so the rate limiter can skip
	// them. Must run after Auth so the lookup is keyed by the real caller,
	// not the anonymous fallback identity.
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, chatID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, chatID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	)

	// Token-bucket rate limiter. One instance serves both groups: buckets
	// are keyed per user on authenticated routes and per client IP on the
	// public helpers.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)

	// No identity required for signup helpers; limited by client IP.
	public := api.Group("", rl.Handler())
	public.GET("/password-suggestion", h.SuggestPassword)
	public.POST("/ai/password", h.GenerateAIPassword)

	authed := api.Group("", middleware.Auth(cfg.JWTSecret), idem, rl.Handler())
	{
		// Standalone uploads
		authed.POST("/files", h.UploadFile)

		// Chats
		authed.POST("/chats", h.CreateChat)
		authed.GET("/chats", h.ListChats)
		authed.GET("/chats/:id", h.GetChat)
		authed.PUT("/chats/:id", h.UpdateChat)
		authed.DELETE("/chats/:id", h.DeleteChat)

		// Messages
		authed.GET("/chats/:id/messages", h.ListMessages)
		authed.POST("/chats/:id/messages", h.PostMessage)

		// Documents
		authed.POST("/documents", h.UploadDocument)
		authed.GET("/documents", h.ListDocuments)
		authed.GET("/documents/:id", h.GetDocument)
		authed.PUT("/documents/:id/file", h.ReplaceDocument)
		authed.DELETE("/documents/:id", h.DeleteDocument)
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
