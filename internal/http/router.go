// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, identity, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - One handshake gate for REST callers and websocket connections
package httpapi

import (
	"context"
	"errors"
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

	_ "github.com/cbanluta2700/agrismart--sub002/docs"
	"github.com/cbanluta2700/agrismart--sub002/internal/auth"
	"github.com/cbanluta2700/agrismart--sub002/internal/config"
	"github.com/cbanluta2700/agrismart--sub002/internal/http/handlers"
	"github.com/cbanluta2700/agrismart--sub002/internal/http/middleware"
	"github.com/cbanluta2700/agrismart--sub002/internal/realtime"
	"github.com/cbanluta2700/agrismart--sub002/internal/repo"
	"github.com/cbanluta2700/agrismart--sub002/internal/services"
)

const wsPath = "/ws"

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It builds the services around db and reg, configures
// observability, CORS and security headers, health and metrics endpoints,
// the websocket endpoint, and then mounts the versioned public API under
// cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII and token scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS, security headers and gzip (websocket excluded)
//
// API routes then run RequireIdentity, the token name adopter, the
// idempotency validator and the per-user rate limiter, in that order, so
// replays can bypass the limiter.
// The websocket handshake is rate limited per IP before the gate runs.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, reg *realtime.Registry, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key", "Sec-WebSocket-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		CacheControl: "private, no-cache",
		EnablePolicy: true,
	}))

	// Compression must never wrap the hijacked websocket writer.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{wsPath, "/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", healthHandler(db, reg))

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/registry
	gate := auth.NewGate(cfg.Auth)
	authz := &services.Authorizer{DB: db}
	syn := services.NewSynchronizer(db, reg)
	relay := services.NewRelay(db, reg, authz, syn, cfg.MaxContentRunes, cfg.IdempotencyTTL)
	reads := &services.ReadService{DB: db, Registry: reg, Authz: authz, Sync: syn}
	users := services.NewUserService(db, syn)

	deps := handlers.Deps{
		Conversations: &services.ConversationService{DB: db, Authz: authz, Sync: syn},
		Lists:         syn,
		Relay:         relay,
		Reads:         reads,
		Users:         users,
		TokenTTL:      cfg.Auth.DevTokenLifetime,
	}
	if cfg.Auth.DevTokens {
		deps.Tokens = gate
	}
	h := handlers.New(deps)

	// Realtime endpoint
	ws := handlers.NewWSHandler(handlers.WSDeps{
		Gate:     gate,
		Registry: reg,
		Relay:    relay,
		Reads:    reads,
		Lists:    syn,
		Names:    users,
		Conn: realtime.Options{
			SendBuffer:      cfg.WS.SendBuffer,
			MaxMessageBytes: cfg.WS.MaxMessageBytes,
			PingPeriod:      cfg.WS.PingPeriod,
			PongWait:        cfg.WS.PongWait,
			WriteWait:       cfg.WS.WriteWait,
			EventRPS:        cfg.WS.EventRPS,
			EventBurst:      cfg.WS.EventBurst,
		},
		OpTimeout:      cfg.WS.OpTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	handshakes := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	r.GET(wsPath, handshakes.Handler(), ws.Serve)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api/v1"
	if cfg.Auth.DevTokens {
		api.POST("/auth/token", h.IssueToken)
	}

	authed := api.Group("")
	authed.Use(middleware.RequireIdentity(gate))
	authed.Use(middleware.AdoptTokenName(users))
	authed.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{},
		func(ctx context.Context, userID, conversationID, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, userID, conversationID, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return err == nil, err
		},
	))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	authed.Use(rl.Handler())
	{
		// Conversations
		authed.POST("/conversations", h.CreateConversation)
		authed.GET("/conversations", h.ListConversations)

		// Messages and receipts
		authed.GET("/conversations/:id/messages", h.ListMessages)
		authed.POST("/conversations/:id/messages", h.PostMessage)
		authed.POST("/conversations/:id/read", h.MarkRead)

		// Users
		authed.PUT("/users/me", h.UpdateMe)
	}
}

// corsMiddleware returns the CORS chain. With no allowlist any origin is
// accepted without credentials; otherwise allowed origins are echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Idempotency-Replayed", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// healthHandler reports liveness, database reachability and the number of
// live websocket connections on this process.
func healthHandler(db *gorm.DB, reg *realtime.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "connections": reg.Count()})
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
