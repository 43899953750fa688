// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, authentication, idempotency, and rate
// limiting.
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

	"github.com/tbourn/edupay/internal/auth"
	"github.com/tbourn/edupay/internal/cache"
	"github.com/tbourn/edupay/internal/config"
	"github.com/tbourn/edupay/internal/domain"
	"github.com/tbourn/edupay/internal/http/handlers"
	"github.com/tbourn/edupay/internal/http/middleware"
	"github.com/tbourn/edupay/internal/http/views"
	"github.com/tbourn/edupay/internal/notify"
	"github.com/tbourn/edupay/internal/services"
)

// Long-lived or scraped paths that must not be compressed or rate limited.
var streamingPaths = []string{"/events", "/metrics"}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. c may be a disabled cache; the application then serves every
// dashboard from the store.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Compression (not for the event stream)
//  8. CORS and security headers
//  9. Authentication (principal from cookie or bearer token)
//  10. Idempotency validator (needs the principal; before rate limiting so replays bypass it)
//  11. Rate limiter (per user/IP)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, c *cache.Cache, hub *notify.Hub, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	r.SetHTMLTemplate(views.Templates())

	// Dependency injection: services ← store/cache/hub
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	authSvc := services.NewAuthService(db, cfg.Auth)

	dashSvc := services.NewDashboardService(db, c)
	dashSvc.TTLOpen = cfg.Cache.TTLOpen
	dashSvc.TTLStudent = cfg.Cache.TTLStudent
	hooks := services.NewInvalidator(dashSvc, cfg.Cache.Strategy)

	reqSvc := services.NewRequestService(db, hooks, hub)
	donSvc := services.NewDonationService(db, hooks, hub)
	donSvc.IdempotencyTTL = cfg.IdempotencyTTL
	adminSvc := services.NewAdminService(db, c)

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths(streamingPaths)))

	// 8) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:         cfg.Security.EnableHSTS,
		HSTSMaxAge:         cfg.Security.HSTSMaxAge,
		NoStore:            true,
		EnablePolicy:       true,
		CSP:                middleware.DefaultCSP,
		CSPExcludePrefixes: []string{"/swagger/"},
	}))

	// 9) Who is calling
	r.Use(middleware.Authenticate(tokens, authSvc.Resolve))

	// 10) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, donSvc.HasReplay))

	// 11) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).
		Skip(append([]string{"/static/", "/health"}, streamingPaths...)...)
	r.Use(rl.Handler())

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "page not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", health(db, c))

	// Assets and docs
	r.StaticFS("/static", views.Static())
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(handlers.Deps{
		Auth:         authSvc,
		Dashboards:   dashSvc,
		Requests:     reqSvc,
		Donations:    donSvc,
		Admin:        adminSvc,
		Events:       hub,
		Tokens:       tokens,
		CookieSecure: cfg.Security.CookieSecure,
	})

	r.GET("/", h.Home)

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", h.LoginPage)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/register", h.RegisterPage)
		authGroup.POST("/register", h.Register)
		authGroup.POST("/logout", h.Logout)
	}

	student := r.Group("/student", middleware.RequireRole(domain.RoleStudent))
	{
		student.GET("/dashboard", h.StudentDashboard)
		student.GET("/create-request", h.CreateRequestPage)
		student.POST("/create-request", h.CreateRequest)
		student.GET("/my-requests", h.MyRequests)
		student.POST("/update/:id", h.UpdateRequest)
		student.POST("/delete/:id", h.DeleteRequest)
	}

	donor := r.Group("/donor", middleware.RequireRole(domain.RoleDonor))
	{
		donor.GET("/dashboard", h.DonorDashboard)
		donor.POST("/donate", h.Donate)
		donor.GET("/history", h.DonorHistory)
	}

	admin := r.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	{
		admin.GET("/dashboard", h.AdminDashboard)
		admin.GET("/cache", h.AdminCache)
	}

	r.GET("/events", middleware.RequireAuth(), h.Events)
}

// HealthResponse reports dependency status.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
	DB     string `json:"db" example:"ok"`
	// ok, disabled or unavailable; the application runs without a cache
	Cache string `json:"cache" example:"ok"`
}

// health godoc
// @ID          health
// @Summary     Liveness and dependency status
// @Description 200 while the store answers; an unavailable cache is reported but not fatal.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  httpapi.HealthResponse
// @Failure     503  {object}  httpapi.HealthResponse
// @Router      /health [get]
func health(db *gorm.DB, c *cache.Cache) gin.HandlerFunc {
	return func(gc *gin.Context) {
		ctx, cancel := context.WithTimeout(gc.Request.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", DB: "ok", Cache: "disabled"}
		status := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			resp.Status, resp.DB = "degraded", "unavailable"
			status = http.StatusServiceUnavailable
		}
		if c.Enabled() {
			resp.Cache = "ok"
			if err := c.Ping(ctx); err != nil {
				resp.Cache = "unavailable"
			}
		}
		gc.JSON(status, resp)
	}
}

// corsMiddleware allows every origin without credentials when no allowlist
// is configured, and credentialed requests from the allowlist otherwise.
func corsMiddleware(cc config.CORSConfig) gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "Content-Length", middleware.HeaderIdempotencyReplayed},
		MaxAge:        12 * time.Hour,
	}
	if len(cc.AllowedOrigins) == 0 {
		base.AllowAllOrigins = true
		base.AllowCredentials = false // must remain false with AllowAllOrigins
		return cors.New(base)
	}
	base.AllowOrigins = cc.AllowedOrigins
	base.AllowCredentials = true
	return cors.New(base)
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
