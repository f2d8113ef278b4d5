package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/analyses"
	googleauth "intake-backend/internal/auth"
	"intake-backend/internal/documents"
	"intake-backend/internal/retrieval"
	"intake-backend/internal/shared/auth"
	"intake-backend/internal/shared/config"
	"intake-backend/internal/shared/metrics"
	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
	"intake-backend/internal/users"
)

const (
	rateGroupAnalyze = "ANALYZE"
	rateGroupIngest  = "INGEST"
)

// RouterDeps carries the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Verifier        auth.Verifier
	AnalysisHandler *analyses.Handler
	DocumentHandler *documents.Handler
	UserHandler     *users.Handler
	FileHandler     *retrieval.FileHandler
	GoogleAuth      *googleauth.GoogleService
	RateLimits      map[string]middleware.RateLimitRule
}

// DefaultRateLimits keeps analyzer calls stricter than ingestion.
func DefaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupAnalyze: {Rate: 0.2, Burst: 5},
		rateGroupIngest:  {Rate: 1, Burst: 20},
	}
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	rules := deps.RateLimits
	if rules == nil {
		rules = DefaultRateLimits()
	}
	limiter := middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: rateGroupIngest,
		GroupFor:     rateGroupFor,
	})

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	public := api.Group("")
	optional := api.Group("", middleware.Auth(deps.Verifier, middleware.Optional), limiter)
	required := api.Group("", middleware.Auth(deps.Verifier, middleware.Required), limiter)

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(public)
		if deps.Config.IsDevLike() {
			deps.GoogleAuth.RegisterDevRoutes(public)
		}
	}
	if deps.FileHandler != nil {
		deps.FileHandler.RegisterRoutes(public)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(required)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(optional, required)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(optional, required)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && strings.HasSuffix(c.FullPath(), "/analyze") {
		return rateGroupAnalyze
	}
	return rateGroupIngest
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
