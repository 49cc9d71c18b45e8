package handlers

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/jellydator/ttlcache/v3"
	"gorm.io/gorm"

	"github.com/arnavshah/rota-matcher/internal/config"
	"github.com/arnavshah/rota-matcher/pkg/auth"
	"github.com/arnavshah/rota-matcher/pkg/database"
	"github.com/arnavshah/rota-matcher/pkg/models"
	"github.com/arnavshah/rota-matcher/pkg/scheduler"
)

//go:embed static/*
var staticEmbed embed.FS

// Handler contains dependencies for the route handlers
type Handler struct {
	DB        *gorm.DB
	Auth      *auth.Authenticator
	Scheduler *scheduler.Scheduler
	// Cache keeps recent schedules for downloads without a database read.
	Cache   *ttlcache.Cache[string, *models.Schedule]
	Config  *config.Config
	Logger  logr.Logger
	nowFunc func() time.Time
}

// New wires a handler from configuration. The cache's cleanup loop is not
// started; callers that run a server should call Start.
func New(db *gorm.DB, cfg *config.Config, logger logr.Logger) *Handler {
	return &Handler{
		DB:        db,
		Auth:      auth.New(cfg.Auth),
		Scheduler: scheduler.NewScheduler(scheduler.NewLogObserver(logger)),
		Cache: ttlcache.New(
			ttlcache.WithTTL[string, *models.Schedule](cfg.Scheduler.CacheTTL.Duration),
		),
		Config:  cfg,
		Logger:  logger.WithName("handlers"),
		nowFunc: time.Now,
	}
}

// Start runs the cache cleanup loop until Stop is called.
func (h *Handler) Start() { go h.Cache.Start() }

// Stop ends the cache cleanup loop.
func (h *Handler) Stop() { h.Cache.Stop() }

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key, loads its record and enforces
// the key's daily request limit.
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		userID, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		apiKey, err := database.FindOrCreateKey(h.DB, key, userID)
		if err != nil {
			h.Logger.Error(err, "Could not load API key", "user", userID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load API key"})
			return
		}

		used, err := database.UsageToday(h.DB, apiKey.ID, h.nowFunc())
		if err != nil {
			h.Logger.Error(err, "Could not read usage", "key", apiKey.ID)
		} else if apiKey.RateLimit > 0 && used.RequestCount >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily request limit reached"})
			return
		}

		c.Set("apiKey", apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// currentKey returns the API key set by APIKeyMiddleware.
func currentKey(c *gin.Context) (*database.APIKey, bool) {
	raw, exists := c.Get("apiKey")
	if !exists {
		return nil, false
	}
	apiKey, ok := raw.(*database.APIKey)
	return apiKey, ok
}

// AdminInterface serves the admin web interface from embedded files
func (h *Handler) AdminInterface(c *gin.Context) {
	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "static/index.html not found in embedded FS"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
