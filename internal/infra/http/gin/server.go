package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"rentcal/internal/infra/config"
	"rentcal/internal/infra/http/mw"
	"rentcal/internal/infra/obs"
)

type DurationHTTP interface {
	Calculate(c *gin.Context)
}

type PropertyHTTP interface {
	Overlaps(c *gin.Context)
	Calendar(c *gin.Context)
	CalendarICS(c *gin.Context)
	ListOccupancies(c *gin.Context)
	CreateOccupancy(c *gin.Context)
}

type OccupancyHTTP interface {
	Reschedule(c *gin.Context)
	Confirm(c *gin.Context)
	CheckIn(c *gin.Context)
	Complete(c *gin.Context)
	Cancel(c *gin.Context)
}

type Handlers struct {
	Duration  DurationHTTP
	Property  PropertyHTTP
	Occupancy OccupancyHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine without touching the global gin mode.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"X-Cache",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))
	if h.Duration != nil {
		var store *cache.Cache
		if cfg.DurationCacheTTL > 0 {
			store = cache.New(cfg.DurationCacheTTL, 2*cfg.DurationCacheTTL)
		}
		api.GET("/durations", mw.Cache(store, cfg.DurationCacheTTL), h.Duration.Calculate)
	}
	if h.Property != nil {
		props := api.Group("/properties/:id")
		props.GET("/overlaps", h.Property.Overlaps)
		props.GET("/calendar", h.Property.Calendar)
		props.GET("/calendar.ics", h.Property.CalendarICS)
		props.GET("/occupancies", h.Property.ListOccupancies)
		props.POST("/occupancies", h.Property.CreateOccupancy)
	}
	if h.Occupancy != nil {
		occ := api.Group("/occupancies/:id")
		occ.PUT("/dates", h.Occupancy.Reschedule)
		occ.POST("/confirm", h.Occupancy.Confirm)
		occ.POST("/check-in", h.Occupancy.CheckIn)
		occ.POST("/complete", h.Occupancy.Complete)
		occ.POST("/cancel", h.Occupancy.Cancel)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
