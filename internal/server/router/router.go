package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/lttp/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the HTTP adapters mounted on the engine.
type Handlers struct {
	Catalog      *handlers.CatalogHandler
	Inventory    *handlers.InventoryHandler
	Distribution *handlers.DistributionHandler
	Processing   *handlers.ProcessingHandler
}

// Options tunes middleware that differs between environments.
type Options struct {
	Production     bool
	AllowedOrigins []string
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))
	if mw := corsMiddleware(opts); mw != nil {
		r.Use(mw)
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", handlers.RequirePrincipal())

	items := api.Group("/lttp/items")
	items.GET("", h.Catalog.ListItems)
	items.POST("", h.Catalog.CreateItem)
	items.GET("/:id", h.Catalog.GetItem)
	items.PUT("/:id", h.Catalog.UpdateItem)
	items.PATCH("/:id/price", h.Catalog.UpdatePrice)
	items.DELETE("/:id", h.Catalog.DeactivateItem)

	units := api.Group("/units")
	units.GET("", h.Catalog.ListUnits)
	units.POST("", h.Catalog.CreateUnit)
	units.GET("/:id", h.Catalog.GetUnit)
	units.PUT("/:id", h.Catalog.UpdateUnit)

	inv := api.Group("/lttp/inventory")
	inv.GET("", h.Inventory.GetByDate)
	inv.POST("", h.Inventory.CreateOrUpdate)
	inv.GET("/range", h.Inventory.GetByDateRange)
	inv.POST("/initialize", h.Inventory.Initialize)
	inv.GET("/expiry-alerts", h.Inventory.ExpiryAlerts)
	inv.GET("/summary", h.Inventory.Summary)
	inv.GET("/quality-report", h.Inventory.QualityReport)
	inv.PATCH("/:id/quality-check", h.Inventory.RecordQualityCheck)

	dist := api.Group("/lttp-distribution")
	dist.GET("", h.Distribution.GetByDate)
	dist.POST("", h.Distribution.Create)
	dist.GET("/summary/daily", h.Distribution.DailySummary)
	dist.GET("/:id", h.Distribution.GetByID)
	dist.PUT("/:id", h.Distribution.Update)
	dist.DELETE("/:id", h.Distribution.Delete)
	dist.PATCH("/:id/submit", h.Distribution.Submit)
	dist.PATCH("/:id/approve", h.Distribution.Approve)
	dist.PATCH("/:id/reject", h.Distribution.Reject)
	dist.PATCH("/:id/units/:unitName/distribute", h.Distribution.DistributeUnit)
	dist.PATCH("/:id/units/:unitName/complete", h.Distribution.CompleteUnit)
	dist.POST("/:id/issues", h.Distribution.ReportIssue)

	proc := api.Group("/processing")
	proc.GET("/stations", h.Processing.ListStations)
	proc.GET("/:station", h.Processing.GetByDate)
	proc.POST("/:station", h.Processing.Upsert)
	proc.GET("/:station/range", h.Processing.GetRange)
	proc.GET("/:station/rollup", h.Processing.Rollup)

	logger.Info("router initialized", zap.Int("routes", len(r.Routes())))

	return r
}

// corsMiddleware allows any origin outside production. In production only
// the configured origins are allowed; with none configured CORS is not served.
func corsMiddleware(opts Options) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if opts.Production {
		if len(opts.AllowedOrigins) == 0 {
			return nil
		}
		cfg.AllowOrigins = opts.AllowedOrigins
		cfg.AllowCredentials = true
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods(http.MethodPatch)
	cfg.AddAllowHeaders("Authorization", handlers.PrincipalHeader, requestIDHeader)
	cfg.AddExposeHeaders("Content-Length", requestIDHeader)
	return cors.New(cfg)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")))
	}
}
