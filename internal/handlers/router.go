package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"resale-admin/internal/auth"
	"resale-admin/internal/history"
	"resale-admin/internal/imports"
	"resale-admin/internal/ratelimit"
	"resale-admin/internal/reset"
	"resale-admin/internal/scheduler"
	"resale-admin/internal/store"
)

// Deps is everything the router needs. Searcher, Scheduler, Limiter and
// Health may be nil.
type Deps struct {
	Gate         auth.Gate
	Limiter      *ratelimit.Limiter
	Properties   store.PropertyRepository
	Reservations store.ReservationRepository
	Imports      *imports.Service
	History      *history.Service
	Reset        *reset.Service
	Scheduler    *scheduler.Scheduler
	Searcher     Searcher
	Weeks        WeekRange

	AllowOrigins   []string
	MaxUploadBytes int64
	HistoryLimit   int
	MaxResetCount  int
	StorageName    string
	Health         func(ctx context.Context) error
}

// NewRouter registers every route on a new gin engine.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if len(d.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if d.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = d.MaxUploadBytes
	}

	r.GET("/health", healthCheck(d.StorageName, d.Health))

	authHandler := NewAuthHandler(d.Gate, d.Limiter)
	propertyHandler := NewPropertyHandler(d.Properties)
	reservationHandler := NewReservationHandler(d.Reservations, d.Searcher)
	importHandler := NewImportHandler(d.Imports, d.History, d.MaxUploadBytes, d.HistoryLimit)
	metricsHandler := NewMetricsHandler(d.Properties, d.Reservations, d.Searcher, d.Weeks)
	adminHandler := NewAdminHandler(d.Properties, d.Reservations, d.Scheduler, d.History, d.Reset, d.Limiter, d.MaxResetCount)

	api := r.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/session", authHandler.Session)

		protected := api.Group("")
		protected.Use(auth.RequireSession(d.Gate))

		protected.GET("/properties", propertyHandler.ListProperties)
		protected.POST("/properties", propertyHandler.CreateProperty)
		protected.PUT("/properties/:id", propertyHandler.UpdateProperty)
		protected.DELETE("/properties/:id", propertyHandler.DeleteProperty)

		protected.GET("/reservations", reservationHandler.ListReservations)

		protected.POST("/imports", importHandler.Import)
		protected.POST("/imports/preview", importHandler.Preview)
		protected.GET("/imports/history", importHandler.GetHistory)

		protected.GET("/metrics/occupancy", metricsHandler.GetOccupancy)
		protected.GET("/metrics/adr", metricsHandler.GetADR)
		protected.GET("/metrics/sales", metricsHandler.GetSales)
		protected.GET("/metrics/weeks", metricsHandler.GetWeeks)
		protected.GET("/metrics/summary", metricsHandler.GetSummary)

		admin := protected.Group("/admin")
		{
			admin.POST("/reset", adminHandler.RunReset)
			admin.POST("/report/run", adminHandler.RunReport)
			admin.GET("/stats", adminHandler.GetStats)
		}
	}

	return r
}

func healthCheck(storage string, ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"time":    time.Now().Format(time.RFC3339),
			"storage": storage,
		}
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				body["status"] = "degraded"
				body["error"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
