package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"resale-admin/internal/history"
	"resale-admin/internal/ratelimit"
	"resale-admin/internal/reset"
	"resale-admin/internal/scheduler"
	"resale-admin/internal/store"
)

// AdminHandler handles admin-related requests
type AdminHandler struct {
	properties       store.PropertyRepository
	reservations     store.ReservationRepository
	scheduler        *scheduler.Scheduler
	historyService   *history.Service
	resetService     *reset.Service
	limiter          *ratelimit.Limiter
	maxDeletionCount int
}

// NewAdminHandler creates a new admin handler. sched and limiter may be nil;
// maxDeletionCount 0 disables the reset safety limit.
func NewAdminHandler(properties store.PropertyRepository, reservations store.ReservationRepository, sched *scheduler.Scheduler, h *history.Service, r *reset.Service, limiter *ratelimit.Limiter, maxDeletionCount int) *AdminHandler {
	return &AdminHandler{
		properties:       properties,
		reservations:     reservations,
		scheduler:        sched,
		historyService:   h,
		resetService:     r,
		limiter:          limiter,
		maxDeletionCount: maxDeletionCount,
	}
}

// GetStats returns system statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := make(map[string]interface{})

	props, err := h.properties.ListProperties(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	stats["properties"] = map[string]interface{}{
		"total": len(props),
	}

	count, err := h.reservations.CountReservations(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	stats["reservations"] = map[string]interface{}{
		"total": count,
	}

	// Import history statistics
	historyStats, err := h.historyService.GetStats(ctx)
	if err != nil {
		log.Printf("Failed to get history stats: %v", err)
	} else {
		stats["imports"] = historyStats
	}

	if h.limiter != nil {
		stats["login_limit"] = h.limiter.Stats(c.ClientIP())
	}

	c.JSON(http.StatusOK, stats)
}

// RunReport builds the weekly report and posts it to the webhook
func (h *AdminHandler) RunReport(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Scheduler not available",
		})
		return
	}

	log.Println("Admin: Manual report trigger requested")

	report, err := h.scheduler.RunNow(c.Request.Context())
	if err != nil {
		if report == nil {
			respondError(c, err)
			return
		}
		log.Printf("Admin: Manual report failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  err.Error(),
			"report": report,
		})
		return
	}

	log.Println("Admin: Manual report sent")
	c.JSON(http.StatusOK, report)
}

// RunReset deletes every reservation. Dry run unless dry_run is false and the
// confirm phrase is sent.
func (h *AdminHandler) RunReset(c *gin.Context) {
	var req struct {
		DryRun  *bool  `json:"dry_run"` // default: true
		Confirm string `json:"confirm"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	config := reset.Config{
		DryRun:           true,
		Confirm:          req.Confirm,
		MaxDeletionCount: h.maxDeletionCount,
	}
	if req.DryRun != nil {
		config.DryRun = *req.DryRun
	}

	log.Printf("Admin: Running reset (dry-run: %v)", config.DryRun)

	result, err := h.resetService.Run(c.Request.Context(), config)
	if err != nil {
		log.Printf("Admin: Reset failed: %v", err)
		respondError(c, err)
		return
	}

	log.Printf("Admin: Reset completed: %d/%d deleted (dry-run: %v)",
		result.DeletedCount, result.TargetCount, result.DryRun)

	c.JSON(http.StatusOK, result)
}
