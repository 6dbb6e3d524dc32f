package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resale-admin/internal/metrics"
	"resale-admin/internal/models"
	"resale-admin/internal/store"
	"resale-admin/internal/week"
)

// WeekRange is the window of week buckets the dashboard charts.
type WeekRange struct {
	StartYear int
	Years     int
}

// MetricsHandler serves the weekly chart series
type MetricsHandler struct {
	properties   store.PropertyRepository
	reservations store.ReservationRepository
	searcher     Searcher
	weeks        WeekRange
}

// NewMetricsHandler creates a new metrics handler. searcher may be nil.
func NewMetricsHandler(properties store.PropertyRepository, reservations store.ReservationRepository, searcher Searcher, weeks WeekRange) *MetricsHandler {
	return &MetricsHandler{
		properties:   properties,
		reservations: reservations,
		searcher:     searcher,
		weeks:        weeks,
	}
}

// load parses the filter, fetches matching reservations and reports whether
// the caller asked for zero-filled series.
func (h *MetricsHandler) load(c *gin.Context) ([]models.Reservation, models.ReservationFilter, bool, bool) {
	f, err := parseFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return nil, f, false, false
	}
	dense, _ := strconv.ParseBool(c.DefaultQuery("dense", "false"))

	rs, err := fetchReservations(c.Request.Context(), h.reservations, h.searcher, f)
	if err != nil {
		respondError(c, err)
		return nil, f, false, false
	}
	return rs, f, dense, true
}

// keys returns the charted week range, narrowed to the filter's dates.
func (h *MetricsHandler) keys(f models.ReservationFilter) []week.Key {
	all := week.Range(h.weeks.StartYear, h.weeks.Years)
	if f.From == nil && f.To == nil {
		return all
	}
	out := make([]week.Key, 0, len(all))
	for _, k := range all {
		if f.From != nil && k.Less(week.KeyOf(*f.From)) {
			continue
		}
		if f.To != nil && week.KeyOf(*f.To).Less(k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// GetOccupancy returns weekly occupancy per property
func (h *MetricsHandler) GetOccupancy(c *gin.Context) {
	rs, f, dense, ok := h.load(c)
	if !ok {
		return
	}
	points := metrics.BuildOccupancy(rs, f)
	if dense {
		points = metrics.DensifyOccupancy(points, h.keys(f))
	}
	c.JSON(http.StatusOK, gin.H{
		"points": points,
		"count":  len(points),
	})
}

// GetADR returns weekly average daily rate per property
func (h *MetricsHandler) GetADR(c *gin.Context) {
	rs, f, dense, ok := h.load(c)
	if !ok {
		return
	}
	points := metrics.BuildADR(rs, f)
	if dense {
		points = metrics.DensifyADR(points, h.keys(f))
	}
	c.JSON(http.StatusOK, gin.H{
		"points": points,
		"count":  len(points),
	})
}

// GetSales returns weekly sales per property
func (h *MetricsHandler) GetSales(c *gin.Context) {
	rs, f, dense, ok := h.load(c)
	if !ok {
		return
	}
	points := metrics.BuildSales(rs, f)
	if dense {
		points = metrics.DensifySales(points, h.keys(f))
	}
	c.JSON(http.StatusOK, gin.H{
		"points": points,
		"count":  len(points),
	})
}

// GetWeeks returns the week keys the charts use as their x axis
func (h *MetricsHandler) GetWeeks(c *gin.Context) {
	keys := week.Range(h.weeks.StartYear, h.weeks.Years)
	c.JSON(http.StatusOK, gin.H{
		"weeks": keys,
		"count": len(keys),
	})
}

// GetSummary returns header totals for the filter
func (h *MetricsHandler) GetSummary(c *gin.Context) {
	rs, f, _, ok := h.load(c)
	if !ok {
		return
	}

	count := 1
	if f.PropertyID == "" {
		props, err := h.properties.ListProperties(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		count = len(props)
	}

	c.JSON(http.StatusOK, metrics.Summarize(rs, f, count))
}
