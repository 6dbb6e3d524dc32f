// Package metrics aggregates reservations into weekly occupancy, ADR and
// sales points per property.
package metrics

import (
	"log"
	"time"

	"resale-admin/internal/models"
)

// StayNight is one calendar night of one reservation. Derived, never stored.
type StayNight struct {
	PropertyID    string    `json:"property_id"`
	ReservationID string    `json:"reservation_id"`
	PropertyName  string    `json:"property_name"`
	Source        string    `json:"source"`
	Date          time.Time `json:"date"`
	Status        *string   `json:"status,omitempty"`
}

// eligible is the pre-filter shared by every builder: cancellations, blocks
// and rows without a usable check-in never count, and the caller's filter is
// applied before any expansion or grouping.
func eligible(r *models.Reservation, f models.ReservationFilter) bool {
	if !r.CountsTowardMetrics() {
		return false
	}
	if r.CheckIn == nil || r.CheckIn.IsZero() {
		return false
	}
	return f.Matches(r)
}

// maxStayNights bounds the expansion of a single reservation. Longer stays are
// treated as bad data and contribute no nights.
const maxStayNights = 366

// ExpandStayNights produces one entry per night from check-in (inclusive)
// through check-in + nights - 1.
func ExpandStayNights(reservations []models.Reservation, f models.ReservationFilter) []StayNight {
	var nights []StayNight
	for i := range reservations {
		r := &reservations[i]
		if !eligible(r, f) {
			continue
		}
		if r.Nights == nil || *r.Nights <= 0 {
			continue
		}
		if *r.Nights > maxStayNights {
			log.Printf("[Metrics] skipping reservation %s: %d nights exceeds %d", r.ID, *r.Nights, maxStayNights)
			continue
		}
		start := *r.CheckIn
		for n := 0; n < *r.Nights; n++ {
			nights = append(nights, StayNight{
				PropertyID:    r.PropertyID,
				ReservationID: r.ID,
				PropertyName:  r.PropertyName,
				Source:        r.Source,
				Date:          start.AddDate(0, 0, n),
				Status:        r.Status,
			})
		}
	}
	return nights
}
