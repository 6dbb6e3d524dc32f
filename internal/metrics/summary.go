package metrics

import (
	"resale-admin/internal/models"
	"resale-admin/internal/week"
)

// Summary holds dashboard header totals for a filter.
type Summary struct {
	Reservations int     `json:"reservations"`
	Nights       int     `json:"nights"`
	Sales        int64   `json:"sales"`
	ADR          float64 `json:"adr"`
	Occupancy    float64 `json:"occupancy"`
	Cancelled    int     `json:"cancelled"`
	Blocked      int     `json:"blocked"`
}

// Summarize totals the reservations matching f. Occupancy is the number of
// stay nights falling inside the filter's date range over properties*days; it
// is left at 0 when the range is open.
func Summarize(reservations []models.Reservation, f models.ReservationFilter, properties int) Summary {
	var s Summary
	for i := range reservations {
		r := &reservations[i]
		if !f.Matches(r) {
			continue
		}
		switch {
		case r.IsCancelled():
			s.Cancelled++
			continue
		case r.IsBlocked():
			s.Blocked++
			continue
		}
		if r.CheckIn == nil {
			continue
		}
		s.Reservations++
		if r.SaleAmount != nil {
			s.Sales += *r.SaleAmount
		}
		if r.Nights != nil && *r.Nights > 0 {
			s.Nights += *r.Nights
		}
	}
	s.ADR = averageRate(s.Sales, s.Nights)

	if f.From != nil && f.To != nil && properties > 0 {
		days := int(week.Date(*f.To).Sub(week.Date(*f.From)).Hours()/24) + 1
		if days > 0 {
			open := f
			open.From, open.To = nil, nil
			from, to := week.Date(*f.From), week.Date(*f.To)
			stayed := 0
			for _, n := range ExpandStayNights(reservations, open) {
				d := week.Date(n.Date)
				if !d.Before(from) && !d.After(to) {
					stayed++
				}
			}
			s.Occupancy = float64(stayed) / float64(days*properties)
			if s.Occupancy > 1 {
				s.Occupancy = 1
			}
		}
	}
	return s
}
