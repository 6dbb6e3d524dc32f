package metrics

import (
	"sort"

	"resale-admin/internal/models"
	"resale-admin/internal/week"
)

const daysPerWeek = 7

// OccupancyPoint is the share of a bucket's seven nights that were stayed.
type OccupancyPoint struct {
	Week         week.Key `json:"week"`
	PropertyID   string   `json:"property_id"`
	PropertyName string   `json:"property_name"`
	Nights       int      `json:"nights"`
	Rate         float64  `json:"rate"`
}

// ADRPoint is the average sale per night for reservations checking in within
// the bucket.
type ADRPoint struct {
	Week         week.Key `json:"week"`
	PropertyID   string   `json:"property_id"`
	PropertyName string   `json:"property_name"`
	Sales        int64    `json:"sales"`
	Nights       int      `json:"nights"`
	ADR          float64  `json:"adr"`
}

// SalesPoint is the summed sale amount of reservations checking in within the bucket.
type SalesPoint struct {
	Week         week.Key `json:"week"`
	PropertyID   string   `json:"property_id"`
	PropertyName string   `json:"property_name"`
	Sales        int64    `json:"sales"`
}

type bucket struct {
	week       week.Key
	propertyID string
}

func lessBucket(a, b bucket) bool {
	if a.week != b.week {
		return a.week.Less(b.week)
	}
	return a.propertyID < b.propertyID
}

// BuildOccupancy groups stay nights by (property, week of the night). The rate
// is nights/7 capped at 1.0. Only buckets with at least one night are returned.
func BuildOccupancy(reservations []models.Reservation, f models.ReservationFilter) []OccupancyPoint {
	counts := make(map[bucket]*OccupancyPoint)
	for _, n := range ExpandStayNights(reservations, f) {
		k := week.KeyOf(n.Date)
		if !k.Valid() {
			continue
		}
		b := bucket{week: k, propertyID: n.PropertyID}
		p, ok := counts[b]
		if !ok {
			p = &OccupancyPoint{Week: k, PropertyID: n.PropertyID}
			counts[b] = p
		}
		if p.PropertyName == "" {
			p.PropertyName = n.PropertyName
		}
		p.Nights++
	}

	points := make([]OccupancyPoint, 0, len(counts))
	for _, p := range counts {
		p.Rate = occupancyRate(p.Nights)
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return lessBucket(bucket{points[i].Week, points[i].PropertyID}, bucket{points[j].Week, points[j].PropertyID})
	})
	return points
}

func occupancyRate(nights int) float64 {
	rate := float64(nights) / daysPerWeek
	if rate > 1 {
		return 1
	}
	return rate
}

type revenue struct {
	name   string
	sales  int64
	nights int
}

// groupByCheckInWeek buckets whole reservations by the week of their check-in.
// Nights of a stay that crosses a week boundary are not apportioned.
func groupByCheckInWeek(reservations []models.Reservation, f models.ReservationFilter) (map[bucket]*revenue, []bucket) {
	groups := make(map[bucket]*revenue)
	var order []bucket
	for i := range reservations {
		r := &reservations[i]
		if !eligible(r, f) {
			continue
		}
		k := week.KeyOf(*r.CheckIn)
		if !k.Valid() {
			continue
		}
		b := bucket{week: k, propertyID: r.PropertyID}
		g, ok := groups[b]
		if !ok {
			g = &revenue{}
			groups[b] = g
			order = append(order, b)
		}
		if g.name == "" {
			g.name = r.PropertyName
		}
		if r.SaleAmount != nil {
			g.sales += *r.SaleAmount
		}
		if r.Nights != nil {
			g.nights += *r.Nights
		}
	}
	sort.Slice(order, func(i, j int) bool { return lessBucket(order[i], order[j]) })
	return groups, order
}

// BuildADR returns total sale / total nights per (property, check-in week).
// A bucket with no nights has an ADR of 0.
func BuildADR(reservations []models.Reservation, f models.ReservationFilter) []ADRPoint {
	groups, order := groupByCheckInWeek(reservations, f)
	points := make([]ADRPoint, 0, len(order))
	for _, b := range order {
		g := groups[b]
		points = append(points, ADRPoint{
			Week:         b.week,
			PropertyID:   b.propertyID,
			PropertyName: g.name,
			Sales:        g.sales,
			Nights:       g.nights,
			ADR:          averageRate(g.sales, g.nights),
		})
	}
	return points
}

func averageRate(sales int64, nights int) float64 {
	if nights <= 0 {
		return 0
	}
	return float64(sales) / float64(nights)
}

// BuildSales returns the summed sale amount per (property, check-in week).
func BuildSales(reservations []models.Reservation, f models.ReservationFilter) []SalesPoint {
	groups, order := groupByCheckInWeek(reservations, f)
	points := make([]SalesPoint, 0, len(order))
	for _, b := range order {
		g := groups[b]
		points = append(points, SalesPoint{
			Week:         b.week,
			PropertyID:   b.propertyID,
			PropertyName: g.name,
			Sales:        g.sales,
		})
	}
	return points
}
