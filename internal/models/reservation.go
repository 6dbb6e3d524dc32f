package models

import (
	"strings"
	"time"
)

// Normalized lifecycle statuses. A confirmed reservation has no status (nil).
const (
	StatusCancelled = "cancelled"
	StatusBlocked   = "blocked"
)

// Reservation is one guest stay.
type Reservation struct {
	ID           string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	PropertyID   string  `gorm:"type:varchar(36);not null;index" json:"property_id"`
	PropertyName string  `gorm:"type:varchar(320)" json:"property_name"`
	Source       string  `gorm:"type:varchar(100);index" json:"source"`
	ExternalID   *string `gorm:"type:varchar(100);index" json:"external_id,omitempty"`

	CheckIn  *time.Time `gorm:"type:date;index" json:"check_in,omitempty"`
	CheckOut *time.Time `gorm:"type:date" json:"check_out,omitempty"`
	Nights   *int       `gorm:"type:int" json:"nights,omitempty"`

	GuestCount  *int   `gorm:"type:int" json:"guest_count,omitempty"`
	Adults      *int   `gorm:"type:int" json:"adults,omitempty"`
	Children    *int   `gorm:"type:int" json:"children,omitempty"`
	Infants     *int   `gorm:"type:int" json:"infants,omitempty"`
	Nationality string `gorm:"type:varchar(100)" json:"nationality,omitempty"`

	BookedOn   *time.Time `gorm:"type:date" json:"booked_on,omitempty"`
	SaleAmount *int64     `gorm:"type:bigint" json:"sale_amount,omitempty"`
	Status     *string    `gorm:"type:varchar(50);index" json:"status,omitempty"`
	RatePlan   string     `gorm:"type:varchar(255)" json:"rate_plan,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Reservation) TableName() string {
	return "reservations"
}

// IsCancelled reports whether the reservation was cancelled.
func (r *Reservation) IsCancelled() bool {
	return r.Status != nil && *r.Status == StatusCancelled
}

// IsBlocked reports whether the reservation is a calendar block.
func (r *Reservation) IsBlocked() bool {
	return r.Status != nil && *r.Status == StatusBlocked
}

// CountsTowardMetrics is false for cancellations and blocks.
func (r *Reservation) CountsTowardMetrics() bool {
	return !r.IsCancelled() && !r.IsBlocked()
}

// ExternalKey returns the trimmed external booking id, or "" when absent.
func (r *Reservation) ExternalKey() string {
	return NormalizeExternalID(r.ExternalID)
}

// NormalizeExternalID trims the id; empty strings are treated as absent.
func NormalizeExternalID(id *string) string {
	if id == nil {
		return ""
	}
	return strings.TrimSpace(*id)
}

// ReservationFilter is the query shape accepted by reservation fetches and metrics.
// From and To bound the check-in date and are inclusive.
type ReservationFilter struct {
	PropertyID string
	Source     string
	From       *time.Time
	To         *time.Time
	Search     string
}

// IsZero reports whether no filter is set.
func (f ReservationFilter) IsZero() bool {
	return f.PropertyID == "" && f.Source == "" && f.From == nil && f.To == nil && strings.TrimSpace(f.Search) == ""
}

// Matches applies every set filter to r. A reservation without a check-in never
// matches a date bound.
func (f ReservationFilter) Matches(r *Reservation) bool {
	if f.PropertyID != "" && r.PropertyID != f.PropertyID {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.From != nil || f.To != nil {
		if r.CheckIn == nil {
			return false
		}
		day := dateOnly(*r.CheckIn)
		if f.From != nil && day.Before(dateOnly(*f.From)) {
			return false
		}
		if f.To != nil && day.After(dateOnly(*f.To)) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		haystack := strings.ToLower(r.Source + " " + r.RatePlan)
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
