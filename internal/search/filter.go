package search

import (
	"fmt"
	"strings"
	"time"

	"resale-admin/internal/models"
)

// BuildFilter translates the structured filter fields into a Meilisearch
// filter expression.
func BuildFilter(f models.ReservationFilter) string {
	var filters []string
	if f.PropertyID != "" {
		filters = append(filters, fmt.Sprintf("property_id = %s", quote(f.PropertyID)))
	}
	if f.Source != "" {
		filters = append(filters, fmt.Sprintf("source = %s", quote(f.Source)))
	}
	if f.From != nil {
		filters = append(filters, fmt.Sprintf("check_in_day >= %d", dayNumber(*f.From)))
	}
	if f.To != nil {
		filters = append(filters, fmt.Sprintf("check_in_day <= %d", dayNumber(*f.To)))
	}
	return strings.Join(filters, " AND ")
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
