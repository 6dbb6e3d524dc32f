package ingest

import (
	"math"
	"strconv"
	"strings"

	"resale-admin/internal/models"
)

// Channel labels after normalization.
const (
	SourceManualImport = "手動インポート"
	SourceUnknownOTA   = "不明OTA"
	SourceSelfBooked   = "自社予約"
)

// selfBookedMarkers are matched case-insensitively anywhere in the channel label.
var selfBookedMarkers = []string{"手動作成", "airhost"}

// NormalizeSource rewrites channel labels coming from the booking tool.
func NormalizeSource(raw string) string {
	s := strings.TrimSpace(raw)
	if s == SourceManualImport {
		return SourceUnknownOTA
	}
	lower := strings.ToLower(s)
	for _, marker := range selfBookedMarkers {
		if strings.Contains(lower, marker) {
			return SourceSelfBooked
		}
	}
	return s
}

var statusAliases = map[string]string{
	"システムキャンセル":        models.StatusCancelled,
	"キャンセル":            models.StatusCancelled,
	"system cancelled": models.StatusCancelled,
	"cancelled":        models.StatusCancelled,
	"ブロック":             models.StatusBlocked,
	"blocked":          models.StatusBlocked,
	"確定":               "",
	"confirmed":        "",
}

// NormalizeStatus collapses raw status labels. Confirmed (and empty) becomes
// nil; unknown labels pass through trimmed.
func NormalizeStatus(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if v, ok := statusAliases[strings.ToLower(s)]; ok {
		if v == "" {
			return nil
		}
		return &v
	}
	return &s
}

var numberReplacer = strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "", " ", "", "　", "")

// parseNumber is permissive: blank cells and unparseable text both yield nil.
// The second return value is false only when a non-blank cell failed to parse.
func parseNumber(raw string) (*float64, bool) {
	s := numberReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

func parseInt(raw string) (*int, bool) {
	f, ok := parseNumber(raw)
	if f == nil {
		return nil, ok
	}
	r := math.Round(*f)
	if r >= math.MaxInt64 || r < math.MinInt64 {
		return nil, false
	}
	v := int(r)
	return &v, true
}

func parseAmount(raw string) (*int64, bool) {
	f, ok := parseNumber(raw)
	if f == nil {
		return nil, ok
	}
	r := math.Round(*f)
	if r >= math.MaxInt64 || r < math.MinInt64 {
		return nil, false
	}
	v := int64(r)
	return &v, true
}
