package search

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resale-admin/internal/models"
)

func TestBuildFilter(t *testing.T) {
	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		f    models.ReservationFilter
		want string
	}{
		{"empty", models.ReservationFilter{}, ""},
		{"property", models.ReservationFilter{PropertyID: "p1"}, `property_id = "p1"`},
		{"quoted source", models.ReservationFilter{Source: `say "hi"`}, `source = "say \"hi\""`},
		{
			"range",
			models.ReservationFilter{PropertyID: "p1", From: &from, To: &to, Search: "ignored"},
			`property_id = "p1" AND check_in_day >= 20250301 AND check_in_day <= 20250331`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildFilter(tt.f); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewDocument(t *testing.T) {
	checkIn := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	ext := " AH-1 "
	status := models.StatusCancelled
	d := NewDocument(models.Reservation{ID: "r1", ExternalID: &ext, CheckIn: &checkIn, Status: &status})
	if d.ExternalID != "AH-1" || d.CheckInDay != 20250310 || d.Status != "cancelled" {
		t.Fatalf("unexpected document %+v", d)
	}
}

func TestSearchIDs(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/indexes/reservations/search") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[{"id":"r1"},{"id":"r2"},{"nope":1}],"estimatedTotalHits":2,"processingTimeMs":1,"query":"sea"}`))
	}))
	defer srv.Close()

	c := NewSearchClient(srv.URL, "", "")
	ids, err := c.SearchIDs("sea", models.ReservationFilter{PropertyID: "p1"})
	if err != nil {
		t.Fatalf("SearchIDs: %v", err)
	}
	if strings.Join(ids, ",") != "r1,r2" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if body["q"] != "sea" || body["filter"] != `property_id = "p1"` {
		t.Fatalf("unexpected request body %v", body)
	}
}

func TestInitIndexConfiguresSettings(t *testing.T) {
	bodies := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		bodies[r.Method+" "+r.URL.Path] = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"taskUid":1,"indexUid":"reservations","status":"enqueued","type":"settingsUpdate","enqueuedAt":"2025-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	if err := NewSearchClient(srv.URL, "", "").InitIndex(); err != nil {
		t.Fatalf("InitIndex: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"PUT /indexes/reservations/settings/searchable-attributes", `["source","rate_plan"]`},
		{"PATCH /indexes/reservations/settings/pagination", `{"maxTotalHits":10000}`},
	}
	for _, tt := range tests {
		got, ok := bodies[tt.key]
		if !ok {
			t.Errorf("no request for %s, got %v", tt.key, bodies)
			continue
		}
		if got != tt.want {
			t.Errorf("%s body = %s, want %s", tt.key, got, tt.want)
		}
	}
}
