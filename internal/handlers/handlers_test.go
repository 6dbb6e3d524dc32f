package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resale-admin/internal/auth"
	"resale-admin/internal/history"
	"resale-admin/internal/imports"
	"resale-admin/internal/models"
	"resale-admin/internal/ratelimit"
	"resale-admin/internal/reconcile"
	"resale-admin/internal/reset"
	"resale-admin/internal/scheduler"
	"resale-admin/internal/store/memory"
)

const (
	testPIN   = "4821"
	csvHeader = "施設名,予約サイト,予約番号,チェックイン,泊数,大人,売上,ステータス,ゲスト名\n"
)

type testServer struct {
	router *gin.Engine
	store  *memory.Store
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	hash, err := auth.HashPIN(testPIN)
	if err != nil {
		t.Fatal(err)
	}
	gate, err := auth.NewPinGate(hash, "test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	h := history.NewService(st)
	r := NewRouter(Deps{
		Gate:         gate,
		Limiter:      ratelimit.NewLimiter(3, 10, true),
		Properties:   st,
		Reservations: st,
		Imports:      imports.NewService(reconcile.NewService(st, st, 5), h, nil, nil),
		History:      h,
		Reset:        reset.NewService(st, h, nil),
		Scheduler:    scheduler.NewScheduler(st, st, nil, scheduler.Options{Location: time.UTC}),
		Weeks:        WeekRange{StartYear: 2025, Years: 1},

		MaxUploadBytes: 1 << 20,
		HistoryLimit:   50,
		StorageName:    "memory",
	})

	ts := &testServer{router: r, store: st}
	w := ts.do(t, http.MethodPost, "/api/auth/login", jsonBody(t, gin.H{"pin": testPIN}), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body)
	}
	var s auth.Session
	decode(t, w, &s)
	ts.token = s.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) upload(t *testing.T, path string, fields map[string]string, docs ...string) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for i, doc := range docs {
		part, err := mw.CreateFormFile("files", "export"+string(rune('a'+i))+".csv")
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(doc))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	mw.Close()
	return ts.do(t, http.MethodPost, path, body, mw.FormDataContentType())
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(data)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
}

func (ts *testServer) addProperty(t *testing.T, name, tag string) models.Property {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/properties", jsonBody(t, gin.H{"name": name, "tag": tag}), "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("create property: status %d, body %s", w.Code, w.Body)
	}
	var p models.Property
	decode(t, w, &p)
	return p
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "ok" || body["storage"] != "memory" {
		t.Errorf("body = %v", body)
	}
}

func TestLoginRejectsWrongPINAndRateLimits(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	for i := 0; i < 3; i++ {
		w := ts.do(t, http.MethodPost, "/api/auth/login", jsonBody(t, gin.H{"pin": "0000"}), "application/json")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, w.Code)
		}
	}
	w := ts.do(t, http.MethodPost, "/api/auth/login", jsonBody(t, gin.H{"pin": testPIN}), "application/json")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

func TestSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/auth/session", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	var s auth.Session
	decode(t, w, &s)
	if s.Subject != "admin" || s.Token != "" {
		t.Errorf("session = %+v", s)
	}

	ts.token = "not-a-token"
	if w := ts.do(t, http.MethodGet, "/api/auth/session", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	for _, path := range []string{"/api/properties", "/api/reservations", "/api/metrics/sales", "/api/admin/stats"} {
		if w := ts.do(t, http.MethodGet, path, nil, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: status = %d, want 401", path, w.Code)
		}
	}
}

func TestPropertyCRUD(t *testing.T) {
	ts := newTestServer(t)

	p := ts.addProperty(t, "Seaside", "001")
	if p.ID == "" || p.Label != "001.Seaside" {
		t.Fatalf("created = %+v", p)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   gin.H
		want   int
	}{
		{"duplicate label", http.MethodPost, "/api/properties", gin.H{"name": "Seaside", "tag": "001"}, http.StatusConflict},
		{"missing name", http.MethodPost, "/api/properties", gin.H{"tag": "002"}, http.StatusBadRequest},
		{"bad map url", http.MethodPost, "/api/properties", gin.H{"name": "Hill", "map_url": "not a url"}, http.StatusBadRequest},
		{"unknown id", http.MethodPut, "/api/properties/nope", gin.H{"name": "Hill"}, http.StatusNotFound},
		{"rename", http.MethodPut, "/api/properties/" + p.ID, gin.H{"name": "Harbor", "tag": "001"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, jsonBody(t, tt.body), "application/json")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body)
			}
		})
	}

	got, err := ts.store.GetProperty(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Label != "001.Harbor" {
		t.Errorf("label after rename = %q", got.Label)
	}

	if w := ts.do(t, http.MethodDelete, "/api/properties/"+p.ID, nil, ""); w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodDelete, "/api/properties/"+p.ID, nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestImportRejectsUnresolvedThenSucceeds(t *testing.T) {
	ts := newTestServer(t)
	doc := csvHeader +
		"001.Seaside,Airbnb,AH-100,2025-03-03,2,2,20000,,Guest\n" +
		"001.Seaside,Booking.com,BK-7,2025-03-10,1,1,9000,,Guest\n"

	w := ts.upload(t, "/api/imports", nil, doc)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", w.Code, w.Body)
	}
	var rejected map[string]any
	decode(t, w, &rejected)
	if rejected["unresolved_total"] != float64(1) {
		t.Errorf("body = %v", rejected)
	}

	ts.addProperty(t, "Seaside", "001")
	w = ts.upload(t, "/api/imports", map[string]string{"mode": "generic", "notify": "true"}, doc)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body)
	}
	var report imports.Report
	decode(t, w, &report)
	if report.Inserted != 2 || report.Updated != 0 || !report.Notified {
		t.Errorf("report = %+v", report)
	}

	w = ts.do(t, http.MethodGet, "/api/reservations?source=Airbnb", nil, "")
	var list struct {
		Reservations []models.Reservation `json:"reservations"`
		Count        int                  `json:"count"`
	}
	decode(t, w, &list)
	if list.Count != 1 || list.Reservations[0].Source != "Airbnb" {
		t.Errorf("reservations = %+v", list)
	}

	w = ts.do(t, http.MethodGet, "/api/imports/history", nil, "")
	var hist struct {
		Logs  []models.ImportLog `json:"logs"`
		Count int                `json:"count"`
	}
	decode(t, w, &hist)
	if hist.Count != 2 || !hist.Logs[1].Failed || hist.Logs[0].Inserted != 2 {
		t.Errorf("history = %+v", hist)
	}
}

func TestImportValidation(t *testing.T) {
	ts := newTestServer(t)

	if w := ts.upload(t, "/api/imports", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no files: status = %d, want 400", w.Code)
	}
	if w := ts.upload(t, "/api/imports", map[string]string{"mode": "weekly"}, csvHeader); w.Code != http.StatusBadRequest {
		t.Errorf("bad mode: status = %d, want 400", w.Code)
	}
	if w := ts.upload(t, "/api/imports", map[string]string{"notify": "maybe"}, csvHeader); w.Code != http.StatusBadRequest {
		t.Errorf("bad notify: status = %d, want 400", w.Code)
	}
}

func TestImportPreview(t *testing.T) {
	ts := newTestServer(t)
	ts.addProperty(t, "Seaside", "001")
	doc := csvHeader +
		"001.Seaside,Airbnb,AH-1,2025-03-03,2,2,20000,,Guest\n" +
		"002.Hill,Airbnb,AH-2,2025-03-03,2,2,20000,,Guest\n"

	w := ts.upload(t, "/api/imports/preview", nil, doc)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body)
	}
	var p imports.Preview
	decode(t, w, &p)
	if p.Drafts != 2 || p.UnresolvedTotal != 1 || len(p.Unresolved) != 1 || p.Unresolved[0] != "002.Hill" {
		t.Errorf("preview = %+v", p)
	}

	n, _ := ts.store.CountReservations(context.Background())
	if n != 0 {
		t.Errorf("preview wrote %d reservations", n)
	}
}

func TestMetricsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.addProperty(t, "Seaside", "001")
	doc := csvHeader + "001.Seaside,Airbnb,AH-100,2025-03-03,2,2,20000,,Guest\n"
	if w := ts.upload(t, "/api/imports", nil, doc); w.Code != http.StatusOK {
		t.Fatalf("import: status = %d (body %s)", w.Code, w.Body)
	}

	var sparse struct {
		Points []map[string]any `json:"points"`
		Count  int              `json:"count"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/metrics/adr", nil, ""), &sparse)
	if sparse.Count != 1 || sparse.Points[0]["adr"] != float64(10000) || sparse.Points[0]["week"] != "2025-9W" {
		t.Errorf("adr = %+v", sparse)
	}

	var dense struct {
		Count int `json:"count"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/metrics/occupancy?dense=true", nil, ""), &dense)
	var weeks struct {
		Weeks []string `json:"weeks"`
		Count int      `json:"count"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/metrics/weeks", nil, ""), &weeks)
	if weeks.Count == 0 || dense.Count != weeks.Count {
		t.Errorf("dense occupancy has %d points for %d weeks", dense.Count, weeks.Count)
	}
	if weeks.Weeks[0] != "2025-1W" {
		t.Errorf("first week = %q", weeks.Weeks[0])
	}

	decode(t, ts.do(t, http.MethodGet, "/api/metrics/sales?dense=true&from=2025-03-01&to=2025-03-31", nil, ""), &dense)
	if dense.Count != 5 {
		t.Errorf("sales in March: %d points, want 5", dense.Count)
	}

	var summary struct {
		Reservations int     `json:"reservations"`
		Sales        int64   `json:"sales"`
		ADR          float64 `json:"adr"`
	}
	decode(t, ts.do(t, http.MethodGet, "/api/metrics/summary", nil, ""), &summary)
	if summary.Reservations != 1 || summary.Sales != 20000 || summary.ADR != 10000 {
		t.Errorf("summary = %+v", summary)
	}

	if w := ts.do(t, http.MethodGet, "/api/metrics/sales?from=2025-13-40", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/metrics/sales?from=2025-03-10&to=2025-03-01", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("inverted range: status = %d, want 400", w.Code)
	}
}

func TestReset(t *testing.T) {
	ts := newTestServer(t)
	ts.addProperty(t, "Seaside", "001")
	doc := csvHeader + "001.Seaside,Airbnb,AH-100,2025-03-03,2,2,20000,,Guest\n"
	if w := ts.upload(t, "/api/imports", nil, doc); w.Code != http.StatusOK {
		t.Fatalf("import: status = %d", w.Code)
	}

	w := ts.do(t, http.MethodPost, "/api/admin/reset", jsonBody(t, gin.H{}), "application/json")
	var result reset.Result
	decode(t, w, &result)
	if w.Code != http.StatusOK || !result.DryRun || result.TargetCount != 1 || result.DeletedCount != 0 {
		t.Errorf("dry run: status %d, result %+v", w.Code, result)
	}

	w = ts.do(t, http.MethodPost, "/api/admin/reset", jsonBody(t, gin.H{"dry_run": false}), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed: status = %d, want 400", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/admin/reset", jsonBody(t, gin.H{"dry_run": false, "confirm": reset.ConfirmPhrase}), "application/json")
	decode(t, w, &result)
	if w.Code != http.StatusOK || result.DeletedCount != 1 {
		t.Errorf("confirmed: status %d, result %+v", w.Code, result)
	}

	props, _ := ts.store.ListProperties(context.Background())
	if len(props) != 1 {
		t.Errorf("reset removed properties: %d left", len(props))
	}
}

func TestRunReportAndStats(t *testing.T) {
	ts := newTestServer(t)
	ts.addProperty(t, "Seaside", "001")

	w := ts.do(t, http.MethodPost, "/api/admin/report/run", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("report: status = %d (body %s)", w.Code, w.Body)
	}
	var report map[string]any
	decode(t, w, &report)
	if text, _ := report["text"].(string); !strings.Contains(text, "週次レポート") {
		t.Errorf("report text = %q", text)
	}

	w = ts.do(t, http.MethodGet, "/api/admin/stats", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status = %d", w.Code)
	}
	var stats map[string]map[string]any
	decode(t, w, &stats)
	if stats["properties"]["total"] != float64(1) || stats["reservations"]["total"] != float64(0) {
		t.Errorf("stats = %v", stats)
	}
	if _, ok := stats["login_limit"]; !ok {
		t.Errorf("stats missing login_limit: %v", stats)
	}
}

type fakeSearcher struct {
	ids   []string
	err   error
	query string
}

func (f *fakeSearcher) SearchIDs(query string, _ models.ReservationFilter) ([]string, error) {
	f.query = query
	return f.ids, f.err
}

func TestFetchReservationsUsesSearcher(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	err := st.SaveReservations(ctx, []models.Reservation{
		{ID: "r1", PropertyID: "p1", Source: "Airbnb", RatePlan: "Standard"},
		{ID: "r2", PropertyID: "p1", Source: "Booking.com", RatePlan: "Standard"},
		{ID: "r3", PropertyID: "p2", Source: "Airbnb", RatePlan: "Breakfast"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ids  []string
		f    models.ReservationFilter
		want []string
	}{
		{
			name: "hits outside the structured filter are dropped",
			ids:  []string{"r2", "r3"},
			f:    models.ReservationFilter{PropertyID: "p1", Search: "booking"},
			want: []string{"r2"},
		},
		{
			name: "hits without a substring match are dropped",
			ids:  []string{"r1", "r2"},
			f:    models.ReservationFilter{PropertyID: "p1", Search: "BOOKING"},
			want: []string{"r2"},
		},
		{
			name: "rate plan substring",
			ids:  []string{"r1", "r2", "r3"},
			f:    models.ReservationFilter{Search: "fast"},
			want: []string{"r3"},
		},
		{
			name: "rows the index missed stay out",
			ids:  []string{"r1"},
			f:    models.ReservationFilter{Search: "standard"},
			want: []string{"r1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSearcher{ids: tt.ids}
			rs, err := fetchReservations(ctx, st, s, tt.f)
			if err != nil {
				t.Fatal(err)
			}
			if s.query != tt.f.Search {
				t.Errorf("query = %q, want %q", s.query, tt.f.Search)
			}
			var got []string
			for _, r := range rs {
				got = append(got, r.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	// an unavailable index falls back to the in-process filter
	s := &fakeSearcher{err: errors.New("connection refused")}
	rs, err := fetchReservations(ctx, st, s, models.ReservationFilter{Search: "breakfast"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].ID != "r3" {
		t.Errorf("fallback: got %+v", rs)
	}
}
