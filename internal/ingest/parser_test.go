package ingest

import (
	"strings"
	"testing"
	"time"

	"resale-admin/internal/models"
)

const header = "施設名,施設タグ,予約サイト,予約日,チェックイン,チェックアウト,泊数,大人,子供,幼児,国籍,売上,料金プラン,ステータス,予約番号,ゲスト名,メールアドレス,備考"

func csvDoc(rows ...string) string {
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestParseBasicRow(t *testing.T) {
	doc := csvDoc(`001.Seaside,001,Booking.com,2025-02-01 10:11:12,2025-03-10,2025-03-13,3,2,1,0,JP,"30,000",素泊まり,確定,AH-100,Taro Yamada,taro@example.com,early check-in`)

	batch, err := ParseStrings(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(batch.Drafts))
	}
	d := batch.Drafts[0]
	if d.PropertyName != "001.Seaside" {
		t.Fatalf("unexpected property name: %q", d.PropertyName)
	}
	if d.ExternalID == nil || *d.ExternalID != "AH-100" {
		t.Fatalf("unexpected external id: %v", d.ExternalID)
	}
	if d.CheckIn == nil || !d.CheckIn.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected check-in: %v", d.CheckIn)
	}
	if d.BookedOn == nil || !d.BookedOn.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("booking date must be truncated to a date: %v", d.BookedOn)
	}
	if d.Nights == nil || *d.Nights != 3 {
		t.Fatalf("unexpected nights: %v", d.Nights)
	}
	if d.SaleAmount == nil || *d.SaleAmount != 30000 {
		t.Fatalf("unexpected sale amount: %v", d.SaleAmount)
	}
	if d.Status != nil {
		t.Fatalf("confirmed must normalize to nil, got %q", *d.Status)
	}
	if g := d.GuestCount(); g == nil || *g != 3 {
		t.Fatalf("unexpected guest count: %v", g)
	}
	if d.GuestName != "Taro Yamada" {
		t.Fatalf("unexpected guest name: %q", d.GuestName)
	}
	if len(batch.IgnoredColumns) != 2 {
		t.Fatalf("expected 2 ignored columns, got %v", batch.IgnoredColumns)
	}
}

func TestParseDropsMalformedAndNamelessRows(t *testing.T) {
	doc := csvDoc(
		`A,,Airbnb,,2025-01-01,2025-01-02,1,1,0,0,,1000,,,X-1,,,`,
		`B,,Airbnb,,2025-01-01`,
		`,,Airbnb,,2025-01-01,2025-01-02,1,1,0,0,,1000,,,X-2,,,`,
	)
	batch, err := ParseStrings(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", batch.Rows)
	}
	if batch.Malformed != 1 {
		t.Fatalf("expected 1 malformed row, got %d", batch.Malformed)
	}
	if batch.MissingProperty != 1 {
		t.Fatalf("expected 1 row without property, got %d", batch.MissingProperty)
	}
	if len(batch.Drafts) != 1 || batch.Drafts[0].PropertyName != "A" {
		t.Fatalf("unexpected drafts: %+v", batch.Drafts)
	}
}

func TestParseUnparseableNumbersBecomeNil(t *testing.T) {
	doc := csvDoc(`A,,Airbnb,,2025-01-01,2025-01-02,abc,,0,0,,n/a,,,X-1,,,`)
	batch, err := ParseStrings(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := batch.Drafts[0]
	if d.Nights != nil {
		t.Fatalf("expected nil nights, got %v", *d.Nights)
	}
	if d.Adults != nil {
		t.Fatalf("blank adults must be nil")
	}
	if d.SaleAmount != nil {
		t.Fatalf("expected nil sale amount, got %v", *d.SaleAmount)
	}
	if batch.UnparseableNumbers != 2 {
		t.Fatalf("expected 2 unparseable cells, got %d", batch.UnparseableNumbers)
	}
}

func TestParseOutOfRangeNumbersBecomeNil(t *testing.T) {
	tests := []struct {
		name   string
		nights string
		sale   string
	}{
		{"positive overflow", "1e20", "1e30"},
		{"negative overflow", "-1e20", "-1e30"},
		{"exactly max int64", "9223372036854775808", "9223372036854775808"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := csvDoc(`A,,Airbnb,,2025-01-01,2025-01-02,` + tt.nights + `,,0,0,,` + tt.sale + `,,,X-1,,,`)
			batch, err := ParseStrings(doc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			d := batch.Drafts[0]
			if d.Nights != nil {
				t.Errorf("expected nil nights, got %d", *d.Nights)
			}
			if d.SaleAmount != nil {
				t.Errorf("expected nil sale amount, got %d", *d.SaleAmount)
			}
			if batch.UnparseableNumbers != 2 {
				t.Errorf("expected 2 unparseable cells, got %d", batch.UnparseableNumbers)
			}
		})
	}
}

func TestParseKeepsFirstSeenTag(t *testing.T) {
	doc := csvDoc(
		`Seaside,001,Airbnb,,2025-01-01,2025-01-02,1,1,0,0,,1000,,,X-1,,,`,
		`Seaside,999,Airbnb,,2025-01-05,2025-01-06,1,1,0,0,,1000,,,X-2,,,`,
	)
	batch, err := ParseStrings(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := batch.Properties["Seaside"].Tag; got != "001" {
		t.Fatalf("expected first-seen tag 001, got %q", got)
	}
	if len(batch.PropertyOrder) != 1 {
		t.Fatalf("expected one property, got %v", batch.PropertyOrder)
	}
}

func TestParseMultipleDocumentsWithDifferentColumnOrder(t *testing.T) {
	first := csvDoc(`A,,Airbnb,,2025-01-01,2025-01-02,1,1,0,0,,1000,,,X-1,,,`)
	second := "\ufeff予約番号,施設名,売上\nX-2,B,2000\n"

	batch, err := ParseStrings(first, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Documents != 2 {
		t.Fatalf("expected 2 documents, got %d", batch.Documents)
	}
	if len(batch.Drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(batch.Drafts))
	}
	d := batch.Drafts[1]
	if d.PropertyName != "B" || d.SaleAmount == nil || *d.SaleAmount != 2000 {
		t.Fatalf("unexpected second draft: %+v", d)
	}
}

func TestNormalizeSource(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"手動インポート", SourceUnknownOTA},
		{"手動作成(電話)", SourceSelfBooked},
		{"AirHost Direct", SourceSelfBooked},
		{"airhost", SourceSelfBooked},
		{"Booking.com", "Booking.com"},
		{"  Airbnb ", "Airbnb"},
	}
	for _, test := range tests {
		if got := NormalizeSource(test.input); got != test.expected {
			t.Fatalf("NormalizeSource(%q) = %q, want %q", test.input, got, test.expected)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		isNil    bool
	}{
		{input: "システムキャンセル", expected: models.StatusCancelled},
		{input: "キャンセル", expected: models.StatusCancelled},
		{input: "System Cancelled", expected: models.StatusCancelled},
		{input: "ブロック", expected: models.StatusBlocked},
		{input: "確定", isNil: true},
		{input: "confirmed", isNil: true},
		{input: "", isNil: true},
		{input: "仮予約", expected: "仮予約"},
	}
	for _, test := range tests {
		got := NormalizeStatus(test.input)
		if test.isNil {
			if got != nil {
				t.Fatalf("NormalizeStatus(%q) = %q, want nil", test.input, *got)
			}
			continue
		}
		if got == nil || *got != test.expected {
			t.Fatalf("NormalizeStatus(%q) = %v, want %q", test.input, got, test.expected)
		}
	}
}
