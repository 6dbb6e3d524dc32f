// Package ingest turns exported reservation CSV documents into typed drafts.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"resale-admin/internal/week"
)

const utf8BOM = "\ufeff"

// PropertyDraft is a property seen in a batch, not yet persisted.
type PropertyDraft struct {
	Name string `json:"name"`
	Tag  string `json:"tag,omitempty"`
}

// Draft is one normalized reservation row. The property is referenced by the
// raw label from the file; id resolution happens during reconciliation.
type Draft struct {
	PropertyName string
	PropertyTag  string
	Source       string
	ExternalID   *string
	CheckIn      *time.Time
	CheckOut     *time.Time
	Nights       *int
	Adults       *int
	Children     *int
	Infants      *int
	Nationality  string
	BookedOn     *time.Time
	SaleAmount   *int64
	Status       *string
	RatePlan     string

	// GuestName is only used in notification text and is never persisted.
	GuestName string

	Document int
	Line     int
}

// GuestCount sums the age bands; nil when none were given.
func (d *Draft) GuestCount() *int {
	var total int
	seen := false
	for _, v := range []*int{d.Adults, d.Children, d.Infants} {
		if v != nil {
			total += *v
			seen = true
		}
	}
	if !seen {
		return nil
	}
	return &total
}

// Batch is the result of parsing one or more documents.
type Batch struct {
	Properties    map[string]PropertyDraft `json:"properties"`
	PropertyOrder []string                 `json:"property_order"`
	Drafts        []Draft                  `json:"-"`

	Documents          int      `json:"documents"`
	Rows               int      `json:"rows"`
	Malformed          int      `json:"malformed"`
	MissingProperty    int      `json:"missing_property"`
	UnparseableNumbers int      `json:"unparseable_numbers"`
	IgnoredColumns     []string `json:"ignored_columns,omitempty"`
}

func newBatch() *Batch {
	return &Batch{Properties: make(map[string]PropertyDraft)}
}

// Parse reads every document into a single batch. Rows whose column count
// differs from the header are dropped and counted; rows without a property
// name are dropped silently.
func Parse(docs ...io.Reader) (*Batch, error) {
	b := newBatch()
	ignored := make(map[string]struct{})
	for i, doc := range docs {
		if err := b.parseDocument(i, doc, ignored); err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
	}
	return b, nil
}

// ParseStrings is a convenience wrapper for in-memory documents.
func ParseStrings(docs ...string) (*Batch, error) {
	readers := make([]io.Reader, len(docs))
	for i, d := range docs {
		readers[i] = strings.NewReader(d)
	}
	return Parse(readers...)
}

type columnIndex map[string]int

func (c columnIndex) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func buildIndex(header []string, ignored map[string]struct{}) columnIndex {
	idx := make(columnIndex, len(KnownHeaders))
	known := make(map[string]struct{}, len(KnownHeaders))
	for _, h := range KnownHeaders {
		known[h] = struct{}{}
	}
	for i, raw := range header {
		h := strings.TrimSpace(strings.TrimPrefix(raw, utf8BOM))
		if IsExcluded(h) {
			ignored[h] = struct{}{}
			continue
		}
		if _, ok := known[h]; !ok {
			continue
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func (b *Batch) parseDocument(doc int, r io.Reader, ignored map[string]struct{}) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	b.Documents++
	idx := buildIndex(header, ignored)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			b.Rows++
			b.Malformed++
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		b.Rows++
		if len(record) != len(header) {
			b.Malformed++
			continue
		}
		line, _ := reader.FieldPos(0)
		b.addRecord(idx, record, doc, line)
	}

	b.IgnoredColumns = b.IgnoredColumns[:0]
	for h := range ignored {
		b.IgnoredColumns = append(b.IgnoredColumns, h)
	}
	sort.Strings(b.IgnoredColumns)
	return nil
}

func (b *Batch) addRecord(idx columnIndex, record []string, doc, line int) {
	name := idx.get(record, ColProperty)
	if name == "" {
		b.MissingProperty++
		return
	}
	tag := idx.get(record, ColPropertyTag)
	if _, seen := b.Properties[name]; !seen {
		b.Properties[name] = PropertyDraft{Name: name, Tag: tag}
		b.PropertyOrder = append(b.PropertyOrder, name)
	}

	d := Draft{
		PropertyName: name,
		PropertyTag:  tag,
		Source:       NormalizeSource(idx.get(record, ColSource)),
		Nationality:  idx.get(record, ColNationality),
		Status:       NormalizeStatus(idx.get(record, ColStatus)),
		RatePlan:     idx.get(record, ColRatePlan),
		GuestName:    idx.get(record, ColGuestName),
		Document:     doc,
		Line:         line,
	}
	if ext := idx.get(record, ColExternalID); ext != "" {
		d.ExternalID = &ext
	}
	d.CheckIn = parseDatePtr(idx.get(record, ColCheckIn))
	d.CheckOut = parseDatePtr(idx.get(record, ColCheckOut))
	d.BookedOn = parseDatePtr(idx.get(record, ColBookedOn))

	d.Nights = b.intCell(idx.get(record, ColNights))
	d.Adults = b.intCell(idx.get(record, ColAdults))
	d.Children = b.intCell(idx.get(record, ColChildren))
	d.Infants = b.intCell(idx.get(record, ColInfants))

	amount, ok := parseAmount(idx.get(record, ColSaleAmount))
	if !ok {
		b.UnparseableNumbers++
	}
	d.SaleAmount = amount

	b.Drafts = append(b.Drafts, d)
}

func (b *Batch) intCell(raw string) *int {
	v, ok := parseInt(raw)
	if !ok {
		b.UnparseableNumbers++
	}
	return v
}

// parseDatePtr keeps only the date part; unparseable dates become nil.
func parseDatePtr(raw string) *time.Time {
	t, ok := week.ParseDate(raw)
	if !ok {
		return nil
	}
	return &t
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
