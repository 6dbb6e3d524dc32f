// Package imports runs a CSV import end to end: parse, reconcile, record
// history, refresh the search index and notify.
package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"resale-admin/internal/history"
	"resale-admin/internal/ingest"
	"resale-admin/internal/models"
	"resale-admin/internal/notify"
	"resale-admin/internal/reconcile"
)

// Indexer receives the reservations written by an import.
type Indexer interface {
	IndexReservations(rs []models.Reservation) error
}

// File is one uploaded document.
type File struct {
	Name   string
	Reader io.Reader
}

// Request describes one import.
type Request struct {
	Files  []File
	Mode   reconcile.Mode
	Notify bool
}

// Report is returned to the caller after a successful import.
type Report struct {
	Mode            reconcile.Mode `json:"mode"`
	Files           int            `json:"files"`
	Rows            int            `json:"rows"`
	Reservations    int            `json:"reservations"`
	Inserted        int            `json:"inserted"`
	Updated         int            `json:"updated"`
	Malformed       int            `json:"malformed"`
	MissingProperty int            `json:"missing_property"`
	Unparseable     int            `json:"unparseable_numbers"`
	IgnoredColumns  []string       `json:"ignored_columns,omitempty"`
	Indexed         bool           `json:"indexed"`
	Notified        bool           `json:"notified"`
	NotifyError     string         `json:"notify_error,omitempty"`
	IndexError      string         `json:"index_error,omitempty"`
}

// Preview is the dry-run view of an upload.
type Preview struct {
	Files           int                    `json:"files"`
	Rows            int                    `json:"rows"`
	Drafts          int                    `json:"drafts"`
	Malformed       int                    `json:"malformed"`
	MissingProperty int                    `json:"missing_property"`
	Unparseable     int                    `json:"unparseable_numbers"`
	IgnoredColumns  []string               `json:"ignored_columns,omitempty"`
	Properties      []ingest.PropertyDraft `json:"properties"`
	Unresolved      []string               `json:"unresolved,omitempty"`
	UnresolvedTotal int                    `json:"unresolved_total"`
	UnresolvedRows  int                    `json:"unresolved_rows"`
}

// ErrInvalidUpload marks problems with the uploaded files themselves.
var ErrInvalidUpload = errors.New("invalid upload")

// Service orchestrates imports.
type Service struct {
	reconciler *reconcile.Service
	history    *history.Service
	index      Indexer
	sender     notify.Sender
}

// NewService wires the import pipeline. index and sender may be nil.
func NewService(r *reconcile.Service, h *history.Service, index Indexer, sender notify.Sender) *Service {
	if sender == nil {
		sender = notify.Discard{}
	}
	return &Service{reconciler: r, history: h, index: index, sender: sender}
}

func parseFiles(files []File) (*ingest.Batch, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrInvalidUpload)
	}
	readers := make([]io.Reader, len(files))
	for i, f := range files {
		readers[i] = f.Reader
	}
	batch, err := ingest.Parse(readers...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse csv: %v", ErrInvalidUpload, err)
	}
	return batch, nil
}

// Import writes the upload. A failed parse or reconciliation writes nothing
// and is recorded as a failed run. Search indexing and notification failures
// are reported but do not fail the import.
func (s *Service) Import(ctx context.Context, req Request) (*Report, error) {
	entry := &models.ImportLog{Kind: req.Mode.LogKind(), Files: len(req.Files)}

	batch, err := parseFiles(req.Files)
	if err != nil {
		s.recordFailure(ctx, entry, err)
		return nil, err
	}
	entry.Rows = batch.Rows
	entry.Malformed = batch.Malformed

	result, err := s.reconciler.Upsert(ctx, batch.Drafts, req.Mode)
	if err != nil {
		s.recordFailure(ctx, entry, err)
		return nil, err
	}
	entry.Inserted = result.Inserted
	entry.Updated = result.Updated
	if s.history != nil {
		_ = s.history.Record(ctx, entry)
	}

	report := &Report{
		Mode:            req.Mode,
		Files:           batch.Documents,
		Rows:            batch.Rows,
		Reservations:    len(result.Saved),
		Inserted:        result.Inserted,
		Updated:         result.Updated,
		Malformed:       batch.Malformed,
		MissingProperty: batch.MissingProperty,
		Unparseable:     batch.UnparseableNumbers,
		IgnoredColumns:  batch.IgnoredColumns,
	}
	log.Printf("[Import] %s: %d files, %d rows, %d inserted, %d updated, %d malformed",
		req.Mode, report.Files, report.Rows, report.Inserted, report.Updated, report.Malformed)

	if s.index != nil {
		if err := s.index.IndexReservations(result.Saved); err != nil {
			log.Printf("[Import] search indexing failed: %v", err)
			report.IndexError = err.Error()
		} else {
			report.Indexed = true
		}
	}

	if req.Notify {
		text := notify.Compose(notifyKind(req.Mode), Entries(result))
		if err := s.sender.Send(ctx, text); err != nil {
			log.Printf("[Import] notification failed: %v", err)
			report.NotifyError = err.Error()
		} else {
			report.Notified = true
		}
	}
	return report, nil
}

func (s *Service) recordFailure(ctx context.Context, entry *models.ImportLog, err error) {
	if s.history == nil {
		return
	}
	entry.Failed = true
	entry.Note = err.Error()
	_ = s.history.Record(ctx, entry)
}

// Preview parses the upload and reports unregistered labels without writing.
func (s *Service) Preview(ctx context.Context, files []File) (*Preview, error) {
	batch, err := parseFiles(files)
	if err != nil {
		return nil, err
	}
	p := &Preview{
		Files:           batch.Documents,
		Rows:            batch.Rows,
		Drafts:          len(batch.Drafts),
		Malformed:       batch.Malformed,
		MissingProperty: batch.MissingProperty,
		Unparseable:     batch.UnparseableNumbers,
		IgnoredColumns:  batch.IgnoredColumns,
		Properties:      make([]ingest.PropertyDraft, 0, len(batch.PropertyOrder)),
	}
	for _, name := range batch.PropertyOrder {
		p.Properties = append(p.Properties, batch.Properties[name])
	}

	unresolved, err := s.reconciler.Check(ctx, batch.Drafts)
	if err != nil {
		return nil, err
	}
	if unresolved != nil {
		p.Unresolved = unresolved.Labels
		p.UnresolvedTotal = unresolved.Total
		p.UnresolvedRows = unresolved.Rows
	}
	return p, nil
}

func notifyKind(m reconcile.Mode) notify.Kind {
	switch m {
	case reconcile.ModeBookingDate:
		return notify.KindBookingDate
	case reconcile.ModeCancellation:
		return notify.KindCancellation
	default:
		return notify.KindGeneric
	}
}

// Entries turns reconciliation outcomes into notification blocks, one per
// saved reservation. Rows sharing a booking id collapse into the last one, in
// first-seen position.
func Entries(res *reconcile.Result) []notify.Entry {
	pos := make(map[string]int, len(res.Outcomes))
	entries := make([]notify.Entry, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		r := o.Reservation
		e := notify.Entry{
			PropertyName: o.Draft.PropertyName,
			Source:       r.Source,
			GuestName:    o.Draft.GuestName,
			CheckIn:      r.CheckIn,
			CheckOut:     r.CheckOut,
			Nights:       r.Nights,
			Adults:       r.Adults,
			Children:     r.Children,
			Infants:      r.Infants,
			RatePlan:     r.RatePlan,
			Amount:       o.Amount,
			Status:       r.Status,
		}
		if i, ok := pos[r.ID]; ok {
			entries[i] = e
			continue
		}
		pos[r.ID] = len(entries)
		entries = append(entries, e)
	}
	return entries
}
