// Package reconcile merges parsed reservation drafts into the store, matching
// on the external booking id.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"resale-admin/internal/ingest"
	"resale-admin/internal/models"
	"resale-admin/internal/store"
)

// DefaultSampleCap is how many unresolved labels an error names.
const DefaultSampleCap = 5

// Mode selects how an import batch is interpreted.
type Mode string

const (
	ModeGeneric      Mode = "generic"
	ModeBookingDate  Mode = "booking_date"
	ModeCancellation Mode = "cancellation"
)

// ParseMode accepts the mode names used by the API; empty means generic.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(s)); m {
	case "":
		return ModeGeneric, nil
	case ModeGeneric, ModeBookingDate, ModeCancellation:
		return m, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}

// LogKind maps the mode to the import history kind.
func (m Mode) LogKind() string {
	switch m {
	case ModeBookingDate:
		return models.LogKindBookingDate
	case ModeCancellation:
		return models.LogKindCancellation
	default:
		return models.LogKindImport
	}
}

// UnresolvedPropertyError rejects a whole batch because some rows name a
// property label that is not registered.
type UnresolvedPropertyError struct {
	Labels []string // sample, in first-seen order
	Total  int      // distinct unresolved labels
	Rows   int      // rows referencing them
}

func (e *UnresolvedPropertyError) Error() string {
	quoted := make([]string, len(e.Labels))
	for i, l := range e.Labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	msg := "no property registered for " + strings.Join(quoted, ", ")
	if more := e.Total - len(e.Labels); more > 0 {
		msg += fmt.Sprintf(" and %d more", more)
	}
	return msg + fmt.Sprintf(" (%d rows); register the properties first", e.Rows)
}

// Outcome describes what happened to one draft.
type Outcome struct {
	Draft       ingest.Draft
	Reservation models.Reservation
	Inserted    bool
	// Amount is the sale shown in notifications. In cancellation mode it is
	// the negated previously stored sale while the persisted sale is 0.
	Amount *int64
}

// Result of a successful upsert.
type Result struct {
	Mode     Mode
	Saved    []models.Reservation // one row per id
	Outcomes []Outcome            // one per draft, input order
	Inserted int
	Updated  int
}

// Service reconciles drafts against the repositories.
type Service struct {
	properties   store.PropertyRepository
	reservations store.ReservationRepository
	sampleCap    int
	newID        func() string
}

func NewService(properties store.PropertyRepository, reservations store.ReservationRepository, sampleCap int) *Service {
	if sampleCap <= 0 {
		sampleCap = DefaultSampleCap
	}
	return &Service{
		properties:   properties,
		reservations: reservations,
		sampleCap:    sampleCap,
		newID:        uuid.NewString,
	}
}

type labelIndex map[string]models.Property

func (s *Service) loadLabels(ctx context.Context) (labelIndex, error) {
	props, err := s.properties.ListProperties(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(labelIndex, len(props))
	for _, p := range props {
		label := p.Label
		if label == "" {
			label = models.DisplayLabel(p.Name, p.Tag)
		}
		idx[label] = p
	}
	return idx, nil
}

func (s *Service) unresolved(idx labelIndex, drafts []ingest.Draft) *UnresolvedPropertyError {
	seen := make(map[string]bool)
	var e UnresolvedPropertyError
	for i := range drafts {
		label := drafts[i].PropertyName
		if _, ok := idx[label]; ok {
			continue
		}
		e.Rows++
		if seen[label] {
			continue
		}
		seen[label] = true
		e.Total++
		if len(e.Labels) < s.sampleCap {
			e.Labels = append(e.Labels, label)
		}
	}
	if e.Total == 0 {
		return nil
	}
	return &e
}

// Check reports the labels in drafts with no registered property without
// writing anything. It returns nil when every label resolves.
func (s *Service) Check(ctx context.Context, drafts []ingest.Draft) (*UnresolvedPropertyError, error) {
	idx, err := s.loadLabels(ctx)
	if err != nil {
		return nil, err
	}
	return s.unresolved(idx, drafts), nil
}

// Upsert resolves every draft to a property and a reservation id and writes
// the batch. If any label is unresolved nothing is written and an
// *UnresolvedPropertyError is returned.
func (s *Service) Upsert(ctx context.Context, drafts []ingest.Draft, mode Mode) (*Result, error) {
	idx, err := s.loadLabels(ctx)
	if err != nil {
		return nil, err
	}
	if e := s.unresolved(idx, drafts); e != nil {
		log.Printf("[Reconcile] rejected batch of %d rows: %v", len(drafts), e)
		return nil, e
	}

	existing, err := s.reservations.ListReservations(ctx, models.ReservationFilter{})
	if err != nil {
		return nil, err
	}
	byExternal := make(map[string]*models.Reservation, len(existing))
	for i := range existing {
		if key := existing[i].ExternalKey(); key != "" {
			byExternal[key] = &existing[i]
		}
	}

	res := &Result{Mode: mode, Outcomes: make([]Outcome, 0, len(drafts))}
	minted := make(map[string]string)
	position := make(map[string]int)
	for i := range drafts {
		d := drafts[i]
		property := idx[d.PropertyName]

		var prev *models.Reservation
		id := ""
		inserted := true
		key := models.NormalizeExternalID(d.ExternalID)
		switch {
		case key == "":
			id = s.newID()
		case byExternal[key] != nil:
			prev = byExternal[key]
			id = prev.ID
			inserted = false
		case minted[key] != "":
			id = minted[key]
			inserted = false
		default:
			id = s.newID()
			minted[key] = id
		}

		r := buildReservation(id, property, d, key)
		amount := r.SaleAmount
		if mode == ModeCancellation {
			amount = cancelledAmount(prev, d)
			zero := int64(0)
			r.SaleAmount = &zero
			if r.Status == nil {
				status := models.StatusCancelled
				r.Status = &status
			}
		}

		res.Outcomes = append(res.Outcomes, Outcome{Draft: d, Reservation: r, Inserted: inserted, Amount: amount})
		if at, dup := position[id]; dup {
			res.Saved[at] = r
			continue
		}
		position[id] = len(res.Saved)
		res.Saved = append(res.Saved, r)
		if prev != nil {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	if err := s.reservations.SaveReservations(ctx, res.Saved); err != nil {
		return nil, err
	}
	log.Printf("[Reconcile] %s: %d rows, %d inserted, %d updated", mode, len(drafts), res.Inserted, res.Updated)
	return res, nil
}

func buildReservation(id string, p models.Property, d ingest.Draft, externalKey string) models.Reservation {
	r := models.Reservation{
		ID:           id,
		PropertyID:   p.ID,
		PropertyName: p.Name,
		Source:       d.Source,
		CheckIn:      d.CheckIn,
		CheckOut:     d.CheckOut,
		Nights:       d.Nights,
		GuestCount:   d.GuestCount(),
		Adults:       d.Adults,
		Children:     d.Children,
		Infants:      d.Infants,
		Nationality:  d.Nationality,
		BookedOn:     d.BookedOn,
		SaleAmount:   d.SaleAmount,
		Status:       d.Status,
		RatePlan:     d.RatePlan,
	}
	if externalKey != "" {
		r.ExternalID = &externalKey
	}
	return r
}

// cancelledAmount is the negated sale of the stored reservation, falling back
// to the amount on the cancellation row itself.
func cancelledAmount(prev *models.Reservation, d ingest.Draft) *int64 {
	var base *int64
	if prev != nil && prev.SaleAmount != nil {
		base = prev.SaleAmount
	} else {
		base = d.SaleAmount
	}
	if base == nil {
		return nil
	}
	neg := -*base
	return &neg
}
