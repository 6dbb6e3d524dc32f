// Package reset implements the full-dataset reset, the only bulk delete path
// for reservations.
package reset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"resale-admin/internal/history"
	"resale-admin/internal/models"
	"resale-admin/internal/store"
)

// ConfirmPhrase must be sent verbatim to run a real reset.
const ConfirmPhrase = "DELETE ALL RESERVATIONS"

// ErrNotConfirmed is returned when a non-dry-run reset lacks the phrase.
var ErrNotConfirmed = errors.New("reset not confirmed: send the confirm phrase or use a dry run")

// Clearer removes derived copies of the reservations, e.g. the search index.
type Clearer interface {
	Clear() error
}

// Service handles deletion of the whole reservation dataset
type Service struct {
	reservations store.ReservationRepository
	history      *history.Service
	index        Clearer
}

// NewService creates a new reset service. index may be nil.
func NewService(reservations store.ReservationRepository, h *history.Service, index Clearer) *Service {
	return &Service{reservations: reservations, history: h, index: index}
}

// Config holds the options of one reset run
type Config struct {
	DryRun           bool   `json:"dry_run"`
	Confirm          string `json:"confirm"`
	MaxDeletionCount int    `json:"-"` // safety limit, 0 disables
}

// Result holds the result of a reset
type Result struct {
	TargetCount  int64     `json:"target_count"`
	DeletedCount int64     `json:"deleted_count"`
	DryRun       bool      `json:"dry_run"`
	IndexCleared bool      `json:"index_cleared"`
	ExecutedAt   time.Time `json:"executed_at"`
	Errors       []string  `json:"errors,omitempty"`
}

// Run deletes every reservation. Properties are kept.
func (s *Service) Run(ctx context.Context, cfg Config) (*Result, error) {
	result := &Result{DryRun: cfg.DryRun, ExecutedAt: time.Now()}

	count, err := s.reservations.CountReservations(ctx)
	if err != nil {
		return nil, err
	}
	result.TargetCount = count

	if cfg.DryRun {
		log.Printf("[DRY-RUN] Would delete %d reservations", count)
		return result, nil
	}
	if cfg.Confirm != ConfirmPhrase {
		return nil, ErrNotConfirmed
	}
	if cfg.MaxDeletionCount > 0 && count > int64(cfg.MaxDeletionCount) {
		return nil, fmt.Errorf("safety check failed: %d reservations exceed max deletion limit of %d",
			count, cfg.MaxDeletionCount)
	}

	deleted, err := s.reservations.DeleteAllReservations(ctx)
	if err != nil {
		s.record(ctx, &models.ImportLog{Kind: models.LogKindReset, Failed: true, Note: err.Error()})
		return nil, err
	}
	result.DeletedCount = deleted

	if s.index != nil {
		if err := s.index.Clear(); err != nil {
			msg := fmt.Sprintf("failed to clear search index: %v", err)
			log.Printf("ERROR: %s", msg)
			result.Errors = append(result.Errors, msg)
		} else {
			result.IndexCleared = true
		}
	}

	s.record(ctx, &models.ImportLog{Kind: models.LogKindReset, Deleted: int(deleted)})
	log.Printf("[Reset] deleted %d reservations", deleted)
	return result, nil
}

func (s *Service) record(ctx context.Context, entry *models.ImportLog) {
	if s.history == nil {
		return
	}
	_ = s.history.Record(ctx, entry)
}
