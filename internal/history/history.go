// Package history records import runs and dataset resets.
package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"resale-admin/internal/models"
	"resale-admin/internal/store"
)

// Service handles import history operations
type Service struct {
	logs store.ImportLogRepository
	now  func() time.Time
}

// NewService creates a new history service
func NewService(logs store.ImportLogRepository) *Service {
	return &Service{logs: logs, now: time.Now}
}

// Record appends an entry. Failures are logged and returned; callers treat
// them as non-fatal because the data change has already happened.
func (s *Service) Record(ctx context.Context, entry *models.ImportLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.logs.AppendImportLog(ctx, entry); err != nil {
		log.Printf("[History] failed to record %s: %v", entry.Kind, err)
		return err
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.logs.RecentImportLogs(ctx, limit)
}

// Stats aggregates the history.
type Stats struct {
	TotalRuns      int            `json:"total_runs"`
	ByKind         map[string]int `json:"by_kind"`
	Failed         int            `json:"failed"`
	RowsLast30Days int            `json:"rows_last_30_days"`
	LastImportAt   *time.Time     `json:"last_import_at,omitempty"`
	LastResetAt    *time.Time     `json:"last_reset_at,omitempty"`
}

// GetStats returns statistics over the whole history.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	logs, err := s.logs.RecentImportLogs(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch import history: %w", err)
	}

	stats := &Stats{ByKind: make(map[string]int)}
	cutoff := s.now().AddDate(0, 0, -30)
	for i := range logs {
		l := &logs[i]
		stats.TotalRuns++
		stats.ByKind[l.Kind]++
		if l.Failed {
			stats.Failed++
			continue
		}
		if l.CreatedAt.After(cutoff) {
			stats.RowsLast30Days += l.Rows
		}
		at := l.CreatedAt
		if l.Kind == models.LogKindReset {
			if stats.LastResetAt == nil || at.After(*stats.LastResetAt) {
				stats.LastResetAt = &at
			}
			continue
		}
		if stats.LastImportAt == nil || at.After(*stats.LastImportAt) {
			stats.LastImportAt = &at
		}
	}
	return stats, nil
}
