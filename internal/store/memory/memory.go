// Package memory is the in-process fallback store. With a snapshot path set
// it writes the whole dataset to a JSON file after every change and reloads it
// on start.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"resale-admin/internal/models"
	"resale-admin/internal/store"
)

type snapshot struct {
	Properties   []models.Property    `json:"properties"`
	Reservations []models.Reservation `json:"reservations"`
	ImportLogs   []models.ImportLog   `json:"import_logs"`
}

// Store implements store.Store in memory.
type Store struct {
	mu           sync.RWMutex
	path         string
	properties   map[string]models.Property
	reservations map[string]models.Reservation
	logs         []models.ImportLog
	nextLogID    uint
	now          func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store that is never written to disk.
func New() *Store {
	return &Store{
		properties:   make(map[string]models.Property),
		reservations: make(map[string]models.Reservation),
		nextLogID:    1,
		now:          time.Now,
	}
}

// Open returns a store backed by the snapshot file at path. A missing file
// starts an empty dataset.
func Open(path string) (*Store, error) {
	s := New()
	s.path = path
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", s.path, err)
	}
	for _, p := range snap.Properties {
		s.properties[p.ID] = p
	}
	for _, r := range snap.Reservations {
		s.reservations[r.ID] = r
	}
	s.logs = snap.ImportLogs
	for _, l := range s.logs {
		if l.ID >= s.nextLogID {
			s.nextLogID = l.ID + 1
		}
	}
	return nil
}

// flush must be called with the write lock held.
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	snap := snapshot{
		Properties:   s.sortedProperties(),
		Reservations: make([]models.Reservation, 0, len(s.reservations)),
		ImportLogs:   s.logs,
	}
	for _, r := range s.reservations {
		snap.Reservations = append(snap.Reservations, r)
	}
	sortReservations(snap.Reservations)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Close flushes the snapshot one last time.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

func (s *Store) sortedProperties() []models.Property {
	out := make([]models.Property, 0, len(s.properties))
	for _, p := range s.properties {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func (s *Store) ListProperties(ctx context.Context) ([]models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedProperties(), nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) SaveProperty(ctx context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.RefreshLabel()
	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = now
	} else if existing, ok := s.properties[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		return store.ErrNotFound
	}
	for id, other := range s.properties {
		if id != p.ID && other.Label == p.Label {
			return store.ErrDuplicateLabel
		}
	}
	p.UpdatedAt = now
	prev, had := s.properties[p.ID]
	s.properties[p.ID] = *p
	if err := s.flush(); err != nil {
		if had {
			s.properties[p.ID] = prev
		} else {
			delete(s.properties, p.ID)
		}
		return err
	}
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.properties[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.properties, id)
	if err := s.flush(); err != nil {
		s.properties[id] = prev
		return err
	}
	return nil
}

func (s *Store) ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Reservation, 0, len(s.reservations))
	for _, r := range s.reservations {
		if f.Matches(&r) {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *Store) SaveReservations(ctx context.Context, rs []models.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range rs {
		if r.ID == "" {
			return errors.New("reservation without id")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	prev := make(map[string]*models.Reservation, len(rs))
	for _, r := range rs {
		if existing, ok := s.reservations[r.ID]; ok {
			r.CreatedAt = existing.CreatedAt
			if _, seen := prev[r.ID]; !seen {
				prev[r.ID] = &existing
			}
		} else {
			r.CreatedAt = now
			if _, seen := prev[r.ID]; !seen {
				prev[r.ID] = nil
			}
		}
		r.UpdatedAt = now
		s.reservations[r.ID] = r
	}
	if err := s.flush(); err != nil {
		for id, old := range prev {
			if old == nil {
				delete(s.reservations, id)
			} else {
				s.reservations[id] = *old
			}
		}
		return err
	}
	return nil
}

func (s *Store) CountReservations(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.reservations)), nil
}

func (s *Store) DeleteAllReservations(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.reservations))
	prev := s.reservations
	s.reservations = make(map[string]models.Reservation)
	if err := s.flush(); err != nil {
		s.reservations = prev
		return 0, err
	}
	return n, nil
}

func (s *Store) AppendImportLog(ctx context.Context, l *models.ImportLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.nextLogID
	s.nextLogID++
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	s.logs = append(s.logs, *l)
	if err := s.flush(); err != nil {
		s.logs = s.logs[:len(s.logs)-1]
		s.nextLogID--
		return err
	}
	return nil
}

// RecentImportLogs returns the newest entries first.
func (s *Store) RecentImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ImportLog, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.logs[i])
	}
	return out, nil
}

// sortReservations orders by check-in (missing dates last), then id.
func sortReservations(rs []models.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i].CheckIn, rs[j].CheckIn
		switch {
		case a == nil && b == nil:
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return rs[i].ID < rs[j].ID
	})
}
