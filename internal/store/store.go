// Package store declares the repositories the rest of the service talks to.
// internal/database implements them on GORM and internal/store/memory keeps
// everything in process.
package store

import (
	"context"
	"errors"

	"resale-admin/internal/models"
)

var (
	// ErrNotFound is returned when a lookup by id matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateLabel is returned when two properties would share a display label.
	ErrDuplicateLabel = errors.New("a property with the same label already exists")
)

// PropertyRepository persists properties.
type PropertyRepository interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	// SaveProperty creates the property when its id is empty, otherwise
	// replaces the stored row. The label is recomputed before writing.
	SaveProperty(ctx context.Context, p *models.Property) error
	// DeleteProperty never touches reservations that reference the property.
	DeleteProperty(ctx context.Context, id string) error
}

// ReservationRepository persists reservations.
type ReservationRepository interface {
	ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error)
	// SaveReservations inserts or updates every row by id. Either all rows
	// are written or none are.
	SaveReservations(ctx context.Context, rs []models.Reservation) error
	CountReservations(ctx context.Context) (int64, error)
	// DeleteAllReservations is the only bulk delete path.
	DeleteAllReservations(ctx context.Context) (int64, error)
}

// ImportLogRepository keeps the import history.
type ImportLogRepository interface {
	AppendImportLog(ctx context.Context, l *models.ImportLog) error
	RecentImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error)
}

// Store bundles every repository one backend provides.
type Store interface {
	PropertyRepository
	ReservationRepository
	ImportLogRepository
	Close() error
}
