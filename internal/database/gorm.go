// Package database implements the store repositories on GORM for MySQL and
// PostgreSQL.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resale-admin/internal/models"
	"resale-admin/internal/store"
	"resale-admin/internal/week"
)

// saveBatchSize bounds the rows per INSERT statement of a reservation upsert.
const saveBatchSize = 500

// reservationUpdateColumns are overwritten when an upsert hits an existing id.
// created_at is kept from the first insert.
var reservationUpdateColumns = []string{
	"property_id", "property_name", "source", "external_id",
	"check_in", "check_out", "nights",
	"guest_count", "adults", "children", "infants", "nationality",
	"booked_on", "sale_amount", "status", "rate_plan", "updated_at",
}

type GormDB struct {
	db *gorm.DB
}

var _ store.Store = (*GormDB)(nil)

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection, used by the health endpoint.
func (gdb *GormDB) Ping(ctx context.Context) error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.Property{},
		&models.Reservation{},
		&models.ImportLog{},
	)
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isPQUniqueViolation(err):
		return store.ErrDuplicateLabel
	}
	return err
}

func (gdb *GormDB) ListProperties(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	if err := gdb.db.WithContext(ctx).Order("label ASC").Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}
	return properties, nil
}

func (gdb *GormDB) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	err := gdb.db.WithContext(ctx).Where("id = ?", id).First(&property).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch property: %w", err)
	}
	return &property, nil
}

// SaveProperty creates or updates a property. The label uniqueness check runs
// before the write so both drivers report ErrDuplicateLabel even when the
// unique index error is not translated.
func (gdb *GormDB) SaveProperty(ctx context.Context, p *models.Property) error {
	p.RefreshLabel()
	return gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var clash int64
		q := tx.Model(&models.Property{}).Where("label = ?", p.Label)
		if p.ID != "" {
			q = q.Where("id <> ?", p.ID)
		}
		if err := q.Count(&clash).Error; err != nil {
			return fmt.Errorf("failed to save property: %w", err)
		}
		if clash > 0 {
			return store.ErrDuplicateLabel
		}

		if p.ID == "" {
			p.ID = uuid.NewString()
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to save property: %w", translateError(err))
			}
			return nil
		}

		var existing models.Property
		if err := tx.Where("id = ?", p.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return store.ErrNotFound
			}
			return fmt.Errorf("failed to save property: %w", err)
		}
		p.CreatedAt = existing.CreatedAt
		if err := tx.Save(p).Error; err != nil {
			return fmt.Errorf("failed to save property: %w", translateError(err))
		}
		return nil
	})
}

func (gdb *GormDB) DeleteProperty(ctx context.Context, id string) error {
	result := gdb.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Property{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListReservations pushes the filter down to SQL with the same semantics as
// ReservationFilter.Matches.
func (gdb *GormDB) ListReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error) {
	q := gdb.db.WithContext(ctx).Model(&models.Reservation{})
	if f.PropertyID != "" {
		q = q.Where("property_id = ?", f.PropertyID)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.From != nil {
		q = q.Where("check_in >= ?", week.Date(*f.From))
	}
	if f.To != nil {
		q = q.Where("check_in <= ?", week.Date(*f.To))
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		q = q.Where("LOWER(CONCAT(source, ' ', rate_plan)) LIKE ?", "%"+s+"%")
	}

	var reservations []models.Reservation
	if err := q.Order("check_in IS NULL, check_in ASC, id ASC").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", err)
	}
	return reservations, nil
}

// SaveReservations upserts every row by id inside one transaction.
func (gdb *GormDB) SaveReservations(ctx context.Context, rs []models.Reservation) error {
	if len(rs) == 0 {
		return nil
	}
	for i := range rs {
		if rs[i].ID == "" {
			return errors.New("failed to save reservations: reservation without id")
		}
	}
	err := gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(reservationUpdateColumns),
		}).CreateInBatches(&rs, saveBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save reservations: %w", err)
	}
	return nil
}

func (gdb *GormDB) CountReservations(ctx context.Context) (int64, error) {
	var n int64
	if err := gdb.db.WithContext(ctx).Model(&models.Reservation{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return n, nil
}

func (gdb *GormDB) DeleteAllReservations(ctx context.Context) (int64, error) {
	result := gdb.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Reservation{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete reservations: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (gdb *GormDB) AppendImportLog(ctx context.Context, l *models.ImportLog) error {
	if err := gdb.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to save import log: %w", err)
	}
	return nil
}

func (gdb *GormDB) RecentImportLogs(ctx context.Context, limit int) ([]models.ImportLog, error) {
	q := gdb.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var logs []models.ImportLog
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch import logs: %w", err)
	}
	return logs, nil
}
