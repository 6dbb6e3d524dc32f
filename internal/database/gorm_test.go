package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resale-admin/internal/models"
	"resale-admin/internal/store"
)

func TestMySQLDSN(t *testing.T) {
	dsn := mysqlDSN("db", "3306", "user", "secret", "resale_db")
	tests := []struct {
		name string
		want string
	}{
		{"address", "user:secret@tcp(db:3306)/resale_db?"},
		{"parses times", "parseTime=True"},
		{"utc session", "loc=UTC"},
		{"charset", "charset=utf8mb4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(dsn, tt.want) {
				t.Fatalf("dsn %q missing %q", dsn, tt.want)
			}
		})
	}
	if strings.Contains(dsn, "loc=Local") {
		t.Fatalf("dsn %q must not use the host location", dsn)
	}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"not found", gorm.ErrRecordNotFound, store.ErrNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, store.ErrDuplicateLabel},
		{"pq unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), store.ErrDuplicateLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	other := &pq.Error{Code: "23503"}
	if got := translateError(other); got != other {
		t.Fatalf("unrelated errors must pass through, got %v", got)
	}
}

// openTestPostgres connects to the database named by the TEST_PG_* variables
// and skips the test when they are not set.
func openTestPostgres(t *testing.T) *GormDB {
	t.Helper()
	host := os.Getenv("TEST_PG_HOST")
	if host == "" {
		t.Skip("TEST_PG_HOST not set, skipping database test")
	}
	db, err := NewGormPostgres(host, envOr("TEST_PG_PORT", "5432"), envOr("TEST_PG_USER", "postgres"),
		os.Getenv("TEST_PG_PASSWORD"), envOr("TEST_PG_DB", "resale_admin_test"), "disable", logger.Silent)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB().Exec("DELETE FROM reservations")
	db.DB().Exec("DELETE FROM properties")
	t.Cleanup(func() { db.Close() })
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresReservationUpsert(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	sale := func(v int64) *int64 { return &v }

	if err := db.SaveReservations(ctx, []models.Reservation{{ID: "r1", PropertyID: "p1", SaleAmount: sale(5000)}}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveReservations(ctx, []models.Reservation{{ID: "r1", PropertyID: "p1", SaleAmount: sale(8000)}}); err != nil {
		t.Fatal(err)
	}
	rs, err := db.ListReservations(ctx, models.ReservationFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || *rs[0].SaleAmount != 8000 {
		t.Fatalf("expected a single updated row, got %+v", rs)
	}
}

func TestPostgresDuplicateLabel(t *testing.T) {
	db := openTestPostgres(t)
	ctx := context.Background()
	if err := db.SaveProperty(ctx, &models.Property{Name: "Seaside", Tag: "001"}); err != nil {
		t.Fatal(err)
	}
	err := db.SaveProperty(ctx, &models.Property{Name: "Seaside", Tag: "001"})
	if !errors.Is(err, store.ErrDuplicateLabel) {
		t.Fatalf("expected ErrDuplicateLabel, got %v", err)
	}
}
