package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"resale-admin/internal/config"
	"resale-admin/internal/models"
)

func TestGetEnvOrConfig(t *testing.T) {
	tests := []struct {
		name   string
		config string
		env    string
		want   string
	}{
		{"environment overrides config", "config/snapshot.json", "/data/snapshot.json", "/data/snapshot.json"},
		{"config when environment unset", "http://search:7700", "", "http://search:7700"},
		{"default when both unset", "", "", "fallback"},
		{"environment without config", "", "secret", "secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RESALE_TEST_VALUE", tt.env)
			if got := getEnvOrConfig(tt.config, "RESALE_TEST_VALUE", "fallback"); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenStoreHonorsSnapshotEnv(t *testing.T) {
	cfg := config.DefaultConfig()
	path := filepath.Join(t.TempDir(), "env.json")
	t.Setenv("SNAPSHOT_PATH", path)

	st, err := openStore(cfg)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()

	if err := st.SaveProperty(context.Background(), &models.Property{Name: "Seaside", Tag: "001"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected snapshot at %s: %v", path, err)
	}
	if _, err := os.Stat(cfg.Database.Memory.SnapshotPath); err == nil {
		t.Fatalf("config snapshot path %s must not be written", cfg.Database.Memory.SnapshotPath)
	}
}
