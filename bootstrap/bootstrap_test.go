package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/fleetbill/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Database: config.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "test.db")},
		Plans: []config.PlanConfig{
			{
				Name:            "TCM06",
				MonthlyPrice:    "39",
				PricePerMin:     "0.27",
				IncludedMin:     "100",
				WithMinClearing: true,
			},
		},
	}
	// Run the same normalization Load would.
	t.Setenv("FLEETBILL_LOG_LEVEL", "error")
	full, err := config.LoadWithFallback("")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	full.Database = cfg.Database
	full.Plans = cfg.Plans
	return full
}

func TestNew(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Shutdown()

	if a.Settlement == nil || a.Reports == nil {
		t.Fatal("services not wired")
	}
	if a.HTTPServer == nil || a.HTTPServer.Addr == "" {
		t.Fatal("http server not configured")
	}

	// Config plans were seeded into the registry.
	p, err := a.Plans.Get(context.Background(), "TCM06")
	if err != nil {
		t.Fatalf("seeded plan: %v", err)
	}
	if !p.WithMinClearing {
		t.Error("seeded plan lost clearing flag")
	}
}

func TestNewWithHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  dsn: " + filepath.Join(dir, "hot.db") + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	a, err := NewWithHotReload(path)
	if err != nil {
		t.Fatalf("new with hot reload: %v", err)
	}
	defer a.Shutdown()

	if a.holder == nil {
		t.Fatal("config holder not attached")
	}
}
