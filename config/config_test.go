package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wfunc/roomboard/state"
)

func TestLoadSeed_Default(t *testing.T) {
	centers, err := LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if len(centers) != 2 {
		t.Fatalf("Expected 2 centers, got %d", len(centers))
	}
	if centers[0].Tag != "VP" || centers[1].Tag != "FTK" {
		t.Errorf("Unexpected center order: %s, %s", centers[0].Tag, centers[1].Tag)
	}
	if centers[0].ID != "vortex-plateau" || centers[1].ID != "find-the-key" {
		t.Errorf("Expected stable seed IDs, got %q, %q", centers[0].ID, centers[1].ID)
	}
	oublies := centers[0].Scenarios[1]
	if oublies.Status != state.StatusClosed {
		t.Errorf("Expected Les oubliés to be Closed, got %s", oublies.Status)
	}
	if oublies.ExpectedReopen != "2025-10-05T14:00" {
		t.Errorf("Expected expected_reopen to be kept verbatim, got %q", oublies.ExpectedReopen)
	}
	if centers[1].Scenarios[0].Status != state.StatusMaintenance {
		t.Errorf("Expected Le Trésor to be in Maintenance, got %s", centers[1].Scenarios[0].Status)
	}
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadSeed_File(t *testing.T) {
	path := writeSeed(t, `
centers:
  - id: c1
    name: Escape Nord
    scenarios:
      - name: La Crypte
        status: bris
`)
	centers, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if centers[0].ID != "c1" {
		t.Errorf("Expected ID c1, got %q", centers[0].ID)
	}
	if centers[0].Scenarios[0].Status != state.StatusMaintenance {
		t.Errorf("Expected bris to map to Maintenance, got %s", centers[0].Scenarios[0].Status)
	}
}

func TestLoadSeed_RejectsUnknownStatus(t *testing.T) {
	path := writeSeed(t, `
centers:
  - name: Escape Nord
    scenarios:
      - name: La Crypte
        status: en pause
`)
	if _, err := LoadSeed(path); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Expected ErrInvalidSeed, got %v", err)
	}
}

func TestLoadSeed_RejectsMissingName(t *testing.T) {
	path := writeSeed(t, `
centers:
  - name: Escape Nord
    scenarios:
      - status: Ouvert
`)
	if _, err := LoadSeed(path); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("Expected ErrInvalidSeed, got %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("Expected default http address :8080, got %q", cfg.Server.HTTPAddress)
	}
	if cfg.Server.Heartbeat != 15*time.Second {
		t.Errorf("Expected 15s heartbeat, got %v", cfg.Server.Heartbeat)
	}
	if cfg.Database.Driver != "none" {
		t.Errorf("Expected database driver none, got %q", cfg.Database.Driver)
	}
	if cfg.Kafka.Enabled {
		t.Error("Expected kafka to be disabled by default")
	}
}
