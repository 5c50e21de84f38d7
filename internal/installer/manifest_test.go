package installer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"modelstation/internal/model"
)

func TestWriteManifest(t *testing.T) {
	in := newTestInstaller(t)
	venvPath := t.TempDir()
	app := model.AppConfig{ID: "app", VenvPath: venvPath}
	venv := model.AvailableVenv{Version: "v1", SHA256Hash: "abc"}
	installedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	refreshedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := in.writeManifest(app, venv, installedAt, refreshedAt); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(venvPath, ".venv_info.json"))
	if err != nil {
		t.Fatal(err)
	}
	var got model.InstalledVenvManifest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.InstalledVenvVersion != "v1" {
		t.Fatalf("expected version v1, got %s", got.InstalledVenvVersion)
	}
	if !got.InstallationTime.Equal(installedAt) {
		t.Fatalf("expected installation time %v, got %v", installedAt, got.InstallationTime)
	}
	if !got.RefreshTime.Equal(refreshedAt) {
		t.Fatalf("expected refresh time %v, got %v", refreshedAt, got.RefreshTime)
	}
	if got.Venv.SHA256Hash != "abc" {
		t.Fatalf("expected embedded venv to round-trip, got %+v", got.Venv)
	}
}
