package installer

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"modelstation/internal/hashutil"
	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()
	return New(log.New(os.Stderr, "test ", 0), nil, nil)
}

func TestRunVerifySkippedWhenNoHash(t *testing.T) {
	in := newTestInstaller(t)
	archive := filepath.Join(t.TempDir(), "archive.tar.gz")
	if err := os.WriteFile(archive, []byte("contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := in.runVerify(nil, model.AppConfig{ID: "app"}, model.AvailableVenv{}, archive)
	if err != nil {
		t.Fatalf("expected no error when manifest has no hash, got %v", err)
	}
}

func TestRunVerifyMatchingHash(t *testing.T) {
	in := newTestInstaller(t)
	archive := filepath.Join(t.TempDir(), "archive.tar.gz")
	if err := os.WriteFile(archive, []byte("contents"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := hashutil.SHA256File(archive)
	if err != nil {
		t.Fatal(err)
	}

	err = in.runVerify(nil, model.AppConfig{ID: "app"}, model.AvailableVenv{SHA256Hash: sum}, archive)
	if err != nil {
		t.Fatalf("expected matching hash to verify, got %v", err)
	}
	if _, statErr := os.Stat(archive); statErr != nil {
		t.Fatal("archive should still exist after a successful verify")
	}
}

func TestRunVerifyMismatchDeletesArchive(t *testing.T) {
	in := newTestInstaller(t)
	archive := filepath.Join(t.TempDir(), "archive.tar.gz")
	if err := os.WriteFile(archive, []byte("contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := in.runVerify(nil, model.AppConfig{ID: "app"}, model.AvailableVenv{SHA256Hash: "deadbeef"}, archive)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if !modelerr.IsKind(err, modelerr.IntegrityFailed) {
		t.Fatalf("expected IntegrityFailed, got %v", err)
	}
	if _, statErr := os.Stat(archive); !os.IsNotExist(statErr) {
		t.Fatal("expected archive to be deleted on hash mismatch")
	}
}
