package installer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFolderSizeKB(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.bin"), make([]byte, 1024), 0o644); err != nil {
		t.Fatal(err)
	}

	kb, err := FolderSizeKB(dir)
	if err != nil {
		t.Fatal(err)
	}
	if kb != 3 {
		t.Fatalf("expected 3 KB, got %d", kb)
	}
}

func TestVerifyFolderSizeWithinTolerance(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 95*1024), 0o644); err != nil {
		t.Fatal(err)
	}

	ok, err := VerifyFolderSize(dir, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected size within 10% tolerance of expected to pass")
	}
}

func TestVerifyFolderSizeTooSmall(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 10*1024), 0o644); err != nil {
		t.Fatal(err)
	}

	ok, err := VerifyFolderSize(dir, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected undersized folder to fail verification")
	}
}

func TestVerifyFolderSizeZeroExpectedAlwaysPasses(t *testing.T) {
	dir := t.TempDir()
	ok, err := VerifyFolderSize(dir, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected zero expected size to short-circuit to true")
	}
}
