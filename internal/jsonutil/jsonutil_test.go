package jsonutil

import (
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	want := sample{Name: "app", Count: 3}

	if err := WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Fatal("expected file to exist after WriteFile")
	}
	if Exists(path + ".tmp") {
		t.Fatal("expected .tmp sibling to be renamed away")
	}

	var got sample
	if err := ReadFile(path, &got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestReadFileMissingReturnsNotExist(t *testing.T) {
	var got sample
	err := ReadFile(filepath.Join(t.TempDir(), "missing.json"), &got)
	if !os.IsNotExist(err) {
		t.Fatalf("expected os.IsNotExist error, got %v", err)
	}
}

func TestExistsFalseForMissingPath(t *testing.T) {
	if Exists(filepath.Join(t.TempDir(), "nope.json")) {
		t.Fatal("expected Exists to report false for missing path")
	}
}

func TestWriteFileOverwritesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := WriteFile(path, sample{Name: "first"}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, sample{Name: "second"}, 0o644); err != nil {
		t.Fatal(err)
	}
	var got sample
	if err := ReadFile(path, &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "second" {
		t.Fatalf("expected overwrite to stick, got %s", got.Name)
	}
}
