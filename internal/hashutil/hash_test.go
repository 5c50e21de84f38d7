package hashutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSHA256File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.tar.gz")
	if err := os.WriteFile(path, []byte("hello modelstation"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := SHA256File(path)
	if err != nil {
		t.Fatal(err)
	}
	const want = "c638b28fda0acce3488a6bf918a50884fc0002370b8192c12578e7ef20b50e92"
	if got != want {
		t.Fatalf("SHA256File() = %q, want %q", got, want)
	}
}

func TestEqualHash(t *testing.T) {
	if !EqualHash("AABBCC", "aabbcc") {
		t.Fatal("expected case-insensitive match")
	}
	if EqualHash("aabbcc", "ddeeff") {
		t.Fatal("expected mismatch")
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		500:            "500 B",
		2048:           "2.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for n, want := range cases {
		if got := HumanBytes(n); got != want {
			t.Errorf("HumanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
