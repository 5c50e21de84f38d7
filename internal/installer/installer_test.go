package installer

import "testing"

func TestResolveDownloadURLAbsoluteUntouched(t *testing.T) {
	got := resolveDownloadURL("https://example.com/a.tar.gz", "https://base.example.com")
	if got != "https://example.com/a.tar.gz" {
		t.Fatalf("expected absolute URL untouched, got %s", got)
	}
}

func TestResolveDownloadURLRelativeJoinsBase(t *testing.T) {
	got := resolveDownloadURL("/venvs/a.tar.gz", "https://base.example.com/")
	if got != "https://base.example.com/venvs/a.tar.gz" {
		t.Fatalf("unexpected joined URL: %s", got)
	}
}

func TestResolveDownloadURLNoSlashes(t *testing.T) {
	got := resolveDownloadURL("a.tar.gz", "https://base.example.com")
	if got != "https://base.example.com/a.tar.gz" {
		t.Fatalf("unexpected joined URL: %s", got)
	}
}
