package installer

import "testing"

func TestAria2ProgressRegexParsesSummaryLine(t *testing.T) {
	line := "[#1a2b3c 12MiB/100MiB(12%) CN:16 DL:3.2MiB ETA:26s]"
	m := aria2Progress.FindStringSubmatch(line)
	if m == nil {
		t.Fatal("expected summary line to match")
	}
	if m[1] != "12" {
		t.Fatalf("expected percentage 12, got %s", m[1])
	}
	if m[2] != "3.2MiB" {
		t.Fatalf("expected speed 3.2MiB, got %s", m[2])
	}
	if m[3] != "26s" {
		t.Fatalf("expected eta 26s, got %s", m[3])
	}
}

func TestAria2ProgressRegexNoMatchOnPlainLog(t *testing.T) {
	if aria2Progress.FindStringSubmatch("Download started") != nil {
		t.Fatal("expected non-summary line to not match")
	}
}
