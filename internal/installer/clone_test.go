package installer

import (
	"testing"

	"modelstation/internal/model"
)

func TestCheckoutRefPrefersCommitID(t *testing.T) {
	ref := checkoutRef(model.AvailableVenv{CommitID: "abc123", BranchName: "dev"})
	if ref != "abc123" {
		t.Fatalf("expected commit id to win, got %s", ref)
	}
}

func TestCheckoutRefFallsBackToBranch(t *testing.T) {
	ref := checkoutRef(model.AvailableVenv{BranchName: "feature-x"})
	if ref != "feature-x" {
		t.Fatalf("expected branch name, got %s", ref)
	}
}

func TestCheckoutRefSkipsDefaultBranches(t *testing.T) {
	for _, branch := range []string{"main", "master", ""} {
		if ref := checkoutRef(model.AvailableVenv{BranchName: branch}); ref != "" {
			t.Fatalf("expected empty ref for branch %q, got %s", branch, ref)
		}
	}
}
