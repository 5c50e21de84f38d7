package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"modelstation/internal/mapping"
	"modelstation/internal/model"
)

func newTestReconciler(t *testing.T) (*Reconciler, string, string) {
	t.Helper()
	sharedRoot := t.TempDir()
	appRoot := t.TempDir()
	m := &mapping.Store{Root: sharedRoot, AllowSeedWrite: true}
	r := New(m, nil, nil, false)
	return r, sharedRoot, appRoot
}

func writeMappingFiles(t *testing.T, m *mapping.Store, folders model.SharedModelFolders, dirs model.AppInstallDirs, appMap model.SharedModelAppMap) {
	t.Helper()
	if _, _, err := m.LoadSharedModelFolders(folders); err != nil {
		t.Fatalf("seed folders: %v", err)
	}
	if _, _, err := m.LoadAppInstallDirs(dirs); err != nil {
		t.Fatalf("seed dirs: %v", err)
	}
	if _, _, err := m.LoadSharedModelAppMap(appMap); err != nil {
		t.Fatalf("seed app map: %v", err)
	}
}

func TestReconcilePullBackCycle(t *testing.T) {
	r, sharedRoot, appRoot := newTestReconciler(t)
	if err := r.EnsureSharedFolders(model.SharedModelFolders{"loras": "LoRA files"}); err != nil {
		t.Fatalf("ensure folders: %v", err)
	}

	destDir := filepath.Join(appRoot, "models", "loras")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatal(err)
	}
	payload := make([]byte, 10*1024*1024)
	if err := os.WriteFile(filepath.Join(destDir, "foo.safetensors"), payload, 0o644); err != nil {
		t.Fatal(err)
	}

	writeMappingFiles(t, r.Mapping,
		model.SharedModelFolders{"loras": "LoRA files"},
		model.AppInstallDirs{"ComfyUI": appRoot},
		model.SharedModelAppMap{"loras": {"ComfyUI": "models/loras"}},
	)

	c, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if c.Pulled != 1 {
		t.Fatalf("want 1 pulled, got %d", c.Pulled)
	}

	sharedFile := filepath.Join(sharedRoot, "loras", "foo.safetensors")
	if _, err := os.Stat(sharedFile); err != nil {
		t.Fatalf("expected file moved into shared store: %v", err)
	}
	link := filepath.Join(destDir, "foo.safetensors")
	info, err := os.Lstat(link)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("expected dest entry to become a symlink")
	}
	target, err := os.Readlink(link)
	if err != nil || target != sharedFile {
		t.Fatalf("symlink target = %q, want %q", target, sharedFile)
	}
	if _, err := os.Stat(filepath.Join(destDir, "_readme-pulled-loras.txt")); err != nil {
		t.Fatalf("expected pulled readme: %v", err)
	}

	c2, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if c2.Pulled != 0 || c2.FilesCreated != 0 || c2.BrokenRemoved != 0 {
		t.Fatalf("expected idempotent second pass, got %+v", c2)
	}
}

func TestReconcileReapsBrokenLinks(t *testing.T) {
	r, sharedRoot, appRoot := newTestReconciler(t)
	if err := r.EnsureSharedFolders(model.SharedModelFolders{"ckpt": "checkpoints"}); err != nil {
		t.Fatal(err)
	}

	destDir := filepath.Join(appRoot, "models", "Stable-diffusion")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatal(err)
	}
	ghostTarget := filepath.Join(sharedRoot, "ckpt", "x.ckpt")
	if err := os.Symlink(ghostTarget, filepath.Join(destDir, "x.ckpt")); err != nil {
		t.Fatal(err)
	}

	writeMappingFiles(t, r.Mapping,
		model.SharedModelFolders{"ckpt": "checkpoints"},
		model.AppInstallDirs{"webui": appRoot},
		model.SharedModelAppMap{"ckpt": {"webui": "models/Stable-diffusion"}},
	)

	c, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if c.BrokenRemoved != 1 {
		t.Fatalf("want 1 broken removed, got %d", c.BrokenRemoved)
	}
	if _, err := os.Lstat(filepath.Join(destDir, "x.ckpt")); !os.IsNotExist(err) {
		t.Fatalf("expected dangling link removed")
	}
	if _, err := os.Stat(filepath.Join(destDir, "_readme-brokenlinks-ckpt.txt")); err != nil {
		t.Fatalf("expected brokenlinks readme: %v", err)
	}
}

func TestReconcileFolderRule(t *testing.T) {
	r, sharedRoot, appRoot := newTestReconciler(t)
	if err := r.EnsureSharedFolders(model.SharedModelFolders{"LLM/Meta-Llama-3.1-8B/*": "a snapshot dir"}); err != nil {
		t.Fatal(err)
	}
	snapshotDir := filepath.Join(sharedRoot, "LLM", "Meta-Llama-3.1-8B")
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(snapshotDir, "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	writeMappingFiles(t, r.Mapping,
		model.SharedModelFolders{"LLM/Meta-Llama-3.1-8B/*": "a snapshot dir"},
		model.AppInstallDirs{"CUSTOM1": appRoot},
		model.SharedModelAppMap{"LLM/Meta-Llama-3.1-8B/*": {"CUSTOM1": "model/*"}},
	)

	c, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if c.FoldersCreated != 1 {
		t.Fatalf("want 1 folder created, got %d", c.FoldersCreated)
	}
	link := filepath.Join(appRoot, "model")
	info, err := os.Lstat(link)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("expected %s to be a directory symlink", link)
	}
}

func TestReconcileSkipsMissingSharedRoot(t *testing.T) {
	m := &mapping.Store{Root: filepath.Join(t.TempDir(), "does-not-exist"), AllowSeedWrite: true}
	r := New(m, nil, nil, false)
	if _, err := r.Reconcile(context.Background()); err == nil {
		t.Fatal("expected error when shared root is missing")
	}
}
