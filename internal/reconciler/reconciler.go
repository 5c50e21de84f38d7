// Package reconciler implements the shared-model reconciler: it keeps each
// app's model directories consistent with a single deduplicated store by
// reaping broken symlinks, pulling stray files back into the shared store,
// and materializing links from the store into every mapped app.
package reconciler

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"modelstation/internal/bus"
	"modelstation/internal/mapping"
	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

const minLinkableFileSize = 100 // bytes; smaller files are "put your model here" placeholders

// ErrAlreadyRunning is returned when Reconcile is invoked while a previous
// run is still in flight. The caller that loses the race simply skips its
// turn; the reconciler is single-writer.
var ErrAlreadyRunning = errors.New("reconcile already in progress")

// Counters summarizes one reconcile pass for the status payload.
type Counters struct {
	FilesCreated   int `json:"files_created"`
	FoldersCreated int `json:"folders_created"`
	BrokenRemoved  int `json:"broken_removed"`
	Pulled         int `json:"pulled"`
}

func (c *Counters) add(o Counters) {
	c.FilesCreated += o.FilesCreated
	c.FoldersCreated += o.FoldersCreated
	c.BrokenRemoved += o.BrokenRemoved
	c.Pulled += o.Pulled
}

// Reconciler reads the three mapping documents on every pass and reconciles
// the filesystem to match them. It owns every symlink it creates or removes
// under the app install directories; nothing else writes there.
type Reconciler struct {
	Mapping         *mapping.Store
	Bus             *bus.Bus
	Logger          *log.Logger
	DisablePullback bool

	running  atomic.Bool
	tickStop chan struct{}
}

// New builds a Reconciler bound to the given mapping store and bus.
func New(m *mapping.Store, b *bus.Bus, logger *log.Logger, disablePullback bool) *Reconciler {
	if logger == nil {
		logger = log.New(log.Writer(), "reconciler ", log.LstdFlags|log.LUTC)
	}
	return &Reconciler{Mapping: m, Bus: b, Logger: logger, DisablePullback: disablePullback}
}

// EnsureSharedFolders creates the shared root and one subfolder per declared
// model_type (stripped of any "/*" suffix), seeding a one-line README the
// first time each folder is created.
func (r *Reconciler) EnsureSharedFolders(folders model.SharedModelFolders) error {
	if err := os.MkdirAll(r.Mapping.Root, 0o755); err != nil {
		return modelerr.Wrap(modelerr.FilesystemError, "ensure_folders", err, "could not create shared root %s", r.Mapping.Root)
	}
	for modelType, desc := range folders {
		dir := filepath.Join(r.Mapping.Root, strings.TrimSuffix(modelType, "/*"))
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return modelerr.Wrap(modelerr.FilesystemError, "ensure_folders", err, "could not create shared folder %s", dir)
		}
		readme := filepath.Join(dir, "README.txt")
		_ = os.WriteFile(readme, []byte(desc+"\n"), 0o644)
	}
	return nil
}

// StartTicker runs Reconcile every interval until ctx is cancelled. A tick
// that lands while a previous run (manual or ticked) is still in progress
// skips silently rather than queuing.
func (r *Reconciler) StartTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := r.Reconcile(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
					r.Logger.Printf("reconcile tick failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Reconcile runs one full pass over every (model_type, app_name) cell named
// in the shared-model-app map. It is safe to call concurrently: only one
// pass runs at a time, and a second caller gets ErrAlreadyRunning rather
// than blocking.
func (r *Reconciler) Reconcile(ctx context.Context) (Counters, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Counters{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)

	if _, err := os.Stat(r.Mapping.Root); err != nil {
		return Counters{}, modelerr.Wrap(modelerr.PreconditionFailed, "reconcile", err, "shared root %s does not exist; run ensure-folders first", r.Mapping.Root)
	}

	folders, _, err := r.Mapping.LoadSharedModelFolders(mapping.DefaultSharedModelFolders)
	if err != nil {
		return Counters{}, modelerr.Wrap(modelerr.FilesystemError, "reconcile", err, "could not load shared model folders")
	}
	dirs, _, err := r.Mapping.LoadAppInstallDirs(mapping.DefaultAppInstallDirs)
	if err != nil {
		return Counters{}, modelerr.Wrap(modelerr.FilesystemError, "reconcile", err, "could not load app install dirs")
	}
	appMap, _, err := r.Mapping.LoadSharedModelAppMap(mapping.DefaultSharedModelAppMap)
	if err != nil {
		return Counters{}, modelerr.Wrap(modelerr.FilesystemError, "reconcile", err, "could not load shared model app map")
	}

	for _, verr := range mapping.Validate(folders, dirs, appMap) {
		r.Logger.Printf("mapping validation: %v", verr)
	}

	var total Counters
	for _, modelType := range sortedKeys(appMap) {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}
		apps := appMap[modelType]
		isFolderRule := strings.HasSuffix(modelType, "/*")
		for _, appName := range sortedAppKeys(apps) {
			destRel := apps[appName]
			appDir, ok := dirs[appName]
			if !ok {
				continue
			}
			var c Counters
			var cellErr error
			if isFolderRule {
				c, cellErr = r.reconcileFolderCell(modelType, appDir, destRel)
			} else {
				c, cellErr = r.reconcilePlainCell(modelType, appDir, destRel)
			}
			if cellErr != nil {
				r.Logger.Printf("reconcile cell %s/%s: %v", modelType, appName, cellErr)
				continue
			}
			total.add(c)
		}
	}

	for modelType := range folders {
		dir := filepath.Join(r.Mapping.Root, strings.TrimSuffix(modelType, "/*"))
		_ = os.RemoveAll(filepath.Join(dir, ".cache"))
	}

	if r.Bus != nil {
		r.Bus.Publish(bus.Event{Kind: "reconcile_status", Payload: total})
	}
	return total, nil
}

// reconcileFolderCell handles a "model_type/*" rule: link the whole shared
// subtree into dest as a single directory symlink.
func (r *Reconciler) reconcileFolderCell(modelType, appDir, destRel string) (Counters, error) {
	var c Counters
	baseType := strings.TrimSuffix(modelType, "/*")
	sharedDir := filepath.Join(r.Mapping.Root, baseType)
	dest := filepath.Join(appDir, strings.TrimSuffix(destRel, "/*"))

	if _, err := os.Stat(appDir); err != nil {
		return c, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return c, err
	}

	info, err := os.Stat(sharedDir)
	if err != nil || !info.IsDir() {
		return c, nil
	}
	if _, err := os.Lstat(dest); err == nil {
		return c, nil
	}
	if err := os.Symlink(sharedDir, dest); err != nil {
		return c, err
	}
	c.FoldersCreated = 1
	return c, nil
}

// reconcilePlainCell handles a plain or grouping file-symlink rule: reap
// broken links, pull back stray real files, then materialize links for
// every eligible shared file.
func (r *Reconciler) reconcilePlainCell(modelType, appDir, destRel string) (Counters, error) {
	var c Counters

	if _, err := os.Stat(appDir); err != nil {
		return c, nil
	}
	baseType := strings.TrimSuffix(modelType, "/*")
	sharedDir := filepath.Join(r.Mapping.Root, baseType)
	dest := filepath.Join(appDir, destRel)
	typeTag := strings.ReplaceAll(baseType, "/", "-")

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return c, err
	}
	if err := os.MkdirAll(sharedDir, 0o755); err != nil {
		return c, err
	}

	broken, err := reapBrokenLinks(dest, typeTag)
	if err != nil {
		return c, err
	}
	c.BrokenRemoved = broken

	if !r.DisablePullback {
		pulled, err := pullBackFiles(dest, sharedDir, typeTag)
		if err != nil {
			return c, err
		}
		c.Pulled = pulled
	}

	created, err := materializeLinks(dest, sharedDir, typeTag)
	if err != nil {
		return c, err
	}
	c.FilesCreated = created

	return c, nil
}

func reapBrokenLinks(dest, typeTag string) (int, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return 0, err
	}
	var removed int
	var lines []string
	for _, e := range entries {
		info, err := os.Lstat(filepath.Join(dest, e.Name()))
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		target := filepath.Join(dest, e.Name())
		if _, statErr := os.Stat(target); statErr == nil {
			continue
		}
		if err := os.Remove(target); err != nil {
			_ = os.RemoveAll(target)
		}
		removed++
		lines = append(lines, time.Now().UTC().Format(time.RFC3339)+" "+e.Name())
	}
	if len(lines) > 0 {
		appendLines(filepath.Join(dest, "_readme-brokenlinks-"+typeTag+".txt"), lines)
	}
	return removed, nil
}

func pullBackFiles(dest, sharedDir, typeTag string) (int, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return 0, err
	}
	var pulled int
	var lines []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_readme-") {
			continue
		}
		full := filepath.Join(dest, name)
		info, err := os.Lstat(full)
		if err != nil || info.Mode()&os.ModeSymlink != 0 || info.IsDir() || info.Size() == 0 {
			continue
		}
		sharedPath := filepath.Join(sharedDir, name)
		if err := moveFile(full, sharedPath); err != nil {
			return pulled, err
		}
		if err := os.Symlink(sharedPath, full); err != nil {
			return pulled, err
		}
		pulled++
		lines = append(lines, time.Now().UTC().Format(time.RFC3339)+" "+name)
	}
	if len(lines) > 0 {
		appendLines(filepath.Join(dest, "_readme-pulled-"+typeTag+".txt"), lines)
	}
	return pulled, nil
}

func materializeLinks(dest, sharedDir, typeTag string) (int, error) {
	entries, err := os.ReadDir(sharedDir)
	if err != nil {
		return 0, err
	}
	var created int
	sawEligible := false
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_readme-") {
			continue
		}
		if e.IsDir() {
			continue // subdirectories need an explicit folder-symlink rule
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() < minLinkableFileSize {
			continue
		}
		sawEligible = true
		linkPath := filepath.Join(dest, name)
		if _, err := os.Lstat(linkPath); err == nil {
			continue
		}
		if err := os.Symlink(filepath.Join(sharedDir, name), linkPath); err != nil {
			return created, err
		}
		created++
	}
	if sawEligible {
		syncedMarker := filepath.Join(dest, "_readme-synced-"+typeTag+".txt")
		if !fileExists(syncedMarker) {
			_ = os.WriteFile(syncedMarker, []byte("files under this folder are symlinks into the shared model store\n"), 0o644)
		}
	}
	return created, nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func appendLines(path string, lines []string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	for _, l := range lines {
		_, _ = f.WriteString(l + "\n")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func sortedKeys(m model.SharedModelAppMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAppKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
