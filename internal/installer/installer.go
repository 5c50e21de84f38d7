// Package installer implements the Installer Pipeline: a
// per-app state machine driving Download, Verify, Unpack, Clone,
// PostSetup, WriteManifest, with progress streamed to the Progress Bus.
//
// Every stage follows the same shape: shell out, scan stdout, report
// progress, and fail fast with a typed error so the caller can branch on
// cause without string-matching messages.
package installer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modelstation/internal/bus"
	"modelstation/internal/config"
	"modelstation/internal/jsonutil"
	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

// FailureNotifier receives a one-line alert when an install fails. The
// Telegram notifier implements this; callers that don't want alerting
// leave Installer.Notifier nil.
type FailureNotifier interface {
	NotifyInstallFailed(appID, message string)
}

// Installer drives the install state machine for one or many apps. It is
// stateless between calls except for the durable InstallStatus file; all
// per-run state lives on the stack of Install.
type Installer struct {
	Notifier FailureNotifier

	logger           *log.Logger
	bus              *bus.Bus
	configStore      *config.Store
	statusPath       string
	debugKeepArchive bool
	workdir          string // base directory for downloaded archives
}

// New builds an Installer. statusPath defaults to /tmp/install_status.json
//
func New(logger *log.Logger, b *bus.Bus, cfgStore *config.Store) *Installer {
	if logger == nil {
		logger = log.New(log.Writer(), "installer ", log.LstdFlags|log.LUTC)
	}
	return &Installer{
		logger:      logger,
		bus:         b,
		configStore: cfgStore,
		statusPath:  "/tmp/install_status.json",
		workdir:     "/workspace",
	}
}

// statusFile is the persisted shape of /tmp/install_status.json.
type statusFile map[string]model.InstallStatus

func (in *Installer) readStatus() statusFile {
	var sf statusFile
	if err := jsonutil.ReadFile(in.statusPath, &sf); err != nil {
		return statusFile{}
	}
	return sf
}

func (in *Installer) writeStatus(appID string, st model.InstallStatus) {
	sf := in.readStatus()
	if sf == nil {
		sf = statusFile{}
	}
	sf[appID] = st
	_ = jsonutil.WriteFile(in.statusPath, sf, 0o644)
}

// Options carries the per-install-request inputs from the HTTP surface.
type Options struct {
	AppID      string
	VenvVersion string // optional; falls back to AppConfig.VenvVersionDefault
}

// Install runs the full state machine for one app and returns nil on
// success or the error that stopped it. Any failure aborts the run, publishes install_complete
// with status=error, and persists InstallStatus{failed}.
func (in *Installer) Install(ctx context.Context, opts Options) error {
	reg, err := in.configStore.Load()
	if err != nil {
		return in.fail(opts.AppID, model.StageIdle, modelerr.Wrap(modelerr.FilesystemError, "load_config", err, "failed to load app config"))
	}
	app, ok := reg.Apps[opts.AppID]
	if !ok {
		return in.fail(opts.AppID, model.StageIdle, modelerr.New(modelerr.UnknownApp, "resolve_app", "app %q is not registered", opts.AppID))
	}

	version := opts.VenvVersion
	if version == "" {
		version = app.VenvVersionDefault
	}
	venv, ok := app.FindVenv(version)
	if !ok {
		return in.fail(opts.AppID, model.StageIdle, modelerr.New(modelerr.VersionNotAvailable, "resolve_venv", "version %q is not available for app %q", version, opts.AppID))
	}
	venv.DownloadURL = resolveDownloadURL(venv.DownloadURL, reg.Common.BaseDownloadURL)

	in.writeStatus(app.ID, model.InstallStatus{Status: model.PhaseInProgress, Progress: 0, Stage: string(model.StageIdle)})

	if reused, err := in.tryReuseShortcut(ctx, app, venv, reg.Common); err != nil {
		return in.fail(app.ID, model.StageCloning, err)
	} else if reused {
		return nil
	}

	archivePath := filepath.Join(in.workdir, filepath.Base(venv.DownloadURL))

	if err := in.runDownload(ctx, app, venv, archivePath); err != nil {
		return in.fail(app.ID, model.StageDownloading, err)
	}
	if err := in.runVerify(ctx, app, venv, archivePath); err != nil {
		return in.fail(app.ID, model.StageVerifying, err)
	}
	if err := in.runUnpack(ctx, app, venv, archivePath, reg.Common); err != nil {
		return in.fail(app.ID, model.StageUnpacking, err)
	}
	if err := in.runClone(ctx, app, venv, reg.Common); err != nil {
		return in.fail(app.ID, model.StageCloning, err)
	}
	if warn := in.runPostSetup(ctx, app, venv); warn != nil {
		in.publishLog(app.ID, "post-setup warning: "+warn.Error())
	}
	if err := in.writeManifest(app, venv, time.Now().UTC(), time.Now().UTC()); err != nil {
		return in.fail(app.ID, model.StageWritingManifest, err)
	}

	in.writeStatus(app.ID, model.InstallStatus{Status: model.PhaseCompleted, Progress: 100, Stage: string(model.StageCompleted)})
	in.publishComplete(app.ID, "success", "install completed")
	return nil
}

func (in *Installer) tryReuseShortcut(ctx context.Context, app model.AppConfig, venv model.AvailableVenv, common model.CommonSettings) (bool, error) {
	manifestPath := filepath.Join(app.VenvPath, ".venv_info.json")
	if !jsonutil.Exists(manifestPath) {
		return false, nil
	}
	var existing model.InstalledVenvManifest
	if err := jsonutil.ReadFile(manifestPath, &existing); err != nil {
		return false, nil
	}
	if existing.InstalledVenvVersion != venv.Version {
		return false, nil
	}
	ok, err := VerifyFolderSize(app.VenvPath, venv.VenvUncompressedSizeKB, common.VerifyTolerancePercent)
	if err != nil || !ok {
		if common.DeleteUnverifiedVenvPath && err == nil {
			_ = os.RemoveAll(app.VenvPath)
		}
		return false, nil
	}

	if _, statErr := os.Stat(app.AppPath); statErr != nil {
		if err := in.runClone(ctx, app, venv, common); err != nil {
			return false, err
		}
	}

	if err := in.writeManifest(app, venv, existing.InstallationTime, time.Now().UTC()); err != nil {
		return false, err
	}
	in.writeStatus(app.ID, model.InstallStatus{Status: model.PhaseCompleted, Progress: 100, Stage: string(model.StageCompleted)})
	in.publishComplete(app.ID, "success", "existing, verified Virtual Environment was re-used")
	return true, nil
}

func (in *Installer) fail(appID string, stage model.InstallStage, err error) error {
	in.writeStatus(appID, model.InstallStatus{Status: model.PhaseFailed, Progress: 0, Stage: string(stage)})
	message := err.Error()
	in.publishLog(appID, "FAILED at "+string(stage)+": "+message)
	in.publishComplete(appID, "error", message)
	if in.Notifier != nil {
		in.Notifier.NotifyInstallFailed(appID, message)
	}
	return err
}

func (in *Installer) publishLog(appID, line string) {
	if in.bus != nil {
		in.bus.PublishInstallLog(appID, line)
	}
}

func (in *Installer) publishComplete(appID, status, message string) {
	if in.bus != nil {
		in.bus.PublishInstallComplete(appID, status, message)
	}
}

func (in *Installer) publishProgress(p bus.InstallProgress) {
	if in.bus != nil {
		in.bus.PublishInstallProgress(p.AppName, p)
	}
}

// resolveDownloadURL joins a relative download URL with the common base,
// leaving absolute URLs (containing "://") untouched.
func resolveDownloadURL(raw, base string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	base = strings.TrimSuffix(base, "/")
	raw = strings.TrimPrefix(raw, "/")
	return fmt.Sprintf("%s/%s", base, raw)
}
