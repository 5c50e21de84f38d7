// Package model holds the shared data types for modelstation: app
// configuration, installable environments, running-process bookkeeping,
// and the three declarative mappings the reconciler consumes.
package model

import "time"

// AppKind captures the per-app behavioral differences the original source
// special-cased by id (e.g. "is this the ComfyUI-equivalent app"). Carrying
// it as a capability set instead of string comparisons keeps the installer
// and supervisor free of app-specific branching.
type AppKind struct {
	HasCustomNodes        bool
	NeedsLocalVenvSymlink bool
	NeedsSetupScriptPatch bool
	LaunchURLDiscovery    LaunchURLMode
}

// LaunchURLMode selects how the supervisor discovers an app's public URL
// from its stdout.
type LaunchURLMode int

const (
	LaunchURLNone LaunchURLMode = iota
	LaunchURLGradioShare
	LaunchURLLoopback
)

// CustomNode describes one optional plugin for the app whose AppKind.HasCustomNodes is true.
type CustomNode struct {
	Name                 string `json:"name"`
	Path                 string `json:"path"`
	RepoURL              string `json:"repo_url"`
	VenvVersion          string `json:"venv_version"`
	InstallRequirements  bool   `json:"install_requirements_txt"`
	CloneRecursive       bool   `json:"clone_recursive"`
}

// AvailableVenv is one selectable, downloadable pre-built environment for an app.
type AvailableVenv struct {
	Version                string `json:"version"`
	BranchName             string `json:"branch_name,omitempty"`
	CommitID               string `json:"commit_id,omitempty"`
	CloneRecursive         bool   `json:"clone_recursive"`
	DownloadURL            string `json:"download_url"`
	ArchiveSizeBytes       int64  `json:"archive_size_bytes"`
	VenvUncompressedSizeKB int64  `json:"venv_uncompressed_size_kb"`
	MinimumAppSizeKB       int64  `json:"minimum_app_size_kb"`
	SHA256Hash             string `json:"sha256_hash,omitempty"`
	BuildInfo              string `json:"build_info,omitempty"`
	Notes                  string `json:"notes,omitempty"`
}

// AppConfig is one managed application.
type AppConfig struct {
	ID                string            `json:"id"`
	DisplayName       string            `json:"display_name"`
	Port              int               `json:"port"`
	Command           string            `json:"command"`
	AppPath           string            `json:"app_path"`
	VenvPath          string            `json:"venv_path"`
	RepoURL           string            `json:"repo_url"`
	AllowRefresh      bool              `json:"allow_refresh"`
	VenvVersionDefault string           `json:"venv_version_default"`
	AvailableVenvs    []AvailableVenv   `json:"available_venvs"`
	CustomNodes       []CustomNode      `json:"custom_nodes,omitempty"`
	BashCmds          map[string]string `json:"bash_cmds,omitempty"`
	Kind              AppKind           `json:"-"`
}

// FindVenv returns the AvailableVenv tagged with the given version, if any.
func (a AppConfig) FindVenv(version string) (AvailableVenv, bool) {
	for _, v := range a.AvailableVenvs {
		if v.Version == version {
			return v, true
		}
	}
	return AvailableVenv{}, false
}

// CommonSettings holds cross-app installer defaults.
type CommonSettings struct {
	BaseDownloadURL          string `json:"base_download_url"`
	VerifyAppSize            bool   `json:"verify_app_size"`
	VerifyVenvSize           bool   `json:"verify_venv_size"`
	DeleteUnverifiedAppPath  bool   `json:"delete_unverified_app_path"`
	DeleteUnverifiedVenvPath bool   `json:"delete_unverified_venv_path"`
	VerifyTolerancePercent   int    `json:"verify_tolerance_percent"`
}

// InstalledVenvManifest is written into VENV/.venv_info.json on success.
type InstalledVenvManifest struct {
	InstalledVenvVersion string        `json:"installed_venv_version"`
	InstallationTime     time.Time     `json:"installation_time"`
	RefreshTime          time.Time     `json:"refresh_time"`
	Venv                 AvailableVenv `json:"venv"`
}

// ProcessStatus is the lifecycle state of a supervised process.
type ProcessStatus string

const (
	ProcessRunning ProcessStatus = "running"
	ProcessStopped ProcessStatus = "stopped"
)

// InstallStage names a step of the installer state machine.
type InstallStage string

const (
	StageIdle            InstallStage = "idle"
	StageDownloading     InstallStage = "downloading"
	StageVerifying       InstallStage = "verifying"
	StageUnpacking       InstallStage = "unpacking"
	StageCloning         InstallStage = "cloning"
	StagePostSetup       InstallStage = "post_setup"
	StageWritingManifest InstallStage = "writing_manifest"
	StageCompleted       InstallStage = "completed"
	StageFailed          InstallStage = "failed"
)

// InstallPhase is the coarse status persisted in InstallStatus.
type InstallPhase string

const (
	PhaseNotStarted InstallPhase = "not_started"
	PhaseInProgress InstallPhase = "in_progress"
	PhaseCompleted  InstallPhase = "completed"
	PhaseFailed     InstallPhase = "failed"
)

// InstallStatus is the durable, per-app install record at /tmp/install_status.json.
type InstallStatus struct {
	Status   InstallPhase `json:"status"`
	Progress int          `json:"progress"`
	Stage    string       `json:"stage"`
}

// SharedModelFolders maps model_type -> human description. A model_type
// ending in "/*" denotes a folder-symlink rule.
type SharedModelFolders map[string]string

// AppInstallDirs maps app_name -> absolute install dir (managed apps and
// user-declared CUSTOM apps alike).
type AppInstallDirs map[string]string

// SharedModelAppMap maps model_type -> app_name -> app-relative destination path.
type SharedModelAppMap map[string]map[string]string
