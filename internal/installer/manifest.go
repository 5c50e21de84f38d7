package installer

import (
	"path/filepath"
	"time"

	"modelstation/internal/jsonutil"
	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

// writeManifest writes VENV/.venv_info.json with the resolved
// AvailableVenv and installation/refresh timestamps.
func (in *Installer) writeManifest(app model.AppConfig, venv model.AvailableVenv, installedAt, refreshedAt time.Time) error {
	manifest := model.InstalledVenvManifest{
		InstalledVenvVersion: venv.Version,
		InstallationTime:     installedAt,
		RefreshTime:          refreshedAt,
		Venv:                 venv,
	}
	path := filepath.Join(app.VenvPath, ".venv_info.json")
	if err := jsonutil.WriteFile(path, manifest, 0o644); err != nil {
		return modelerr.Wrap(modelerr.FilesystemError, "write_manifest", err, "could not write venv manifest")
	}
	return nil
}
