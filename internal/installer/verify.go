package installer

import (
	"context"
	"os"

	"modelstation/internal/bus"
	"modelstation/internal/hashutil"
	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

// runVerify streams the archive through SHA-256 and compares it against
// the manifest's hash. On mismatch the archive is deleted so a retry
// starts clean rather than resuming from corrupt bytes.
func (in *Installer) runVerify(_ context.Context, app model.AppConfig, venv model.AvailableVenv, archivePath string) error {
	if venv.SHA256Hash == "" {
		in.publishProgress(bus.InstallProgress{AppName: app.ID, Percentage: 100, Stage: string(model.StageVerifying)})
		return nil
	}

	computed, err := hashutil.SHA256File(archivePath)
	if err != nil {
		return modelerr.Wrap(modelerr.FilesystemError, "verify", err, "could not hash archive")
	}

	if !hashutil.EqualHash(computed, venv.SHA256Hash) {
		_ = os.Remove(archivePath)
		return modelerr.New(modelerr.IntegrityFailed, "verify",
			"downloaded archive hash %s does not match manifest hash %s; file was deleted",
			computed, venv.SHA256Hash)
	}

	in.publishProgress(bus.InstallProgress{AppName: app.ID, Percentage: 100, Stage: string(model.StageVerifying)})
	return nil
}
