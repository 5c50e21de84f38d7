package installer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

// runPostSetup applies app-specific patches (e.g. substituting a branch
// token in a setup script) and, for apps whose AppKind.NeedsLocalVenvSymlink
// is set, creates a compatibility symlink from a subfolder of app_path to
// venv_path. Failures here are non-fatal PostSetupWarning.
func (in *Installer) runPostSetup(ctx context.Context, app model.AppConfig, venv model.AvailableVenv) error {
	if err := in.runBashTemplate(ctx, app, "patch-setup-script"); err != nil {
		return modelerr.Wrap(modelerr.PostSetupWarning, "post_setup", err, "setup script patch failed for %s", app.ID)
	}

	if app.Kind.NeedsSetupScriptPatch && venv.BranchName != "" {
		scriptPath := filepath.Join(app.AppPath, "setup.sh")
		if _, err := os.Stat(scriptPath); err == nil {
			if err := patchBranchToken(scriptPath, "{{BRANCH}}", venv.BranchName); err != nil {
				return modelerr.Wrap(modelerr.PostSetupWarning, "post_setup", err, "branch token patch failed for %s", app.ID)
			}
		}
	}

	if app.Kind.NeedsLocalVenvSymlink {
		localVenv := filepath.Join(app.AppPath, "venv")
		if _, err := os.Lstat(localVenv); err == nil {
			return nil
		}
		if err := os.Symlink(app.VenvPath, localVenv); err != nil {
			return modelerr.Wrap(modelerr.PostSetupWarning, "post_setup", err, "could not create compatibility venv symlink for %s", app.ID)
		}
	}

	return nil
}

// patchBranchToken substitutes a branch-name placeholder in a setup script,
// a small string-replace that runPostSetup applies to app_path/setup.sh for
// apps whose AppKind.NeedsSetupScriptPatch is set.
func patchBranchToken(scriptPath, placeholder, branch string) error {
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return err
	}
	patched := strings.ReplaceAll(string(data), placeholder, branch)
	return os.WriteFile(scriptPath, []byte(patched), 0o755)
}
