package installer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"modelstation/internal/bus"
	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

// runClone clones repo_url when app_path is absent, or refreshes it
// in-place when allow_refresh is set. Custom nodes (for
// apps with AppKind.HasCustomNodes) are handled as a sub-stage afterward.
func (in *Installer) runClone(ctx context.Context, app model.AppConfig, venv model.AvailableVenv, common model.CommonSettings) error {
	if _, err := os.Stat(app.AppPath); err != nil {
		if err := in.cloneFresh(ctx, app, venv); err != nil {
			return err
		}
	} else {
		if !app.AllowRefresh {
			in.publishProgress(bus.InstallProgress{AppName: app.ID, Percentage: 100, Stage: string(model.StageCloning)})
			return nil
		}
		if common.VerifyAppSize {
			ok, err := VerifyFolderSize(app.AppPath, venv.MinimumAppSizeKB, common.VerifyTolerancePercent)
			if err == nil && !ok && common.DeleteUnverifiedAppPath {
				_ = os.RemoveAll(app.AppPath)
				return in.cloneFresh(ctx, app, venv)
			}
		}
		if err := in.refreshExisting(ctx, app, venv); err != nil {
			return err
		}
	}

	if app.Kind.HasCustomNodes {
		in.runCustomNodes(ctx, app, venv)
	}

	in.publishProgress(bus.InstallProgress{AppName: app.ID, Percentage: 100, Stage: string(model.StageCloning)})
	return nil
}

func (in *Installer) cloneFresh(ctx context.Context, app model.AppConfig, venv model.AvailableVenv) error {
	args := []string{"clone"}
	if venv.CloneRecursive {
		args = append(args, "--recursive")
	}
	ref := checkoutRef(venv)
	if ref != "" {
		args = append(args, "--no-checkout")
	}
	args = append(args, app.RepoURL, app.AppPath)

	if err := in.runGit(ctx, app.ID, "", args...); err != nil {
		return modelerr.Wrap(modelerr.CloneFailed, "clone", err, "git clone failed")
	}
	if ref != "" {
		if err := in.runGit(ctx, app.ID, app.AppPath, "checkout", ref); err != nil {
			return modelerr.Wrap(modelerr.CloneFailed, "clone", err, "git checkout %s failed", ref)
		}
	}
	return nil
}

func (in *Installer) refreshExisting(ctx context.Context, app model.AppConfig, venv model.AvailableVenv) error {
	if err := in.runGit(ctx, app.ID, app.AppPath, "reset", "--hard"); err != nil {
		return modelerr.Wrap(modelerr.GitError, "clone", err, "git reset --hard failed")
	}
	if err := in.runGit(ctx, app.ID, app.AppPath, "pull"); err != nil {
		return modelerr.Wrap(modelerr.GitError, "clone", err, "git pull failed")
	}
	if venv.CloneRecursive {
		if err := in.runGit(ctx, app.ID, app.AppPath, "submodule", "update", "--init", "--recursive"); err != nil {
			return modelerr.Wrap(modelerr.GitError, "clone", err, "git submodule update failed")
		}
	}
	return nil
}

// checkoutRef returns the ref to explicitly check out after a
// --no-checkout clone: commit_id wins over branch_name.
func checkoutRef(venv model.AvailableVenv) string {
	if venv.CommitID != "" {
		return venv.CommitID
	}
	if venv.BranchName != "" && venv.BranchName != "main" && venv.BranchName != "master" {
		return venv.BranchName
	}
	return ""
}

func (in *Installer) runGit(ctx context.Context, appID, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			in.publishLog(appID, line)
		}
	}
	return err
}

// runCustomNodes clones or refreshes each matching CustomNode into
// app_path/custom_nodes/<path>, aggregating failures into a warning rather
// than failing the whole install.
func (in *Installer) runCustomNodes(ctx context.Context, app model.AppConfig, venv model.AvailableVenv) {
	var failures []string
	for _, node := range app.CustomNodes {
		if node.VenvVersion != "*" && node.VenvVersion != venv.Version {
			continue
		}
		dest := filepath.Join(app.AppPath, "custom_nodes", node.Path)
		if err := in.installCustomNode(ctx, app, node, dest); err != nil {
			failures = append(failures, node.Name+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		in.publishLog(app.ID, "custom node warnings: "+strings.Join(failures, "; "))
	}

	_ = in.runBashTemplate(ctx, app, "install-comfy-CLI")
	_ = in.runBashTemplate(ctx, app, "pip-clean-up")
}

func (in *Installer) installCustomNode(ctx context.Context, app model.AppConfig, node model.CustomNode, dest string) error {
	if _, err := os.Stat(dest); err != nil {
		args := []string{"clone"}
		if node.CloneRecursive {
			args = append(args, "--recursive")
		}
		args = append(args, node.RepoURL, dest)
		if err := in.runGit(ctx, app.ID, "", args...); err != nil {
			return err
		}
	} else {
		if err := in.runGit(ctx, app.ID, dest, "pull"); err != nil {
			return err
		}
	}
	if node.InstallRequirements {
		reqPath := filepath.Join(dest, "requirements.txt")
		if _, err := os.Stat(reqPath); err == nil {
			return in.runBashTemplateIn(ctx, app, "install-requirements", dest)
		}
	}
	return nil
}

// runBashTemplate runs a named bash_cmds template (app.BashCmds[name]) in
// the app's own directory. Apps with no matching template are skipped
// silently; bash_cmds is an optional per-app extension point.
func (in *Installer) runBashTemplate(ctx context.Context, app model.AppConfig, name string) error {
	return in.runBashTemplateIn(ctx, app, name, app.AppPath)
}

// RunBashTemplate exposes runBashTemplate to callers outside the package,
// for one-off maintenance actions like /fix_custom_nodes that run a single
// named template without going through the full install state machine.
func (in *Installer) RunBashTemplate(ctx context.Context, app model.AppConfig, name string) error {
	return in.runBashTemplate(ctx, app, name)
}

func (in *Installer) runBashTemplateIn(ctx context.Context, app model.AppConfig, name, dir string) error {
	template, ok := app.BashCmds[name]
	if !ok || template == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, "/bin/bash", "-c", template)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		in.publishLog(app.ID, string(out))
	}
	return err
}
