package installer

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"

	"modelstation/internal/bus"
	"modelstation/internal/model"
	"modelstation/internal/modelerr"
)

// aria2Progress matches a line like:
// [#1a2b3c 12MiB/100MiB(12%) CN:16 DL:3.2MiB ETA:26s]
var aria2Progress = regexp.MustCompile(`\[#\S+\s+\S+/\S+\((\d+)%\)\s+CN:\d+\s+DL:(\S+)\s+ETA:(\S+)\]`)

// runDownload invokes aria2c with 16 connections / 16-way split, parses
// its summary lines, and emits install_progress. If the archive already
// exists at destPath, the stage is skipped entirely.
func (in *Installer) runDownload(ctx context.Context, app model.AppConfig, venv model.AvailableVenv, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		in.publishProgress(bus.InstallProgress{AppName: app.ID, Percentage: 100, Stage: string(model.StageDownloading)})
		return nil
	}

	if err := os.MkdirAll(in.workdir, 0o755); err != nil {
		return modelerr.Wrap(modelerr.FilesystemError, "download", err, "could not create workspace dir")
	}

	cmd := exec.CommandContext(ctx, "aria2c",
		"--max-connection-per-server=16",
		"--max-concurrent-downloads=16",
		"--split=16",
		"--summary-interval=1",
		venv.DownloadURL,
		"--dir="+in.workdir,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return modelerr.Wrap(modelerr.DownloadFailed, "download", err, "could not attach to aria2c stdout")
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return modelerr.Wrap(modelerr.DownloadFailed, "download", err, "could not start aria2c")
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := aria2Progress.FindStringSubmatch(line); m != nil {
			pct, _ := strconv.ParseFloat(m[1], 64)
			in.publishProgress(bus.InstallProgress{
				AppName:    app.ID,
				Percentage: pct,
				Stage:      string(model.StageDownloading),
				Speed:      m[2],
				ETA:        m[3],
			})
		}
	}

	if err := cmd.Wait(); err != nil {
		return modelerr.Wrap(modelerr.DownloadFailed, "download", err, "aria2c exited non-zero")
	}
	if _, err := os.Stat(destPath); err != nil {
		return modelerr.New(modelerr.DownloadFailed, "download", "archive missing after download: %s", destPath)
	}

	cleanupAria2SidecarFiles(destPath)
	in.publishProgress(bus.InstallProgress{AppName: app.ID, Percentage: 100, Stage: string(model.StageDownloading)})
	return nil
}

// cleanupAria2SidecarFiles removes the ".aria2" control file aria2c leaves
// behind after a completed download.
func cleanupAria2SidecarFiles(archivePath string) {
	_ = os.Remove(archivePath + ".aria2")
}
