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

// pvProgress matches pv's default progress line, e.g.:
// "512MiB 0:00:12 [42.3MiB/s] [================>     ]  60%"
var pvProgress = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)(B|KiB|MiB|GiB)\s+(\d+:\d+:\d+)\s+\[([\d.]+\S*)/s\]`)

// runUnpack decompresses the archive via a pigz | pv | tar pipeline so
// decompression runs in parallel and progress is observable, falling back
// to a plain tar when pigz/pv are unavailable.
func (in *Installer) runUnpack(ctx context.Context, app model.AppConfig, venv model.AvailableVenv, archivePath string, common model.CommonSettings) error {
	if err := os.MkdirAll(app.VenvPath, 0o755); err != nil {
		return modelerr.Wrap(modelerr.FilesystemError, "unpack", err, "could not create venv dir")
	}

	if hasPigzAndPV() {
		if err := in.unpackWithPigzPV(ctx, app, venv, archivePath, common); err != nil {
			return err
		}
	} else {
		if err := in.unpackWithPlainTar(ctx, app, archivePath); err != nil {
			return err
		}
		if common.VerifyVenvSize {
			ok, err := VerifyFolderSize(app.VenvPath, venv.VenvUncompressedSizeKB, common.VerifyTolerancePercent)
			if err == nil && !ok {
				if common.DeleteUnverifiedVenvPath {
					_ = os.RemoveAll(app.VenvPath)
				}
				return modelerr.New(modelerr.SizeVerificationFailed, "unpack", "unpacked venv size is below the expected minimum")
			}
		}
	}

	if !in.debugKeepArchive {
		_ = os.Remove(archivePath)
	}
	return nil
}

func hasPigzAndPV() bool {
	_, pigzErr := exec.LookPath("pigz")
	_, pvErr := exec.LookPath("pv")
	return pigzErr == nil && pvErr == nil
}

func (in *Installer) unpackWithPigzPV(ctx context.Context, app model.AppConfig, venv model.AvailableVenv, archivePath string, common model.CommonSettings) error {
	pigzCmd := exec.CommandContext(ctx, "pigz", "-dc", archivePath)
	pvCmd := exec.CommandContext(ctx, "pv", "--force")
	tarCmd := exec.CommandContext(ctx, "tar", "xf", "-")
	tarCmd.Dir = app.VenvPath

	pigzOut, err := pigzCmd.StdoutPipe()
	if err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "could not attach to pigz stdout")
	}
	pvCmd.Stdin = pigzOut

	pvOut, err := pvCmd.StdoutPipe()
	if err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "could not attach to pv stdout")
	}
	pvErr, err := pvCmd.StderrPipe()
	if err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "could not attach to pv stderr")
	}
	tarCmd.Stdin = pvOut

	if err := pigzCmd.Start(); err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "could not start pigz")
	}
	if err := pvCmd.Start(); err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "could not start pv")
	}
	if err := tarCmd.Start(); err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "could not start tar")
	}

	uncompressedBytes := venv.VenvUncompressedSizeKB * 1024
	scanner := bufio.NewScanner(pvErr)
	scanner.Split(scanLinesOrCR)
	for scanner.Scan() {
		line := scanner.Text()
		if m := pvProgress.FindStringSubmatch(line); m != nil {
			seen, _ := strconv.ParseFloat(m[1], 64)
			seenBytes := seen * unitMultiplier(m[2])
			pct := 0.0
			if uncompressedBytes > 0 {
				pct = minFloat(100, seenBytes/float64(uncompressedBytes)*100)
			}
			in.publishProgress(bus.InstallProgress{
				AppName:    app.ID,
				Percentage: pct,
				Stage:      string(model.StageUnpacking),
				Speed:      m[4],
			})
		}
	}

	if err := pigzCmd.Wait(); err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "pigz exited non-zero")
	}
	if err := pvCmd.Wait(); err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "pv exited non-zero")
	}
	if err := tarCmd.Wait(); err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "tar exited non-zero")
	}

	if !common.VerifyVenvSize {
		return nil
	}
	ok, err := VerifyFolderSize(app.VenvPath, venv.VenvUncompressedSizeKB, common.VerifyTolerancePercent)
	if err == nil && !ok {
		if common.DeleteUnverifiedVenvPath {
			_ = os.RemoveAll(app.VenvPath)
		}
		return modelerr.New(modelerr.SizeVerificationFailed, "unpack", "unpacked venv size is below the expected minimum")
	}
	return nil
}

func (in *Installer) unpackWithPlainTar(ctx context.Context, app model.AppConfig, archivePath string) error {
	cmd := exec.CommandContext(ctx, "tar", "-xzf", archivePath, "-C", app.VenvPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return modelerr.Wrap(modelerr.UnpackFailed, "unpack", err, "tar -xzf failed: %s", string(out))
	}
	in.publishProgress(bus.InstallProgress{AppName: app.ID, Percentage: 100, Stage: string(model.StageUnpacking)})
	return nil
}

func unitMultiplier(unit string) float64 {
	switch unit {
	case "B":
		return 1
	case "KiB":
		return 1024
	case "MiB":
		return 1024 * 1024
	case "GiB":
		return 1024 * 1024 * 1024
	default:
		return 1
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// scanLinesOrCR splits on either '\n' or '\r', since pv rewrites its
// progress line in place using carriage returns rather than newlines.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
