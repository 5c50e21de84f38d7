package installer

import (
	"io/fs"
	"path/filepath"
)

// FolderSizeKB measures a directory's size in kilobyte granularity by
// summing apparent file sizes and truncating to whole KiB; unlike `du -sk`
// it does not count allocated disk blocks.
// This is a portable stand-in for shelling out to `du`, which original
// installers lean on but which isn't guaranteed present in every runtime.
func FolderSizeKB(root string) (int64, error) {
	var totalBytes int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		totalBytes += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return totalBytes / 1024, nil
}

// VerifyFolderSize reports whether a folder's measured size, inflated by
// tolerancePercent, meets or exceeds expectedKB:
// current_kb * (100+tolerance)/100 >= expected_kb.
func VerifyFolderSize(root string, expectedKB int64, tolerancePercent int) (bool, error) {
	if expectedKB <= 0 {
		return true, nil
	}
	currentKB, err := FolderSizeKB(root)
	if err != nil {
		return false, err
	}
	adjusted := currentKB * int64(100+tolerancePercent) / 100
	return adjusted >= expectedKB, nil
}
