// Package hashutil provides the streaming SHA-256 and byte-size formatting
// helpers the installer uses to verify downloaded archives against a
// manifest-declared digest.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

const blockSize = 4096

// SHA256File streams the file at path through SHA-256 in 4 KiB blocks and
// returns the lowercase hex digest.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// EqualHash compares two hex digests case-insensitively.
func EqualHash(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// HumanBytes formats a byte count with binary units (e.g. "1.3 GiB",
// "512.0 KiB"). The installer's download progress events do not use it and
// leave their "downloaded" field empty.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	units := "KMGTPE"
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), units[exp])
}
