// Package extract expands gzip-compressed downloads in place.
package extract

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExpandFile decompresses a .gz file next to itself (name minus the .gz
// suffix) and removes the archive on success. Output is written to a
// temporary file first so a failed expansion leaves neither a partial
// output nor a missing archive.
func ExpandFile(path string) error {
	if !strings.HasSuffix(path, ".gz") {
		return fmt.Errorf("not a gzip archive: %s", path)
	}
	dest := strings.TrimSuffix(path, ".gz")

	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("%s is not valid gzip data: %w", path, err)
	}
	defer zr.Close()

	tmp := dest + ".extract-tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	_, err = io.Copy(out, zr)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to expand %s: %w", path, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	return os.Remove(path)
}

// ExpandDir expands every .gz file directly inside dir, returning the
// number of archives expanded. Files whose expanded form already exists
// and whose archive is gone are naturally skipped (nothing matches *.gz).
func ExpandDir(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.gz"))
	if err != nil {
		return 0, err
	}

	expanded := 0
	for _, path := range matches {
		if err := ExpandFile(path); err != nil {
			return expanded, err
		}
		expanded++
	}
	return expanded, nil
}
