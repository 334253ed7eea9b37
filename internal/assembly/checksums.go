package assembly

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ncbitools/ncbifetch/internal/logging"
)

// ChecksumFileName is the checksum manifest NCBI ships in every assembly
// directory. It doubles as the directory's file listing.
const ChecksumFileName = "md5checksums.txt"

// ChecksumEntry is one line of md5checksums.txt.
type ChecksumEntry struct {
	// Sum is the hex MD5 digest.
	Sum string

	// Name is the file name relative to the assembly directory, without
	// the "./" prefix the manifest uses.
	Name string
}

// ParseChecksums parses md5checksums.txt content: one `<hex md5> <name>`
// pair per line, separated by one or more spaces.
func ParseChecksums(r io.Reader) ([]ChecksumEntry, error) {
	var entries []ChecksumEntry

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("checksum manifest line %d is malformed: %q", line, text)
		}
		sum := strings.ToLower(fields[0])
		if len(sum) != md5.Size*2 {
			return nil, fmt.Errorf("checksum manifest line %d has a bad digest: %q", line, fields[0])
		}
		entries = append(entries, ChecksumEntry{
			Sum:  sum,
			Name: strings.TrimPrefix(fields[1], "./"),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checksum manifest: %w", err)
	}

	return entries, nil
}

// FileMD5 computes the hex MD5 digest of a file by streaming it.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyDir checks every entry against the local files in dir. Files that
// were not downloaded are skipped; the first mismatch or read error is
// returned and callers abort the whole run on it, since a corrupt transfer
// cannot be reconciled locally.
func VerifyDir(dir string, entries []ChecksumEntry, log *logging.Logger) (verified, skipped int, err error) {
	for _, entry := range entries {
		path := filepath.Join(dir, filepath.FromSlash(entry.Name))
		if _, statErr := os.Stat(path); statErr != nil {
			log.Debugf("checksum: %s not present locally, skipping", entry.Name)
			skipped++
			continue
		}

		sum, hashErr := FileMD5(path)
		if hashErr != nil {
			return verified, skipped, fmt.Errorf("checksum verification of %s failed: %w", entry.Name, hashErr)
		}
		if sum != entry.Sum {
			return verified, skipped, fmt.Errorf(
				"checksum mismatch for %s: manifest %s, local %s", path, entry.Sum, sum)
		}
		verified++
	}
	return verified, skipped, nil
}
