package assembly

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Set is an accession filter set. A nil Set means no filtering.
type Set map[string]struct{}

// Contains reports whether accession is in the set.
func (s Set) Contains(accession string) bool {
	_, ok := s[accession]
	return ok
}

// LoadSet reads accessions from r, one per line, taking the first
// whitespace-delimited token of each non-blank line. The second return
// value counts duplicate entries (they do not otherwise affect behavior).
func LoadSet(r io.Reader) (Set, int, error) {
	set := make(Set)
	duplicates := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		accession := fields[0]
		if _, ok := set[accession]; ok {
			duplicates++
			continue
		}
		set[accession] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read accession list: %w", err)
	}

	return set, duplicates, nil
}

// LoadSetFile loads an accession set from a file path, or from stdin when
// path is "-".
func LoadSetFile(path string) (Set, int, error) {
	if path == "-" {
		return LoadSet(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open accession list: %w", err)
	}
	defer f.Close()
	return LoadSet(f)
}
