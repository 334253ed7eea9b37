// Package assembly implements the assembly-summary manifest workflow:
// cached manifest refresh, typed row parsing, accession filtering, file
// selection, bulk download, checksum verification, and extraction.
package assembly

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Manifest column names this package relies on. All other columns are kept
// in the row's field map untyped.
const (
	colAccession = "assembly_accession"
	colOrganism  = "organism_name"
	colFTPPath   = "ftp_path"
)

// maxLineSize bounds a single manifest line. Summary rows carry long
// organism and infraspecific names but stay far below this.
const maxLineSize = 1024 * 1024

// Header describes the two-line manifest preamble.
type Header struct {
	// Comment is the first line (a README pointer), kept verbatim.
	Comment string

	// Columns is the tab-split column sequence from the second line,
	// stripped of its leading "#" marker.
	Columns []string
}

// Row is one parsed manifest data row.
type Row struct {
	// Accession is the assembly_accession column (row key).
	Accession string

	// OrganismName is the organism_name column.
	OrganismName string

	// FTPPath is the ftp_path column; may be "na" for suppressed assemblies.
	FTPPath string

	// Fields maps every column name to its value for this row.
	Fields map[string]string

	// Raw is the unmodified input line (list mode prints rows verbatim).
	Raw string

	// Line is the 1-based line number in the manifest, for error messages.
	Line int
}

// Reader streams a manifest: header first, then data rows in file order.
type Reader struct {
	Header  Header
	scanner *bufio.Scanner
	line    int
}

// NewReader parses the manifest header and returns a Reader positioned at
// the first data row.
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		return nil, fmt.Errorf("manifest is empty")
	}
	comment := scanner.Text()

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		return nil, fmt.Errorf("manifest is missing the column header line")
	}
	headerLine := strings.TrimPrefix(strings.TrimPrefix(scanner.Text(), "#"), " ")
	columns := strings.Split(headerLine, "\t")
	if len(columns) < 2 {
		return nil, fmt.Errorf("manifest column header is malformed: %q", scanner.Text())
	}

	return &Reader{
		Header:  Header{Comment: comment, Columns: columns},
		scanner: scanner,
		line:    2,
	}, nil
}

// Next returns the next data row. The second return value is false once the
// manifest is exhausted. A row whose column count does not match the header
// is a data-format error, not a silent truncation.
func (r *Reader) Next() (Row, bool, error) {
	for r.scanner.Scan() {
		r.line++
		raw := r.scanner.Text()
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "#") {
			// Stray comment after the header; not a data row.
			continue
		}

		values := strings.Split(raw, "\t")
		if len(values) != len(r.Header.Columns) {
			return Row{}, false, fmt.Errorf(
				"manifest line %d: expected %d columns, got %d",
				r.line, len(r.Header.Columns), len(values))
		}

		fields := make(map[string]string, len(values))
		for i, col := range r.Header.Columns {
			fields[col] = values[i]
		}

		return Row{
			Accession:    fields[colAccession],
			OrganismName: fields[colOrganism],
			FTPPath:      fields[colFTPPath],
			Fields:       fields,
			Raw:          raw,
			Line:         r.line,
		}, true, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Row{}, false, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Row{}, false, nil
}

// TargetDirName derives the local directory name for a row: the accession,
// or the organism name (spaces and path separators as underscores) prefixed
// to it when namePrefix is set.
func TargetDirName(row Row, namePrefix bool) string {
	if !namePrefix || row.OrganismName == "" {
		return row.Accession
	}
	name := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(row.OrganismName)
	return name + "_" + row.Accession
}

// NormalizeFTPPath rewrites a manifest ftp_path for HTTPS access. The empty
// string is returned for rows without a usable path ("na" for suppressed
// assemblies).
func NormalizeFTPPath(p string) string {
	p = strings.TrimSuffix(strings.TrimSpace(p), "/")
	if p == "" || p == "na" {
		return ""
	}
	if rest, ok := strings.CutPrefix(p, "ftp://"); ok {
		return "https://" + rest
	}
	return p
}
