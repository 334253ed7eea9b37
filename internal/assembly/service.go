package assembly

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncbitools/ncbifetch/internal/extract"
	"github.com/ncbitools/ncbifetch/internal/logging"
	"github.com/ncbitools/ncbifetch/internal/progress"
	"github.com/ncbitools/ncbifetch/internal/transfer"
)

// Service runs list and get operations over an already-fresh manifest.
// Transfers go through the injected Fetcher so tests (and the S3 mirror)
// can substitute the transport.
type Service struct {
	fetch transfer.Fetcher
	log   *logging.Logger
}

// NewService creates a Service.
func NewService(fetch transfer.Fetcher, log *logging.Logger) *Service {
	return &Service{fetch: fetch, log: log}
}

// ListOptions adjust List output.
type ListOptions struct {
	// Set filters rows by accession; ignored when All is set.
	Set Set

	// All disables filtering.
	All bool

	// ShowHeader prints the column-name header before the rows.
	ShowHeader bool
}

// List streams matching manifest rows to w, verbatim and in manifest order.
func (s *Service) List(r io.Reader, w io.Writer, opts ListOptions) error {
	reader, err := NewReader(r)
	if err != nil {
		return err
	}

	if opts.ShowHeader {
		if _, err := fmt.Fprintln(w, strings.Join(reader.Header.Columns, "\t")); err != nil {
			return err
		}
	}

	for {
		row, ok, err := reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !opts.All && !opts.Set.Contains(row.Accession) {
			continue
		}
		if _, err := fmt.Fprintln(w, row.Raw); err != nil {
			return err
		}
	}
}

// GetOptions adjust a bulk download run.
type GetOptions struct {
	// Set filters rows by accession; ignored when All is set.
	Set Set

	// All downloads every manifest row.
	All bool

	// Policy selects which files of each assembly directory to transfer.
	Policy SelectionPolicy

	// OutDir is the parent of the per-assembly directories.
	OutDir string

	// NamePrefix prepends the organism name to each directory name.
	NamePrefix bool

	// CheckMD5 verifies downloaded files against md5checksums.txt.
	// A mismatch aborts the whole run.
	CheckMD5 bool

	// Extract expands .gz files in each directory after (optional)
	// verification.
	Extract bool

	// FailFast aborts the run on the first row whose transfer fails.
	// The default keeps going and reports failed rows at the end.
	FailFast bool

	// NewReporter supplies a progress reporter per file transfer.
	// Nil means silent transfers.
	NewReporter func() progress.Reporter
}

// Stats summarizes a Get run.
type Stats struct {
	Matched    int // manifest rows selected by the filter
	Downloaded int // files transferred
	Skipped    int // files kept (up-to-date local copies)
	FailedRows int // rows abandoned due to transfer errors
	Verified   int // files that passed checksum verification
	Extracted  int // archives expanded
}

// Get walks the manifest and downloads the selected file set of every
// matching row. Checksum mismatches are fatal; per-row transfer failures
// are lenient unless FailFast is set.
func (s *Service) Get(ctx context.Context, r io.Reader, opts GetOptions) (Stats, error) {
	var stats Stats

	reader, err := NewReader(r)
	if err != nil {
		return stats, err
	}

	for {
		row, ok, err := reader.Next()
		if err != nil {
			return stats, err
		}
		if !ok {
			break
		}
		if !opts.All && !opts.Set.Contains(row.Accession) {
			continue
		}
		stats.Matched++

		if err := s.getRow(ctx, row, opts, &stats); err != nil {
			if isFatal(err) {
				return stats, err
			}
			stats.FailedRows++
			s.log.Warn().
				Str("accession", row.Accession).
				Err(err).
				Msg("Skipping assembly")
			if opts.FailFast {
				return stats, fmt.Errorf("assembly %s: %w", row.Accession, err)
			}
		}

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}

	return stats, nil
}

// fatalError marks errors that must abort the whole run even in lenient
// mode (checksum mismatches, unreadable local files).
type fatalError struct{ err error }

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

func isFatal(err error) bool {
	var fe fatalError
	return errors.As(err, &fe)
}

// getRow downloads one assembly directory, then verifies and extracts per
// the options.
func (s *Service) getRow(ctx context.Context, row Row, opts GetOptions, stats *Stats) error {
	base := NormalizeFTPPath(row.FTPPath)
	if base == "" {
		return fmt.Errorf("no download path in manifest (ftp_path is %q)", row.FTPPath)
	}

	dir := filepath.Join(opts.OutDir, TargetDirName(row, opts.NamePrefix))

	// The checksum manifest doubles as the directory listing; everything
	// NCBI publishes for an assembly is listed in it.
	data, err := s.fetch.Get(ctx, base+"/"+ChecksumFileName)
	if err != nil {
		return fmt.Errorf("failed to list assembly directory: %w", err)
	}
	entries, err := ParseChecksums(bytes.NewReader(data))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fatalError{fmt.Errorf("failed to create %s: %w", dir, err)}
	}
	if err := os.WriteFile(filepath.Join(dir, ChecksumFileName), data, 0644); err != nil {
		return fatalError{fmt.Errorf("failed to write %s: %w", ChecksumFileName, err)}
	}

	selected := make([]ChecksumEntry, 0, len(entries))
	for _, entry := range entries {
		if opts.Policy.Selects(path.Base(entry.Name)) {
			selected = append(selected, entry)
		}
	}
	if len(selected) == 0 {
		s.log.Warn().
			Str("accession", row.Accession).
			Msg("No files in the assembly directory match the selection")
	}

	for _, entry := range selected {
		var reporter progress.Reporter
		if opts.NewReporter != nil {
			reporter = opts.NewReporter()
		}

		res, err := s.fetch.FetchFile(ctx,
			base+"/"+entry.Name,
			filepath.Join(dir, path.Base(entry.Name)),
			transfer.Options{IfNewer: true, Reporter: reporter})
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", entry.Name, err)
		}

		switch res.Status {
		case transfer.StatusDownloaded:
			stats.Downloaded++
			s.log.Debugf("downloaded %s (%d bytes in %s)", entry.Name, res.Bytes, res.Duration.Round(time.Millisecond))
		case transfer.StatusSkipped:
			stats.Skipped++
			s.log.Debugf("up to date: %s", entry.Name)
		}
	}

	if opts.CheckMD5 {
		verified, skipped, err := VerifyDir(dir, entries, s.log)
		if err != nil {
			return fatalError{err}
		}
		stats.Verified += verified
		s.log.Debugf("verified %d files in %s (%d not present)", verified, dir, skipped)
	}

	if opts.Extract {
		expanded, err := extract.ExpandDir(dir)
		stats.Extracted += expanded
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}
	}

	return nil
}
