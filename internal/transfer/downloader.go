// Package transfer implements HTTP file downloads with retries, structured
// results, and timestamp-based skipping. Every transfer produces a Result
// value so callers decide failure policy without parsing tool output.
package transfer

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ncbitools/ncbifetch/internal/config"
	"github.com/ncbitools/ncbifetch/internal/constants"
	"github.com/ncbitools/ncbifetch/internal/httpx"
	"github.com/ncbitools/ncbifetch/internal/logging"
	"github.com/ncbitools/ncbifetch/internal/progress"
	"github.com/ncbitools/ncbifetch/internal/version"
)

// Status classifies the outcome of a single transfer.
type Status int

const (
	// StatusDownloaded - the file was transferred and renamed into place
	StatusDownloaded Status = iota
	// StatusSkipped - an up-to-date local copy was kept (timestamp skip)
	StatusSkipped
	// StatusFailed - the transfer failed; no destination file was written
	StatusFailed
)

// String returns a short lower-case name for the status.
func (s Status) String() string {
	switch s {
	case StatusDownloaded:
		return "downloaded"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one completed (or failed) transfer.
type Result struct {
	Status   Status
	Path     string
	Bytes    int64
	Duration time.Duration
}

// Options adjust a single FetchFile call.
type Options struct {
	// IfNewer skips the download when the local file has the same size and
	// is not older than the remote Last-Modified timestamp.
	IfNewer bool

	// Reporter receives byte-level progress. Nil means silent.
	Reporter progress.Reporter
}

// Fetcher is the transfer contract the assembly downloader depends on.
// Tests and the S3 mirror provide alternative implementations.
type Fetcher interface {
	// FetchFile downloads url to dest, creating parent directories.
	FetchFile(ctx context.Context, url, dest string, opts Options) (Result, error)

	// Get retrieves a small resource (accession list, checksum manifest)
	// into memory.
	Get(ctx context.Context, url string) ([]byte, error)
}

// retryLogger adapts our logger to the retryablehttp.LeveledLogger interface.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Interface("detail", keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Interface("detail", keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Retry chatter is debug-level noise for a CLI.
	l.log.Debug().Interface("detail", keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Interface("detail", keysAndValues).Msg(msg)
}

// Downloader is the HTTPS implementation of Fetcher.
type Downloader struct {
	client    *nethttp.Client
	log       *logging.Logger
	userAgent string
}

var _ Fetcher = (*Downloader)(nil)

// NewDownloader creates a Downloader with proxy support and retrying
// transport per the configuration.
func NewDownloader(cfg *config.Config, log *logging.Logger) (*Downloader, error) {
	base, err := httpx.NewTransferClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = constants.TransferRetryMax
	retryClient.RetryWaitMin = constants.TransferRetryWaitMin
	retryClient.RetryWaitMax = constants.TransferRetryWaitMax
	retryClient.Logger = &retryLogger{log: log}

	return &Downloader{
		client:    retryClient.StandardClient(),
		log:       log,
		userAgent: version.UserAgent(),
	}, nil
}

// NewDownloaderWithClient creates a Downloader over an existing HTTP client.
// Used by tests to point at httptest servers without retry delays.
func NewDownloaderWithClient(client *nethttp.Client, log *logging.Logger) *Downloader {
	return &Downloader{
		client:    client,
		log:       log,
		userAgent: version.UserAgent(),
	}
}

// Get retrieves a small resource into memory.
func (d *Downloader) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// FetchFile downloads url to dest. The body is written to a uniquely named
// partial file and renamed into place on success, so a failed transfer never
// leaves a destination file behind.
func (d *Downloader) FetchFile(ctx context.Context, url, dest string, opts Options) (Result, error) {
	start := time.Now()

	if opts.IfNewer {
		skip, err := d.upToDate(ctx, url, dest)
		if err != nil {
			d.log.Debugf("freshness probe failed for %s, downloading: %v", url, err)
		} else if skip {
			return Result{Status: StatusSkipped, Path: dest, Duration: time.Since(start)}, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	var body io.Reader = resp.Body
	if opts.Reporter != nil {
		opts.Reporter.Start(resp.ContentLength, filepath.Base(dest))
		body = progress.NewProgressReader(resp.Body, opts.Reporter)
		defer opts.Reporter.Finish()
	}

	partial := fmt.Sprintf("%s.partial-%s", dest, uuid.NewString()[:8])
	out, err := os.Create(partial)
	if err != nil {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("failed to create %s: %w", partial, err)
	}

	n, err := io.Copy(out, body)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	// Preserve the remote timestamp so the IfNewer comparison works on
	// later runs.
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, perr := nethttp.ParseTime(lm); perr == nil {
			_ = os.Chtimes(partial, t, t)
		}
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	return Result{
		Status:   StatusDownloaded,
		Path:     dest,
		Bytes:    n,
		Duration: time.Since(start),
	}, nil
}

// upToDate reports whether the local copy of url at dest matches the remote
// size and is at least as new as the remote Last-Modified timestamp.
func (d *Downloader) upToDate(ctx context.Context, url, dest string) (bool, error) {
	info, err := os.Stat(dest)
	if err != nil {
		return false, nil // no local copy
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return false, fmt.Errorf("HEAD %s: unexpected status %s", url, resp.Status)
	}

	if resp.ContentLength >= 0 && resp.ContentLength != info.Size() {
		return false, nil
	}

	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return false, nil
	}
	remote, err := nethttp.ParseTime(lm)
	if err != nil {
		return false, err
	}

	return !info.ModTime().Before(remote), nil
}
