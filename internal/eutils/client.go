// Package eutils implements the single-record fetcher against the NCBI
// Entrez EUtils efetch service.
package eutils

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
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
	"github.com/ncbitools/ncbifetch/internal/ratelimit"
	"github.com/ncbitools/ncbifetch/internal/version"
)

// ErrEmptyResult is returned when efetch answered but the record body was
// below the empty threshold (EUtils sends a bare newline for unknown IDs).
var ErrEmptyResult = errors.New("empty result")

// Status classifies a fetch outcome. Exactly one of the three applies:
// transfer errors win over everything, then the empty check, then ok.
type Status int

const (
	// StatusOK - a record of at least EmptyThreshold bytes was written
	StatusOK Status = iota
	// StatusEmpty - the response was below the threshold; the file was removed
	StatusEmpty
	// StatusFailed - the transfer itself failed; no file was written
	StatusFailed
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request identifies one record to fetch.
type Request struct {
	ID      string
	DB      string // default "nuccore"
	RetType string // default "fasta"
	RetMode string // default "text"

	// Reporter receives byte-level progress for this fetch. Nil means
	// silent.
	Reporter progress.Reporter
}

// withDefaults fills the conventional Entrez defaults.
func (r Request) withDefaults() Request {
	if r.DB == "" {
		r.DB = "nuccore"
	}
	if r.RetType == "" {
		r.RetType = "fasta"
	}
	if r.RetMode == "" {
		r.RetMode = "text"
	}
	return r
}

// OutputName returns the local file name for the record: the identifier
// plus an extension derived from the first two characters of the return
// type ("fasta" -> .fa, "gb" -> .gb).
func (r Request) OutputName() string {
	r = r.withDefaults()
	ext := r.RetType
	if len(ext) > 2 {
		ext = ext[:2]
	}
	return r.ID + "." + ext
}

// Result describes one fetch outcome.
type Result struct {
	Status   Status
	Path     string
	Bytes    int64
	Duration time.Duration
}

// Client talks to the efetch endpoint.
type Client struct {
	baseURL   string
	client    *nethttp.Client
	outDir    string
	userAgent string
	limiter   *ratelimit.Limiter
	log       *logging.Logger
}

// NewClient creates a Client using the shared proxy and retry settings.
// Records are written into outDir (created on demand).
func NewClient(cfg *config.Config, outDir string, log *logging.Logger) (*Client, error) {
	base, err := httpx.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = constants.TransferRetryMax
	retryClient.RetryWaitMin = constants.TransferRetryWaitMin
	retryClient.RetryWaitMax = constants.TransferRetryWaitMax
	retryClient.Logger = nil // fetch outcomes are reported by the caller

	return &Client{
		baseURL:   cfg.EUtilsBaseURL,
		client:    retryClient.StandardClient(),
		outDir:    outDir,
		userAgent: version.UserAgent(),
		limiter:   ratelimit.NewEUtilsLimiter(),
		log:       log,
	}, nil
}

// NewClientWithHTTP creates a Client over an explicit base URL and HTTP
// client. Used by tests to point at httptest servers.
func NewClientWithHTTP(baseURL, outDir string, client *nethttp.Client, log *logging.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		client:    client,
		outDir:    outDir,
		userAgent: version.UserAgent(),
		log:       log,
	}
}

// FetchURL returns the efetch query URL for a request.
func (c *Client) FetchURL(req Request) string {
	req = req.withDefaults()
	q := url.Values{}
	q.Set("db", req.DB)
	q.Set("id", req.ID)
	q.Set("rettype", req.RetType)
	q.Set("retmode", req.RetMode)
	return c.baseURL + "/efetch.fcgi?" + q.Encode()
}

// Fetch downloads one record and classifies the outcome.
//
// The record body is streamed to a partial file and only renamed into place
// after the size check passes, so neither a failed transfer nor an empty
// result leaves an output file behind.
func (c *Client) Fetch(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	req = req.withDefaults()

	if req.ID == "" {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, errors.New("identifier is required")
	}

	if err := os.MkdirAll(c.outDir, 0755); err != nil {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("failed to create output directory: %w", err)
	}

	// NCBI blocks clients that exceed 3 requests/second.
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{Status: StatusFailed, Duration: time.Since(start)}, err
		}
	}

	dest := filepath.Join(c.outDir, req.OutputName())
	fetchURL := c.FetchURL(req)
	c.log.Debugf("efetch %s", fetchURL)

	httpReq, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, fetchURL, nil)
	if err != nil {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, err
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("efetch %s: %w", req.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK {
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("efetch %s: unexpected status %s", req.ID, resp.Status)
	}

	var body io.Reader = resp.Body
	if req.Reporter != nil {
		req.Reporter.Start(resp.ContentLength, req.OutputName())
		body = progress.NewProgressReader(resp.Body, req.Reporter)
		defer req.Reporter.Finish()
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
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("efetch %s: %w", req.ID, err)
	}

	if n < constants.EmptyThreshold {
		os.Remove(partial)
		return Result{Status: StatusEmpty, Bytes: n, Duration: time.Since(start)},
			fmt.Errorf("efetch %s: %w (%d bytes)", req.ID, ErrEmptyResult, n)
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return Result{Status: StatusFailed, Duration: time.Since(start)}, fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	return Result{
		Status:   StatusOK,
		Path:     dest,
		Bytes:    n,
		Duration: time.Since(start),
	}, nil
}
