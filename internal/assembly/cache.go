package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncbitools/ncbifetch/internal/config"
	"github.com/ncbitools/ncbifetch/internal/logging"
	"github.com/ncbitools/ncbifetch/internal/progress"
	"github.com/ncbitools/ncbifetch/internal/transfer"
)

// Cache maintains the local copies of the assembly summary manifests, one
// file per source, refreshed on an age-based staleness policy.
type Cache struct {
	dir      string
	maxAge   time.Duration
	fetch    transfer.Fetcher
	reporter progress.Reporter
	log      *logging.Logger
}

// NewCache creates a Cache under cfg.CacheDir with cfg.ManifestMaxAge.
func NewCache(cfg *config.Config, fetch transfer.Fetcher, log *logging.Logger) *Cache {
	return &Cache{
		dir:    cfg.CacheDir,
		maxAge: cfg.ManifestMaxAge,
		fetch:  fetch,
		log:    log,
	}
}

// SetReporter attaches a progress reporter for manifest downloads. The
// summary files run to hundreds of megabytes, so interactive runs want a
// bar for the refresh.
func (c *Cache) SetReporter(r progress.Reporter) {
	c.reporter = r
}

// Path returns the cache file location for a source.
func (c *Cache) Path(source config.Source) string {
	return filepath.Join(c.dir, fmt.Sprintf("assembly_summary_%s.txt", source))
}

// EnsureFresh returns the path of a manifest no older than the staleness
// threshold, downloading it from url when the cached copy is absent or
// stale. A refresh failure is returned as-is; callers treat it as fatal.
func (c *Cache) EnsureFresh(ctx context.Context, source config.Source, url string) (string, error) {
	path := c.Path(source)

	if info, err := os.Stat(path); err == nil {
		age := time.Since(info.ModTime())
		if age <= c.maxAge {
			c.log.Debugf("manifest cache hit for %s (age %s)", source, age.Round(time.Minute))
			return path, nil
		}
		c.log.Debugf("manifest cache for %s is stale (age %s), refreshing", source, age.Round(time.Minute))
	} else {
		c.log.Debugf("no manifest cache for %s, downloading", source)
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	res, err := c.fetch.FetchFile(ctx, url, path, transfer.Options{Reporter: c.reporter})
	if err != nil {
		return "", fmt.Errorf("failed to refresh %s assembly summary: %w", source, err)
	}

	// The freshness window is measured from the refresh, not the remote
	// Last-Modified stamp the transfer layer may have applied.
	now := time.Now()
	_ = os.Chtimes(path, now, now)

	c.log.Info().
		Str("source", string(source)).
		Int64("bytes", res.Bytes).
		Str("duration", res.Duration.Round(time.Millisecond).String()).
		Msg("Refreshed assembly summary")

	return path, nil
}
