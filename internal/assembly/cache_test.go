package assembly

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ncbitools/ncbifetch/internal/config"
	"github.com/ncbitools/ncbifetch/internal/progress"
)

func newTestCache(t *testing.T, fetcher *fakeFetcher, maxAge time.Duration) *Cache {
	t.Helper()
	cfg := &config.Config{
		CacheDir:       t.TempDir(),
		ManifestMaxAge: maxAge,
	}
	return NewCache(cfg, fetcher, testLogger())
}

func TestCacheEnsureFreshDownloadsOnce(t *testing.T) {
	url := "https://ftp.example.org/genomes/genbank/assembly_summary_genbank.txt"
	fetcher := &fakeFetcher{files: map[string][]byte{
		url: []byte(serviceManifest()),
	}}
	cache := newTestCache(t, fetcher, 24*time.Hour)

	path, err := cache.EnsureFresh(context.Background(), config.SourceGenBank, url)
	if err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}
	if path != cache.Path(config.SourceGenBank) {
		t.Errorf("path = %q, want %q", path, cache.Path(config.SourceGenBank))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}

	// A second call within the freshness window must not re-download.
	if _, err := cache.EnsureFresh(context.Background(), config.SourceGenBank, url); err != nil {
		t.Fatalf("second EnsureFresh() error = %v", err)
	}
	if fetcher.fetchCount != 1 {
		t.Errorf("fetchCount = %d, want 1 (cache hit on second call)", fetcher.fetchCount)
	}
}

func TestCacheEnsureFreshRefreshesStale(t *testing.T) {
	url := "https://ftp.example.org/genomes/refseq/assembly_summary_refseq.txt"
	fetcher := &fakeFetcher{files: map[string][]byte{
		url: []byte(serviceManifest()),
	}}
	cache := newTestCache(t, fetcher, 24*time.Hour)

	path, err := cache.EnsureFresh(context.Background(), config.SourceRefSeq, url)
	if err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}

	// Age the cached copy past the threshold.
	old := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	if _, err := cache.EnsureFresh(context.Background(), config.SourceRefSeq, url); err != nil {
		t.Fatalf("EnsureFresh() after staleness error = %v", err)
	}
	if fetcher.fetchCount != 2 {
		t.Errorf("fetchCount = %d, want 2 (stale copy refreshed)", fetcher.fetchCount)
	}

	// The refresh restamps the file so the window restarts now.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(info.ModTime()) > time.Minute {
		t.Errorf("manifest mtime = %v, want restamped at refresh time", info.ModTime())
	}
}

func TestCacheEnsureFreshUsesReporter(t *testing.T) {
	url := "https://ftp.example.org/genomes/genbank/assembly_summary_genbank.txt"
	fetcher := &fakeFetcher{files: map[string][]byte{
		url: []byte(serviceManifest()),
	}}
	cache := newTestCache(t, fetcher, 24*time.Hour)

	reporter := progress.NewNoOpProgress()
	cache.SetReporter(reporter)

	if _, err := cache.EnsureFresh(context.Background(), config.SourceGenBank, url); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}
	if fetcher.lastOpts.Reporter != reporter {
		t.Error("manifest download did not carry the attached reporter")
	}
}

func TestCacheEnsureFreshRefreshFailure(t *testing.T) {
	fetcher := &fakeFetcher{files: map[string][]byte{}}
	cache := newTestCache(t, fetcher, 24*time.Hour)

	_, err := cache.EnsureFresh(context.Background(), config.SourceGenBank,
		"https://ftp.example.org/genomes/genbank/assembly_summary_genbank.txt")
	if err == nil {
		t.Fatal("EnsureFresh() succeeded with an unreachable manifest")
	}
}

func TestCachePathPerSource(t *testing.T) {
	cache := newTestCache(t, &fakeFetcher{}, time.Hour)

	genbank := cache.Path(config.SourceGenBank)
	refseq := cache.Path(config.SourceRefSeq)
	if genbank == refseq {
		t.Error("sources share a cache file")
	}
}
