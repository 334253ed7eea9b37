package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ncbitools/ncbifetch/internal/constants"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{"genbank", SourceGenBank, false},
		{"refseq", SourceRefSeq, false},
		{"GenBank", SourceGenBank, false},
		{"REFSEQ", SourceRefSeq, false},
		{"ensembl", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseSource(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownSource) {
				t.Errorf("ParseSource(%q) error = %v, want ErrUnknownSource", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSource(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if cfg.EUtilsBaseURL != constants.EUtilsBaseURL {
		t.Errorf("EUtilsBaseURL = %q", cfg.EUtilsBaseURL)
	}
	if cfg.ManifestMaxAge != constants.ManifestMaxAge {
		t.Errorf("ManifestMaxAge = %v", cfg.ManifestMaxAge)
	}
	if cfg.Proxy.Mode != "no-proxy" {
		t.Errorf("Proxy.Mode = %q, want no-proxy", cfg.Proxy.Mode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := `[ncbi]
eutils_url = https://mirror.example.org/entrez/eutils/

[cache]
dir = /tmp/manifests
max_age_hours = 6

[proxy]
mode = basic
host = proxy.example.org
port = 3128
user = alice
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.EUtilsBaseURL != "https://mirror.example.org/entrez/eutils" {
		t.Errorf("EUtilsBaseURL = %q, want trailing slash trimmed", cfg.EUtilsBaseURL)
	}
	if cfg.CacheDir != "/tmp/manifests" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.ManifestMaxAge != 6*time.Hour {
		t.Errorf("ManifestMaxAge = %v, want 6h", cfg.ManifestMaxAge)
	}
	if cfg.Proxy.Mode != "basic" || cfg.Proxy.Host != "proxy.example.org" || cfg.Proxy.Port != 3128 {
		t.Errorf("Proxy = %+v", cfg.Proxy)
	}
	// Unset sections keep their defaults.
	if cfg.GenomesBaseURL != constants.GenomesBaseURL {
		t.Errorf("GenomesBaseURL = %q, want default kept", cfg.GenomesBaseURL)
	}
	if cfg.Mirror.Bucket != constants.MirrorBucket {
		t.Errorf("Mirror.Bucket = %q, want default kept", cfg.Mirror.Bucket)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("Load() of a missing explicit path succeeded")
	}
}

func TestLoadRejectsBadProxyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("[proxy]\nmode = socks5\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidProxyMode) {
		t.Errorf("Load() error = %v, want ErrInvalidProxyMode", err)
	}
}

func TestValidateMaxAge(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.ManifestMaxAge = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxAge) {
		t.Errorf("Validate() error = %v, want ErrInvalidMaxAge", err)
	}
}

func TestSummaryURL(t *testing.T) {
	cfg := &Config{GenomesBaseURL: "https://ftp.ncbi.nlm.nih.gov/genomes"}

	tests := []struct {
		source Source
		want   string
	}{
		{SourceGenBank, "https://ftp.ncbi.nlm.nih.gov/genomes/genbank/assembly_summary_genbank.txt"},
		{SourceRefSeq, "https://ftp.ncbi.nlm.nih.gov/genomes/refseq/assembly_summary_refseq.txt"},
	}
	for _, tt := range tests {
		if got := cfg.SummaryURL(tt.source); got != tt.want {
			t.Errorf("SummaryURL(%s) = %q, want %q", tt.source, got, tt.want)
		}
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	// The written file round-trips through Load.
	if _, err := Load(path); err != nil {
		t.Errorf("Load() of the starter config error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, section := range []string{"[ncbi]", "[cache]", "[proxy]", "[mirror]"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("starter config missing section %s", section)
		}
	}

	// A second write must refuse to clobber the file.
	if err := WriteDefault(path); err == nil {
		t.Error("WriteDefault() overwrote an existing config")
	}
}
