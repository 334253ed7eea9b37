// Package config provides configuration management for ncbifetch.
//
// Configuration is resolved once at startup into an immutable Config value
// that is passed explicitly to every component. Precedence is defaults, then
// the config file, then command-line flags (applied by the cli package).
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\ncbifetch\config
//   - Unix: ~/.config/ncbifetch/config
//
// INI format:
//
//	[ncbi]
//	eutils_url = https://eutils.ncbi.nlm.nih.gov/entrez/eutils
//	genomes_url = https://ftp.ncbi.nlm.nih.gov/genomes
//
//	[cache]
//	dir = /home/user/.cache/ncbifetch
//	max_age_hours = 24
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	password =
//	no_proxy =
//
//	[mirror]
//	bucket = ncbi-genomes
//	region = us-east-1
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/ncbitools/ncbifetch/internal/constants"
)

// Source selects which assembly summary manifest to use.
type Source string

// Known manifest sources.
const (
	SourceGenBank Source = "genbank"
	SourceRefSeq  Source = "refseq"
)

// Validation errors
var (
	ErrUnknownSource    = errors.New(`source must be "genbank" or "refseq"`)
	ErrInvalidProxyMode = errors.New(`proxy mode must be one of "no-proxy", "system", "basic", "ntlm"`)
	ErrInvalidMaxAge    = errors.New("cache max_age_hours must be positive")
)

// ParseSource validates a user-supplied source name.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(s)) {
	case SourceGenBank:
		return SourceGenBank, nil
	case SourceRefSeq:
		return SourceRefSeq, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrUnknownSource, s)
	}
}

// ProxyConfig holds outbound proxy settings.
type ProxyConfig struct {
	// Mode is one of "no-proxy" (default), "system", "basic", "ntlm".
	Mode string `ini:"mode"`

	// Host and Port locate the proxy for basic/ntlm modes.
	Host string `ini:"host"`
	Port int    `ini:"port"`

	// User and Password authenticate against the proxy when set.
	User     string `ini:"user"`
	Password string `ini:"password"`

	// NoProxy is a comma-separated bypass list (hosts, domains, CIDRs).
	NoProxy string `ini:"no_proxy"`
}

// MirrorConfig holds settings for the S3 open-data mirror of the genomes tree.
type MirrorConfig struct {
	Bucket string `ini:"bucket"`
	Region string `ini:"region"`
}

// Config is the resolved, immutable configuration for a single invocation.
type Config struct {
	// EUtilsBaseURL is the Entrez EUtils base; overridable for tests.
	EUtilsBaseURL string `ini:"eutils_url"`

	// GenomesBaseURL is the base of the NCBI genomes tree.
	GenomesBaseURL string `ini:"genomes_url"`

	// CacheDir holds the assembly summary manifest cache.
	CacheDir string

	// ManifestMaxAge is the staleness threshold for the manifest cache.
	ManifestMaxAge time.Duration

	Proxy  ProxyConfig
	Mirror MirrorConfig
}

// Default returns a Config populated with built-in defaults.
func Default() (*Config, error) {
	cacheDir, err := DefaultCacheDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		EUtilsBaseURL:  constants.EUtilsBaseURL,
		GenomesBaseURL: constants.GenomesBaseURL,
		CacheDir:       cacheDir,
		ManifestMaxAge: constants.ManifestMaxAge,
		Proxy: ProxyConfig{
			Mode: "no-proxy",
			Port: 8080,
		},
		Mirror: MirrorConfig{
			Bucket: constants.MirrorBucket,
			Region: constants.MirrorRegion,
		},
	}, nil
}

// Load reads the config file at path on top of the defaults. An empty path
// means the default location; a missing file at the default location is not
// an error, a missing file at an explicit path is.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if sec := file.Section("ncbi"); sec != nil {
		if v := sec.Key("eutils_url").String(); v != "" {
			cfg.EUtilsBaseURL = strings.TrimSuffix(v, "/")
		}
		if v := sec.Key("genomes_url").String(); v != "" {
			cfg.GenomesBaseURL = strings.TrimSuffix(v, "/")
		}
	}

	if sec := file.Section("cache"); sec != nil {
		if v := sec.Key("dir").String(); v != "" {
			cfg.CacheDir = v
		}
		if v, err := sec.Key("max_age_hours").Int(); err == nil && v != 0 {
			cfg.ManifestMaxAge = time.Duration(v) * time.Hour
		}
	}

	if sec := file.Section("proxy"); sec != nil {
		if err := sec.MapTo(&cfg.Proxy); err != nil {
			return nil, fmt.Errorf("failed to read [proxy] section: %w", err)
		}
	}

	if sec := file.Section("mirror"); sec != nil {
		if err := sec.MapTo(&cfg.Mirror); err != nil {
			return nil, fmt.Errorf("failed to read [mirror] section: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration before any network activity happens.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Proxy.Mode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidProxyMode, c.Proxy.Mode)
	}
	if c.ManifestMaxAge <= 0 {
		return ErrInvalidMaxAge
	}
	return nil
}

// SummaryURL returns the remote assembly summary manifest URL for a source.
func (c *Config) SummaryURL(source Source) string {
	return fmt.Sprintf("%s/%s/assembly_summary_%s.txt", c.GenomesBaseURL, source, source)
}
