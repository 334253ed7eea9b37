package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath returns the default path for the config file.
//   - Windows: %USERPROFILE%\.config\ncbifetch\config
//   - Unix: ~/.config/ncbifetch/config
func DefaultConfigPath() (string, error) {
	dir, err := defaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// DefaultCacheDir returns the directory for the manifest cache, creating
// nothing. The cache package creates it on first use.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user cache directory: %w", err)
	}
	return filepath.Join(base, "ncbifetch"), nil
}

func defaultConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", "ncbifetch"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ncbifetch"), nil
}

// WriteDefault writes a commented starter config file to path, refusing to
// overwrite an existing one.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg, err := Default()
	if err != nil {
		return err
	}

	content := fmt.Sprintf(`[ncbi]
eutils_url = %s
genomes_url = %s

[cache]
dir = %s
max_age_hours = 24

[proxy]
; mode: no-proxy, system, basic, ntlm
mode = no-proxy
host =
port = 8080
user =
password =
no_proxy =

[mirror]
bucket = %s
region = %s
`, cfg.EUtilsBaseURL, cfg.GenomesBaseURL, cfg.CacheDir, cfg.Mirror.Bucket, cfg.Mirror.Region)

	return os.WriteFile(path, []byte(content), 0600)
}
