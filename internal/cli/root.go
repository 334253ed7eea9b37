// Package cli provides the command-line interface for ncbifetch.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ncbitools/ncbifetch/internal/config"
	"github.com/ncbitools/ncbifetch/internal/logging"
	"github.com/ncbitools/ncbifetch/internal/progress"
	"github.com/ncbitools/ncbifetch/internal/version"
)

var (
	// Global flags
	cfgFile  string
	cacheDir string
	maxAgeH  int
	verbose  bool
	debug    bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ncbifetch",
		Short: "Download sequence records and genome assemblies from NCBI",
		Long: `ncbifetch ` + version.Version + ` - Built: ` + version.BuildTime + `
Retrieval tool for NCBI sequence data:

  efetch    fetch a single record via the Entrez EUtils efetch service
  plastid   bulk-fetch plastid genome records from an accession list
  assembly  query the assembly summary manifest and bulk-download
            genome assembly file sets (GenBank or RefSeq)

The assembly summary manifest is cached locally and refreshed once a day.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultLogger()
			if verbose || debug {
				logging.SetGlobalLevel(logging.DebugLevel)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Manifest cache directory (overrides config)")
	rootCmd.PersistentFlags().IntVar(&maxAgeH, "max-age", 0, "Manifest staleness threshold in hours (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newEfetchCmd())
	rootCmd.AddCommand(newPlastidCmd())
	rootCmd.AddCommand(newAssemblyCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// transferReporter returns the progress reporter for a single-file
// transfer: a terminal progress bar on interactive runs, silent otherwise.
func transferReporter(noProgress bool) progress.Reporter {
	if noProgress || !term.IsTerminal(int(os.Stderr.Fd())) {
		return progress.NewNoOpProgress()
	}
	return progress.NewCLIProgress()
}

// loadConfig resolves the effective configuration: config file on top of
// defaults, then global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cacheDir != "" {
		cfg.CacheDir = cacheDir
	}
	if maxAgeH > 0 {
		cfg.ManifestMaxAge = time.Duration(maxAgeH) * time.Hour
	}
	return cfg, nil
}
