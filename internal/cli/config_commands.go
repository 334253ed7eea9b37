package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncbitools/ncbifetch/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			path := cfgFile
			if path == "" {
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:    %s\n", path)
			fmt.Fprintf(out, "eutils_url:     %s\n", cfg.EUtilsBaseURL)
			fmt.Fprintf(out, "genomes_url:    %s\n", cfg.GenomesBaseURL)
			fmt.Fprintf(out, "cache dir:      %s\n", cfg.CacheDir)
			fmt.Fprintf(out, "manifest age:   %s\n", cfg.ManifestMaxAge)
			fmt.Fprintf(out, "proxy mode:     %s\n", cfg.Proxy.Mode)
			if cfg.Proxy.Host != "" {
				fmt.Fprintf(out, "proxy:          %s:%d\n", cfg.Proxy.Host, cfg.Proxy.Port)
			}
			fmt.Fprintf(out, "mirror bucket:  s3://%s (%s)\n", cfg.Mirror.Bucket, cfg.Mirror.Region)
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write a commented config file with the built-in defaults to the default
location (or to --config). Refuses to overwrite an existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}
