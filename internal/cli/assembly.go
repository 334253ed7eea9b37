package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ncbitools/ncbifetch/internal/assembly"
	"github.com/ncbitools/ncbifetch/internal/config"
	s3mirror "github.com/ncbitools/ncbifetch/internal/mirror/s3"
	"github.com/ncbitools/ncbifetch/internal/progress"
	"github.com/ncbitools/ncbifetch/internal/transfer"
)

// newAssemblyCmd creates the assembly command group.
func newAssemblyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assembly",
		Short: "Query and bulk-download genome assemblies",
		Long: `Work with the NCBI assembly summary manifest.

The manifest (one row per assembly, tab-separated) is cached locally and
refreshed when older than the staleness threshold. Rows are selected by an
accession list file, or "all" for every assembly in the manifest.`,
	}

	cmd.AddCommand(newAssemblyListCmd())
	cmd.AddCommand(newAssemblyGetCmd())
	return cmd
}

// manifestFlags are shared between list and get.
type manifestFlags struct {
	source     string
	accessions string
}

func (f *manifestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, "source", "s", "genbank", `Manifest source: "genbank" or "refseq"`)
	cmd.Flags().StringVarP(&f.accessions, "accessions", "a", "", `Accession list file, "-" for stdin, or "all"`)
	_ = cmd.MarkFlagRequired("accessions")
}

// resolve validates the shared flags and loads the accession set. A nil set
// with all=true means no filtering.
func (f *manifestFlags) resolve() (config.Source, assembly.Set, bool, error) {
	source, err := config.ParseSource(f.source)
	if err != nil {
		return "", nil, false, err
	}

	if f.accessions == "all" {
		return source, nil, true, nil
	}

	set, duplicates, err := assembly.LoadSetFile(f.accessions)
	if err != nil {
		return "", nil, false, err
	}
	if duplicates > 0 {
		GetLogger().Debugf("accession list contains %d duplicate entries", duplicates)
	}
	if len(set) == 0 {
		return "", nil, false, fmt.Errorf("accession list %s is empty", f.accessions)
	}
	return source, set, false, nil
}

// openManifest returns the fresh manifest for a source, refreshing the
// cache if needed. The caller closes the file.
func openManifest(cfg *config.Config, source config.Source) (*os.File, error) {
	dl, err := transfer.NewDownloader(cfg, GetLogger())
	if err != nil {
		return nil, err
	}
	cache := assembly.NewCache(cfg, dl, GetLogger())
	cache.SetReporter(transferReporter(false))
	path, err := cache.EnsureFresh(GetContext(), source, cfg.SummaryURL(source))
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func newAssemblyListCmd() *cobra.Command {
	var flags manifestFlags
	var noHeader bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print matching manifest rows",
		Long: `Print the manifest rows whose assembly accession is in the accession
list, verbatim and in manifest order. With --accessions all, every data
row is printed.

Examples:
  ncbifetch assembly list -s refseq -a accessions.txt
  ncbifetch assembly list -s genbank -a all --no-header | cut -f1,8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			source, set, all, err := flags.resolve()
			if err != nil {
				return err
			}

			manifest, err := openManifest(cfg, source)
			if err != nil {
				return err
			}
			defer manifest.Close()

			dl, err := transfer.NewDownloader(cfg, GetLogger())
			if err != nil {
				return err
			}
			svc := assembly.NewService(dl, GetLogger())
			return svc.List(manifest, cmd.OutOrStdout(), assembly.ListOptions{
				Set:        set,
				All:        all,
				ShowHeader: !noHeader,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "Suppress the column-name header")

	return cmd
}

func newAssemblyGetCmd() *cobra.Command {
	var flags manifestFlags
	var (
		files      string
		outDir     string
		namePrefix bool
		checkMD5   bool
		doExtract  bool
		failFast   bool
		mirror     string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Bulk-download assembly file sets",
		Long: `Download the selected files of every matching assembly into one
directory per assembly (named by accession, or organism_accession with
--name-prefix).

--files is a comma-separated list of filename substrings; the rna and cds
variants of the genomic files are excluded unless asked for explicitly.

A row whose transfer fails is skipped unless --fail-fast is set. A
checksum mismatch under --check-md5 always aborts the run.

Examples:
  ncbifetch assembly get -s refseq -a accessions.txt
  ncbifetch assembly get -s genbank -a all --files genomic.fna,genomic.gff
  ncbifetch assembly get -s refseq -a accessions.txt --check-md5 --extract
  ncbifetch assembly get -s genbank -a accessions.txt --mirror s3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			source, set, all, err := flags.resolve()
			if err != nil {
				return err
			}

			policy := assembly.NewSelectionPolicy(assembly.ParseFileTypes(files))
			if len(policy.Include) == 0 {
				return fmt.Errorf("--files must name at least one filename substring")
			}

			ctx := GetContext()
			log := GetLogger()

			manifest, err := openManifest(cfg, source)
			if err != nil {
				return err
			}
			defer manifest.Close()

			var fetcher transfer.Fetcher
			switch mirror {
			case "", "https":
				fetcher, err = transfer.NewDownloader(cfg, log)
			case "s3":
				fetcher, err = s3mirror.NewMirror(ctx, cfg, log)
			default:
				return fmt.Errorf(`--mirror must be "https" or "s3", got %q`, mirror)
			}
			if err != nil {
				return err
			}

			opts := assembly.GetOptions{
				Set:        set,
				All:        all,
				Policy:     policy,
				OutDir:     outDir,
				NamePrefix: namePrefix,
				CheckMD5:   checkMD5,
				Extract:    doExtract,
				FailFast:   failFast,
			}

			if !noProgress {
				ui := progress.NewBatchUI(0)
				defer ui.Wait()
				log.SetOutput(ui.LogWriter())
				item := 0
				opts.NewReporter = func() progress.Reporter {
					item++
					return ui.NewItemReporter(item, "")
				}
			}

			svc := assembly.NewService(fetcher, log)
			stats, err := svc.Get(ctx, manifest, opts)
			if err != nil {
				return err
			}

			log.Info().
				Int("assemblies", stats.Matched).
				Int("downloaded", stats.Downloaded).
				Int("up_to_date", stats.Skipped).
				Int("failed_rows", stats.FailedRows).
				Int("verified", stats.Verified).
				Int("extracted", stats.Extracted).
				Msg("Done")

			if stats.Matched == 0 {
				log.Warnf("no manifest rows matched the accession list")
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&files, "files", "f", "genomic.fna", "Comma-separated filename substrings to download")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Parent directory for per-assembly directories")
	cmd.Flags().BoolVar(&namePrefix, "name-prefix", false, "Prefix directory names with the organism name")
	cmd.Flags().BoolVar(&checkMD5, "check-md5", false, "Verify downloads against md5checksums.txt")
	cmd.Flags().BoolVar(&doExtract, "extract", false, "Expand downloaded .gz files in place")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Abort the run on the first failed assembly")
	cmd.Flags().StringVar(&mirror, "mirror", "https", `Transfer path: "https" or "s3" (open-data mirror)`)
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")

	return cmd
}
