package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ncbitools/ncbifetch/internal/constants"
	"github.com/ncbitools/ncbifetch/internal/eutils"
	"github.com/ncbitools/ncbifetch/internal/progress"
	"github.com/ncbitools/ncbifetch/internal/transfer"
)

// newPlastidCmd creates the accession-list batch fetch command.
func newPlastidCmd() *cobra.Command {
	var (
		outDir     string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "plastid [list-url]",
		Short: "Bulk-fetch plastid genome records from an accession list",
		Long: `Download an accession list and fetch every listed record twice: once as
FASTA and once as a GenBank flatfile, both from the nuccore database.

The default list is the NCBI plastid genome report; the accession is taken
from the first column of each line. Progress is shown as [current/total]
per record. A failed record is reported and the batch continues with the
next one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listURL := constants.PlastidAccessionListURL
			if len(args) == 1 {
				listURL = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := GetLogger()

			dl, err := transfer.NewDownloader(cfg, log)
			if err != nil {
				return err
			}

			ctx := GetContext()
			data, err := dl.Get(ctx, listURL)
			if err != nil {
				return fmt.Errorf("failed to download accession list: %w", err)
			}

			var accessions []string
			for _, line := range strings.Split(string(data), "\n") {
				fields := strings.Fields(line)
				if len(fields) == 0 {
					continue
				}
				accessions = append(accessions, fields[0])
			}
			total := len(accessions)
			log.Infof("fetching %d plastid genome records", total)

			client, err := eutils.NewClient(cfg, outDir, log)
			if err != nil {
				return err
			}

			var ui *progress.BatchUI
			if !noProgress {
				ui = progress.NewBatchUI(total)
				defer ui.Wait()
				log.SetOutput(ui.LogWriter())
			}

			failed := 0
			for i, accession := range accessions {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				for _, retType := range []string{"fasta", "gb"} {
					req := eutils.Request{
						ID:      accession,
						DB:      "nuccore",
						RetType: retType,
					}
					if ui != nil {
						req.Reporter = ui.NewItemReporter(i+1, req.OutputName())
					}

					res, err := client.Fetch(ctx, req)
					if err != nil {
						failed++
						log.Warn().
							Str("accession", accession).
							Str("rettype", retType).
							Err(err).
							Msg("Fetch failed")
						continue
					}
					log.Debugf("%s  %d bytes  %s", res.Path, res.Bytes, res.Status)
				}
			}

			if failed > 0 {
				log.Warnf("%d of %d fetches failed", failed, total*2)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress output")

	return cmd
}
