package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ncbitools/ncbifetch/internal/eutils"
)

// newEfetchCmd creates the single-record fetch command.
func newEfetchCmd() *cobra.Command {
	var (
		db         string
		retType    string
		retMode    string
		outDir     string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "efetch <id>",
		Short: "Fetch a single sequence record via EUtils",
		Long: `Fetch one record from an Entrez database via the EUtils efetch service.

The record is written to <id>.<ext> in the output directory, where <ext>
is the first two characters of the return type (fasta -> .fa, gb -> .gb).

Examples:
  ncbifetch efetch NC_000913.3
  ncbifetch efetch NC_000913.3 --rettype gb
  ncbifetch efetch 9606 --db taxonomy --rettype xml --retmode xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client, err := eutils.NewClient(cfg, outDir, GetLogger())
			if err != nil {
				return err
			}

			res, err := client.Fetch(GetContext(), eutils.Request{
				ID:       args[0],
				DB:       db,
				RetType:  retType,
				RetMode:  retMode,
				Reporter: transferReporter(noProgress),
			})

			switch res.Status {
			case eutils.StatusOK:
				fmt.Printf("%s\t%d bytes\tok\n", res.Path, res.Bytes)
				return nil
			case eutils.StatusEmpty:
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\tempty result\n", args[0])
				return err
			default:
				if err == nil {
					err = errors.New("fetch failed")
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&db, "db", "nuccore", "Entrez database")
	cmd.Flags().StringVar(&retType, "rettype", "fasta", "Return type (fasta, gb, ...)")
	cmd.Flags().StringVar(&retMode, "retmode", "text", "Return mode (text, xml, ...)")
	cmd.Flags().StringVarP(&outDir, "outdir", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}
