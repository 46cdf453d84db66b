// iris-caller converts fluorescence in-situ sequencing image cycles into
// barcode reads: per-consensus-coordinate base calls with adjusted error
// rates.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"iris-caller/internal/pipeline"
	"iris-caller/internal/version"
	"iris-caller/pkg/config"
)

func main() {
	var (
		formatFlag string
		configFlag string
		outFlag    string
	)

	root := &cobra.Command{
		Use:   "iris-caller [flags] <cycle inputs...>",
		Short: "Call barcode sequences from in-situ sequencing image cycles",
		Long: `iris-caller registers every imaging cycle onto a common pixel frame,
collects per-cycle base calls, merges near-duplicate signal locations into
consensus coordinates and reports the best call per cycle and coordinate.

Inputs are cycle directories (ke, lee) or channel files in groups of four
(eng), in cycle order.`,
		Version: version.Version,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := pipeline.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			cfg := config.Default()
			if configFlag != "" {
				cfg, err = config.Load(configFlag)
				if err != nil {
					return err
				}
			}

			return pipeline.Run(cfg, format, args, outFlag)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVarP(&formatFlag, "format", "f", "ke", "input layout: ke, eng or lee")
	root.Flags().StringVarP(&configFlag, "config", "c", "", "YAML configuration file")
	root.Flags().StringVarP(&outFlag, "out", "o", "reads.tsv", "output read report path")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "iris-caller: %v\n", err)
		os.Exit(1)
	}
}
