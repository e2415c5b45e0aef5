package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contacts-cli/internal/engine"
	"github.com/sells-group/contacts-cli/internal/source"
)

var (
	ingestMapping string
	ingestSheet   string
	ingestLimit   int
	ingestDryRun  bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <batch-file>",
	Short: "Consolidate one batch file into the contact graph",
	Long:  "Reads a CSV or XLSX batch, resolves every contact slot through the identity chain, and upserts people, organizations, channels, assets, and their relationships. Safe to rerun: all writes are natural-key upserts.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		spec, err := source.LoadSpec(ingestMapping)
		if err != nil {
			return err
		}
		if ingestSheet != "" {
			spec.Sheet = ingestSheet
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, errCh := source.Read(ctx, args[0], source.ReadOptions{
			Sheet:    spec.Sheet,
			SkipRows: spec.SkipRows,
			Limit:    ingestLimit,
		})

		eng := engine.New(st, engine.Options{DryRun: ingestDryRun})
		stats, err := eng.Run(ctx, spec, recs, errCh)
		if err != nil {
			return eris.Wrapf(err, "ingest %s", args[0])
		}

		zap.L().Info("ingest finished",
			zap.String("batch", stats.Batch),
			zap.Bool("dry_run", stats.DryRun),
			zap.Int("records", stats.RecordsScanned),
			zap.Int("new_people", stats.NewPeople),
			zap.Int("enriched_people", stats.EnrichedPeople),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMapping, "mapping", "", "batch mapping spec (YAML, required)")
	ingestCmd.Flags().StringVar(&ingestSheet, "sheet", "", "XLSX sheet name (overrides the mapping spec)")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "stop after N records (0 = all)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "compute the full consolidation without writing")
	ingestCmd.MarkFlagRequired("mapping")
	rootCmd.AddCommand(ingestCmd)
}
