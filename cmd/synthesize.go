package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/metrics"
	"github.com/neo/personasim/internal/sink"
	"github.com/neo/personasim/internal/synth"
	"github.com/neo/personasim/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var synthFlags struct {
	entries       int
	successCount  int
	minIterations int
	maxIterations int
	seed          int64
	sinkKind      string
}

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Generate a synthetic response dataset without calling a model",
	Long: `Generate rating progressions for the fixed persona roster, where a chosen
number of personas reach the target and the rest plateau below it, and write
them as iteration records. The default target is a CSV file using the remote
table's column names.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := types.ParseSinkKind(synthFlags.sinkKind)
		if err != nil {
			return err
		}

		m := metrics.New(prometheus.DefaultRegisterer)
		chain, err := sink.Build(sink.Options{
			Kind:         kind,
			REST:         cfg.REST(),
			DatabasePath: cfg.DatabasePath,
			OutputDir:    cfg.OutputDir,
			Prefix:       sink.SyntheticPrefix,
			Legacy:       true,
			Metrics:      m,
		})
		if err != nil {
			return fmt.Errorf("failed to set up persistence: %w", err)
		}
		defer chain.Close()

		batch := synth.DefaultBatchConfig()
		batch.NumEntries = synthFlags.entries
		batch.SuccessCount = synthFlags.successCount
		batch.MinIterations = synthFlags.minIterations
		batch.MaxIterations = synthFlags.maxIterations
		batch.Seed = synthFlags.seed
		batch.Metrics = m

		gen, err := synth.NewGenerator(batch, chain)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary, err := gen.Run(ctx)
		if err != nil {
			return err
		}

		logging.LogSynthEvent("batch_complete", map[string]interface{}{
			"entries":      summary.Entries,
			"personas":     summary.Personas,
			"reached":      summary.Reached,
			"success_rate": summary.SuccessRate,
			"sink":         chain.Active(),
		})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Generated %d entries for %d personas\n", summary.Entries, summary.Personas)
		fmt.Fprintf(out, "Personas reaching target: %d (%.2f%%)\n", summary.Reached, summary.SuccessRate)
		if summary.Failed > 0 {
			fmt.Fprintf(out, "Personas skipped after errors: %d\n", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(synthesizeCmd)

	defaults := synth.DefaultBatchConfig()
	f := synthesizeCmd.Flags()
	f.IntVarP(&synthFlags.entries, "entries", "n", defaults.NumEntries, "total records to generate across all personas")
	f.IntVar(&synthFlags.successCount, "success", defaults.SuccessCount, "personas that reach the target")
	f.IntVar(&synthFlags.minIterations, "min-iterations", defaults.MinIterations, "minimum progression length")
	f.IntVar(&synthFlags.maxIterations, "max-iterations", defaults.MaxIterations, "maximum progression length")
	f.Int64Var(&synthFlags.seed, "seed", 0, "random seed (0 uses the current time)")
	f.StringVar(&synthFlags.sinkKind, "sink", string(types.SinkCSV), "persistence target: auto, rest, sqlite, csv")
}
