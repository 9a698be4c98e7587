package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/neo/personasim/internal/config"
	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/metrics"
	"github.com/neo/personasim/internal/persona"
	"github.com/neo/personasim/internal/reasoning"
	"github.com/neo/personasim/internal/simulation"
	"github.com/neo/personasim/internal/sink"
	"github.com/neo/personasim/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var simulateFlags struct {
	personas      string
	sinkKind      string
	backend       string
	maxIterations int
	target        float64
	articleFile   string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the live persuasion loop for every persona",
	Long: `Run each persona through the judge / edit loop until its normalized
rating reaches the target or the iteration cap is hit, then ask for a closing
recommendation. Every iteration is written to the configured sink.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applySimulateFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		m := metrics.New(prometheus.DefaultRegisterer)

		agent, err := newAgent(cfg, m)
		if err != nil {
			return err
		}

		chain, err := sink.Build(sink.Options{
			Kind:         cfg.SinkKind,
			REST:         cfg.REST(),
			DatabasePath: cfg.DatabasePath,
			OutputDir:    cfg.OutputDir,
			Prefix:       sink.ResultsPrefix,
			Metrics:      m,
		})
		if err != nil {
			return fmt.Errorf("failed to set up persistence: %w", err)
		}
		defer chain.Close()

		simConfig := simulation.DefaultConfig()
		simConfig.MaxIterations = cfg.MaxIterations
		simConfig.TargetRating = cfg.TargetRating
		simConfig.Metrics = m
		if simulateFlags.articleFile != "" {
			article, err := os.ReadFile(simulateFlags.articleFile)
			if err != nil {
				return fmt.Errorf("failed to read article: %w", err)
			}
			simConfig.InitialArticle = string(article)
		}

		sim, err := simulation.New(simConfig, agent, chain)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		personas := persona.LoadOrDefault(cfg.PersonasPath)
		logging.Info("Starting simulation", map[string]interface{}{
			"personas":       len(personas),
			"max_iterations": simConfig.MaxIterations,
			"target":         simConfig.TargetRating,
			"backend":        cfg.Backend.String(),
			"sink":           chain.Active(),
		})

		results := sim.RunBatch(ctx, personas)
		printResults(cmd, results)

		if chain.Degraded() {
			logging.Warn("Records were written to a fallback sink", map[string]interface{}{"active": chain.Active()})
		}
		return nil
	},
}

func applySimulateFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("personas") {
		c.PersonasPath = simulateFlags.personas
	}
	if f.Changed("max-iterations") {
		c.MaxIterations = simulateFlags.maxIterations
	}
	if f.Changed("target") {
		c.TargetRating = simulateFlags.target
	}
	if f.Changed("sink") {
		kind, err := types.ParseSinkKind(simulateFlags.sinkKind)
		if err != nil {
			return err
		}
		c.SinkKind = kind
	}
	if f.Changed("backend") {
		backend, err := types.ParseBackend(simulateFlags.backend)
		if err != nil {
			return err
		}
		c.Backend = backend
	}
	return nil
}

// newAgent builds the judge/editor completer and a separate one for the
// closing recommendation.
func newAgent(c *config.Config, m *metrics.Metrics) (*reasoning.Agent, error) {
	primary, err := newCompleter(c, c.Model)
	if err != nil {
		return nil, err
	}

	opts := []reasoning.AgentOption{reasoning.WithMetrics(m)}
	if c.RequestsPerSecond > 0 {
		opts = append(opts, reasoning.WithRateLimit(rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)))
	}
	if c.RecommendationModel != c.Model {
		rec, err := newCompleter(c, c.RecommendationModel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reasoning.WithRecommender(rec))
	}
	return reasoning.NewAgent(primary, opts...), nil
}

func newCompleter(c *config.Config, model string) (reasoning.Completer, error) {
	switch c.Backend {
	case types.BackendLangChain:
		return reasoning.NewLangChainCompleter(c.OpenAI(model))
	default:
		return reasoning.NewOpenAICompleter(c.OpenAI(model))
	}
}

func printResults(cmd *cobra.Command, results []*simulation.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nSimulation results:")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "  %-12s (id %d): failed after %d iterations: %v\n", r.PersonaName, r.PersonaID, r.Iterations, r.Err)
			continue
		}
		fmt.Fprintf(out, "  %-12s (id %d): %s, rating %.1f -> %.1f in %d iterations, recommendation %.1f\n",
			r.PersonaName, r.PersonaID, r.State, r.InitialRating, r.FinalRating, r.Iterations, r.RecommendationRating)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	f := simulateCmd.Flags()
	f.StringVarP(&simulateFlags.personas, "personas", "p", "personas.json", "persona file (JSON or YAML)")
	f.StringVar(&simulateFlags.sinkKind, "sink", string(types.SinkAuto), "persistence target: auto, rest, sqlite, csv")
	f.StringVar(&simulateFlags.backend, "backend", string(types.BackendOpenAI), "text generation client: openai, langchain")
	f.IntVar(&simulateFlags.maxIterations, "max-iterations", 10, "iteration cap per persona")
	f.Float64Var(&simulateFlags.target, "target", 0.8, "normalized target rating in (0, 1]")
	f.StringVar(&simulateFlags.articleFile, "article", "", "file holding the initial article (default built-in)")
}
