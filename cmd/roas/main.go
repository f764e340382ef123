// Command roas builds the influencer ROAS report from the four input tables.
//
//	roas run --config pipeline.json --platform Instagram --out report.xlsx
//	roas validate --config pipeline.json
//	roas serve --addr :8080
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"roas/internal/config"
	"roas/internal/metrics"
	_ "roas/internal/storage/all"
)

// cli holds the global flags and what PersistentPreRunE builds from them.
type cli struct {
	verbose        bool
	cfgPath        string
	metricsBackend string
	pushgatewayURL string
	statsdAddr     string

	logger   *zap.Logger
	pipeline config.Pipeline
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "roas",
		Short: "roas - influencer campaign return-on-ad-spend reports",
		Long: `roas joins influencer rosters, posts, tracking events and payouts into a
return-on-ad-spend report: per-influencer ROAS, campaign totals, and the top
and low performers.

Inputs come from local files or HTTP URLs (CSV or XLSX). The report is
printed to the terminal, written to CSV/XLSX/JSON, and optionally appended
to a postgres, mssql or sqlite table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(c.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger

			c.pipeline, err = config.Load(c.cfgPath)
			if err != nil {
				return err
			}
			if c.pipeline.Inputs == nil {
				c.pipeline.Inputs = map[string]config.Source{}
			}

			c.setupMetrics(c.pipeline.Job)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&c.cfgPath, "config", "", "Pipeline config (JSON or YAML); ROAS_* env vars override it")
	rootCmd.PersistentFlags().StringVar(&c.metricsBackend, "metrics-backend", "", "Metrics backend: none, pushgateway or datadog (env METRICS_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&c.pushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (env PUSHGATEWAY_URL)")
	rootCmd.PersistentFlags().StringVar(&c.statsdAddr, "statsd-addr", "", "DogStatsD address (env DD_DOGSTATSD_URL)")

	rootCmd.AddCommand(newRunCmd(c), newValidateCmd(c), newServeCmd(c))
	return rootCmd, c
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// shutdown flushes metrics and logs after any command, including failed ones.
func (c *cli) shutdown() {
	if err := metrics.Flush(); err != nil {
		c.logger.Warn("metrics: flush error", zap.Error(err))
	}
	_ = c.logger.Sync()
}

func main() {
	rootCmd, c := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	c.shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
