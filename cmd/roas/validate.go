package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"roas/internal/app"
	"roas/internal/config"
	"roas/internal/roas"
	"roas/internal/schema"
)

func newValidateCmd(c *cli) *cobra.Command {
	var inputs map[string]string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint the config and check the inputs' columns",
		Long: `Lints the pipeline config, then loads every reachable input and checks it
against the required columns. Nothing is exported or stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runValidate(cmd, inputs)
		},
	}
	addInputFlag(cmd, &inputs)
	return cmd
}

func (c *cli) runValidate(cmd *cobra.Command, inputs map[string]string) error {
	w := cmd.OutOrStdout()
	p := withInputs(c.pipeline, inputs)

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintln(w, iss.Error())
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("config: invalid")
	}

	srcs, err := app.Sources(p, c.logger)
	if err != nil {
		return err
	}
	in, err := app.LoadInputs(cmd.Context(), srcs, p.Parser, p.Runtime.LoadConcurrency, p.Job, c.logger)
	if err != nil {
		if out, ok := app.InputOutcome(err); ok {
			fmt.Fprintln(w, out.Message)
		}
		return fmt.Errorf("load inputs: %w", err)
	}

	opts := app.RunOptions(p, app.Overrides{})
	opts.Logger = c.logger
	out := roas.Evaluate(cmd.Context(), in, opts)

	var verr *schema.ValidationError
	switch {
	case out.State == roas.Ready:
		fmt.Fprintf(w, "ok: %d influencers, %d tracking rows\n",
			out.Result.Stats.Influencers, out.Result.Stats.InputRows[schema.TableTracking])
		return nil
	case errors.As(out.Err, &verr):
		for _, ti := range verr.Issues {
			fmt.Fprintf(w, "schema: %s: missing columns %v\n", ti.Table, ti.Missing)
		}
		return verr
	default:
		fmt.Fprintln(w, out.Message)
		return fmt.Errorf("inputs %s", out.State)
	}
}
