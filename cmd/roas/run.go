package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"roas/internal/app"
	"roas/internal/config"
	"roas/internal/render"
	"roas/internal/roas"
)

type runFlags struct {
	platforms  []string
	categories []string
	out        string
	format     string
	inputs     map[string]string
}

func newRunCmd(c *cli) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the ROAS report and print it",
		Long: `Loads the four inputs, computes the report and prints the campaign summary,
the ROAS bar chart and the top and low performers. A ready report is also
written to --out (or export.path) and stored when storage is configured.

Facet flags replace the configured selection:
  roas run --config pipeline.json --platform Instagram --platform YouTube`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runReport(cmd, f)
		},
	}
	addInputFlag(cmd, &f.inputs)
	cmd.Flags().StringSliceVar(&f.platforms, "platform", nil, "Only include these platforms (repeatable)")
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "Only include these categories (repeatable)")
	cmd.Flags().StringVar(&f.out, "out", "", "Export path (overrides export.path)")
	cmd.Flags().StringVar(&f.format, "format", "", "Export format: csv, xlsx or json (default from --out)")
	return cmd
}

func addInputFlag(cmd *cobra.Command, dst *map[string]string) {
	cmd.Flags().StringToStringVar(dst, "input", nil,
		"Local file for a table, e.g. --input payouts=data/payouts.csv (repeatable)")
}

func (c *cli) runReport(cmd *cobra.Command, f runFlags) error {
	p := withInputs(c.pipeline, f.inputs)
	if err := c.checkConfig(p); err != nil {
		return err
	}

	ov := app.Overrides{OutPath: f.out, Format: f.format}
	if cmd.Flags().Changed("platform") {
		ov.Platforms = nonNil(f.platforms)
	}
	if cmd.Flags().Changed("category") {
		ov.Categories = nonNil(f.categories)
	}

	rep, err := app.New(p, c.logger).Run(cmd.Context(), ov)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if err := render.Outcome(w, rep.Outcome, widthOf(w)); err != nil {
		return err
	}
	if rep.Outcome.State != roas.Ready {
		return fmt.Errorf("report %s", rep.Outcome.State)
	}
	if rep.ExportPath != "" {
		fmt.Fprintf(w, "\nReport written to %s\n", rep.ExportPath)
	}
	if rep.StoredRows > 0 {
		fmt.Fprintf(w, "Stored %d rows in %s\n", rep.StoredRows, p.Storage.DB.Table)
	}
	return nil
}

// withInputs returns p with each name=path pair set as a file source.
func withInputs(p config.Pipeline, files map[string]string) config.Pipeline {
	if len(files) == 0 {
		return p
	}
	in := make(map[string]config.Source, len(p.Inputs)+len(files))
	for k, v := range p.Inputs {
		in[k] = v
	}
	for name, path := range files {
		in[strings.TrimSpace(name)] = config.Source{Kind: "file", File: config.SourceFile{Path: path}}
	}
	p.Inputs = in
	return p
}

// checkConfig logs every lint issue and fails on errors.
func (c *cli) checkConfig(p config.Pipeline) error {
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			c.logger.Error("config: invalid", zap.String("path", iss.Path), zap.String("issue", iss.Message))
		} else {
			c.logger.Warn("config: warning", zap.String("path", iss.Path), zap.String("issue", iss.Message))
		}
	}
	if err := firstError(issues); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func firstError(issues []config.Issue) error {
	for _, iss := range issues {
		if iss.Severity == config.SeverityError {
			return iss
		}
	}
	return nil
}

// nonNil keeps an explicitly empty selection distinct from "no override".
func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func widthOf(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return render.TerminalWidth(f)
	}
	return render.DefaultWidth
}
