package main

import (
	"github.com/spf13/cobra"

	"roas/internal/webui"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr      string
		maxUpload int64
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload form and report pages",
		Long: `Starts the web UI: upload the four CSV/XLSX files, pick platforms and
categories, and view or download the report. Parser and view settings come
from --config; its inputs, export and storage sections are not used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := webui.NewServer(webui.Config{
				Addr:           addr,
				Pipeline:       c.pipeline,
				MaxUploadBytes: maxUpload,
				Logger:         c.logger,
			})
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().Int64Var(&maxUpload, "max-upload-bytes", 32<<20, "Largest accepted upload request")
	return cmd
}
