package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/collmock/pkg/cli/internal/output"
	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/metrics"
	"github.com/getmockd/collmock/pkg/openapi"
)

var (
	openapiOut    string
	openapiFormat string
	openapiTitle  string
)

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print an OpenAPI document describing the mock API",
	Long: `Loads every collection in memory and describes the endpoints a rebuild
would serve. Nothing is written to the data or endpoints directories.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := newLogger(cmd, cfg)

		format := strings.ToLower(openapiFormat)
		if format == "" {
			format = "yaml"
			if strings.EqualFold(filepath.Ext(openapiOut), ".json") {
				format = "json"
			}
		}
		if format != "yaml" && format != "json" {
			return &exitError{code: 2, err: fmt.Errorf("unknown format %q (want yaml or json)", openapiFormat)}
		}

		gen := newGenerator(cfg, nil, metrics.New(), log)
		res, err := gen.Plan(cmd.Context())
		if err != nil {
			return err
		}
		doc, err := openapi.Describe(cmd.Context(), res.Snapshot, openapiTitle)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if format == "json" {
			err = output.JSON(&buf, doc)
		} else {
			err = output.YAML(&buf, doc)
		}
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}

		if openapiOut == "" {
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := os.WriteFile(openapiOut, buf.Bytes(), 0o644); err != nil {
			return &dataset.WriteError{Op: "write", Path: openapiOut, Err: err}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d paths to %s\n", doc.Paths.Len(), openapiOut)
		return nil
	},
}

func init() {
	f := openapiCmd.Flags()
	f.StringVarP(&openapiOut, "output", "o", "", "Write the document to this file instead of stdout")
	f.StringVar(&openapiFormat, "format", "", "Output format: yaml or json (default from --output extension, else yaml)")
	f.StringVar(&openapiTitle, "title", "collmock", "Document title")
	rootCmd.AddCommand(openapiCmd)
}
