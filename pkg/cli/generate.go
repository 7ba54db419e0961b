package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/collmock/pkg/cli/internal/output"
	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/generator"
	"github.com/getmockd/collmock/pkg/metrics"
)

// GenerateOutput is the JSON form of a generate run.
type GenerateOutput struct {
	PassID      string       `json:"passId"`
	Collections []string     `json:"collections"`
	Endpoints   []string     `json:"endpoints"`
	Skipped     []SkipOutput `json:"skipped"`
	Warnings    []string     `json:"warnings"`
	Pruned      []string     `json:"pruned"`
	Conflicts   []string     `json:"conflicts"`
}

// SkipOutput describes a collection file left out of a pass.
type SkipOutput struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one rebuild pass and exit",
	Long: `Reads every collection, writes one dataset record per collection and one
endpoint stub per route, then removes artifacts of collections that are gone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := newLogger(cmd, cfg)

		gen := newGenerator(cfg, dataset.NewStore(), metrics.New(), log)
		res, err := gen.Rebuild(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

func summarize(res *generator.Result) GenerateOutput {
	out := GenerateOutput{
		PassID:      res.PassID,
		Collections: []string{},
		Endpoints:   []string{},
		Skipped:     []SkipOutput{},
		Warnings:    []string{},
		Pruned:      []string{},
		Conflicts:   []string{},
	}
	for _, c := range res.Collections {
		out.Collections = append(out.Collections, c.ID)
	}
	for _, s := range res.Snapshot.Stubs {
		out.Endpoints = append(out.Endpoints, s.Path)
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, SkipOutput{File: s.File, Reason: s.Reason})
	}
	for _, w := range res.Items {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: item %q: %s", w.Collection, w.Item, w.Reason))
	}
	if res.Manifest != nil {
		out.Pruned = append(out.Pruned, res.Manifest.Pruned...)
		for _, c := range res.Manifest.Conflicts {
			out.Conflicts = append(out.Conflicts, fmt.Sprintf("%s: %s/%s replaced by %s/%s",
				c.Name, c.Previous, c.PreviousRoute, c.Winner, c.Route))
		}
	}
	return out
}

func printResult(cmd *cobra.Command, res *generator.Result) error {
	sum := summarize(res)
	w := cmd.OutOrStdout()
	if jsonOutput {
		return output.JSON(w, sum)
	}

	fmt.Fprintf(w, "Generated %d endpoints from %d collections\n", len(sum.Endpoints), len(sum.Collections))
	if len(sum.Endpoints) > 0 {
		tw := output.Table(w)
		for _, s := range res.Snapshot.Stubs {
			fmt.Fprintf(tw, "  %s\t%s\t%v\n", s.Path, s.Collection, s.Methods)
		}
		_ = tw.Flush()
	}
	errOut := cmd.ErrOrStderr()
	for _, s := range sum.Skipped {
		output.Warn(errOut, "skipped %s (%s)", s.File, s.Reason)
	}
	for _, msg := range sum.Warnings {
		output.Warn(errOut, "%s", msg)
	}
	for _, msg := range sum.Conflicts {
		output.Warn(errOut, "endpoint %s", msg)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
