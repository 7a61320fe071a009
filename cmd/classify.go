package cmd

import (
	"fmt"
	"io"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/gradeval/internal/dataset"
	"github.com/abhisek/gradeval/internal/engine"
	"github.com/abhisek/gradeval/internal/fieldpath"
	"github.com/abhisek/gradeval/internal/ruleset"
	"github.com/abhisek/gradeval/internal/ui/reportview"
	"github.com/abhisek/gradeval/internal/ui/theme"
	"github.com/abhisek/gradeval/internal/values"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify a record file with a rule document",
	Example: `  gradeval run --records grades.yaml --rules pass-fail.yaml
  gradeval run --records grades.json --rules pass-fail.yaml --out - --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recordsPath, _ := cmd.Flags().GetString("records")
		rulesPath, _ := cmd.Flags().GetString("rules")
		outPath, _ := cmd.Flags().GetString("out")
		format, _ := cmd.Flags().GetString("format")
		mode, _ := cmd.Flags().GetString("group-mode")
		barWidth, _ := cmd.Flags().GetInt("bar-width")

		doc, err := ruleset.Load(rulesPath)
		if err != nil {
			return err
		}
		ds, err := dataset.Load(recordsPath)
		if err != nil {
			return err
		}

		e, in, err := newEngine(doc, ds, mode)
		if err != nil {
			return err
		}
		out, err := e.Evaluate(ds.Records, in)
		if err != nil {
			lipgloss.Fprintln(cmd.ErrOrStderr(), theme.Failed.Render("classification failed"))
			return err
		}

		w := cmd.OutOrStdout()
		if outPath == "-" {
			// Records go to stdout; keep the summary off it.
			w = cmd.ErrOrStderr()
		}
		lipgloss.Fprintln(w, theme.Done.Render(out.Message()))
		lipgloss.Fprintln(w, reportview.New(out.Report, barWidth).Render())

		if outPath != "" {
			return writeRecords(cmd, ds, outPath, format)
		}
		return nil
	},
}

// newEngine builds a map-record engine for doc.
func newEngine(doc *ruleset.Document, ds *dataset.Dataset, modeFlag string) (*engine.Engine[map[string]any], engine.Input[map[string]any], error) {
	var in engine.Input[map[string]any]

	mode := doc.GroupModeOr(engine.ConfigFromEnv().GroupMode)
	if modeFlag != "" {
		m, err := engine.ParseGroupMode(modeFlag)
		if err != nil {
			return nil, in, fmt.Errorf("--group-mode: %w", err)
		}
		mode = m
	}
	fields, err := doc.FieldPaths()
	if err != nil {
		return nil, in, err
	}

	r := resolverFor(doc, ds)
	in, err = ruleset.Input[map[string]any](doc, r)
	if err != nil {
		return nil, in, err
	}
	e := engine.New[map[string]any](r,
		engine.WithLogger[map[string]any](logger),
		engine.WithGroupMode[map[string]any](mode),
		engine.WithFields[map[string]any](fields),
	)
	return e, in, nil
}

// resolverFor declares the result and notes fields as strings since the
// records may not carry them yet.
func resolverFor(doc *ruleset.Document, ds *dataset.Dataset) *fieldpath.MapResolver {
	return ds.Resolver(map[string]values.Kind{
		doc.Result: values.KindString,
		doc.Notes:  values.KindString,
	})
}

func writeRecords(cmd *cobra.Command, ds *dataset.Dataset, path, format string) error {
	var w io.Writer = cmd.OutOrStdout()
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := ds.Write(w, format); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

func init() {
	runCmd.Flags().String("records", "", "Record file (YAML or JSON)")
	runCmd.Flags().String("rules", "", "Rule document (YAML)")
	runCmd.Flags().String("out", "", "Write classified records to this file (- for stdout)")
	runCmd.Flags().String("format", "yaml", "Output format for --out (yaml or json)")
	runCmd.Flags().String("group-mode", "", "Override the grouping (overlap or partition)")
	runCmd.Flags().Int("bar-width", 20, "Width of the share bars in the report")
	_ = runCmd.MarkFlagRequired("records")
	_ = runCmd.MarkFlagRequired("rules")
}
