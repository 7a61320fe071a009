package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/gradeval/internal/dataset"
	"github.com/abhisek/gradeval/internal/ruleset"
)

var checkCmd = &cobra.Command{
	Use:   "check <rules.yaml>",
	Short: "Validate a rule document and compile its rules",
	Long: `Validates the document against its schema and version, then compiles every
category rule and the script. With --records the field references are checked
against the kinds found in that file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordsPath, _ := cmd.Flags().GetString("records")

		doc, err := ruleset.Load(args[0])
		if err != nil {
			return err
		}

		ds := &dataset.Dataset{}
		if recordsPath != "" {
			if ds, err = dataset.Load(recordsPath); err != nil {
				return err
			}
			if err := ruleset.CheckFields(doc, resolverFor(doc, ds)); err != nil {
				return err
			}
		}
		e, in, err := newEngine(doc, ds, "")
		if err != nil {
			return err
		}
		// Classifying no records compiles everything without writing.
		if _, err := e.Evaluate(nil, in); err != nil {
			return err
		}

		name := doc.Name
		if name == "" {
			name = args[0]
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d categories, %d subcategories, version %s)\n",
			name, len(doc.Categories), len(doc.Subcategories), doc.Version)
		return nil
	},
}

func init() {
	checkCmd.Flags().String("records", "", "Record file used to check field references")
}
