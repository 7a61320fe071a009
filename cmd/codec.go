package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/gradeval/internal/mapcodec"
	"github.com/abhisek/gradeval/internal/ruleset"
)

var encodeCmd = &cobra.Command{
	Use:   "encode <rules.yaml>",
	Short: "Print the categories of a rule document as map text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subs, _ := cmd.Flags().GetBool("subcategories")

		doc, err := ruleset.Load(args[0])
		if err != nil {
			return err
		}
		rs := doc.Categories
		if subs {
			rs = doc.Subcategories
		}
		text, err := mapcodec.RuleSetText(rs)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:     "decode <text>",
	Short:   "Parse map text into a categories block",
	Example: `  gradeval decode '{"Pass": "value >= 5.0", "Fail": "value < 5.0"}'`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := mapcodec.RuleSetFromText(args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(map[string]any{"categories": rs})
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	encodeCmd.Flags().Bool("subcategories", false, "Encode the subcategories instead")
}
