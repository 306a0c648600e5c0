package main

import (
	"github.com/spf13/cobra"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/manifest"
)

// lintCmd parses, schema-validates and shape-validates a manifest.
var lintCmd = &cobra.Command{
	Use:   "lint <manifest.yaml>",
	Short: "Validate a part manifest",
	Long: `Parse a YAML part manifest, validate it against the document schema,
build the part tree and re-check its shape invariants.`,
	Example: `  # Lint a manifest
  weave lint app.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := manifest.LoadFile(args[0])
		if err != nil {
			return err
		}
		part, err := def.Build()
		if err != nil {
			return err
		}
		if err := weave.Validate(part, weave.RawFlow(nil)); err != nil {
			return err
		}
		cmd.Printf("%s: ok (%s)\n", args[0], def.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
