package main

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/manifest"
	sink "github.com/weaveui/weave/sink/html"
	"github.com/weaveui/weave/stream"
)

var renderStateFile string

// renderCmd renders a manifest once against a state snapshot.
var renderCmd = &cobra.Command{
	Use:   "render <manifest.yaml>",
	Short: "Render a manifest to HTML on stdout",
	Long: `Build the manifest's part tree, mount it over a constant state
snapshot and print the rendered HTML.`,
	Example: `  # Render with an empty state
  weave render app.yaml

  # Render against a state snapshot
  weave render app.yaml --state state.json`,
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

		state, err := loadState(renderStateFile)
		if err != nil {
			return err
		}
		r, err := weave.Mount(part, constantFlow(state), weave.WithLogger(cliLogger()))
		if err != nil {
			return err
		}
		out, err := sink.RenderString(r)
		if err != nil {
			return err
		}
		cmd.Println(out)
		return nil
	},
}

// constantFlow serves one state snapshot forever, logging incoming actions
// at debug level so lint/render runs surface interactivity without state.
func constantFlow(state any) weave.Flow {
	logger := cliLogger()
	return weave.FromSideEffect(func(a any) {
		logger.Debug("action", "value", a)
	}, stream.Just(state))
}

func loadState(path string) (any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 - user-supplied state file
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	state, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return state, nil
}

func init() {
	renderCmd.Flags().StringVar(&renderStateFile, "state", "", "JSON state snapshot file")
	rootCmd.AddCommand(renderCmd)
}
