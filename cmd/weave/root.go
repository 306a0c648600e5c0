package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/weaveui/weave"
)

// Version information set by ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "weave",
	Short: "A declarative reactive UI-tree toolkit",
	Long: `Weave composes small UI units into reactive trees driven by
action/state flows. This CLI lints, renders and serves YAML part
manifests.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// stderrLogger adapts the standard logger to the weave.Logger interface.
type stderrLogger struct{}

func (stderrLogger) Debug(msg string, keysAndValues ...any) {
	if verbose {
		log.Println(append([]any{"DEBUG", msg}, keysAndValues...)...)
	}
}

func (stderrLogger) Info(msg string, keysAndValues ...any) {
	log.Println(append([]any{"INFO", msg}, keysAndValues...)...)
}

func (stderrLogger) Error(msg string, keysAndValues ...any) {
	log.Println(append([]any{"ERROR", msg}, keysAndValues...)...)
}

func cliLogger() weave.Logger {
	return stderrLogger{}
}
