// Command vibe drives a vibe-core program from the outside: it loads a
// compiled program.json, wires the ambient stack (config, secrets, store,
// event bus, tracing, MCP tool bridge) around a runtime.Session, and runs
// it to completion or to a pause a human must resume. Grounded on
// cmd/flow/main.go's NewRootCmd/godotenv-then-cobra shape.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	configPath string
	debugFlag  bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "vibe"}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to vibe-core config YAML")
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	root.AddCommand(newRunCmd(), newServeMCPCmd())
	return root
}
