package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibelang/vibe-core/config"
	"github.com/vibelang/vibe-core/mcptools"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/runtime"
	"github.com/vibelang/vibe-core/vm"
)

// newServeMCPCmd exposes every function a program declares as tools on an
// MCP server, so an external MCP client (an editor, another agent) can
// call into this interpreter's functions directly. Grounded on
// mcp/server.go's Serve/RegisterAllTools, rehomed onto a loaded program's
// functions instead of a fixed set of flow-CRUD operations.
func newServeMCPCmd() *cobra.Command {
	var stdio bool
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-mcp [program.json]",
		Short: "expose a program's declared functions as an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveMCP(args[0], stdio, addr)
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", true, "serve over stdin/stdout instead of HTTP")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8090", "listen address for HTTP mode")
	return cmd
}

func serveMCP(path string, stdio bool, addr string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	prog, err := program.DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("decoding program: %w", err)
	}

	mgr := mcptools.NewManager(cfg.MCPServers)
	defer mgr.Close()

	sess := runtime.CreateInitialState(prog, vm.Options{MaxParallel: cfg.Async.MaxParallel})
	sess.Host = &mcpHost{manager: mgr}

	regs := mcptools.FuncRegistrations(sess.ToolSpecs(), sess.Invoke)
	return mcptools.Serve(stdio, addr, regs)
}
