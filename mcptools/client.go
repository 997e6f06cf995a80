// Package mcptools bridges vibe-core's host-call surface to external Model
// Context Protocol servers. It is the rename of the teacher's mcp package,
// narrowed from flow-step URI scanning to a single concern: resolving a
// "server/tool" ToolDeclStmt with no HostBody (see runtime.HostEvaluator's
// CallImported contract) into an MCP tool invocation over stdio or HTTP,
// and re-exposing a running session's declared functions as an MCP server
// for external clients. Grounded on adapter/mcp_adapter.go's stdio pipe
// bridge and manager.go's NewMCPCommand/waitForMCP readiness poll.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	mcp "github.com/metoro-io/mcp-golang"
	mcphttp "github.com/metoro-io/mcp-golang/transport/http"
	mcpstdio "github.com/metoro-io/mcp-golang/transport/stdio"

	"github.com/vibelang/vibe-core/config"
	"github.com/vibelang/vibe-core/logger"
)

// Manager spawns and talks to the MCP servers named in a config.Config's
// MCPServers map, and dispatches "server/tool" calls to them. One Manager
// is shared by every sub-call a runtime.Session's driver loop makes so a
// stdio server is only started once per process.
type Manager struct {
	mu        sync.Mutex
	servers   map[string]config.MCPServerConfig
	clients   map[string]*mcp.Client
	processes map[string]*exec.Cmd
	closed    bool
}

// NewManager builds a Manager over the configured MCP servers.
func NewManager(servers map[string]config.MCPServerConfig) *Manager {
	return &Manager{
		servers:   servers,
		clients:   make(map[string]*mcp.Client),
		processes: make(map[string]*exec.Cmd),
	}
}

// Call resolves "server/tool" against the configured MCP server, starting
// it on first use, and returns the tool result as a plain JSON-ish value
// (map[string]any, string, etc.) ready for value.New.
func (m *Manager) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	host, tool, ok := strings.Cut(name, "/")
	if !ok {
		return nil, fmt.Errorf("mcptools: %q is not a server/tool call", name)
	}
	client, err := m.ensure(ctx, host)
	if err != nil {
		return nil, err
	}
	toolsResp, err := client.ListTools(ctx, new(string))
	if err != nil {
		return nil, fmt.Errorf("mcptools: listing tools on %q: %w", host, err)
	}
	found := false
	for _, t := range toolsResp.Tools {
		if t.Name == tool {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("mcptools: tool %q not found on server %q", tool, host)
	}
	resp, err := client.CallTool(ctx, tool, args)
	if err != nil {
		return nil, fmt.Errorf("mcptools: calling %s/%s: %w", host, tool, err)
	}
	return decodeResponse(resp)
}

func decodeResponse(resp *mcp.ToolResponse) (any, error) {
	if resp != nil && len(resp.Content) > 0 && resp.Content[0].TextContent != nil {
		var decoded any
		if err := json.Unmarshal([]byte(resp.Content[0].TextContent.Text), &decoded); err == nil {
			return decoded, nil
		}
		return resp.Content[0].TextContent.Text, nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) ensure(ctx context.Context, host string) (*mcp.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if client, ok := m.clients[host]; ok {
		return client, nil
	}
	info, ok := m.servers[host]
	if !ok {
		return nil, fmt.Errorf("mcptools: server %q is not configured", host)
	}

	var client *mcp.Client
	switch {
	case info.Command != "":
		cmd := newCommand(info)
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("mcptools: stdin pipe for %q: %w", host, err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("mcptools: stdout pipe for %q: %w", host, err)
		}
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("mcptools: starting server %q: %w", host, err)
		}
		logger.Debug("mcp server started: %s (%s)", host, info.Command)
		m.processes[host] = cmd
		transport := mcpstdio.NewStdioServerTransportWithIO(stdout, stdin)
		client = mcp.NewClient(transport)
		if _, err := client.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("mcptools: initializing stdio client for %q: %w", host, err)
		}
	case info.Endpoint != "":
		if err := waitForReady(ctx, info.Endpoint, 15*time.Second); err != nil {
			return nil, err
		}
		client = newHTTPClient(info.Endpoint)
	default:
		return nil, fmt.Errorf("mcptools: server %q config has neither 'command' nor 'endpoint'", host)
	}

	m.clients[host] = client
	return client, nil
}

func newCommand(info config.MCPServerConfig) *exec.Cmd {
	cmd := exec.Command(info.Command, info.Args...)
	cmd.Env = os.Environ()
	for k, v := range info.Env {
		if strings.HasPrefix(v, "$env:") {
			if val := os.Getenv(strings.TrimPrefix(v, "$env:")); val != "" {
				cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, val))
			}
			continue
		}
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	return cmd
}

func newHTTPClient(endpoint string) *mcp.Client {
	transport := mcphttp.NewHTTPClientTransport("/mcp").WithBaseURL(endpoint)
	return mcp.NewClient(transport)
}

func waitForReady(ctx context.Context, endpoint string, timeout time.Duration) error {
	client := newHTTPClient(endpoint)
	deadline := time.Now().Add(timeout)
	interval := 250 * time.Millisecond
	for {
		if _, err := client.ListTools(ctx, new(string)); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("mcptools: timed out waiting for %s to become ready", endpoint)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		if interval < 2*time.Second {
			interval *= 2
		}
	}
}

// Close terminates every spawned stdio server process.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var firstErr error
	for host, cmd := range m.processes {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Kill(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mcptools: stopping %q: %w", host, err)
		}
	}
	return firstErr
}

var _ io.Closer = (*Manager)(nil)
