package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibelang/vibe-core/busevent"
	"github.com/vibelang/vibe-core/config"
	"github.com/vibelang/vibe-core/logger"
	"github.com/vibelang/vibe-core/mcptools"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/runtime"
	"github.com/vibelang/vibe-core/secrets"
	"github.com/vibelang/vibe-core/store"
	"github.com/vibelang/vibe-core/telemetry"
	"github.com/vibelang/vibe-core/vm"
)

// newRunCmd creates the 'run' subcommand: load program.json, configure
// every driven package, step the program to completion or to a pause.
// Grounded on cmd/flow/run.go's parse → configure → execute → report
// pipeline.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [program.json]",
		Short: "run a compiled vibe-core program to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runProgram(ctx context.Context, path string) error {
	if debugFlag {
		os.Setenv("VIBE_DEBUG", "1")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	telemetry.Init(cfg)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading program: %w", err)
	}
	prog, err := program.DecodeJSON(data)
	if err != nil {
		return fmt.Errorf("decoding program: %w", err)
	}

	secretsProvider, err := secrets.NewProvider(ctx, cfg.Secrets)
	if err != nil {
		return fmt.Errorf("building secrets provider: %w", err)
	}
	provider, err := newModelProvider(ctx, cfg, secretsProvider)
	if err != nil {
		return err
	}

	mgr := mcptools.NewManager(cfg.MCPServers)
	defer mgr.Close()

	sessionStore, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("building session store: %w", err)
	}
	defer sessionStore.Close()

	bus, err := busevent.New(cfg.Event)
	if err != nil {
		return fmt.Errorf("building event bus: %w", err)
	}
	defer bus.Close()

	sess := runtime.CreateInitialState(prog, vm.Options{MaxParallel: cfg.Async.MaxParallel})
	sess.Provider = provider
	sess.Host = &mcpHost{manager: mgr}

	sessionID := fmt.Sprintf("%s-%d", prog.ModulePath, time.Now().UnixNano())
	logger.Info("starting session %s (module %s)", sessionID, prog.ModulePath)
	_ = bus.Publish(ctx, busevent.Event{Kind: busevent.KindStarted, SessionID: sessionID, Status: string(sess.State.Status), At: time.Now()})

	sess.RunToSettled(ctx)

	rec := &store.Session{
		ID: sessionID, ModulePath: prog.ModulePath, ProgramJSON: data,
		Status: store.Status(sess.State.Status), StartedAt: time.Now(),
	}
	switch sess.State.Status {
	case vm.StatusCompleted:
		rec.Result = fmt.Sprintf("%v", sess.State.LastResult.Value)
		_ = bus.Publish(ctx, busevent.Event{Kind: busevent.KindCompleted, SessionID: sessionID, Status: string(sess.State.Status), At: time.Now()})
	case vm.StatusError:
		rec.Error = sess.State.Error
		_ = bus.Publish(ctx, busevent.Event{Kind: busevent.KindError, SessionID: sessionID, Status: string(sess.State.Status), Detail: sess.State.Error, At: time.Now()})
	default:
		_ = bus.Publish(ctx, busevent.Event{Kind: busevent.KindPaused, SessionID: sessionID, Status: string(sess.State.Status), At: time.Now()})
	}
	if err := sessionStore.SaveSession(ctx, rec); err != nil {
		logger.Warn("failed to persist session %s: %v", sessionID, err)
	}

	out, _ := json.MarshalIndent(map[string]any{
		"session_id": sessionID,
		"status":     sess.State.Status,
		"result":     sess.State.LastResult.Value,
		"error":      sess.State.Error,
	}, "", "  ")
	fmt.Println(string(out))

	if sess.State.Status == vm.StatusError {
		return fmt.Errorf("program errored: %s", sess.State.Error)
	}
	return nil
}
