package runtime

import (
	"context"
	"fmt"

	"github.com/vibelang/vibe-core/ai"
	"github.com/vibelang/vibe-core/async"
	"github.com/vibelang/vibe-core/ctxasm"
	"github.com/vibelang/vibe-core/debug"
	"github.com/vibelang/vibe-core/handoff"
	"github.com/vibelang/vibe-core/logger"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/telemetry"
	"github.com/vibelang/vibe-core/value"
	"github.com/vibelang/vibe-core/vm"
)

// HostEvaluator answers the host evaluator contract (spec.md §6):
// Evaluate runs an inline ts_block, CallImported runs a call into an
// imported host function. Both back ts_eval/call_imported_ts suspends
// and a tool-loop call into a host-bodied tool.
type HostEvaluator interface {
	Evaluate(ctx context.Context, params []string, body string, args []value.VibeValue, loc value.Location) (value.VibeValue, error)
	CallImported(ctx context.Context, name string, args []value.VibeValue, loc value.Location) (value.VibeValue, error)
}

// RunToSettled drives the session through every suspension it knows how
// to resolve on its own (awaiting_ai, awaiting_async, awaiting_ts,
// awaiting_tool, awaiting_compress), stopping at completed, error, a
// debug pause, or awaiting_user (which only a human caller can answer).
func (sess *Session) RunToSettled(ctx context.Context) *vm.State {
	for {
		sess.RunUntilPause()
		switch sess.State.Status {
		case vm.StatusAwaitingAI:
			sess.resolveAI(ctx)
		case vm.StatusAwaitingAsync:
			sess.resolveAsync(ctx)
		case vm.StatusAwaitingTS:
			sess.resolveTS(ctx)
		case vm.StatusAwaitingTool:
			sess.resolveTool(ctx)
		case vm.StatusAwaitingCompress:
			sess.resolveCompress(ctx)
		default:
			return sess.State
		}
	}
}

func (sess *Session) resolveAI(ctx context.Context) {
	pending := sess.State.PendingAI
	entries := vm.ContextEntriesFor(sess.State, pending.ContextSpec)
	text := ctxasm.RenderRequest(entries, pending.Prompt)
	req := ai.Request{
		OpKind: pending.OpKind, Text: text, Model: pending.Model,
		ExpectedFields: pending.ExpectedFields, Tools: sess.toolSpecs(),
	}

	ctx, end := telemetry.StartAICall(ctx, pending.OpKind)
	logger.Debug("resolving %s call against model %q", pending.OpKind, pending.Model)

	if pending.OpKind == "vibe" {
		result, rounds, err := sess.Provider.Vibe(ctx, req, sess.invokeTool(ctx))
		if err != nil {
			end("error")
			logger.Error("vibe call failed: %v", err)
			vm.ResumeWithAIError(sess.State, err)
			return
		}
		end("ok")
		vm.ResumeWithAIResponse(sess.State, result.Value, rounds, result.Usage)
		return
	}

	result, err := sess.Provider.Do(ctx, req)
	if err != nil {
		end("error")
		logger.Error("do call failed: %v", err)
		vm.ResumeWithAIError(sess.State, err)
		return
	}
	if verr := ai.ValidateExpectedFields(result.Value, pending.ExpectedFields); verr != nil {
		end("error")
		vm.ResumeWithAIError(sess.State, verr)
		return
	}
	end("ok")
	vm.ResumeWithAIResponse(sess.State, result.Value, nil, result.Usage)
}

func (sess *Session) resolveAsync(ctx context.Context) {
	async.Drain(ctx, sess.State, sess.runAsyncOp)
}

// runAsyncOp is the async.Runner that settles one queued "ai"/"ts"
// StartRequest. vm.dispatchAsyncLet already resolved the payload's
// prompt/args against the declaring frame (see vm.resolveAsyncPayload),
// so this never touches sess.State's call stack directly.
func (sess *Session) runAsyncOp(ctx context.Context, req vm.StartRequest) (value.VibeValue, error) {
	switch p := req.Payload.(type) {
	case *vm.PendingAI:
		result, err := sess.Provider.Do(ctx, ai.Request{OpKind: p.OpKind, Text: p.Prompt, Model: p.Model, ExpectedFields: p.ExpectedFields})
		if err != nil {
			return value.VibeValue{}, err
		}
		return value.VibeValue{Value: result.Value, Source: value.SourceAI, Usage: result.Usage}, nil
	case *vm.PendingTS:
		if p.Kind == "ts_import" {
			return sess.Host.CallImported(ctx, p.Name, p.Args, value.Location{})
		}
		return sess.Host.Evaluate(ctx, p.Params, p.Body, p.Args, value.Location{})
	default:
		return value.VibeValue{}, fmt.Errorf("async op %q has no resolvable payload", req.OpID)
	}
}

func (sess *Session) resolveTS(ctx context.Context) {
	pending := sess.State.PendingTS
	_ = sess.Handoff.Enter(handoffReasonFor(pending.Kind), sess.Debug)

	var result value.VibeValue
	var err error
	if pending.Kind == "ts_import" {
		result, err = sess.Host.CallImported(ctx, pending.Name, pending.Args, value.Location{})
	} else {
		result, err = sess.Host.Evaluate(ctx, pending.Params, pending.Body, pending.Args, value.Location{})
	}
	sess.Handoff.ExitTS(sess.State, sess.Debug, result, err)
}

func handoffReasonFor(tsKind string) handoff.Reason {
	if tsKind == "ts_import" {
		return handoff.ReasonTSImport
	}
	return handoff.ReasonTSBlock
}

func (sess *Session) resolveTool(ctx context.Context) {
	pending := sess.State.PendingTool
	_ = sess.Handoff.Enter(handoff.ReasonTool, sess.Debug)

	fn := sess.State.Functions[pending.Name]
	var args []value.VibeValue
	if fn != nil {
		args = make([]value.VibeValue, len(fn.Params))
		for i, p := range fn.Params {
			args[i] = value.New(pending.Args[p])
		}
	}
	result, err := sess.Host.CallImported(ctx, pending.Name, args, value.Location{})
	sess.Handoff.ExitTool(sess.State, sess.Debug, result, err)
}

func (sess *Session) resolveCompress(ctx context.Context) {
	pc := sess.State.PendingCompress
	f := sess.State.Arena.At(pc.FrameIndex)
	entries := f.OrderedEntries[pc.EntryIndex:]
	text := ctxasm.Render(entries)

	req := ai.Request{OpKind: "do", Model: pc.Model, Text: "Summarize the following execution trace in one or two sentences:\n" + text}
	result, err := sess.Provider.Do(ctx, req)
	summary := ""
	if err != nil {
		summary = "summary unavailable: " + err.Error()
	} else {
		summary = fmt.Sprintf("%v", result.Value)
	}
	vm.ResumeWithCompress(sess.State, summary)
}

// Invoke calls one of this session's declared functions by name from
// outside the driver loop — the path mcptools.Serve uses to re-expose a
// loaded program's functions to an external MCP client.
func (sess *Session) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	return sess.invokeTool(ctx)(ctx, name, args)
}

// invokeTool returns the ai.ToolInvoker a vibe round uses to execute the
// tool calls a model requested (spec.md §4.4 step 5). Host-bodied tools
// go straight to the host evaluator (the machine is already suspended on
// awaiting_ai, so there is nothing further to suspend); script-bodied
// tools run in an isolated sub-session sharing the function table, since
// vm.State's instruction-stack-empties-means-completed invariant assumes
// one call tree per state and cannot host a second, unrelated one mid-run.
func (sess *Session) invokeTool(ctx context.Context) ai.ToolInvoker {
	return func(ctx context.Context, name string, args map[string]any) (any, error) {
		fn, ok := sess.State.Functions[name]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		if fn.HostBody != "" {
			vargs := make([]value.VibeValue, len(fn.Params))
			for i, p := range fn.Params {
				vargs[i] = value.New(args[p])
			}
			result, err := sess.Host.CallImported(ctx, name, vargs, value.Location{})
			if err != nil {
				return nil, err
			}
			if result.IsError() {
				return nil, result.Err
			}
			return result.Value, nil
		}
		return sess.runSubCall(ctx, fn, args)
	}
}

// runSubCall executes a script-bodied tool function to completion in a
// fresh, isolated vm.State that shares the calling program's function
// table, resolving any AI/async/host suspensions the function body
// itself triggers through this same Session's providers.
func (sess *Session) runSubCall(ctx context.Context, fn *program.Function, args map[string]any) (any, error) {
	callArgs := make([]program.Expr, len(fn.Params))
	for i, p := range fn.Params {
		callArgs[i] = &program.Literal{Value: args[p]}
	}
	sub := &program.Program{
		ModulePath: "tool:" + fn.Name,
		Body: []program.Stmt{&program.ExprStmt{Value: &program.CallExpr{
			Callee: &program.Ident{Name: fn.Name}, Args: callArgs,
		}}},
		Functions: sess.State.Functions,
	}
	subSess := &Session{
		State: vm.NewState(sub, vm.Options{MaxParallel: sess.State.MaxParallel}),
		Debug: debug.NewController(), Handoff: handoff.NewController(),
		Provider: sess.Provider, Host: sess.Host,
	}
	subSess.RunToSettled(ctx)
	if subSess.State.Status == vm.StatusError {
		return nil, fmt.Errorf("tool %q failed: %s", fn.Name, subSess.State.Error)
	}
	if subSess.State.LastResult.IsError() {
		return nil, subSess.State.LastResult.Err
	}
	return subSess.State.LastResult.Value, nil
}
