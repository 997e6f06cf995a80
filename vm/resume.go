package vm

import (
	"github.com/vibelang/vibe-core/frame"
	"github.com/vibelang/vibe-core/value"
)

// ToolRound is one round of a tool-loop AI call: the calls the model
// requested and their results (spec.md §4.4).
type ToolRound struct {
	Calls   []value.ToolCall
	Results []value.VibeValue
}

// ResumeWithAIResponse implements resume_with_ai_response (spec.md §6):
// builds the VibeValue, appends a prompt entry to the current frame,
// updates model usage, and resumes stepping.
func ResumeWithAIResponse(s *State, result any, toolRounds []ToolRound, usage *value.Usage) *State {
	if s.PendingAI == nil {
		fault(s, value.Location{}, value.KindInternalError, "resume_with_ai_response with no pending AI request")
		return s
	}
	pending := s.PendingAI
	var allCalls []value.ToolCall
	for _, round := range toolRounds {
		allCalls = append(allCalls, round.Calls...)
	}

	v := value.VibeValue{Value: result, Source: value.SourceAI, ToolCalls: allCalls, Usage: usage}

	top := s.CallStack.Top()
	top.OrderedEntries = append(top.OrderedEntries, frame.Prompt(pending.OpKind, pending.Prompt, allCalls, &v))

	s.AIHistory = append(s.AIHistory, AIHistoryEntry{OpKind: pending.OpKind, Prompt: pending.Prompt, Model: pending.Model, Response: v})
	if pending.Model != "" {
		s.LastUsedModel = pending.Model
	}

	s.LastResult = v
	s.PendingAI = nil
	s.Status = StatusRunning
	return s
}

// ResumeWithAIError resumes a suspended ai_vibe request whose provider
// call itself failed (transport/vendor error, not a model-produced
// value) — spec.md §7 taxonomy's AIProviderError, delivered as a
// recoverable VibeValue rather than a runtime fault so the script may
// branch on `.err` same as any other AI result.
func ResumeWithAIError(s *State, err error) *State {
	if s.PendingAI == nil {
		fault(s, value.Location{}, value.KindInternalError, "resume_with_ai_response with no pending AI request")
		return s
	}
	pending := s.PendingAI
	v := value.NewError(value.NewErr(value.KindAIProviderError, value.Location{}, "%s", err.Error()))

	top := s.CallStack.Top()
	top.OrderedEntries = append(top.OrderedEntries, frame.Prompt(pending.OpKind, pending.Prompt, nil, &v))
	s.AIHistory = append(s.AIHistory, AIHistoryEntry{OpKind: pending.OpKind, Prompt: pending.Prompt, Model: pending.Model, Response: v})

	s.LastResult = v
	s.PendingAI = nil
	s.Status = StatusRunning
	return s
}

// ResumeWithAsyncResults implements resume_with_async_results: writes
// results into their owning variable slots and clears pending ids
// (spec.md §4.5).
func ResumeWithAsyncResults(s *State, results map[string]value.VibeValue) *State {
	for id, v := range results {
		op, ok := s.AsyncOperations[id]
		if !ok {
			continue
		}
		if v.IsError() {
			op.Status = AsyncFailed
		} else {
			op.Status = AsyncCompleted
		}
		op.Result = &v
		delete(s.PendingAsyncIDs, id)

		if op.VariableName != "" {
			f := s.Arena.At(op.FrameIndex)
			f.Locals[op.VariableName] = v
		}
	}

	remaining := s.AwaitingAsyncIDs[:0]
	for _, id := range s.AwaitingAsyncIDs {
		if _, stillPending := results[id]; !stillPending {
			remaining = append(remaining, id)
		}
	}
	s.AwaitingAsyncIDs = remaining

	if s.PendingDestructure != nil {
		if v, ok := results[s.PendingDestructure.AsyncOperationID]; ok && !v.IsError() {
			s.PendingDestructure = nil
		}
	}

	if len(s.AwaitingAsyncIDs) == 0 {
		s.Status = StatusRunning
	}
	return s
}

// ResumeWithTSResult implements resume_with_ts_result (spec.md §6, §4.7).
func ResumeWithTSResult(s *State, result value.VibeValue, hostErr error) *State {
	if hostErr != nil {
		result = value.NewError(value.NewErr(value.KindHostBlockError, value.Location{}, "%s", hostErr.Error()))
	}
	s.LastResult = result
	s.PendingTS = nil
	s.Status = StatusRunning
	return s
}

// ResumeWithToolResult resumes a host-bodied tool call suspended by
// callUserFunction (spec.md §4.7): unlike a script function call, no
// frame was pushed, so resuming only needs to land the host's return
// value into last_result.
func ResumeWithToolResult(s *State, result value.VibeValue, hostErr error) *State {
	if hostErr != nil {
		result = value.NewError(value.NewErr(value.KindHostBlockError, value.Location{}, "%s", hostErr.Error()))
	}
	s.LastResult = result
	s.PendingTool = nil
	s.Status = StatusRunning
	return s
}

// ResumeWithCompress implements resume_with_compress: atomically
// replaces the scope's entry slice with one summary entry, then appends
// scope_exit (spec.md §4.3, §9 "Compress resumption").
func ResumeWithCompress(s *State, summaryText string) *State {
	if s.PendingCompress == nil {
		fault(s, value.Location{}, value.KindInternalError, "resume_with_compress with no pending compress request")
		return s
	}
	pc := s.PendingCompress
	f := s.Arena.At(pc.FrameIndex)
	f.CompressEntriesFrom(pc.EntryIndex, summaryText)
	f.OrderedEntries = append(f.OrderedEntries, frame.ScopeExit("", ""))
	s.PendingCompress = nil
	s.Status = StatusRunning
	return s
}
