package vm

import (
	"github.com/vibelang/vibe-core/instr"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

// dispatchAIVibe gathers the prompt/model/context-spec triple and
// transitions to awaiting_ai, handing control to the driver (spec.md
// §4.4). The driver resumes it with ResumeWithAIResponse.
func dispatchAIVibe(s *State, ins instr.Instruction) {
	ae, _ := ins.Stmt.(*program.AIExpr)
	promptVal := evalSimple(s, ae.Prompt)
	if promptVal.IsError() {
		s.LastResult = promptVal
		return
	}
	prompt := stringify(promptVal.Value)

	model := ins.Model
	if model == "" {
		model = s.LastUsedModel
	}

	s.PendingAI = &PendingAI{
		OpKind:         ins.Op2,
		Prompt:         prompt,
		Model:          model,
		ContextSpec:    ins.ContextSpec,
		ExpectedFields: ae.ExpectedFields,
	}
	s.Status = StatusAwaitingAI
}

// dispatchTSEval suspends to awaiting_ts for an inline host block
// (spec.md §4.7).
func dispatchTSEval(s *State, ins instr.Instruction) {
	te, _ := ins.Stmt.(*program.TSEvalExpr)
	args := make([]value.VibeValue, ins.Argc)
	for i := ins.Argc - 1; i >= 0; i-- {
		args[i] = popValue(s)
	}
	s.PendingTS = &PendingTS{Kind: "ts_block", Params: te.Params, Body: te.Body, Args: args}
	s.Status = StatusAwaitingTS
}

// dispatchCallImportedTS suspends to awaiting_ts for a call into an
// imported host function.
func dispatchCallImportedTS(s *State, ins instr.Instruction) {
	args := make([]value.VibeValue, ins.Argc)
	for i := ins.Argc - 1; i >= 0; i-- {
		args[i] = popValue(s)
	}
	s.PendingTS = &PendingTS{Kind: "ts_import", Name: ins.Name, Args: args}
	s.Status = StatusAwaitingTS
}

func dispatchExecToolDecl(s *State, ins instr.Instruction) {
	decl, ok := ins.ToolDecl.(*program.ToolDeclStmt)
	if !ok {
		fault(s, ins.Location, value.KindInternalError, "exec_tool_declaration missing declaration payload")
		return
	}
	if s.Program.Functions == nil {
		s.Program.Functions = map[string]*program.Function{}
	}
	s.Functions[decl.Name] = &program.Function{
		Name: decl.Name, Params: decl.Params, ParamTypes: decl.ParamTypes,
		Body: decl.Body, HostBody: decl.HostBody,
	}
	s.LastResult = value.Null()
}

func dispatchDeclareModel(s *State, ins instr.Instruction) {
	md, ok := ins.Stmt.(*program.ModelDeclStmt)
	if !ok {
		fault(s, ins.Location, value.KindInternalError, "declare_model missing declaration payload")
		return
	}
	if s.Program.Models == nil {
		s.Program.Models = map[string]*program.ModelDecl{}
	}
	s.Program.Models[md.Decl.Name] = md.Decl
	s.LastUsedModel = md.Decl.Name
	s.LastResult = value.Null()
}
