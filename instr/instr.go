// Package instr defines the tagged micro-instruction set the stepper
// consumes one at a time (spec.md §4.1). Every Instruction carries its
// source location so that errors and the debug controller can always
// point at the originating line.
package instr

import (
	"github.com/vibelang/vibe-core/value"
)

// Op tags an Instruction's variant.
type Op string

const (
	// Execution framing
	OpExecStatement  Op = "exec_statement"
	OpExecExpression Op = "exec_expression"
	OpExecStatements Op = "exec_statements"

	// Bindings
	OpDeclareVar        Op = "declare_var"
	OpAssignVar         Op = "assign_var"
	OpDestructureAssign Op = "destructure_assign"

	// Calls & frames
	OpCallFunction Op = "call_function"
	OpPushFrame    Op = "push_frame"
	OpPopFrame     Op = "pop_frame"
	OpReturnValue  Op = "return_value"
	OpThrowError   Op = "throw_error"

	// OpAsyncInlineComplete finalizes an async_let binding whose value
	// needed no external I/O (anything but an ai/ts body): the expression
	// runs through the ordinary instruction sequence, possibly suspending
	// along the way like any other code, and this instruction writes the
	// settled result back into the async op and its owning binding.
	OpAsyncInlineComplete Op = "async_inline_complete"

	// Blocks
	OpEnterBlock Op = "enter_block"
	OpExitBlock  Op = "exit_block"

	// Control
	OpIfBranch      Op = "if_branch"
	OpForInInit     Op = "for_in_init"
	OpForInIterate  Op = "for_in_iterate"
	OpWhileInit     Op = "while_init"
	OpWhileIterate  Op = "while_iterate"
	OpWhileCheck    Op = "while_check"
	OpBreakLoop     Op = "break_loop"

	// AI & host
	OpAIVibe           Op = "ai_vibe"
	OpTSEval           Op = "ts_eval"
	OpCallImportedTS   Op = "call_imported_ts"
	OpExecToolDecl     Op = "exec_tool_declaration"
	OpDeclareModel     Op = "declare_model"

	// Values
	OpLoadVar                Op = "load_var"
	OpPushValue              Op = "push_value"
	OpLiteral                Op = "literal"
	OpBuildObject             Op = "build_object"
	OpBuildArray              Op = "build_array"
	OpBuildRange              Op = "build_range"
	OpCollectArgs             Op = "collect_args"
	OpBinaryOp                Op = "binary_op"
	OpUnaryOp                 Op = "unary_op"
	OpIndexAccess             Op = "index_access"
	OpSliceAccess             Op = "slice_access"
	OpMemberAccess            Op = "member_access"
	OpInterpolateString       Op = "interpolate_string"
	OpInterpolatePromptString Op = "interpolate_prompt_string"
	OpClearPromptContext      Op = "clear_prompt_context"
	OpClearAsyncContext       Op = "clear_async_context"
)

// Instruction is the tagged micro-op the stepper dispatches on. A single
// struct with a Op discriminant and loosely-typed payload fields plays
// the role of a sum type in Go — mirroring the bytecode-instruction
// shape used by the pack's own VMs (wudi-hey's opcodes, risor's vm.go).
type Instruction struct {
	Op       Op
	Location value.Location

	// Generic payload fields, populated per Op. Only the fields relevant
	// to a given Op are meaningful; see the dispatch table in package vm.
	Name      string
	Names     []string
	IsConst   bool
	Type      value.TypeAnnotation
	IsPrivate bool
	Argc      int
	Count     int
	Keys      []string
	HasStart  bool
	HasEnd    bool
	Op2       string // binary/unary operator token, or generic secondary op tag
	Template  []TemplatePart

	// Control-flow payloads
	Consequent []Instruction
	Alternate  []Instruction
	Body       []Instruction
	Stmt       any // opaque AST node for exec_statement/for_in_init/while_init
	Items      any // opaque iteration source for for_in_iterate
	Index      int
	SavedKeys  any // frame.SavedKeys, opaque here to avoid an import cycle
	ContextMode ContextMode
	Label       string
	EntryIndex  int
	ScopeKind   string

	// AI & host payloads
	Model        string
	ContextSpec  ContextSpec
	PromptText   string
	Params       []string
	ToolDecl     any

	// Literal / object payloads
	Literal any
}

// ContextMode is the scope-exit policy applied to loops (spec.md §4.3).
type ContextMode string

const (
	ContextForget   ContextMode = "forget"
	ContextVerbose  ContextMode = "verbose"
	ContextCompress ContextMode = "compress"
)

// ContextSpec selects which view is handed to an AI call (spec.md §4.4).
type ContextSpec string

const (
	ContextLocal   ContextSpec = "local"
	ContextGlobal  ContextSpec = "global"
	ContextDefault ContextSpec = "default"
	ContextNone    ContextSpec = "none"
)

// TemplatePart is one piece of an interpolated string/prompt template:
// either a literal run of text or an embedded expression to evaluate.
type TemplatePart struct {
	Literal    string
	IsExpr     bool
	Expression any
}
