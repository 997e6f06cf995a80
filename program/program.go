// Package program defines the parsed-program shapes the stepper consumes.
// Construction of these nodes (lexing, parsing, semantic analysis) is out
// of scope here — this package only fixes the node shapes that
// package vm's exec_statement/exec_expression instructions switch on,
// mirroring the tagged-node style of wudi-hey's ast package.
package program

import "github.com/vibelang/vibe-core/value"

// Stmt is a parsed statement node. Location lets the debug controller
// attribute a breakpoint/step boundary to a source position without
// package vm exposing its instruction-level Location bookkeeping
// (exec_statement instructions carry the raw Stmt, not its own copy of
// Loc — see vm.dispatchExecStatements).
type Stmt interface {
	stmtNode()
	Location() value.Location
}

// Expr is a parsed expression node.
type Expr interface {
	exprNode()
}

// Program is a fully parsed module ready for execution.
type Program struct {
	ModulePath string
	Body       []Stmt
	Functions  map[string]*Function
	Models     map[string]*ModelDecl
}

// Function is a declared function: parameters plus either a script body
// or, for a tool whose implementation lives outside the interpreter, a
// host block body (spec.md §4.7) — exactly one of Body/HostBody is set.
// ParamTypes is populated for functions declared via a tool declaration
// (spec.md §4.4 "tool_schemas_for_the_model"); it is nil for ordinary
// functions, which expose no parameter schema to an AI provider.
type Function struct {
	Name       string
	Params     []string
	ParamTypes map[string]value.TypeAnnotation
	Body       []Stmt
	HostBody   string
}

// ModelDecl names a declared model binding (`model gpt = ...`).
type ModelDecl struct {
	Name     string
	Provider string
	Config   map[string]any
}

// --- Statements ---

type LetStmt struct {
	Name      string
	IsConst   bool
	IsPrivate bool
	Type      value.TypeAnnotation
	Value     Expr
	Loc       value.Location
}

func (*LetStmt) stmtNode() {}

func (n *LetStmt) Location() value.Location { return n.Loc }

type AsyncLetStmt struct {
	Name string
	Type value.TypeAnnotation
	Value Expr
	Loc  value.Location
}

func (*AsyncLetStmt) stmtNode() {}

func (n *AsyncLetStmt) Location() value.Location { return n.Loc }

type AssignStmt struct {
	Name  string
	Value Expr
	Loc   value.Location
}

func (*AssignStmt) stmtNode() {}

func (n *AssignStmt) Location() value.Location { return n.Loc }

type DestructureStmt struct {
	Fields  []string
	IsConst bool
	Value   Expr
	Loc     value.Location
}

func (*DestructureStmt) stmtNode() {}

func (n *DestructureStmt) Location() value.Location { return n.Loc }

type ExprStmt struct {
	Value Expr
	Loc   value.Location
}

func (*ExprStmt) stmtNode() {}

func (n *ExprStmt) Location() value.Location { return n.Loc }

type IfStmt struct {
	Cond       Expr
	Consequent []Stmt
	Alternate  []Stmt
	Loc        value.Location
}

func (*IfStmt) stmtNode() {}

func (n *IfStmt) Location() value.Location { return n.Loc }

// ContextModeClause carries a loop's declared scope-exit policy.
type ContextModeClause struct {
	Mode  string // "forget" | "verbose" | "compress"
	Arg1  string
	Arg2  string
}

type ForInStmt struct {
	Var         string
	Items       Expr
	Body        []Stmt
	Label       string
	ContextMode ContextModeClause
	Loc         value.Location
}

func (*ForInStmt) stmtNode() {}

func (n *ForInStmt) Location() value.Location { return n.Loc }

type WhileStmt struct {
	Cond        Expr
	Body        []Stmt
	Label       string
	ContextMode ContextModeClause
	Loc         value.Location
}

func (*WhileStmt) stmtNode() {}

func (n *WhileStmt) Location() value.Location { return n.Loc }

type BreakStmt struct {
	Label string
	Loc   value.Location
}

func (*BreakStmt) stmtNode() {}

func (n *BreakStmt) Location() value.Location { return n.Loc }

type ReturnStmt struct {
	Value Expr
	Loc   value.Location
}

func (*ReturnStmt) stmtNode() {}

func (n *ReturnStmt) Location() value.Location { return n.Loc }

type ThrowStmt struct {
	Value Expr
	Loc   value.Location
}

func (*ThrowStmt) stmtNode() {}

func (n *ThrowStmt) Location() value.Location { return n.Loc }

type BlockStmt struct {
	Body []Stmt
	Loc  value.Location
}

func (*BlockStmt) stmtNode() {}

func (n *BlockStmt) Location() value.Location { return n.Loc }

// ToolDeclStmt declares a tool callable from an AI tool loop. Body is
// either a host block (HostBody != "") or a script block (Body).
type ToolDeclStmt struct {
	Name       string
	Params     []string
	ParamTypes map[string]value.TypeAnnotation
	HostBody   string
	Body       []Stmt
	Loc        value.Location
}

func (*ToolDeclStmt) stmtNode() {}

func (n *ToolDeclStmt) Location() value.Location { return n.Loc }

type ModelDeclStmt struct {
	Decl *ModelDecl
	Loc  value.Location
}

func (*ModelDeclStmt) stmtNode() {}

func (n *ModelDeclStmt) Location() value.Location { return n.Loc }

// --- Expressions ---

type Literal struct {
	Value any
	Loc   value.Location
}

func (*Literal) exprNode() {}

type Ident struct {
	Name string
	Loc  value.Location
}

func (*Ident) exprNode() {}

type BinaryExpr struct {
	Op    value.BinaryOp
	Left  Expr
	Right Expr
	Loc   value.Location
}

func (*BinaryExpr) exprNode() {}

type UnaryExpr struct {
	Op      value.UnaryOp
	Operand Expr
	Loc     value.Location
}

func (*UnaryExpr) exprNode() {}

type IndexExpr struct {
	Target Expr
	Index  Expr
	Loc    value.Location
}

func (*IndexExpr) exprNode() {}

type SliceExpr struct {
	Target Expr
	Start  Expr
	End    Expr
	Loc    value.Location
}

func (*SliceExpr) exprNode() {}

type MemberExpr struct {
	Target Expr
	Prop   string
	Loc    value.Location
}

func (*MemberExpr) exprNode() {}

type CallExpr struct {
	Callee Expr
	Args   []Expr
	Loc    value.Location
}

func (*CallExpr) exprNode() {}

type ArrayExpr struct {
	Elements []Expr
	Loc      value.Location
}

func (*ArrayExpr) exprNode() {}

type ObjectExpr struct {
	Keys   []string
	Values []Expr
	Loc    value.Location
}

func (*ObjectExpr) exprNode() {}

type RangeExpr struct {
	N   Expr
	Loc value.Location
}

func (*RangeExpr) exprNode() {}

// TemplatePiece is one piece of an interpolated string/prompt literal.
type TemplatePiece struct {
	Literal string
	Expr    Expr
}

type InterpStringExpr struct {
	Parts []TemplatePiece
	Loc   value.Location
}

func (*InterpStringExpr) exprNode() {}

type InterpPromptExpr struct {
	Parts []TemplatePiece
	Loc   value.Location
}

func (*InterpPromptExpr) exprNode() {}

// AIExpr is `do <prompt> <model>` (OpKind "do") or `vibe <prompt> <model>`
// (OpKind "vibe"), both suspending instructions.
type AIExpr struct {
	OpKind         string // "do" | "vibe"
	Prompt         Expr
	Model          string
	ContextSpec    string // "local" | "global" | "default" | "none"
	ExpectedFields []string
	Loc            value.Location
}

func (*AIExpr) exprNode() {}

type TSEvalExpr struct {
	Params []string
	Body   string
	Args   []Expr
	Loc    value.Location
}

func (*TSEvalExpr) exprNode() {}

type ImportedTSCallExpr struct {
	Name string
	Args []Expr
	Loc  value.Location
}

func (*ImportedTSCallExpr) exprNode() {}
