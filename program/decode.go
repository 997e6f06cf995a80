package program

import (
	"encoding/json"
	"fmt"

	"github.com/vibelang/vibe-core/value"
)

// DecodeJSON loads a Program from the tagged-node wire format an external
// parser emits (lexing/parsing/AST construction are out of scope here —
// package program only fixes the shapes vm's dispatch switches on, and
// this file fixes the one JSON encoding every such parser can target).
// Grounded on dsl/parse.go's role as the boundary between "text on disk"
// and "a Program vm.NewState can run" — here the text has already become
// a tree, so decoding is structural rather than lexical.
func DecodeJSON(data []byte) (*Program, error) {
	var w wireProgram
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	return w.toProgram()
}

// EncodeJSON renders p back to the same wire format, chiefly so store
// can snapshot a paused Program for later resumption.
func EncodeJSON(p *Program) ([]byte, error) {
	return json.Marshal(fromProgram(p))
}

type wireProgram struct {
	ModulePath string                `json:"module_path"`
	Body       []json.RawMessage     `json:"body"`
	Functions  map[string]wireFunc   `json:"functions,omitempty"`
	Models     map[string]*ModelDecl `json:"models,omitempty"`
}

type wireFunc struct {
	Name       string                          `json:"name"`
	Params     []string                        `json:"params,omitempty"`
	ParamTypes map[string]value.TypeAnnotation `json:"param_types,omitempty"`
	Body       []json.RawMessage               `json:"body,omitempty"`
	HostBody   string                          `json:"host_body,omitempty"`
}

// node is the flat envelope every Stmt/Expr marshals through: Kind picks
// which fields apply, unused fields are omitted on write and ignored on
// read.
type node struct {
	Kind string `json:"kind"`

	// shared
	Loc value.Location `json:"loc,omitzero"`

	// statements
	Name        string              `json:"name,omitempty"`
	IsConst     bool                `json:"is_const,omitempty"`
	IsPrivate   bool                `json:"is_private,omitempty"`
	Type        value.TypeAnnotation `json:"type,omitempty"`
	Value       json.RawMessage     `json:"value,omitempty"`
	Fields      []string            `json:"fields,omitempty"`
	Cond        json.RawMessage     `json:"cond,omitempty"`
	Consequent  []json.RawMessage   `json:"consequent,omitempty"`
	Alternate   []json.RawMessage   `json:"alternate,omitempty"`
	Var         string              `json:"var,omitempty"`
	Items       json.RawMessage     `json:"items,omitempty"`
	Body        []json.RawMessage   `json:"body,omitempty"`
	Label       string              `json:"label,omitempty"`
	ContextMode *ContextModeClause  `json:"context_mode,omitempty"`
	Params      []string            `json:"params,omitempty"`
	ParamTypes  map[string]value.TypeAnnotation `json:"param_types,omitempty"`
	HostBody    string              `json:"host_body,omitempty"`
	Decl        *ModelDecl          `json:"decl,omitempty"`

	// expressions
	Raw     any               `json:"raw,omitempty"`
	Op      string            `json:"op,omitempty"`
	Left    json.RawMessage   `json:"left,omitempty"`
	Right   json.RawMessage   `json:"right,omitempty"`
	Operand json.RawMessage   `json:"operand,omitempty"`
	Target  json.RawMessage   `json:"target,omitempty"`
	Index   json.RawMessage   `json:"index,omitempty"`
	Start   json.RawMessage   `json:"start,omitempty"`
	End     json.RawMessage   `json:"end,omitempty"`
	Prop    string            `json:"prop,omitempty"`
	Callee  json.RawMessage   `json:"callee,omitempty"`
	Args    []json.RawMessage `json:"args,omitempty"`
	Elements []json.RawMessage `json:"elements,omitempty"`
	Keys    []string          `json:"keys,omitempty"`
	Values  []json.RawMessage `json:"values,omitempty"`
	N       json.RawMessage   `json:"n,omitempty"`
	Parts   []wirePiece       `json:"parts,omitempty"`
	OpKind  string            `json:"op_kind,omitempty"`
	Prompt  json.RawMessage   `json:"prompt,omitempty"`
	Model   string            `json:"model,omitempty"`
	ContextSpec    string   `json:"context_spec,omitempty"`
	ExpectedFields []string `json:"expected_fields,omitempty"`
}

type wirePiece struct {
	Literal string          `json:"literal,omitempty"`
	Expr    json.RawMessage `json:"expr,omitempty"`
}

func (w wireProgram) toProgram() (*Program, error) {
	p := &Program{ModulePath: w.ModulePath}
	for _, raw := range w.Body {
		s, err := decodeStmt(raw)
		if err != nil {
			return nil, err
		}
		p.Body = append(p.Body, s)
	}
	if len(w.Functions) > 0 {
		p.Functions = map[string]*Function{}
		for name, wf := range w.Functions {
			fn := &Function{Name: wf.Name, Params: wf.Params, ParamTypes: wf.ParamTypes, HostBody: wf.HostBody}
			for _, raw := range wf.Body {
				s, err := decodeStmt(raw)
				if err != nil {
					return nil, err
				}
				fn.Body = append(fn.Body, s)
			}
			p.Functions[name] = fn
		}
	}
	p.Models = w.Models
	return p, nil
}

func decodeStmts(raws []json.RawMessage) ([]Stmt, error) {
	out := make([]Stmt, 0, len(raws))
	for _, raw := range raws {
		s, err := decodeStmt(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStmt(raw json.RawMessage) (Stmt, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var n node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode stmt: %w", err)
	}
	switch n.Kind {
	case "let":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &LetStmt{Name: n.Name, IsConst: n.IsConst, IsPrivate: n.IsPrivate, Type: n.Type, Value: v, Loc: n.Loc}, nil
	case "async_let":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &AsyncLetStmt{Name: n.Name, Type: n.Type, Value: v, Loc: n.Loc}, nil
	case "assign":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Name: n.Name, Value: v, Loc: n.Loc}, nil
	case "destructure":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &DestructureStmt{Fields: n.Fields, IsConst: n.IsConst, Value: v, Loc: n.Loc}, nil
	case "expr_stmt":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Value: v, Loc: n.Loc}, nil
	case "if":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		cons, err := decodeStmts(n.Consequent)
		if err != nil {
			return nil, err
		}
		alt, err := decodeStmts(n.Alternate)
		if err != nil {
			return nil, err
		}
		return &IfStmt{Cond: cond, Consequent: cons, Alternate: alt, Loc: n.Loc}, nil
	case "for_in":
		items, err := decodeExpr(n.Items)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		cm := ContextModeClause{}
		if n.ContextMode != nil {
			cm = *n.ContextMode
		}
		return &ForInStmt{Var: n.Var, Items: items, Body: body, Label: n.Label, ContextMode: cm, Loc: n.Loc}, nil
	case "while":
		cond, err := decodeExpr(n.Cond)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		cm := ContextModeClause{}
		if n.ContextMode != nil {
			cm = *n.ContextMode
		}
		return &WhileStmt{Cond: cond, Body: body, Label: n.Label, ContextMode: cm, Loc: n.Loc}, nil
	case "break":
		return &BreakStmt{Label: n.Label, Loc: n.Loc}, nil
	case "return":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Value: v, Loc: n.Loc}, nil
	case "throw":
		v, err := decodeExpr(n.Value)
		if err != nil {
			return nil, err
		}
		return &ThrowStmt{Value: v, Loc: n.Loc}, nil
	case "block":
		body, err := decodeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		return &BlockStmt{Body: body, Loc: n.Loc}, nil
	case "tool_decl":
		body, err := decodeStmts(n.Body)
		if err != nil {
			return nil, err
		}
		return &ToolDeclStmt{Name: n.Name, Params: n.Params, ParamTypes: n.ParamTypes, HostBody: n.HostBody, Body: body, Loc: n.Loc}, nil
	case "model_decl":
		return &ModelDeclStmt{Decl: n.Decl, Loc: n.Loc}, nil
	default:
		return nil, fmt.Errorf("decode stmt: unknown kind %q", n.Kind)
	}
}

func decodeExprs(raws []json.RawMessage) ([]Expr, error) {
	out := make([]Expr, 0, len(raws))
	for _, raw := range raws {
		e, err := decodeExpr(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n node
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode expr: %w", err)
	}
	switch n.Kind {
	case "literal":
		return &Literal{Value: n.Raw, Loc: n.Loc}, nil
	case "ident":
		return &Ident{Name: n.Name, Loc: n.Loc}, nil
	case "binary":
		l, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: value.BinaryOp(n.Op), Left: l, Right: r, Loc: n.Loc}, nil
	case "unary":
		o, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: value.UnaryOp(n.Op), Operand: o, Loc: n.Loc}, nil
	case "index":
		t, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		i, err := decodeExpr(n.Index)
		if err != nil {
			return nil, err
		}
		return &IndexExpr{Target: t, Index: i, Loc: n.Loc}, nil
	case "slice":
		t, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		s, err := decodeExpr(n.Start)
		if err != nil {
			return nil, err
		}
		e, err := decodeExpr(n.End)
		if err != nil {
			return nil, err
		}
		return &SliceExpr{Target: t, Start: s, End: e, Loc: n.Loc}, nil
	case "member":
		t, err := decodeExpr(n.Target)
		if err != nil {
			return nil, err
		}
		return &MemberExpr{Target: t, Prop: n.Prop, Loc: n.Loc}, nil
	case "call":
		c, err := decodeExpr(n.Callee)
		if err != nil {
			return nil, err
		}
		args, err := decodeExprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpr{Callee: c, Args: args, Loc: n.Loc}, nil
	case "array":
		els, err := decodeExprs(n.Elements)
		if err != nil {
			return nil, err
		}
		return &ArrayExpr{Elements: els, Loc: n.Loc}, nil
	case "object":
		vals, err := decodeExprs(n.Values)
		if err != nil {
			return nil, err
		}
		return &ObjectExpr{Keys: n.Keys, Values: vals, Loc: n.Loc}, nil
	case "range":
		nExpr, err := decodeExpr(n.N)
		if err != nil {
			return nil, err
		}
		return &RangeExpr{N: nExpr, Loc: n.Loc}, nil
	case "interp_string", "interp_prompt":
		parts, err := decodePieces(n.Parts)
		if err != nil {
			return nil, err
		}
		if n.Kind == "interp_string" {
			return &InterpStringExpr{Parts: parts, Loc: n.Loc}, nil
		}
		return &InterpPromptExpr{Parts: parts, Loc: n.Loc}, nil
	case "ai":
		prompt, err := decodeExpr(n.Prompt)
		if err != nil {
			return nil, err
		}
		return &AIExpr{OpKind: n.OpKind, Prompt: prompt, Model: n.Model, ContextSpec: n.ContextSpec, ExpectedFields: n.ExpectedFields, Loc: n.Loc}, nil
	case "ts_eval":
		args, err := decodeExprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &TSEvalExpr{Params: n.Params, Body: n.HostBody, Args: args, Loc: n.Loc}, nil
	case "imported_ts_call":
		args, err := decodeExprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &ImportedTSCallExpr{Name: n.Name, Args: args, Loc: n.Loc}, nil
	default:
		return nil, fmt.Errorf("decode expr: unknown kind %q", n.Kind)
	}
}

func decodePieces(raws []wirePiece) ([]TemplatePiece, error) {
	out := make([]TemplatePiece, 0, len(raws))
	for _, wp := range raws {
		e, err := decodeExpr(wp.Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, TemplatePiece{Literal: wp.Literal, Expr: e})
	}
	return out, nil
}

// --- encode side (mirror of decode, used by store snapshots) ---

func fromProgram(p *Program) wireProgram {
	w := wireProgram{ModulePath: p.ModulePath}
	for _, s := range p.Body {
		w.Body = append(w.Body, encodeStmt(s))
	}
	if len(p.Functions) > 0 {
		w.Functions = map[string]wireFunc{}
		for name, fn := range p.Functions {
			wf := wireFunc{Name: fn.Name, Params: fn.Params, ParamTypes: fn.ParamTypes, HostBody: fn.HostBody}
			for _, s := range fn.Body {
				wf.Body = append(wf.Body, encodeStmt(s))
			}
			w.Functions[name] = wf
		}
	}
	w.Models = p.Models
	return w
}

func raw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

func encodeStmts(stmts []Stmt) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, encodeStmt(s))
	}
	return out
}

func encodeExprs(exprs []Expr) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, encodeExpr(e))
	}
	return out
}

func encodeStmt(s Stmt) json.RawMessage {
	switch t := s.(type) {
	case *LetStmt:
		return raw(node{Kind: "let", Name: t.Name, IsConst: t.IsConst, IsPrivate: t.IsPrivate, Type: t.Type, Value: encodeExpr(t.Value), Loc: t.Loc})
	case *AsyncLetStmt:
		return raw(node{Kind: "async_let", Name: t.Name, Type: t.Type, Value: encodeExpr(t.Value), Loc: t.Loc})
	case *AssignStmt:
		return raw(node{Kind: "assign", Name: t.Name, Value: encodeExpr(t.Value), Loc: t.Loc})
	case *DestructureStmt:
		return raw(node{Kind: "destructure", Fields: t.Fields, IsConst: t.IsConst, Value: encodeExpr(t.Value), Loc: t.Loc})
	case *ExprStmt:
		return raw(node{Kind: "expr_stmt", Value: encodeExpr(t.Value), Loc: t.Loc})
	case *IfStmt:
		return raw(node{Kind: "if", Cond: encodeExpr(t.Cond), Consequent: encodeStmts(t.Consequent), Alternate: encodeStmts(t.Alternate), Loc: t.Loc})
	case *ForInStmt:
		cm := t.ContextMode
		return raw(node{Kind: "for_in", Var: t.Var, Items: encodeExpr(t.Items), Body: encodeStmts(t.Body), Label: t.Label, ContextMode: &cm, Loc: t.Loc})
	case *WhileStmt:
		cm := t.ContextMode
		return raw(node{Kind: "while", Cond: encodeExpr(t.Cond), Body: encodeStmts(t.Body), Label: t.Label, ContextMode: &cm, Loc: t.Loc})
	case *BreakStmt:
		return raw(node{Kind: "break", Label: t.Label, Loc: t.Loc})
	case *ReturnStmt:
		return raw(node{Kind: "return", Value: encodeExpr(t.Value), Loc: t.Loc})
	case *ThrowStmt:
		return raw(node{Kind: "throw", Value: encodeExpr(t.Value), Loc: t.Loc})
	case *BlockStmt:
		return raw(node{Kind: "block", Body: encodeStmts(t.Body), Loc: t.Loc})
	case *ToolDeclStmt:
		return raw(node{Kind: "tool_decl", Name: t.Name, Params: t.Params, ParamTypes: t.ParamTypes, HostBody: t.HostBody, Body: encodeStmts(t.Body), Loc: t.Loc})
	case *ModelDeclStmt:
		return raw(node{Kind: "model_decl", Decl: t.Decl, Loc: t.Loc})
	default:
		return json.RawMessage("null")
	}
}

func encodeExpr(e Expr) json.RawMessage {
	if e == nil {
		return json.RawMessage("null")
	}
	switch t := e.(type) {
	case *Literal:
		return raw(node{Kind: "literal", Raw: t.Value, Loc: t.Loc})
	case *Ident:
		return raw(node{Kind: "ident", Name: t.Name, Loc: t.Loc})
	case *BinaryExpr:
		return raw(node{Kind: "binary", Op: string(t.Op), Left: encodeExpr(t.Left), Right: encodeExpr(t.Right), Loc: t.Loc})
	case *UnaryExpr:
		return raw(node{Kind: "unary", Op: string(t.Op), Operand: encodeExpr(t.Operand), Loc: t.Loc})
	case *IndexExpr:
		return raw(node{Kind: "index", Target: encodeExpr(t.Target), Index: encodeExpr(t.Index), Loc: t.Loc})
	case *SliceExpr:
		return raw(node{Kind: "slice", Target: encodeExpr(t.Target), Start: encodeExpr(t.Start), End: encodeExpr(t.End), Loc: t.Loc})
	case *MemberExpr:
		return raw(node{Kind: "member", Target: encodeExpr(t.Target), Prop: t.Prop, Loc: t.Loc})
	case *CallExpr:
		return raw(node{Kind: "call", Callee: encodeExpr(t.Callee), Args: encodeExprs(t.Args), Loc: t.Loc})
	case *ArrayExpr:
		return raw(node{Kind: "array", Elements: encodeExprs(t.Elements), Loc: t.Loc})
	case *ObjectExpr:
		return raw(node{Kind: "object", Keys: t.Keys, Values: encodeExprs(t.Values), Loc: t.Loc})
	case *RangeExpr:
		return raw(node{Kind: "range", N: encodeExpr(t.N), Loc: t.Loc})
	case *InterpStringExpr:
		return raw(node{Kind: "interp_string", Parts: encodePieces(t.Parts), Loc: t.Loc})
	case *InterpPromptExpr:
		return raw(node{Kind: "interp_prompt", Parts: encodePieces(t.Parts), Loc: t.Loc})
	case *AIExpr:
		return raw(node{Kind: "ai", OpKind: t.OpKind, Prompt: encodeExpr(t.Prompt), Model: t.Model, ContextSpec: t.ContextSpec, ExpectedFields: t.ExpectedFields, Loc: t.Loc})
	case *TSEvalExpr:
		return raw(node{Kind: "ts_eval", Params: t.Params, HostBody: t.Body, Args: encodeExprs(t.Args), Loc: t.Loc})
	case *ImportedTSCallExpr:
		return raw(node{Kind: "imported_ts_call", Name: t.Name, Args: encodeExprs(t.Args), Loc: t.Loc})
	default:
		return json.RawMessage("null")
	}
}

func encodePieces(parts []TemplatePiece) []wirePiece {
	out := make([]wirePiece, 0, len(parts))
	for _, p := range parts {
		out = append(out, wirePiece{Literal: p.Literal, Expr: encodeExpr(p.Expr)})
	}
	return out
}
