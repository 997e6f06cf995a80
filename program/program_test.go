package program

import (
	"testing"

	"github.com/vibelang/vibe-core/value"
)

const sampleJSON = `{
  "module_path": "main",
  "body": [
    {
      "kind": "let",
      "name": "x",
      "is_const": true,
      "value": {"kind": "literal", "raw": 1},
      "loc": {"file": "main.vibe", "line": 1, "col": 1}
    },
    {
      "kind": "if",
      "cond": {"kind": "binary", "op": ">", "left": {"kind": "ident", "name": "x"}, "right": {"kind": "literal", "raw": 0}},
      "consequent": [
        {"kind": "expr_stmt", "value": {"kind": "ai", "op_kind": "do", "prompt": {"kind": "literal", "raw": "hello"}, "model": "fast", "context_spec": "default"}}
      ],
      "alternate": [],
      "loc": {"file": "main.vibe", "line": 2, "col": 1}
    }
  ],
  "functions": {
    "greet": {
      "name": "greet",
      "params": ["name"],
      "param_types": {"name": "text"},
      "body": [
        {"kind": "return", "value": {"kind": "ident", "name": "name"}}
      ]
    }
  }
}`

func TestDecodeJSONBuildsExpectedTree(t *testing.T) {
	prog, err := DecodeJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if prog.ModulePath != "main" {
		t.Fatalf("got ModulePath %q, want main", prog.ModulePath)
	}
	if len(prog.Body) != 2 {
		t.Fatalf("got %d top-level statements, want 2", len(prog.Body))
	}

	let, ok := prog.Body[0].(*LetStmt)
	if !ok {
		t.Fatalf("got %T, want *LetStmt", prog.Body[0])
	}
	if !let.IsConst || let.Name != "x" {
		t.Fatalf("got %+v, want const binding named x", let)
	}
	lit, ok := let.Value.(*Literal)
	if !ok || lit.Value != float64(1) {
		t.Fatalf("got %+v, want literal 1", let.Value)
	}

	ifStmt, ok := prog.Body[1].(*IfStmt)
	if !ok {
		t.Fatalf("got %T, want *IfStmt", prog.Body[1])
	}
	if len(ifStmt.Consequent) != 1 || len(ifStmt.Alternate) != 0 {
		t.Fatalf("got %+v, want one consequent statement and an empty alternate", ifStmt)
	}
	exprStmt, ok := ifStmt.Consequent[0].(*ExprStmt)
	if !ok {
		t.Fatalf("got %T, want *ExprStmt", ifStmt.Consequent[0])
	}
	ai, ok := exprStmt.Value.(*AIExpr)
	if !ok || ai.OpKind != "do" || ai.Model != "fast" {
		t.Fatalf("got %+v, want a do-call against model fast", exprStmt.Value)
	}

	fn, ok := prog.Functions["greet"]
	if !ok {
		t.Fatal("expected a declared function named greet")
	}
	if len(fn.Params) != 1 || fn.Params[0] != "name" {
		t.Fatalf("got params %v, want [name]", fn.Params)
	}
	if fn.ParamTypes["name"] != value.TypeText {
		t.Fatalf("got param type %v, want %v", fn.ParamTypes["name"], value.TypeText)
	}
}

func TestDecodeJSONRejectsMalformedInput(t *testing.T) {
	if _, err := DecodeJSON([]byte("not json")); err == nil {
		t.Fatal("expected an error decoding malformed JSON")
	}
}

func TestEncodeDecodeRoundTrips(t *testing.T) {
	prog, err := DecodeJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	data, err := EncodeJSON(prog)
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	again, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("re-DecodeJSON: %v", err)
	}
	if again.ModulePath != prog.ModulePath || len(again.Body) != len(prog.Body) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", again, prog)
	}
	if _, ok := again.Functions["greet"]; !ok {
		t.Fatal("round trip lost the declared greet function")
	}
}
