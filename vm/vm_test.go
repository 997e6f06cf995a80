package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vibelang/vibe-core/program"
	"github.com/vibelang/vibe-core/value"
)

func run(t *testing.T, body []program.Stmt) *State {
	t.Helper()
	prog := &program.Program{ModulePath: "main.vibe", Body: body, Functions: map[string]*program.Function{}}
	s := NewState(prog, Options{})
	RunUntilPause(s)
	return s
}

func TestLetAndLoadVar(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 10.0}},
		&program.ExprStmt{Value: &program.Ident{Name: "x"}},
	})
	require.Equal(t, StatusCompleted, s.Status)
	require.Equal(t, 10.0, s.LastResult.Value)
	require.False(t, s.LastResult.IsError())
}

func TestBinaryAddThroughStepper(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.ExprStmt{Value: &program.BinaryExpr{
			Op: value.OpAdd, Left: &program.Literal{Value: 1.0}, Right: &program.Literal{Value: 2.0},
		}},
	})
	require.Equal(t, StatusCompleted, s.Status)
	require.Equal(t, 3.0, s.LastResult.Value)
}

func TestIfBranchTakesConsequent(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.LetStmt{Name: "x", Value: &program.Literal{Value: 0.0}},
		&program.IfStmt{
			Cond: &program.Literal{Value: true},
			Consequent: []program.Stmt{
				&program.AssignStmt{Name: "x", Value: &program.Literal{Value: 1.0}},
			},
			Alternate: []program.Stmt{
				&program.AssignStmt{Name: "x", Value: &program.Literal{Value: 2.0}},
			},
		},
		&program.ExprStmt{Value: &program.Ident{Name: "x"}},
	})
	require.Equal(t, 1.0, s.LastResult.Value)
}

func TestForInForgetModeTruncatesEntries(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.ForInStmt{
			Var:   "i",
			Items: &program.ArrayExpr{Elements: []program.Expr{&program.Literal{Value: 1.0}, &program.Literal{Value: 2.0}}},
			Body: []program.Stmt{
				&program.LetStmt{Name: "doubled", Value: &program.BinaryExpr{Op: value.OpMul, Left: &program.Ident{Name: "i"}, Right: &program.Literal{Value: 2.0}}},
			},
			ContextMode: program.ContextModeClause{Mode: "forget"},
		},
	})
	require.Equal(t, StatusCompleted, s.Status)
	top := s.CallStack.Top()
	require.Len(t, top.OrderedEntries, 1)
	require.Equal(t, "scope_exit", string(top.OrderedEntries[0].Kind))
}

func TestForInVerboseModeKeepsScopeExit(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.ForInStmt{
			Var:         "i",
			Items:       &program.ArrayExpr{Elements: []program.Expr{&program.Literal{Value: 1.0}}},
			Body:        []program.Stmt{&program.LetStmt{Name: "n", Value: &program.Ident{Name: "i"}}},
			ContextMode: program.ContextModeClause{Mode: "verbose"},
		},
	})
	require.Equal(t, StatusCompleted, s.Status)
	top := s.CallStack.Top()
	require.NotEmpty(t, top.OrderedEntries)
	last := top.OrderedEntries[len(top.OrderedEntries)-1]
	require.Equal(t, "scope_exit", string(last.Kind))
}

func TestPushOnConstSequenceFails(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.LetStmt{Name: "xs", Value: &program.ArrayExpr{Elements: []program.Expr{&program.Literal{Value: 1.0}}}},
		&program.LetStmt{Name: "y", IsConst: true, Value: &program.Ident{Name: "xs"}},
		&program.ExprStmt{Value: &program.CallExpr{
			Callee: &program.MemberExpr{Target: &program.Ident{Name: "y"}, Prop: "push"},
			Args:   []program.Expr{&program.Literal{Value: 4.0}},
		}},
	})
	require.Equal(t, StatusCompleted, s.Status)
	require.True(t, s.LastResult.IsError())
	require.Equal(t, value.KindConstAssignError, s.LastResult.Err.Kind)
}

func TestDestructureMissingFieldFaults(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.DestructureStmt{
			Fields: []string{"name"},
			Value:  &program.ObjectExpr{Keys: []string{"other"}, Values: []program.Expr{&program.Literal{Value: "x"}}},
		},
	})
	require.Equal(t, StatusError, s.Status)
}

func TestPrivateVariableFilteredFromLocalContext(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.LetStmt{Name: "secret", IsPrivate: true, Value: &program.Literal{Value: "shh"}},
		&program.LetStmt{Name: "pub", Value: &program.Literal{Value: "hi"}},
	})
	for _, e := range s.LocalContext {
		require.NotEqual(t, "secret", e.Name)
	}
}

func TestAIVibeSuspendsAndResumes(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.LetStmt{Name: "r", Value: &program.AIExpr{
			OpKind: "do", Prompt: &program.Literal{Value: "what is 2+2?"}, Model: "m", ContextSpec: "local",
		}},
	})
	require.Equal(t, StatusAwaitingAI, s.Status)
	require.NotNil(t, s.PendingAI)
	require.Equal(t, "what is 2+2?", s.PendingAI.Prompt)

	ResumeWithAIResponse(s, "four", nil, nil)
	require.Equal(t, StatusRunning, s.Status)
	RunUntilPause(s)
	require.Equal(t, StatusCompleted, s.Status)

	top := s.CallStack.Top()
	require.Equal(t, "four", top.Locals["r"].Value)
	require.Equal(t, value.SourceAI, top.Locals["r"].Source)
}

func TestAIVibeErrorResumesAsRecoverableValue(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.LetStmt{Name: "r", Value: &program.AIExpr{
			OpKind: "do", Prompt: &program.Literal{Value: "what is 2+2?"}, Model: "m",
		}},
	})
	require.Equal(t, StatusAwaitingAI, s.Status)

	ResumeWithAIError(s, errTest("provider unreachable"))
	require.Equal(t, StatusRunning, s.Status)
	RunUntilPause(s)
	require.Equal(t, StatusCompleted, s.Status)

	top := s.CallStack.Top()
	r := top.Locals["r"]
	require.True(t, r.IsError())
	require.Equal(t, value.KindAIProviderError, r.Err.Kind)
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestAsyncLetSuspendsOnImplicitAwait(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.AsyncLetStmt{Name: "a", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "A"}, Model: "m"}},
		&program.ExprStmt{Value: &program.Ident{Name: "a"}},
	})
	require.Equal(t, StatusAwaitingAsync, s.Status)
	require.Len(t, s.AwaitingAsyncIDs, 1)
	require.Len(t, s.PendingAsyncStarts, 1)

	id := s.AwaitingAsyncIDs[0]
	ResumeWithAsyncResults(s, map[string]value.VibeValue{id: value.New("A-result")})
	require.Equal(t, StatusRunning, s.Status)
	RunUntilPause(s)
	require.Equal(t, StatusCompleted, s.Status)
	require.Equal(t, "A-result", s.LastResult.Value)
}

func TestCompletedRequiresNoPendingAsync(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.AsyncLetStmt{Name: "a", Value: &program.AIExpr{OpKind: "do", Prompt: &program.Literal{Value: "A"}, Model: "m"}},
	})
	require.NotEqual(t, StatusCompleted, s.Status)
	require.NotEmpty(t, s.PendingAsyncIDs)
}

func TestAsyncLetOfPlainExprResolvesInline(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.AsyncLetStmt{Name: "sum", Value: &program.BinaryExpr{
			Op: value.OpAdd, Left: &program.Literal{Value: 1.0}, Right: &program.Literal{Value: 2.0},
		}},
		&program.ExprStmt{Value: &program.Ident{Name: "sum"}},
	})
	require.Equal(t, StatusCompleted, s.Status)
	require.Empty(t, s.PendingAsyncStarts)
	require.Empty(t, s.PendingAsyncIDs)
	require.Equal(t, 3.0, s.LastResult.Value)
}

func TestHostBodiedToolCallSuspendsAndResumes(t *testing.T) {
	body := []program.Stmt{
		&program.ExprStmt{Value: &program.CallExpr{
			Callee: &program.Ident{Name: "greet"},
			Args:   []program.Expr{&program.Literal{Value: "world"}},
		}},
	}
	prog := &program.Program{
		ModulePath: "main.vibe", Body: body,
		Functions: map[string]*program.Function{
			"greet": {Name: "greet", Params: []string{"name"}, HostBody: "return 'hi ' + name"},
		},
	}
	s := NewState(prog, Options{})
	RunUntilPause(s)
	require.Equal(t, StatusAwaitingTool, s.Status)
	require.NotNil(t, s.PendingTool)
	require.Equal(t, "greet", s.PendingTool.Name)
	require.Equal(t, "world", s.PendingTool.Args["name"])

	ResumeWithToolResult(s, value.New("hi world"), nil)
	require.Equal(t, StatusRunning, s.Status)
	RunUntilPause(s)
	require.Equal(t, StatusCompleted, s.Status)
	require.Equal(t, "hi world", s.LastResult.Value)
}

func TestTSEvalSuspendsWithEvaluatedArgs(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.ExprStmt{Value: &program.TSEvalExpr{
			Params: []string{"n"},
			Body:   "return n * 2",
			Args:   []program.Expr{&program.BinaryExpr{Op: value.OpAdd, Left: &program.Literal{Value: 1.0}, Right: &program.Literal{Value: 2.0}}},
		}},
	})
	require.Equal(t, StatusAwaitingTS, s.Status)
	require.NotNil(t, s.PendingTS)
	require.Equal(t, "ts_block", s.PendingTS.Kind)
	require.Len(t, s.PendingTS.Args, 1)
	require.Equal(t, 3.0, s.PendingTS.Args[0].Value)

	ResumeWithTSResult(s, value.New(6.0), nil)
	require.Equal(t, StatusRunning, s.Status)
	RunUntilPause(s)
	require.Equal(t, StatusCompleted, s.Status)
	require.Equal(t, 6.0, s.LastResult.Value)
}

func TestAsyncLetResolvesPromptAgainstDeclaringFrame(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.LetStmt{Name: "who", Value: &program.Literal{Value: "world"}},
		&program.AsyncLetStmt{Name: "a", Value: &program.AIExpr{
			OpKind: "do", Prompt: &program.Ident{Name: "who"}, Model: "m",
		}},
	})
	require.Equal(t, StatusAwaitingAsync, s.Status)
	require.Len(t, s.PendingAsyncStarts, 1)
	payload, ok := s.PendingAsyncStarts[0].Payload.(*PendingAI)
	require.True(t, ok)
	require.Equal(t, "world", payload.Prompt)
	require.Equal(t, "m", payload.Model)
}

func TestIndexNegativeNormalizesThroughStepper(t *testing.T) {
	s := run(t, []program.Stmt{
		&program.ExprStmt{Value: &program.IndexExpr{
			Target: &program.ArrayExpr{Elements: []program.Expr{&program.Literal{Value: "a"}, &program.Literal{Value: "b"}, &program.Literal{Value: "c"}}},
			Index:  &program.Literal{Value: -1.0},
		}},
	})
	require.Equal(t, "c", s.LastResult.Value)
}
