package main

import "testing"

func TestRootCmdRegistersRunAndServeMCP(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	if !names["run"] || !names["serve-mcp"] {
		t.Fatalf("got commands %v, want run and serve-mcp", names)
	}
}

func TestRunProgramRejectsMissingFile(t *testing.T) {
	if err := runProgram(t.Context(), "/no/such/program.json"); err == nil {
		t.Fatal("expected error reading a nonexistent program file")
	}
}
