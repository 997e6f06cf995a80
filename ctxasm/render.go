// Package ctxasm renders an assembled context (local_context or
// global_context, already privacy-filtered by package vm) into the
// newline-delimited wire format handed to an AI provider (spec.md §6
// "Wire format for context text"). Rendering follows the teacher's
// text/template helper-function idiom (templater/templater.go) rather
// than hand-rolled string concatenation.
package ctxasm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/vibelang/vibe-core/frame"
)

var entryTemplate = template.Must(template.New("entry").Funcs(template.FuncMap{
	"join": func(items []string, sep string) string { return strings.Join(items, sep) },
}).Parse(
	`{{if eq .Kind "variable"}}var {{.Name}} = {{.ValueText}}` +
		`{{else if eq .Kind "prompt"}}{{.OpKind}} "{{.Prompt}}" -> {{.ResponseText}}` +
		`{{else if eq .Kind "scope_enter"}}>> enter {{.ScopeKind}}{{if .Label}} {{.Label}}{{end}}` +
		`{{else if eq .Kind "scope_exit"}}<< exit {{.ScopeKind}}{{if .Label}} {{.Label}}{{end}}` +
		`{{else if eq .Kind "summary"}}summary: {{.Text}}` +
		`{{else if eq .Kind "tool_call"}}tool {{.Name}} -> {{.ResultText}}` +
		`{{end}}`,
))

type entryView struct {
	Kind         string
	Name         string
	ValueText    string
	OpKind       string
	Prompt       string
	ResponseText string
	ScopeKind    string
	Label        string
	Text         string
	ResultText   string
}

func toView(e frame.FrameEntry) entryView {
	v := entryView{Kind: string(e.Kind), Name: e.Name, OpKind: e.OpKind, Prompt: e.Prompt,
		ScopeKind: e.ScopeKind, Label: e.Label, Text: e.Text}
	v.ValueText = fmt.Sprintf("%v", e.Value.Value)
	if e.Response != nil {
		v.ResponseText = fmt.Sprintf("%v", e.Response.Value)
	}
	if len(e.ToolCalls) > 0 {
		v.ResultText = fmt.Sprintf("%v", e.ToolCalls[0].Result)
	}
	return v
}

// Render produces the canonical newline-delimited wire rendering of
// entries. Exact spacing is implementation-defined but stable (spec.md
// §6).
func Render(entries []frame.FrameEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		var buf bytes.Buffer
		if err := entryTemplate.Execute(&buf, toView(e)); err != nil {
			continue
		}
		b.Write(buf.Bytes())
	}
	return b.String()
}

// RenderRequest builds the full text handed to an AI provider: the
// rendered context followed by the immediate prompt (spec.md §4.4).
func RenderRequest(entries []frame.FrameEntry, prompt string) string {
	ctx := Render(entries)
	if ctx == "" {
		return prompt
	}
	return ctx + "\n---\n" + prompt
}
