package mcptools

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"reflect"
	"syscall"

	mcp "github.com/metoro-io/mcp-golang"
	mcphttp "github.com/metoro-io/mcp-golang/transport/http"
	mcpstdio "github.com/metoro-io/mcp-golang/transport/stdio"

	"github.com/vibelang/vibe-core/ai"
	"github.com/vibelang/vibe-core/logger"
)

// ToolRegistration holds a tool's registration info for the MCP server.
type ToolRegistration struct {
	Name        string
	Description string
	Handler     any // a func(ctx, <generated args struct>) (*mcp.ToolResponse, error)
}

// Invoke calls one of a running interpreter's declared functions by name,
// returning its result as a plain JSON-ish value.
type Invoke func(ctx context.Context, name string, args map[string]any) (any, error)

// Serve starts an MCP server exposing tools, either on stdio or over HTTP.
func Serve(stdio bool, addr string, tools []ToolRegistration) error {
	var server *mcp.Server
	if stdio {
		logger.Info("starting MCP server on stdio")
		server = mcp.NewServer(mcpstdio.NewStdioServerTransport())
	} else {
		logger.Info("starting MCP server on http at %s", addr)
		server = mcp.NewServer(mcphttp.NewHTTPTransport("/mcp").WithAddr(addr))
	}

	RegisterAllTools(server, tools)

	if err := server.Serve(); err != nil {
		return err
	}

	if stdio {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal %v, shutting down MCP stdio server", sig)
	}
	return nil
}

// RegisterAllTools registers every tool with the server, logging (not
// failing) individual registration errors so one bad tool doesn't prevent
// the rest from serving.
func RegisterAllTools(server *mcp.Server, tools []ToolRegistration) {
	for _, t := range tools {
		if err := server.RegisterTool(t.Name, t.Description, t.Handler); err != nil {
			logger.Error("failed to register MCP tool %s: %v", t.Name, err)
		}
	}
}

// FuncRegistrations turns a running interpreter's declared tool functions
// into ToolRegistrations an external MCP client can call. Each function's
// parameter list has no shape known at compile time, so the argument
// struct mcp-golang reflects over to build its JSON schema is generated at
// runtime with reflect.StructOf, and the handler func is built to match it
// with reflect.MakeFunc — the interpreter's functions, not a fixed set of
// flow-CRUD operations, are what the teacher's server.go hardcoded structs
// for (see server_test.go's GetFlowArgs/StartRunArgs).
func FuncRegistrations(specs []ai.ToolSpec, invoke Invoke) []ToolRegistration {
	regs := make([]ToolRegistration, 0, len(specs))
	for _, spec := range specs {
		regs = append(regs, ToolRegistration{
			Name:        spec.Name,
			Description: spec.Description,
			Handler:     buildHandler(spec, invoke),
		})
	}
	return regs
}

var (
	ctxType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	responseType = reflect.TypeOf((*mcp.ToolResponse)(nil))
	errType      = reflect.TypeOf((*error)(nil)).Elem()
)

// buildHandler constructs a func(ctx context.Context, args <generated>) (*mcp.ToolResponse, error)
// whose args type has one string-tagged field per declared parameter.
func buildHandler(spec ai.ToolSpec, invoke Invoke) any {
	fields := make([]reflect.StructField, 0, len(paramNames(spec)))
	for _, name := range paramNames(spec) {
		fields = append(fields, reflect.StructField{
			Name: exportedFieldName(name),
			Type: reflect.TypeOf(json.RawMessage(nil)),
			Tag:  reflect.StructTag(`json:"` + name + `"`),
		})
	}
	argsType := reflect.StructOf(fields)
	fnType := reflect.FuncOf([]reflect.Type{ctxType, argsType}, []reflect.Type{responseType, errType}, false)

	fn := reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		ctx := in[0].Interface().(context.Context)
		argsVal := in[1]
		args := make(map[string]any, argsVal.NumField())
		for i, name := range paramNames(spec) {
			raw := argsVal.Field(i).Interface().(json.RawMessage)
			var v any
			if len(raw) > 0 {
				_ = json.Unmarshal(raw, &v)
			}
			args[name] = v
		}
		result, err := invoke(ctx, spec.Name, args)
		if err != nil {
			return []reflect.Value{reflect.Zero(responseType), reflect.ValueOf(err)}
		}
		text, merr := json.Marshal(result)
		if merr != nil {
			return []reflect.Value{reflect.Zero(responseType), reflect.ValueOf(merr)}
		}
		resp := mcp.NewToolResponse(mcp.NewTextContent(string(text)))
		return []reflect.Value{reflect.ValueOf(resp), reflect.Zero(errType)}
	})
	return fn.Interface()
}

func paramNames(spec ai.ToolSpec) []string {
	props, _ := spec.Parameters["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	return names
}

// exportedFieldName turns a declared parameter name into a valid exported
// Go struct field name for reflect.StructOf.
func exportedFieldName(name string) string {
	if name == "" {
		return "Field"
	}
	r := []rune(name)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - ('a' - 'A')
	}
	return string(r)
}
