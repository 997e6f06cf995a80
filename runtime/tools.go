package runtime

import (
	"github.com/vibelang/vibe-core/ai"
	"github.com/vibelang/vibe-core/value"
)

// toolSpecs builds the tool_schemas_for_the_model a `vibe` call needs
// (spec.md §4.4 step 3) from every declared tool function, whether its
// body lives in script or behind a host block — the model does not
// distinguish the two, only invokeTool's dispatch does.
// ToolSpecs exposes toolSpecs for a caller re-publishing a session's
// declared functions through another interface (e.g. mcptools.Serve).
func (sess *Session) ToolSpecs() []ai.ToolSpec { return sess.toolSpecs() }

func (sess *Session) toolSpecs() []ai.ToolSpec {
	var specs []ai.ToolSpec
	for name, fn := range sess.State.Functions {
		props := make(map[string]any, len(fn.Params))
		for _, p := range fn.Params {
			props[p] = map[string]any{"type": jsonSchemaType(fn.ParamTypes[p])}
		}
		specs = append(specs, ai.ToolSpec{
			Name: name,
			Parameters: map[string]any{
				"type":       "object",
				"properties": props,
				"required":   fn.Params,
			},
		})
	}
	return specs
}

func jsonSchemaType(t value.TypeAnnotation) string {
	switch t {
	case value.TypeNumber:
		return "number"
	case value.TypeBoolean:
		return "boolean"
	case value.TypeJSON:
		return "object"
	default:
		return "string"
	}
}
