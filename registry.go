package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolRegistry holds the static tool catalog and owns dispatch. Handlers
// never see the transport; any error (or panic) they produce is converted
// into an error-tagged result here, so nothing escapes to the host.
type ToolRegistry struct {
	strict  bool
	order   []string
	entries map[string]server.ServerTool
	schemas map[string]*jsonschema.Schema
}

// NewToolRegistry creates an empty registry. With strict enabled, arguments
// are validated against each tool's declared input schema before dispatch;
// otherwise the schemas stay advisory, matching the original permissive
// behavior.
func NewToolRegistry(strict bool) *ToolRegistry {
	return &ToolRegistry{
		strict:  strict,
		entries: make(map[string]server.ServerTool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Add registers tools, rejecting duplicate names. In strict mode each
// tool's input schema is compiled once here.
func (r *ToolRegistry) Add(tools ...server.ServerTool) error {
	for _, st := range tools {
		name := st.Tool.Name
		if _, exists := r.entries[name]; exists {
			return fmt.Errorf("duplicate tool name %q", name)
		}
		if r.strict {
			schema, err := compileInputSchema(st.Tool)
			if err != nil {
				return fmt.Errorf("compile input schema for %q: %w", name, err)
			}
			r.schemas[name] = schema
		}
		r.entries[name] = st
		r.order = append(r.order, name)
	}
	return nil
}

// Dispatch runs a single tool invocation. Unknown names, validation
// failures, handler errors, and panics all become error results shaped
// "Error executing <name>: <message>". Successful handler results pass
// through unchanged.
func (r *ToolRegistry) Dispatch(ctx context.Context, req mcp.CallToolRequest) (result *mcp.CallToolResult) {
	name := req.Params.Name
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("tool %s panicked: %v", name, rec)
			result = mcp.NewToolResultError(fmt.Sprintf("Error executing %s: internal error: %v", name, rec))
		}
	}()

	entry, ok := r.entries[name]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("Error executing %s: unknown tool: %s", name, name))
	}

	if schema, ok := r.schemas[name]; ok {
		if err := validateArguments(schema, req.GetArguments()); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error executing %s: invalid arguments: %v", name, err))
		}
	}

	res, err := entry.Handler(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error executing %s: %v", name, err))
	}
	if res == nil {
		return mcp.NewToolResultText("")
	}
	return res
}

// ServerTools returns the catalog in registration order with every handler
// routed through Dispatch, ready for server.MCPServer.AddTools.
func (r *ToolRegistry) ServerTools() []server.ServerTool {
	out := make([]server.ServerTool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, server.ServerTool{
			Tool: r.entries[name].Tool,
			Handler: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return r.Dispatch(ctx, req), nil
			},
		})
	}
	return out
}

func compileInputSchema(tool mcp.Tool) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, err
	}
	// jsonschema needs its own decoding for correct number handling.
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool.json", doc); err != nil {
		return nil, err
	}
	return compiler.Compile("tool.json")
}

func validateArguments(schema *jsonschema.Schema, args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
