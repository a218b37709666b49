package mcp

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mimirmcp/mimir-host/internal/mainloop"
	"github.com/mimirmcp/mimir-host/internal/protocol"
)

// Tool defines the behavior of a single MCP tool.
//
// Params is called once at registration. The returned params bind straight
// into the tool's own fields, so a tool instance is reused across calls and
// its fields hold the arguments of the call in progress.
type Tool interface {
	Name() string
	Description() string
	Params() []*Param
	Execute(ctx context.Context, call *Call) ([]protocol.ContentItem, *protocol.ResponseError)
}

// Call carries per-invocation context into Execute.
type Call struct {
	// ID correlates log lines for one tools/call.
	ID string
	// RequestID is the JSON-RPC id, nil for notifications.
	RequestID any
	Args      map[string]any
	Loop      *mainloop.Loop
	Logger    *logrus.Entry

	release func()
}

// Release lets the next invocation of the same tool start. Call it after
// copying bound fields into locals, before waiting on long-running work.
// The tool must not read its bound fields afterwards.
func (c *Call) Release() {
	if c.release != nil {
		c.release()
	}
}

// Log returns the call's logger, falling back to the standard logger.
func (c *Call) Log() *logrus.Entry {
	if c.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.Logger
}

// Usage derives the advertised descriptor from a tool's params.
func Usage(t Tool) protocol.ToolDescriptor {
	return usage(t, t.Params())
}

func usage(t Tool, params []*Param) protocol.ToolDescriptor {
	schema := &protocol.JSONSchema{
		Type:       "object",
		Properties: make(map[string]protocol.JSONSchema, len(params)),
	}
	for _, p := range params {
		schema.Properties[p.Name] = protocol.JSONSchema{Type: string(p.Type), Description: p.Description}
		if p.required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return protocol.ToolDescriptor{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: schema,
	}
}

// Fault is shorthand for a tool-level error result.
func Fault(code int, format string, args ...any) ([]protocol.ContentItem, *protocol.ResponseError) {
	return nil, protocol.Errorf(code, format, args...)
}

// Reply is shorthand for a single text content result.
func Reply(text string) ([]protocol.ContentItem, *protocol.ResponseError) {
	return []protocol.ContentItem{protocol.Text(text)}, nil
}
