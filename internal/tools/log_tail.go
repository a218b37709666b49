package tools

import (
	"context"
	"strings"

	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/protocol"
)

const defaultTailCount = 20

type logTailTool struct {
	history *History

	Count *int
}

// LogTail returns recent messages written through the log tool.
func LogTail(history *History) *logTailTool {
	return &logTailTool{history: history}
}

func (t *logTailTool) Name() string { return "log_tail" }

func (t *logTailTool) Description() string {
	return "Return the most recent messages written with the log tool, oldest first."
}

func (t *logTailTool) Params() []*mcp.Param {
	return []*mcp.Param{
		mcp.NullableNumber("count", "How many messages to return (default 20)", &t.Count),
	}
}

func (t *logTailTool) Execute(context.Context, *mcp.Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	n := defaultTailCount
	if t.Count != nil {
		n = *t.Count
	}
	if n <= 0 {
		return mcp.Fault(protocol.CodeInvalidParams, "Parameter 'count' must be greater than zero.")
	}

	records := t.history.Tail(n)
	if len(records) == 0 {
		return mcp.Reply("No messages have been logged.")
	}
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = rec.String()
	}
	return mcp.Reply(strings.Join(lines, "\n"))
}
