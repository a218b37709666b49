package tools

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/protocol"
)

// logTool writes a caller supplied message into the host log.
type logTool struct {
	logger  *logrus.Entry
	history *History

	Message string
	Level   *string
}

// Log constructs the log tool. Messages are also kept in history for log_tail.
func Log(logger *logrus.Entry, history *History) *logTool {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &logTool{logger: logger, history: history}
}

func (t *logTool) Name() string { return "log" }

func (t *logTool) Description() string {
	return "Write a message to the host log at info, warning or error level."
}

func (t *logTool) Params() []*mcp.Param {
	return []*mcp.Param{
		mcp.String("message", "The message to log", &t.Message).Required(),
		mcp.NullableString("level", "Log level: info (default), warning or error", &t.Level),
	}
}

func (t *logTool) Execute(_ context.Context, call *mcp.Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	if strings.TrimSpace(t.Message) == "" {
		return mcp.Fault(protocol.CodeInvalidParams, "Parameter 'message' must not be empty.")
	}

	level, name := logrus.InfoLevel, "Info"
	if t.Level != nil {
		switch strings.ToLower(strings.TrimSpace(*t.Level)) {
		case "", "info":
		case "warning", "warn":
			level, name = logrus.WarnLevel, "Warning"
		case "error":
			level, name = logrus.ErrorLevel, "Error"
		default:
			return mcp.Fault(protocol.CodeInvalidParams, "Parameter 'level' must be info, warning or error.")
		}
	}

	t.logger.WithField("call_id", call.ID).Log(level, "[MCP Log] "+t.Message)
	if t.history != nil {
		t.history.Add(Record{Time: time.Now(), Level: strings.ToLower(name), Message: t.Message})
	}
	return mcp.Reply("Logged message as " + name + " level.")
}
