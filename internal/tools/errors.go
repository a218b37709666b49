package tools

import (
	"context"
	"errors"

	"github.com/mimirmcp/mimir-host/internal/mainloop"
	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/protocol"
)

// hostFault maps errors from loop-bound work onto tool faults.
func hostFault(err error) ([]protocol.ContentItem, *protocol.ResponseError) {
	switch {
	case errors.Is(err, mainloop.ErrStopped):
		return mcp.Fault(protocol.CodePrecondition, "No active context: the main loop is not running.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mcp.Fault(protocol.CodeInternalError, "Operation cancelled: %v", err)
	default:
		return mcp.Fault(protocol.CodeInternalError, "%v", err)
	}
}
