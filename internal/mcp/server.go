package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mimirmcp/mimir-host/internal/mainloop"
	"github.com/mimirmcp/mimir-host/internal/protocol"
)

// DefaultProtocolVersion is answered to initialize when the client does not
// name one.
const DefaultProtocolVersion = "2025-06-18"

// Options names the server in the initialize handshake.
type Options struct {
	Name    string
	Version string
}

// Server handles MCP JSON-RPC requests against a toolbox.
type Server struct {
	toolbox *Toolbox
	loop    *mainloop.Loop
	logger  *logrus.Entry
	opts    Options
}

// NewServer wires a toolbox into an MCP server. loop may be nil when no tool
// needs the main loop.
func NewServer(tb *Toolbox, loop *mainloop.Loop, logger *logrus.Entry, opts Options) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.Name == "" {
		opts.Name = "mimir-host"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{toolbox: tb, loop: loop, logger: logger, opts: opts}
}

// Name returns the advertised server name.
func (s *Server) Name() string { return s.opts.Name }

// Toolbox returns the registry the server dispatches to.
func (s *Server) Toolbox() *Toolbox { return s.toolbox }

// Handle routes a single request. A nil response means nothing is to be
// written back. The error is non-nil only for unexpected faults such as a
// panicking tool.
func (s *Server) Handle(ctx context.Context, req protocol.Request) (*protocol.Response, error) {
	if req.JSONRPC != "" && req.JSONRPC != protocol.JSONRPCVersion {
		return protocol.Failure(req.ID, protocol.Errorf(protocol.CodeInvalidRequest, "Invalid JSON-RPC version: %s", req.JSONRPC)), nil
	}

	switch req.Method {
	case "initialize":
		return protocol.Result(req.ID, protocol.InitializeResult{
			ProtocolVersion: protocolVersion(req.Params),
			ServerInfo:      protocol.ServerInfo{Name: s.opts.Name, Version: s.opts.Version},
			Capabilities:    protocol.Capabilities{Tools: protocol.ToolsCapability{ListChanged: true}},
		}), nil
	case "ping":
		return protocol.Result(req.ID, map[string]any{}), nil
	case "tools/list":
		return protocol.Result(req.ID, protocol.ListResult{Tools: s.toolbox.Describe()}), nil
	case "tools/call":
		return s.callTool(ctx, req)
	case "notifications/initialized":
		return nil, nil
	default:
		if req.IsNotification() {
			return nil, nil
		}
		return protocol.Failure(req.ID, protocol.Errorf(protocol.CodeMethodNotFound, "Unknown MCP method: %s", req.Method)), nil
	}
}

func (s *Server) callTool(ctx context.Context, req protocol.Request) (*protocol.Response, error) {
	name, ok := toolName(req.Params)
	if !ok {
		return protocol.Failure(req.ID, protocol.NewError(protocol.CodeInvalidParams, "tool_name parameter is required and must be a string")), nil
	}

	call := &Call{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Args:      arguments(req.Params),
		Loop:      s.loop,
	}
	call.Logger = s.logger.WithFields(logrus.Fields{"tool": name, "call_id": call.ID})

	start := time.Now()
	result, rpcErr, err := s.toolbox.Call(ctx, name, call)
	fields := logrus.Fields{"duration": time.Since(start)}
	switch {
	case err != nil:
		call.Logger.WithFields(fields).WithError(err).Error("tool panicked")
		return nil, err
	case rpcErr != nil:
		call.Logger.WithFields(fields).WithField("code", rpcErr.Code).Warn(rpcErr.Message)
		return protocol.Failure(req.ID, rpcErr), nil
	}
	call.Logger.WithFields(fields).Debug("tool call complete")
	return protocol.Result(req.ID, result), nil
}

func protocolVersion(params map[string]any) string {
	if v, ok := params["protocolVersion"].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return DefaultProtocolVersion
}

func toolName(params map[string]any) (string, bool) {
	v, ok := params["tool_name"]
	if !ok {
		v = params["name"]
	}
	name, ok := v.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

func arguments(params map[string]any) map[string]any {
	v, ok := params["arguments"]
	if !ok || v == nil {
		v = params["input"]
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
