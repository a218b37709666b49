package protocol

import "fmt"

// JSONRPCVersion is the only protocol revision the server speaks.
const JSONRPCVersion = "2.0"

// Error codes are part of the wire contract and must stay stable.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	// CodePrecondition reports a missing execution context, e.g. no active scene.
	CodePrecondition = -32001
)

// Request represents a JSON-RPC 2.0 request envelope.
// A nil ID (absent or null on the wire) marks a notification.
type Request struct {
	JSONRPC string         `json:"jsonrpc,omitempty"`
	ID      any            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// IsNotification reports whether the caller expects no response body.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response models a JSON-RPC 2.0 response. Result and Error are mutually exclusive.
type Response struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

// ResponseError holds JSON-RPC error data.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewError builds a ResponseError carrying msg verbatim.
func NewError(code int, msg string) *ResponseError {
	return &ResponseError{Code: code, Message: msg}
}

// Errorf builds a ResponseError with a formatted message.
func Errorf(code int, format string, args ...any) *ResponseError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Result wraps a successful payload for the given request id.
func Result(id, result any) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

// Failure wraps an error for the given request id.
func Failure(id any, err *ResponseError) *Response {
	return &Response{JSONRPC: JSONRPCVersion, ID: id, Error: err}
}

// ToolDescriptor describes a tool available from the MCP server.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema *JSONSchema `json:"inputSchema,omitempty"`
}

// JSONSchema is a minimal subset to describe tool input shapes.
type JSONSchema struct {
	Type        string                `json:"type,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Description string                `json:"description,omitempty"`
}

// ListResult is the payload for tools/list.
type ListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// Content item types.
const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentResource = "resource"
)

// ContentItem is a single piece of tool output: text, an image by url or a
// resource by id.
type ContentItem struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	URL        string `json:"url,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`
}

// Text builds a text content item.
func Text(text string) ContentItem {
	return ContentItem{Type: ContentText, Text: text}
}

// Image builds an image-by-url content item.
func Image(url string) ContentItem {
	return ContentItem{Type: ContentImage, URL: url}
}

// Resource builds a resource-by-id content item.
func Resource(id string) ContentItem {
	return ContentItem{Type: ContentResource, ResourceID: id}
}

// CallResult is the payload for a successful tool invocation.
type CallResult struct {
	Content []ContentItem `json:"content"`
}

// InitializeResult is the payload for initialize.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// ServerInfo identifies the server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities advertises optional protocol features.
type Capabilities struct {
	Tools ToolsCapability `json:"tools"`
}

// ToolsCapability advertises tool-related features.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}
