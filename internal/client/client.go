// Package client issues MCP JSON-RPC calls to a running host over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mimirmcp/mimir-host/internal/protocol"
)

// Client talks to one host.
type Client struct {
	baseURL    string
	httpClient *http.Client
	counter    atomic.Uint64
}

// New builds a client for the host at baseURL, e.g. http://127.0.0.1:8080.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) nextID() uint64 {
	return c.counter.Add(1)
}

// Do sends one request and decodes the result into out. A JSON-RPC error is
// returned as *protocol.ResponseError.
func (c *Client) Do(ctx context.Context, method string, params map[string]any, out any) error {
	payload := protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      c.nextID(),
		Method:  method,
		Params:  params,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call mcp host: %w", err)
	}
	defer httpResp.Body.Close()

	var resp struct {
		Result json.RawMessage         `json:"result"`
		Error  *protocol.ResponseError `json:"error"`
	}
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil && httpResp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	if resp.Error != nil {
		return resp.Error
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("mcp host returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// Initialize performs the handshake.
func (c *Client) Initialize(ctx context.Context) (protocol.InitializeResult, error) {
	var result protocol.InitializeResult
	err := c.Do(ctx, "initialize", map[string]any{}, &result)
	return result, err
}

// Ping checks that the host answers JSON-RPC.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, "ping", nil, nil)
}

// ListTools fetches the advertised tools.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	var result protocol.ListResult
	if err := c.Do(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool and returns the structured result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (protocol.CallResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	var result protocol.CallResult
	err := c.Do(ctx, "tools/call", map[string]any{"tool_name": name, "arguments": args}, &result)
	return result, err
}

// Health fetches GET /health and returns its message.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("build http request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call mcp host: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health returned status %d: %s", resp.StatusCode, body.Error)
	}
	return body.Message, nil
}
