package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mimirmcp/mimir-host/internal/host"
	"github.com/mimirmcp/mimir-host/internal/protocol"
)

// MaxBodyBytes caps a single JSON-RPC request body.
const MaxBodyBytes = 4 << 20

// Path is where the MCP endpoint is mounted.
const Path = "/mcp"

// Routes returns the discovery (GET) and RPC (POST) routes for server.
func Routes(server *Server) []host.Route {
	return []host.Route{
		{
			Method: http.MethodGet,
			Path:   Path,
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				host.RespondMessage(w, http.StatusOK, fmt.Sprintf("%s endpoint ready at %s (POST for MCP RPC).", server.Name(), Path))
			}),
		},
		{
			Method:  http.MethodPost,
			Path:    Path,
			Verify:  []host.Verification{requireJSON},
			Handler: rpcHandler(server),
		},
	}
}

func requireJSON(r *http.Request) error {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.HasPrefix(ct, "application/json") {
		return errors.New("Content-Type must be application/json")
	}
	return nil
}

func rpcHandler(server *Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeRequest(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			server.logger.WithError(err).Debug("rejecting request body")
			writeJSON(w, protocol.Failure(nil, protocol.NewError(protocol.CodeParseError, "Invalid request body")), http.StatusBadRequest)
			return
		}

		resp, err := server.Handle(r.Context(), req)
		if req.IsNotification() {
			if err != nil {
				server.logger.WithError(err).WithField("method", req.Method).Error("notification failed")
			} else if resp != nil && resp.Error != nil {
				server.logger.WithField("method", req.Method).Warn(resp.Error.Message)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			writeJSON(w, protocol.Failure(req.ID, protocol.NewError(protocol.CodeInternalError, err.Error())), http.StatusInternalServerError)
			return
		}
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, resp, http.StatusOK)
	})
}

func decodeRequest(body io.Reader) (protocol.Request, error) {
	var req protocol.Request
	data, err := io.ReadAll(body)
	if err != nil {
		return req, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return req, errors.New("empty request")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errors.New("unexpected content after request")
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, resp *protocol.Response, status int) {
	host.RespondJSON(w, status, resp)
}
