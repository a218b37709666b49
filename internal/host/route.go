package host

import (
	"fmt"
	"net/http"

	"github.com/mimirmcp/mimir-host/internal/version"
)

// Verification inspects a request before its handler runs. A non-nil error
// rejects the request with 400 and the error text.
type Verification func(r *http.Request) error

// Route binds an exact method and path to a handler.
type Route struct {
	Method string
	Path   string

	// RequiredHeaders must be present and non-empty.
	RequiredHeaders []string
	// RequiredQuery must be present and non-empty in the query string.
	RequiredQuery []string
	Verify        []Verification

	Handler http.Handler
}

type routeKey struct {
	method string
	path   string
}

func (r *Route) key() routeKey {
	return routeKey{method: r.Method, path: r.Path}
}

func (r *Route) verify(req *http.Request) error {
	for _, name := range r.RequiredHeaders {
		if req.Header.Get(name) == "" {
			return fmt.Errorf("missing required header '%s'", name)
		}
	}
	if len(r.RequiredQuery) > 0 {
		q := req.URL.Query()
		for _, name := range r.RequiredQuery {
			if q.Get(name) == "" {
				return fmt.Errorf("missing required query parameter '%s'", name)
			}
		}
	}
	for _, check := range r.Verify {
		if err := check(req); err != nil {
			return err
		}
	}
	return nil
}

// HealthRoute answers GET /health.
func HealthRoute() Route {
	return Route{
		Method: http.MethodGet,
		Path:   "/health",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			RespondMessage(w, http.StatusOK, "Service is healthy")
		}),
	}
}

// VersionRoute answers GET /version with build metadata.
func VersionRoute() Route {
	return Route{
		Method: http.MethodGet,
		Path:   "/version",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			RespondJSON(w, http.StatusOK, version.Get())
		}),
	}
}
