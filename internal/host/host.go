// Package host is the embedded HTTP listener: an exact-match route table with
// per-route request verification and an idempotent start/stop lifecycle.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Host serves registered routes on one listener.
type Host struct {
	addr    string
	logger  *logrus.Entry
	handler http.Handler

	mu     sync.RWMutex
	routes map[routeKey]*Route

	life    sync.Mutex
	srv     *http.Server
	ln      net.Listener
	cancel  context.CancelFunc
	done    chan struct{}
	serveMu sync.Mutex
	err     error
}

// New builds a host that will listen on addr (host:port; port 0 picks one).
func New(addr string, logger *logrus.Entry) *Host {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &Host{
		addr:   addr,
		logger: logger,
		routes: make(map[routeKey]*Route),
	}
	h.handler = logRequests(logger, http.HandlerFunc(h.serve))
	return h
}

// Handle registers a route. It returns false, leaving the table unchanged,
// when the method and path are already taken or the route has no handler.
func (h *Host) Handle(rt Route) bool {
	if rt.Handler == nil || rt.Path == "" || rt.Method == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	k := rt.key()
	if _, ok := h.routes[k]; ok {
		return false
	}
	h.routes[k] = &rt
	return true
}

// ServeHTTP runs the full request pipeline.
func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Host) serve(w http.ResponseWriter, r *http.Request) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		h.logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "panic": rec}).Error("handler panicked")
		if rw, ok := w.(*responseRecorder); ok && rw.written {
			return
		}
		RespondError(w, http.StatusInternalServerError, fmt.Sprint(rec))
	}()

	h.mu.RLock()
	rt, ok := h.routes[routeKey{method: r.Method, path: r.URL.Path}]
	h.mu.RUnlock()
	if !ok {
		RespondError(w, http.StatusNotFound, "No handler found for the requested path and method.")
		return
	}
	if err := rt.verify(r); err != nil {
		RespondError(w, http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}
	rt.Handler.ServeHTTP(w, r)
}

// Start binds the listener and serves in the background. Starting a running
// host is a no-op.
func (h *Host) Start(ctx context.Context) error {
	h.life.Lock()
	defer h.life.Unlock()
	if h.srv != nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", h.addr, err)
	}

	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	done := make(chan struct{})

	h.srv, h.ln, h.cancel, h.done = srv, ln, cancel, done
	h.setErr(nil)

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.WithError(err).Error("listener failed")
			h.setErr(err)
		}
	}()

	h.logger.WithField("addr", ln.Addr().String()).Info("host listening")
	return nil
}

// Stop cancels in-flight requests, shuts the server down within ctx and
// releases the listener. Stopping a stopped host is a no-op.
func (h *Host) Stop(ctx context.Context) error {
	h.life.Lock()
	defer h.life.Unlock()
	if h.srv == nil {
		return nil
	}

	h.cancel()
	err := h.srv.Shutdown(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("graceful shutdown failed, closing")
		_ = h.srv.Close()
	}
	_ = h.ln.Close()
	<-h.done

	h.srv, h.ln, h.cancel, h.done = nil, nil, nil, nil
	h.logger.Info("host stopped")
	return err
}

// Running reports whether the listener is bound.
func (h *Host) Running() bool {
	h.life.Lock()
	defer h.life.Unlock()
	return h.srv != nil
}

// Addr is the bound address while running, else the configured one.
func (h *Host) Addr() string {
	h.life.Lock()
	defer h.life.Unlock()
	if h.ln != nil {
		return h.ln.Addr().String()
	}
	return h.addr
}

// Err returns the error that ended the last serve loop, if any.
func (h *Host) Err() error {
	h.serveMu.Lock()
	defer h.serveMu.Unlock()
	return h.err
}

func (h *Host) setErr(err error) {
	h.serveMu.Lock()
	h.err = err
	h.serveMu.Unlock()
}
