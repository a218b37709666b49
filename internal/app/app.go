// Package app wires the host: listener, MCP dispatcher, main loop, scene and
// databases.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mimirmcp/mimir-host/internal/config"
	"github.com/mimirmcp/mimir-host/internal/host"
	"github.com/mimirmcp/mimir-host/internal/mainloop"
	"github.com/mimirmcp/mimir-host/internal/mcp"
	"github.com/mimirmcp/mimir-host/internal/scene"
	"github.com/mimirmcp/mimir-host/internal/store"
	"github.com/mimirmcp/mimir-host/internal/tools"
	"github.com/mimirmcp/mimir-host/internal/version"
)

// SceneObjectsDatabase is the name of the built-in scene snapshot database.
const SceneObjectsDatabase = "scene_objects"

// ErrAlreadyRun is returned by a second call to Run. An App serves once.
var ErrAlreadyRun = errors.New("app: already run")

// App owns every long-lived component of a running host.
type App struct {
	cfg    *config.Config
	logger *logrus.Entry

	loop    *mainloop.Loop
	scene   *scene.Scene
	toolbox *mcp.Toolbox
	server  *mcp.Server
	host    *host.Host

	mu        sync.Mutex
	databases map[string]store.Database

	ready   chan struct{}
	started atomic.Bool
}

// New builds the host from cfg. Nothing listens until Run.
func New(cfg *config.Config, logger *logrus.Entry) (*App, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		loop:      mainloop.New(cfg.Loop.TickRate, logger.WithField("subsystem", "loop")),
		toolbox:   mcp.NewToolbox(),
		databases: make(map[string]store.Database),
		ready:     make(chan struct{}),
	}

	if cfg.Scene.File != "" {
		doc, err := scene.Load(cfg.Scene.File)
		if err != nil {
			return nil, err
		}
		if a.scene, err = scene.New(a.loop, doc); err != nil {
			return nil, fmt.Errorf("building scene: %w", err)
		}
	}

	history := tools.NewHistory(tools.DefaultHistorySize)
	a.Register(tools.Log(logger.WithField("subsystem", "mcp-log"), history))
	a.Register(tools.LogTail(history))
	if a.scene != nil {
		a.Register(tools.SceneHierarchy(a.scene))
		a.Register(tools.TransformInspect(a.scene))
		a.Register(tools.TransformUpdate(a.scene, scene.Position))
		a.Register(tools.TransformUpdate(a.scene, scene.Rotation))
		a.Register(tools.TransformUpdate(a.scene, scene.Scale))
		a.Register(tools.TransformChange(a.scene))

		if cfg.Databases.SceneObjects {
			db := store.NewNamed[*scene.Object](SceneObjectsDatabase)
			db.SetLoader(a.scene.Objects)
			if err := a.RegisterDatabase(db); err != nil {
				return nil, err
			}
		}
	}

	a.server = mcp.NewServer(a.toolbox, a.loop, logger.WithField("subsystem", "mcp"), mcp.Options{
		Name:    cfg.Server.Name,
		Version: version.Get().Version,
	})

	a.host = host.New(cfg.Server.Addr(), logger.WithField("subsystem", "http"))
	a.host.Handle(host.HealthRoute())
	a.host.Handle(host.VersionRoute())
	for _, rt := range mcp.Routes(a.server) {
		a.host.Handle(rt)
	}
	return a, nil
}

// Register adds a tool; see mcp.Toolbox.Register.
func (a *App) Register(t mcp.Tool) bool {
	return a.toolbox.Register(t)
}

// RegisterDatabase exposes db through its read_<name>_database tool.
func (a *App) RegisterDatabase(db store.Database) error {
	if db == nil {
		return fmt.Errorf("database is nil")
	}
	name := db.Name()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.databases[name]; ok {
		return fmt.Errorf("database %q already registered", name)
	}
	if !a.toolbox.Register(tools.DatabaseRead(db)) {
		return fmt.Errorf("tool %q already registered", tools.DatabaseToolName(name))
	}
	a.databases[name] = db
	a.logger.WithField("database", name).Info("database registered")
	return nil
}

// Database looks up a registered database by name.
func (a *App) Database(name string) (store.Database, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	db, ok := a.databases[name]
	return db, ok
}

func (a *App) Toolbox() *mcp.Toolbox  { return a.toolbox }
func (a *App) Loop() *mainloop.Loop   { return a.loop }
func (a *App) Scene() *scene.Scene    { return a.scene }
func (a *App) Host() *host.Host       { return a.host }
func (a *App) Ready() <-chan struct{} { return a.ready }

// Run starts the main loop and the listener and blocks until ctx is
// cancelled. Shutdown stops the listener first, then the loop.
func (a *App) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.loop.Run(loopCtx)
	})

	if err := a.host.Start(gctx); err != nil {
		stopLoop()
		_ = g.Wait()
		return err
	}
	close(a.ready)
	a.logger.WithFields(logrus.Fields{
		"addr":  a.host.Addr(),
		"tools": a.toolbox.Len(),
	}).Infof("%s endpoint ready at http://%s%s", a.cfg.Server.Name, a.host.Addr(), mcp.Path)

	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		err := a.host.Stop(stopCtx)
		stopLoop()
		return err
	})
	return g.Wait()
}
