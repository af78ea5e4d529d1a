package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/localsession"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/session"
	"github.com/vk/taskgrid/internal/taskstore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
	loader   config.Loader
	sessions session.SessionFactory

	ctx        context.Context
	httpServer *http.Server

	mu    sync.RWMutex
	store taskstore.Store
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Without modules, the core executor modules are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	reg.RegisterModules(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "executors", reg.Names())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
		loader:   loader,
		sessions: &localsession.SessionFactory{},
		ctx:      ctxlog.WithLogger(context.Background(), logger),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) setStore(s taskstore.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.store = s
}

func (a *App) taskStore() taskstore.Store {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}
