// Package bootstrap provides assembly of a full signal runtime
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/signalgrid/signalgrid/config"
	"github.com/signalgrid/signalgrid/core"
	"github.com/signalgrid/signalgrid/logging"
	"github.com/signalgrid/signalgrid/luahost"
	"github.com/signalgrid/signalgrid/telemetry"
)

// Application assembles a runnable signal runtime: the core system,
// the Lua chip host, telemetry and configuration watching, each
// managed as a lifecycle service and reachable through the shared
// container.
type Application struct {
	cfg        *config.Config
	configFile string

	container *Container
	lifecycle *LifecycleManager
	logger    zerolog.Logger

	system  *core.System
	traced  *telemetry.System
	host    *luahost.Host
	watcher *config.Watcher

	mutex        sync.RWMutex
	running      bool
	shutdownChan chan os.Signal
}

// New creates an application over cfg. A nil cfg selects defaults.
func New(cfg *config.Config) *Application {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := appLogger(cfg)
	container := NewContainer()
	lifecycle := NewLifecycleManager(container).
		SetLogger(logger.With().Str("component", "lifecycle").Logger())

	app := &Application{
		cfg:          cfg,
		container:    container,
		lifecycle:    lifecycle,
		logger:       logger,
		shutdownChan: make(chan os.Signal, 1),
	}
	app.registerCoreServices()

	return app
}

// NewFromFile loads the configuration at path and creates an
// application that watches the file for changes while running.
func NewFromFile(path string) (*Application, error) {
	cfg, err := config.NewLoader().Load(path)
	if err != nil {
		return nil, err
	}

	app := New(cfg)
	app.configFile = path
	if err := app.lifecycle.Register("config-watcher", &watcherService{app: app}); err != nil {
		return nil, err
	}

	return app, nil
}

// appLogger builds the root logger from the configuration's log
// section.
func appLogger(cfg *config.Config) zerolog.Logger {
	level, ok := logging.ParseLevel(string(cfg.Log.Level))
	if !ok {
		level = zerolog.InfoLevel
	}
	if cfg.IsDebugEnabled() && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	return logging.New(logging.Config{
		Level:     level,
		Console:   cfg.Log.Format != config.LogFormatJSON,
		NoColor:   cfg.Log.NoColor,
		Timestamp: cfg.Log.Timestamp,
	})
}

// registerCoreServices wires the built-in services. Registration
// errors cannot occur here: the names are distinct and the lifecycle
// has not started.
func (app *Application) registerCoreServices() {
	app.lifecycle.Register("telemetry", &telemetryService{app: app})
	app.lifecycle.Register("signal-system", &signalSystemService{app: app})
	app.lifecycle.Register("lua-host", &luaHostService{app: app}, "signal-system")
}

// RegisterService adds a caller-owned service to the managed set.
func (app *Application) RegisterService(name string, service Service, deps ...string) error {
	return app.lifecycle.Register(name, service, deps...)
}

// Start starts every service in dependency order without blocking.
// Run is the blocking variant for main functions.
func (app *Application) Start(ctx context.Context) error {
	app.mutex.Lock()
	if app.running {
		app.mutex.Unlock()
		return ErrAlreadyStarted
	}
	app.running = true
	app.mutex.Unlock()

	if err := app.lifecycle.Start(ctx); err != nil {
		app.mutex.Lock()
		app.running = false
		app.mutex.Unlock()
		return fmt.Errorf("start services: %w", err)
	}

	return nil
}

// Run starts the application and blocks until the context is
// cancelled or an interrupt arrives, then shuts down gracefully.
func (app *Application) Run(ctx context.Context) error {
	if err := app.Start(ctx); err != nil {
		return err
	}

	signal.Notify(app.shutdownChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(app.shutdownChan)

	app.logger.Info().Str("app", app.Config().App.Name).Msg("application running")

	select {
	case <-app.shutdownChan:
		app.logger.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		app.logger.Info().Msg("context cancelled")
	}

	return app.Shutdown(context.Background())
}

// Shutdown stops all services in reverse start order.
func (app *Application) Shutdown(ctx context.Context) error {
	app.mutex.Lock()
	if !app.running {
		app.mutex.Unlock()
		return nil
	}
	app.running = false
	app.mutex.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := app.lifecycle.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("stop services: %w", err)
	}

	app.logger.Info().Msg("application stopped")
	return nil
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.cfg
}

// Container returns the shared dependency container.
func (app *Application) Container() *Container {
	return app.container
}

// Lifecycle returns the lifecycle manager.
func (app *Application) Lifecycle() *LifecycleManager {
	return app.lifecycle
}

// System returns the core signal system, nil before Start.
func (app *Application) System() *core.System {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.system
}

// TracedSystem returns the telemetry wrapper over the signal system,
// nil before Start.
func (app *Application) TracedSystem() *telemetry.System {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.traced
}

// Host returns the Lua chip host, nil before Start.
func (app *Application) Host() *luahost.Host {
	app.mutex.RLock()
	defer app.mutex.RUnlock()
	return app.host
}

// applyConfig swaps the active configuration after a reload. Options
// already baked into running services keep their values; the new
// configuration applies to services built afterwards.
func (app *Application) applyConfig(cfg *config.Config) {
	app.mutex.Lock()
	app.cfg = cfg
	app.mutex.Unlock()

	app.logger.Info().Str("app", cfg.App.Name).Msg("configuration reloaded")
}

// telemetryService manages the tracing provider as a lifecycle
// service. With telemetry disabled the provider is a no-op.
type telemetryService struct {
	app      *Application
	shutdown func(context.Context) error
}

func (s *telemetryService) Name() string {
	return "telemetry"
}

func (s *telemetryService) Start(ctx context.Context) error {
	cfg := s.app.Config()

	var err error
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint != "" {
		s.shutdown, err = telemetry.SetupWithEndpoint(ctx, cfg.App.Name, cfg.Telemetry.Endpoint)
	} else {
		s.shutdown, err = telemetry.Setup(ctx, cfg.App.Name)
	}
	return err
}

func (s *telemetryService) Stop(ctx context.Context) error {
	if s.shutdown == nil {
		return nil
	}
	return s.shutdown(ctx)
}

func (s *telemetryService) Health(ctx context.Context) (HealthStatus, error) {
	if !s.app.Config().Telemetry.Enabled {
		return HealthStatus{
			State:   HealthUnknown,
			Message: "telemetry disabled",
		}, nil
	}
	return HealthStatus{
		State:   HealthHealthy,
		Message: "telemetry exporting",
	}, nil
}

// signalSystemService owns the core signal system and its telemetry
// wrapper.
type signalSystemService struct {
	app *Application
}

func (s *signalSystemService) Name() string {
	return "signal-system"
}

func (s *signalSystemService) Start(ctx context.Context) error {
	cfg := s.app.Config()

	system := core.NewSystemWithOptions(core.SystemOptions{
		Logger:             s.app.logger.With().Str("component", "core").Logger(),
		SlowHandlerWarn:    cfg.Dispatch.SlowHandlerWarn,
		LogHandlerFailures: cfg.Dispatch.LogFailures,
	})
	traced := telemetry.NewSystem(system)

	s.app.mutex.Lock()
	s.app.system = system
	s.app.traced = traced
	s.app.mutex.Unlock()

	if err := s.app.container.RegisterInstance("signal-system", system); err != nil {
		return err
	}
	return s.app.container.RegisterInstance("traced-system", traced)
}

func (s *signalSystemService) Stop(ctx context.Context) error {
	s.app.container.RemoveInstance("signal-system")
	s.app.container.RemoveInstance("traced-system")

	s.app.mutex.Lock()
	s.app.system = nil
	s.app.traced = nil
	s.app.mutex.Unlock()

	return nil
}

func (s *signalSystemService) Health(ctx context.Context) (HealthStatus, error) {
	system := s.app.System()
	if system == nil {
		return HealthStatus{
			State:   HealthStopped,
			Message: "signal system not started",
		}, nil
	}

	stats := system.Stats()
	return HealthStatus{
		State:   HealthHealthy,
		Message: "signal system running",
		Data: map[string]interface{}{
			"sends":      stats.Sends,
			"rejected":   stats.Rejected,
			"deliveries": stats.Deliveries,
			"failures":   stats.Failures,
		},
	}, nil
}

// luaHostService owns the Lua chip host and loads the configured
// manifest when scripting is enabled.
type luaHostService struct {
	app *Application
}

func (s *luaHostService) Name() string {
	return "lua-host"
}

func (s *luaHostService) Start(ctx context.Context) error {
	system := s.app.System()
	if system == nil {
		return fmt.Errorf("%w: 'lua-host' needs 'signal-system'", ErrServiceNotFound)
	}

	host := luahost.NewHost(system).
		SetLogger(s.app.logger.With().Str("component", "luahost").Logger())

	s.app.mutex.Lock()
	s.app.host = host
	s.app.mutex.Unlock()

	if err := s.app.container.RegisterInstance("lua-host", host); err != nil {
		return err
	}

	cfg := s.app.Config()
	if !cfg.Lua.Enabled {
		return nil
	}

	manifest := cfg.Lua.Manifest
	if !filepath.IsAbs(manifest) {
		manifest = filepath.Join(cfg.Lua.ScriptDir, manifest)
	}
	if err := host.LoadManifest(manifest); err != nil {
		return err
	}

	s.app.logger.Info().Int("chips", host.ChipCount()).Msg("chips loaded")
	return nil
}

func (s *luaHostService) Stop(ctx context.Context) error {
	host := s.app.Host()
	if host != nil {
		host.UnloadAll()
	}

	s.app.container.RemoveInstance("lua-host")

	s.app.mutex.Lock()
	s.app.host = nil
	s.app.mutex.Unlock()

	return nil
}

func (s *luaHostService) Health(ctx context.Context) (HealthStatus, error) {
	host := s.app.Host()
	if host == nil {
		return HealthStatus{
			State:   HealthStopped,
			Message: "lua host not started",
		}, nil
	}

	return HealthStatus{
		State:   HealthHealthy,
		Message: "lua host running",
		Data: map[string]interface{}{
			"chips": host.ChipCount(),
		},
	}, nil
}

// watcherService hot-reloads configuration from the file the
// application was created from.
type watcherService struct {
	app *Application
}

func (s *watcherService) Name() string {
	return "config-watcher"
}

func (s *watcherService) Start(ctx context.Context) error {
	watcher, err := config.NewWatcher(s.app.configFile, config.NewLoader())
	if err != nil {
		return err
	}

	watcher.SetLogger(s.app.logger.With().Str("component", "config").Logger())
	watcher.OnConfigChange(func(oldConfig, newConfig *config.Config) {
		s.app.applyConfig(newConfig)
	})

	if err := watcher.Start(); err != nil {
		return err
	}

	s.app.mutex.Lock()
	s.app.watcher = watcher
	s.app.mutex.Unlock()

	return nil
}

func (s *watcherService) Stop(ctx context.Context) error {
	s.app.mutex.Lock()
	watcher := s.app.watcher
	s.app.watcher = nil
	s.app.mutex.Unlock()

	if watcher == nil {
		return nil
	}
	return watcher.Stop()
}

func (s *watcherService) Health(ctx context.Context) (HealthStatus, error) {
	s.app.mutex.RLock()
	watcher := s.app.watcher
	s.app.mutex.RUnlock()

	if watcher == nil {
		return HealthStatus{
			State:   HealthStopped,
			Message: "config watcher not running",
		}, nil
	}
	return HealthStatus{
		State:   HealthHealthy,
		Message: "watching " + s.app.configFile,
	}, nil
}
