package application

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eugenenazirov/container-scaffold/internal/api"
	"github.com/eugenenazirov/container-scaffold/internal/config"
)

const (
	defaultName        = "scaffold"
	instanceFolderName = "instance"
)

// Options mirrors what a host passes at startup. Start from DefaultOptions.
type Options struct {
	Name         string
	Mapping      map[string]any
	Required     bool
	InstancePath string
	// KeepInstancePrefix stops a leading "instance" segment from being
	// dropped off relative file references. The zero value drops it.
	KeepInstancePrefix bool
	RequiredKeys       []string
	Fs                 afero.Fs
	Getenv             func(string) string
}

// DefaultOptions returns the zero Options, which resolve references relative
// to the instance path.
func DefaultOptions() Options {
	return Options{}
}

// App is the configured application handle handed back to the host.
type App struct {
	Name         string
	InstancePath string
	Config       *config.Config
	// Extensions holds values derived from configuration, keyed by name.
	Extensions map[string]any

	logger *zap.Logger
	server *http.Server
}

// New builds the configuration for existing, or for a fresh App when existing
// is nil. An existing App keeps its name and instance path unless opts
// overrides them, and its current configuration becomes the base layer under
// opts.Mapping. On error existing is left untouched.
func New(existing *App, opts Options, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := existing
	if app == nil {
		app = &App{}
	}

	name := firstNonEmpty(opts.Name, app.Name, defaultName)
	instancePath, err := resolveInstancePath(firstNonEmpty(opts.InstancePath, app.InstancePath))
	if err != nil {
		return nil, err
	}

	mapping := opts.Mapping
	if app.Config != nil {
		mapping = app.Config.Store.Snapshot()
		for k, v := range opts.Mapping {
			mapping[k] = v
		}
	}

	buildOpts := config.DefaultOptions()
	buildOpts.Mapping = mapping
	buildOpts.InstancePath = instancePath
	buildOpts.Relative = !opts.KeepInstancePrefix
	buildOpts.Required = opts.Required
	buildOpts.RequiredKeys = opts.RequiredKeys
	buildOpts.Fs = opts.Fs
	buildOpts.Getenv = opts.Getenv
	buildOpts.Logger = logger.With(zap.String("app", name))

	cfg, err := config.Build(buildOpts)
	if err != nil {
		return nil, fmt.Errorf("build configuration: %w", err)
	}

	extensions := make(map[string]any, len(app.Extensions)+1)
	for k, v := range app.Extensions {
		extensions[k] = v
	}
	if cfg.Store.Has(TaskQueueKey) {
		settings, err := decodeTaskQueue(cfg)
		if err != nil {
			return nil, err
		}
		extensions[TaskQueueExtension] = settings
	}

	app.Name = name
	app.InstancePath = instancePath
	app.Config = cfg
	app.Extensions = extensions
	app.logger = logger
	return app, nil
}

// ServerOptions configures the HTTP server started by Serve.
type ServerOptions struct {
	Addr                 string
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// DefaultServerOptions returns the server defaults used by the CLI.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Addr:                 ":8080",
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         25,
		RateLimitBurst:       50,
	}
}

// Handler returns the root handler serving the configuration API under /api/.
func (a *App) Handler(opts ...api.RouterOption) http.Handler {
	handler := api.NewHandler(a.Config.Store,
		api.WithName(a.Name),
		api.WithSources(func(key string) string { return string(a.Config.Sources[key]) }),
		api.WithHandlerLogger(a.logger),
	)
	return BuildRootHandler(api.NewRouter(handler, a.logger, opts...))
}

// BuildRootHandler mounts the API handler and answers 404 for everything else.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided options.
func NewServer(opts ServerOptions, handler http.Handler) *http.Server {
	addr := opts.Addr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
}

// Serve starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Serve(opts ServerOptions) error {
	if a.Config == nil {
		return errors.New("application is not configured")
	}

	handler := a.Handler(
		api.WithLogging(opts.EnableRequestLogging),
		api.WithRateLimit(opts.RateLimitRPS, opts.RateLimitBurst),
	)
	a.server = NewServer(opts, handler)

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr), zap.String("app", a.Name))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// resolveInstancePath makes path absolute, defaulting to ./instance.
func resolveInstancePath(path string) (string, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		return filepath.Join(wd, instanceFolderName), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve instance path %q: %w", path, err)
	}
	return abs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
