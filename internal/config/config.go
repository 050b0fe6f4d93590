package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/container-scaffold/internal/loader"
	"github.com/eugenenazirov/container-scaffold/internal/resolver"
	"github.com/eugenenazirov/container-scaffold/internal/storage"
)

const (
	// DefaultSettingsFile is looked up inside the instance path.
	DefaultSettingsFile = "settings.cfg"
	// DefaultOverrideEnv names the variable that points at an override settings file.
	DefaultOverrideEnv = "SCAFFOLD_SETTINGS"
	// DefaultCustomKey is both the store key and the variable holding custom settings.
	DefaultCustomKey = "CUSTOM_SETTINGS"
)

// Source identifies the layer that last wrote a key.
type Source string

const (
	SourceMapping  Source = "mapping"
	SourceSettings Source = "settings"
	SourceOverride Source = "override"
	SourceCustom   Source = "custom"
)

// Options controls Build. Start from DefaultOptions; zero-valued strings and
// nil funcs are replaced with defaults, but Relative is taken as given.
type Options struct {
	Mapping      map[string]any
	InstancePath string
	Relative     bool
	Required     bool
	SettingsFile string
	OverrideEnv  string
	CustomKey    string
	CustomEnv    string
	// RequiredKeys is checked when Required is set. Nil means
	// [DefaultCustomKey]; an empty non-nil slice disables the check.
	RequiredKeys []string
	Fs           afero.Fs
	Getenv       func(string) string
	Registry     *loader.Registry
	Logger       *zap.Logger
}

// DefaultOptions returns options with references resolved relative to the
// instance path.
func DefaultOptions() Options {
	return Options{
		Relative:     true,
		SettingsFile: DefaultSettingsFile,
		OverrideEnv:  DefaultOverrideEnv,
		CustomKey:    DefaultCustomKey,
		CustomEnv:    DefaultCustomKey,
	}
}

func (o Options) withDefaults() Options {
	if o.SettingsFile == "" {
		o.SettingsFile = DefaultSettingsFile
	}
	if o.OverrideEnv == "" {
		o.OverrideEnv = DefaultOverrideEnv
	}
	if o.CustomKey == "" {
		o.CustomKey = DefaultCustomKey
	}
	if o.CustomEnv == "" {
		o.CustomEnv = o.CustomKey
	}
	if o.RequiredKeys == nil {
		o.RequiredKeys = []string{o.CustomKey}
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.Registry == nil {
		o.Registry = loader.DefaultRegistry()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Config is the built configuration.
type Config struct {
	Store          *storage.Store
	InstancePath   string
	Relative       bool
	SettingsLoaded bool
	// Sources records which layer last wrote each key.
	Sources map[string]Source
}

// Build assembles the configuration store from every layer and expands
// custom settings. Any error aborts startup.
func Build(opts Options) (*Config, error) {
	opts = opts.withDefaults()
	logger := opts.Logger

	cfg := &Config{
		Store:        storage.New(),
		InstancePath: opts.InstancePath,
		Relative:     opts.Relative,
		Sources:      make(map[string]Source),
	}

	if opts.Mapping != nil {
		cfg.apply(opts.Mapping, SourceMapping)
	}

	settingsPath := instanceFile(opts.InstancePath, opts.SettingsFile)
	settings, found, err := loadOptional(opts.Fs, settingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings file: %w", err)
	}
	if found {
		cfg.apply(settings, SourceSettings)
		cfg.SettingsLoaded = true
		logger.Info("settings file loaded", zap.String("path", settingsPath), zap.Int("keys", len(settings)))
	} else {
		logger.Debug("settings file absent", zap.String("path", settingsPath))
	}

	if overridePath := strings.TrimSpace(opts.Getenv(opts.OverrideEnv)); overridePath != "" {
		overridePath = instanceFile(opts.InstancePath, overridePath)
		values, err := loader.LoadSettings(opts.Fs, overridePath)
		if err != nil {
			return nil, fmt.Errorf("load %s file: %w", opts.OverrideEnv, err)
		}
		cfg.apply(values, SourceOverride)
		logger.Info("override settings applied", zap.String("env", opts.OverrideEnv), zap.String("path", overridePath))
	} else if opts.Required && !cfg.SettingsLoaded {
		logger.Warn("no settings file loaded and override variable unset",
			zap.String("path", settingsPath), zap.String("env", opts.OverrideEnv))
	}

	if opts.Required {
		for _, key := range opts.RequiredKeys {
			if !cfg.Store.Has(key) {
				return nil, &ConfigurationError{Key: key}
			}
		}
	}

	if custom, ok := customSettings(cfg.Store, opts); ok {
		r := resolver.New(&trackingStore{cfg: cfg, source: SourceCustom}, opts.InstancePath, opts.Relative,
			resolver.WithFs(opts.Fs),
			resolver.WithRegistry(opts.Registry),
			resolver.WithLogger(logger),
		)
		if _, err := r.Resolve(custom); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", opts.CustomKey, err)
		}
	}

	logger.Info("configuration built", zap.Int("keys", cfg.Store.Len()), zap.Bool("settings_loaded", cfg.SettingsLoaded))
	return cfg, nil
}

func (c *Config) apply(values map[string]any, source Source) {
	c.Store.Update(values)
	for k := range values {
		c.Sources[k] = source
	}
}

// trackingStore lets the resolver write through Config so sources stay accurate.
type trackingStore struct {
	cfg    *Config
	source Source
}

func (t *trackingStore) Update(values map[string]any) {
	t.cfg.apply(values, t.source)
}

// loadOptional loads a settings file, reporting found=false when it does not
// exist. Parse failures are still errors.
func loadOptional(fsys afero.Fs, path string) (map[string]any, bool, error) {
	values, err := loader.LoadSettings(fsys, path)
	switch {
	case err == nil:
		return values, true, nil
	case errors.Is(err, loader.ErrNotFound):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// customSettings returns the custom settings value. The environment variable
// wins over the stored key; its value may be a file reference or inline YAML.
func customSettings(store *storage.Store, opts Options) (any, bool) {
	if raw := strings.TrimSpace(opts.Getenv(opts.CustomEnv)); raw != "" {
		return decodeCustomEnv(raw, opts.Registry), true
	}
	return store.Get(opts.CustomKey)
}

func decodeCustomEnv(raw string, registry *loader.Registry) any {
	if resolver.Classify(raw, registry).Kind == resolver.KindFileReference {
		return raw
	}
	var inline map[string]any
	if err := yaml.Unmarshal([]byte(raw), &inline); err == nil && inline != nil {
		return inline
	}
	return raw
}

func instanceFile(instancePath, name string) string {
	if filepath.IsAbs(name) || instancePath == "" {
		return name
	}
	return filepath.Join(instancePath, name)
}
