package resolver

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/eugenenazirov/container-scaffold/internal/loader"
)

// ErrReferenceCycle is returned when a file references itself, directly or
// through other files.
var ErrReferenceCycle = errors.New("config file reference cycle")

// Store receives the contents of every referenced file.
type Store interface {
	Update(values map[string]any)
}

// Resolver walks custom settings and merges referenced files into a Store.
type Resolver struct {
	store    Store
	baseDir  string
	relative bool
	fs       afero.Fs
	registry *loader.Registry
	logger   *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFs overrides the filesystem used to read referenced files.
func WithFs(fsys afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fsys
	}
}

// WithRegistry overrides which extensions count as file references.
func WithRegistry(registry *loader.Registry) Option {
	return func(r *Resolver) {
		r.registry = registry
	}
}

// WithLogger sets the logger used for load tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver that resolves relative references against baseDir.
func New(store Store, baseDir string, relative bool, opts ...Option) *Resolver {
	r := &Resolver{
		store:    store,
		baseDir:  baseDir,
		relative: relative,
		fs:       afero.NewOsFs(),
		registry: loader.DefaultRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve expands every file reference reachable from value and returns value
// unchanged. Reference strings are left in place; the loaded contents land in
// the store under their own top-level keys.
func (r *Resolver) Resolve(value any) (any, error) {
	if err := r.walk(value, nil); err != nil {
		return nil, err
	}
	return value, nil
}

// walk visits value. chain holds the files currently being expanded.
func (r *Resolver) walk(value any, chain []string) error {
	v := Classify(value, r.registry)
	switch v.Kind {
	case KindMapping:
		keys := make([]string, 0, len(v.Mapping))
		for k := range v.Mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := r.walk(v.Mapping[k], chain); err != nil {
				return err
			}
		}
	case KindFileReference:
		return r.include(v.Ref, chain)
	}
	return nil
}

func (r *Resolver) include(ref Reference, chain []string) error {
	path := ResolvePath(ref.Raw, r.baseDir, r.relative)
	if slices.Contains(chain, path) {
		return fmt.Errorf("%w: %s", ErrReferenceCycle, strings.Join(append(slices.Clone(chain), path), " -> "))
	}

	load, ok := r.registry.Lookup(ref.Ext)
	if !ok {
		return fmt.Errorf("%w: %q", loader.ErrUnsupportedType, ref.Ext)
	}

	r.logger.Debug("loading referenced config file",
		zap.String("reference", ref.Raw),
		zap.String("path", path),
		zap.String("type", ref.Ext),
	)
	contents, err := load(r.fs, path)
	if err != nil {
		return fmt.Errorf("load %q: %w", ref.Raw, err)
	}

	if err := r.walk(contents, append(slices.Clone(chain), path)); err != nil {
		return err
	}
	r.store.Update(contents)
	return nil
}
