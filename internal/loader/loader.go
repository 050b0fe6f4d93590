package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Format names used in ParseError.
const (
	FormatYAML     = "yaml"
	FormatINI      = "ini"
	FormatSettings = "settings"
)

// Func loads a single file into a mapping.
type Func func(fsys afero.Fs, path string) (map[string]any, error)

// Registry maps file extensions (without the dot) to loaders.
type Registry struct {
	loaders map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Func)}
}

// DefaultRegistry knows "cfg" as INI and "yaml"/"yml" as YAML.
func DefaultRegistry() *Registry {
	return NewRegistry().
		Register(LoadINI, "cfg").
		Register(LoadYAML, "yaml", "yml")
}

// Register binds fn to each extension, replacing any previous binding.
func (r *Registry) Register(fn Func, extensions ...string) *Registry {
	for _, ext := range extensions {
		r.loaders[strings.TrimPrefix(ext, ".")] = fn
	}
	return r
}

// Lookup returns the loader bound to ext.
func (r *Registry) Lookup(ext string) (Func, bool) {
	fn, ok := r.loaders[ext]
	return fn, ok
}

// Supports reports whether ext has a loader.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.loaders[ext]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Load picks the loader from the extension of path and runs it.
func (r *Registry) Load(fsys afero.Fs, path string) (map[string]any, error) {
	ext := Extension(path)
	fn, ok := r.Lookup(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedType, ext, path)
	}
	return fn(fsys, path)
}

// Extension returns the text after the last "." in name, or "" when there is none.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

// readFile reads the whole file and closes it before returning.
func readFile(fsys afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
