package loader

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadYAML parses a YAML document whose top level is a mapping.
// An empty document yields an empty mapping.
func LoadYAML(fsys afero.Fs, path string) (map[string]any, error) {
	data, err := readFile(fsys, path)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Format: FormatYAML, Err: err}
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	return normalizeMap(doc), nil
}

// normalizeMap rewrites maps with non-string keys (e.g. `1: one`) so that
// every nested mapping is a map[string]any.
func normalizeMap(in map[string]any) map[string]any {
	for k, v := range in {
		in[k] = normalizeValue(v)
	}
	return in
}

func normalizeValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return normalizeMap(typed)
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		for i, item := range typed {
			typed[i] = normalizeValue(item)
		}
		return typed
	default:
		return v
	}
}
