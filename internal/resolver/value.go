package resolver

import "github.com/eugenenazirov/container-scaffold/internal/loader"

// Kind tags a configuration value.
type Kind int

const (
	// KindScalar is ordinary data: numbers, booleans, lists, and strings that
	// do not name a supported file.
	KindScalar Kind = iota
	// KindMapping is a nested map[string]any.
	KindMapping
	// KindFileReference is a string naming a file with a supported extension.
	KindFileReference
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindFileReference:
		return "file-reference"
	default:
		return "scalar"
	}
}

// Reference is a string value that names another configuration file.
type Reference struct {
	Raw string
	Ext string
}

// Value is the classified form of a configuration value.
type Value struct {
	Kind    Kind
	Mapping map[string]any
	Ref     Reference
}

// Classify decides whether v is a mapping, a file reference, or plain data.
func Classify(v any, registry *loader.Registry) Value {
	switch typed := v.(type) {
	case map[string]any:
		return Value{Kind: KindMapping, Mapping: typed}
	case string:
		if ext := loader.Extension(typed); registry.Supports(ext) {
			return Value{Kind: KindFileReference, Ref: Reference{Raw: typed, Ext: ext}}
		}
	}
	return Value{Kind: KindScalar}
}
