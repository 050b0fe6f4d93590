// Package loader turns configuration files into nested key/value mappings.
// It understands YAML documents, INI files with mandatory section headers, and
// flat KEY = value settings files. All reads go through an afero.Fs so callers
// can swap the OS filesystem for an in-memory one.
package loader
