// Package resolver expands custom settings whose values point at further
// configuration files. Every string leaf with a known extension is treated as
// a file reference: the file is loaded, its own references are expanded, and
// its top-level keys are merged into the configuration store.
package resolver
