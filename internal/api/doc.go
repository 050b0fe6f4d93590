// Package api holds HTTP helpers for applications built on the scaffold:
// request input parsing with validation, and a small read-only router that
// exposes the resolved configuration.
package api
