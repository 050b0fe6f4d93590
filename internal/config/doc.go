// Package config builds the runtime configuration store from layered sources
// with precedence: explicit mapping < instance settings file < override file
// named by an environment variable. Custom settings found afterwards are
// expanded by the resolver package, pulling in every referenced file.
package config
