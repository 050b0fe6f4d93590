package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced configuration file does not exist.
	ErrNotFound = errors.New("config file not found")
	// ErrMalformed is matched by every parse failure, including missing INI section headers.
	ErrMalformed = errors.New("malformed config file")
	// ErrUnsupportedType is returned when no loader is registered for a file extension.
	ErrUnsupportedType = errors.New("unsupported config file type")
	// ErrDuplicateSection is wrapped by the ParseError for a repeated INI section header.
	ErrDuplicateSection = errors.New("duplicate section")
)

// ParseError reports a file that exists but whose content could not be decoded.
type ParseError struct {
	Path   string
	Format string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s file %s", e.Format, e.Path)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}

// MissingSectionHeaderError is returned when an INI file has key/value lines
// before its first [section] header, which is how flat settings files look.
type MissingSectionHeaderError struct {
	Path string
	Line int
	Text string
}

func (e *MissingSectionHeaderError) Error() string {
	return fmt.Sprintf("file contains no section headers: %s, line %d: %q", e.Path, e.Line, e.Text)
}

// Is reports MissingSectionHeaderError as a kind of ErrMalformed.
func (e *MissingSectionHeaderError) Is(target error) bool {
	return target == ErrMalformed
}
