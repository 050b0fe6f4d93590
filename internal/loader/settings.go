package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadSettings reads a flat settings file made of `KEY = value` lines.
// Only upper-case keys are kept. A value that is one quoted string has its
// backslash escapes decoded. Other values are decoded as YAML flow scalars, so
// numbers, True/False, [lists] and {maps} all work; None is nil.
// Paths ending in .yaml or .yml are handed to LoadYAML instead.
func LoadSettings(fsys afero.Fs, path string) (map[string]any, error) {
	switch Extension(path) {
	case "yaml", "yml":
		return LoadYAML(fsys, path)
	}

	data, err := readFile(fsys, path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if isBlankOrComment(text) {
			continue
		}

		name, raw, ok := strings.Cut(text, "=")
		if !ok {
			return nil, &ParseError{Path: path, Format: FormatSettings, Line: line,
				Err: fmt.Errorf("expected KEY = value, got %q", text)}
		}
		name = strings.TrimSpace(name)
		if !isIdentifier(name) {
			return nil, &ParseError{Path: path, Format: FormatSettings, Line: line,
				Err: fmt.Errorf("invalid setting name %q", name)}
		}
		if !isUpper(name) {
			continue
		}

		value, err := decodeSettingValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ParseError{Path: path, Format: FormatSettings, Line: line, Err: err}
		}
		out[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Format: FormatSettings, Line: line, Err: err}
	}
	return out, nil
}

func decodeSettingValue(raw string) (any, error) {
	switch raw {
	case "":
		return nil, errors.New("missing value")
	case "None":
		return nil, nil
	}
	if text, ok := unquoteString(raw); ok {
		return text, nil
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("decode value %q: %w", raw, err)
	}
	return normalizeValue(value), nil
}

// stringEscapes are the backslash escapes a quoted settings string understands.
// Any other backslash is kept as written, so 'C:\path' and 'C:\\path' agree.
var stringEscapes = map[byte]byte{
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
}

// unquoteString decodes raw when it is exactly one quoted string literal.
func unquoteString(raw string) (string, bool) {
	if len(raw) < 2 {
		return "", false
	}
	quote := raw[0]
	if (quote != '\'' && quote != '"') || raw[len(raw)-1] != quote {
		return "", false
	}

	inner := raw[1 : len(raw)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == quote:
			return "", false
		case c == '\\' && i+1 < len(inner):
			i++
			if decoded, ok := stringEscapes[inner[i]]; ok {
				b.WriteByte(decoded)
			} else {
				b.WriteByte('\\')
				b.WriteByte(inner[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), true
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', unicode.IsLetter(r):
		case unicode.IsDigit(r) && i > 0:
		default:
			return false
		}
	}
	return true
}

// isUpper mirrors str.isupper: at least one cased letter and no lower-case ones.
func isUpper(name string) bool {
	cased := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
