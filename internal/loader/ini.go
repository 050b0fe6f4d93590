package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

var iniOptions = ini.LoadOptions{
	IgnoreInlineComment:        true,
	AllowPythonMultilineValues: true,
	PreserveSurroundedQuote:    true,
}

// LoadINI parses an INI file into section -> key -> value. Values are always
// strings and key case is preserved. Keys in an explicit [DEFAULT] section are
// inherited by every other section. A repeated section header is an error.
//
// Values wrapped in triple double quotes or backticks are unwrapped by the
// parser, so `q = """abc"""` loads as "abc". Single and double quotes are kept.
func LoadINI(fsys afero.Fs, path string) (map[string]any, error) {
	data, err := readFile(fsys, path)
	if err != nil {
		return nil, err
	}

	if err := prescan(path, data); err != nil {
		return nil, err
	}

	file, err := ini.LoadSources(iniOptions, data)
	if err != nil {
		return nil, &ParseError{Path: path, Format: FormatINI, Err: err}
	}

	defaults := make(map[string]string)
	if section, err := file.GetSection(ini.DefaultSection); err == nil {
		for _, key := range section.Keys() {
			defaults[key.Name()] = key.Value()
		}
	}

	out := make(map[string]any)
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		values := make(map[string]any, len(defaults)+len(section.Keys()))
		for k, v := range defaults {
			values[k] = v
		}
		for _, key := range section.Keys() {
			values[key.Name()] = key.Value()
		}
		out[section.Name()] = values
	}
	return out, nil
}

// prescan fails when the first meaningful line is not a [section] or when a
// section header repeats. ini.v1 accepts both and would silently merge.
func prescan(path string, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	headerSeen := false
	sections := make(map[string]int)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Text()
		text := strings.TrimSpace(raw)
		if isBlankOrComment(text) {
			continue
		}
		if !headerSeen {
			if !strings.HasPrefix(text, "[") {
				return &MissingSectionHeaderError{Path: path, Line: line, Text: raw}
			}
			headerSeen = true
		}
		// Indented lines continue the previous value.
		if raw[0] == ' ' || raw[0] == '\t' {
			continue
		}
		name, ok := sectionName(text)
		if !ok || name == ini.DefaultSection {
			continue
		}
		if first, dup := sections[name]; dup {
			return &ParseError{Path: path, Format: FormatINI, Line: line,
				Err: fmt.Errorf("%w: %q already defined on line %d", ErrDuplicateSection, name, first)}
		}
		sections[name] = line
	}
	if err := scanner.Err(); err != nil {
		return &ParseError{Path: path, Format: FormatINI, Line: line, Err: err}
	}
	return nil
}

func sectionName(text string) (string, bool) {
	if !strings.HasPrefix(text, "[") {
		return "", false
	}
	end := strings.LastIndexByte(text, ']')
	if end < 1 {
		return "", false
	}
	return strings.TrimSpace(text[1:end]), true
}

func isBlankOrComment(line string) bool {
	return line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";")
}
