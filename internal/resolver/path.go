package resolver

import (
	"path/filepath"
	"strings"
)

const instanceSegment = "instance"

// ResolvePath turns a file reference into a path on disk.
//
// Absolute references are returned unchanged. Relative references are joined
// onto baseDir; when relative is set, a leading "instance" segment is dropped
// first because baseDir already is the instance folder.
func ResolvePath(ref, baseDir string, relative bool) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	if relative {
		ref = trimInstanceSegment(ref)
	}
	return filepath.Join(baseDir, ref)
}

func trimInstanceSegment(ref string) string {
	rest, ok := strings.CutPrefix(ref, instanceSegment)
	if !ok {
		return ref
	}
	if rest == "" || strings.HasPrefix(rest, "/") {
		return rest
	}
	return ref
}
