package pathing

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Service is C1: sanitize, resolve destination directory, generate
// duplicate-safe names. Grounded on the teacher's extension-switch idiom
// in pkg/helper/validation.go and the path joining in its local_storage.go.
type Service struct {
	MountPath      string
	SanitizeRegexp *regexp.Regexp
}

func New(mountPath string, sanitizePattern string) *Service {
	return &Service{
		MountPath:      mountPath,
		SanitizeRegexp: regexp.MustCompile(sanitizePattern),
	}
}

// Sanitize replaces every match of the configured pattern (by default,
// any character outside [A-Za-z0-9._-]) with '_'. Idempotent:
// sanitizing an already-sanitized name is a no-op.
func (s *Service) Sanitize(name string) string {
	return s.SanitizeRegexp.ReplaceAllString(name, "_")
}

// Normalize strips leading/trailing separators from destPath. Empty
// input yields empty output; non-empty output always ends with a
// separator.
func Normalize(destPath string) string {
	trimmed := strings.Trim(destPath, "/")
	if trimmed == "" {
		return ""
	}
	return trimmed + string(filepath.Separator)
}

// DestinationDir returns mountPath/normalize(destPath).
func (s *Service) DestinationDir(destPath string) string {
	return filepath.Join(s.MountPath, Normalize(destPath))
}

// FullPath returns destinationDir(destPath)/filename.
func (s *Service) FullPath(filename, destPath string) string {
	return filepath.Join(s.DestinationDir(destPath), filename)
}

// Exists reports whether filename already occupies destPath.
func (s *Service) Exists(filename, destPath string) bool {
	_, err := os.Stat(s.FullPath(filename, destPath))
	return err == nil
}

// UniqueName ensures dir exists, then probes base(1).ext, base(2).ext, …
// and returns the first candidate that does not collide on disk.
// Callers own the small TOCTOU window between this call and the actual
// move — acceptable for a single-writer server per SPEC_FULL.md §4.2.
func (s *Service) UniqueName(filename, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("ensure destination dir: %w", err)
	}

	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s(%d)%s", base, i, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate, nil
		}
	}
}
