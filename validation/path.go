package validation

import (
	"path/filepath"
	"regexp"
	"strings"
)

// maxFilenameLength bounds sanitized names.
const maxFilenameLength = 200

// fallbackFilename is substituted when sanitization leaves nothing usable.
const fallbackFilename = "unnamed"

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename derives a filesystem-safe name from an untrusted one.
// Path separators and control characters become underscores, ".." sequences
// are collapsed, and leading/trailing dots and spaces are trimmed.
func SanitizeFilename(name string) string {
	if name == "" {
		return fallbackFilename
	}

	sanitized := unsafeFilenameChars.ReplaceAllString(name, "_")
	for strings.Contains(sanitized, "..") {
		sanitized = strings.ReplaceAll(sanitized, "..", "_")
	}
	sanitized = strings.Trim(sanitized, ". ")

	if sanitized == "" {
		return fallbackFilename
	}

	runes := []rune(sanitized)
	if len(runes) > maxFilenameLength {
		sanitized = string(runes[:maxFilenameLength])
	}
	return sanitized
}

// IsContained reports whether path resolves to a location inside root.
// Symlinks are resolved when the target exists; paths that have not been
// created yet are checked lexically against the resolved root. This is the
// last line of defense before any read, write, or delete.
func IsContained(path, root string) bool {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(absPath)); err == nil {
		// The file may not exist yet; resolve its parent instead.
		absPath = filepath.Join(parent, filepath.Base(absPath))
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
