package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// magicBytes maps input extensions to their content signatures. Extensions
// without an entry are text formats and are checked for plausible text
// encoding instead.
var magicBytes = map[string][][]byte{
	".pdf": {{0x25, 0x50, 0x44, 0x46}}, // %PDF
	".png": {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	".jpg": {{0xFF, 0xD8, 0xFF}},
	".gif": {{0x47, 0x49, 0x46, 0x38}},
}

// textExtensions are validated by encoding rather than signature.
var textExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".html": true,
}

const textSampleSize = 8192

// CheckFileSignature verifies the file's magic bytes against the
// signatures registered for the expected extension.
func CheckFileSignature(path, expectedExt string) error {
	signatures, ok := magicBytes[strings.ToLower(expectedExt)]
	if !ok {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file for signature check: %w", err)
	}
	defer f.Close()

	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return fmt.Errorf("%w: file is empty or unreadable", ErrInvalidFileType)
	}

	for _, sig := range signatures {
		if bytes.HasPrefix(header[:n], sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: content does not match %s signature", ErrInvalidFileType, expectedExt)
}

// IsTextFile samples the file and reports whether it looks like text:
// no NUL bytes and valid UTF-8 (trailing partial runes at the sample
// boundary are tolerated).
func IsTextFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	chunk := make([]byte, textSampleSize)
	n, err := f.Read(chunk)
	if err != nil && n == 0 {
		// An empty file is trivially valid text.
		return errors.Is(err, io.EOF)
	}
	chunk = chunk[:n]

	if bytes.IndexByte(chunk, 0x00) >= 0 {
		return false
	}

	// Drop up to 3 trailing bytes that may be a rune cut by the sample window.
	for i := 0; i < 4 && len(chunk) > 0; i++ {
		if utf8.Valid(chunk) {
			return true
		}
		chunk = chunk[:len(chunk)-1]
	}
	return utf8.Valid(chunk)
}

// ValidateForConversion runs the full input-file gauntlet: existence,
// regular-file check, extension match, and signature or text-encoding
// verification depending on the format.
func ValidateForConversion(path, expectedExt string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("input file does not exist: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("input path is not a regular file: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != strings.ToLower(expectedExt) {
		return fmt.Errorf("%w: expected a %s file, got %q", ErrInvalidFileType, expectedExt, ext)
	}

	if textExtensions[ext] {
		if !IsTextFile(path) {
			return fmt.Errorf("%w: file is not valid text", ErrInvalidFileType)
		}
		return nil
	}

	return CheckFileSignature(path, expectedExt)
}
