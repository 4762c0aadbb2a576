package validation

import "errors"

var (
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file size exceeds the configured limit")
	ErrTooManyFiles    = errors.New("too many files requested")
	ErrPathEscape      = errors.New("path escapes its configured root")
)
