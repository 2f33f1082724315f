package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("file not found")
	ErrOwnerNotFound  = errors.New("owner not found")
	ErrContentMissing = errors.New("original content is missing")
	ErrUnsavedFile    = errors.New("file is not saved")
	ErrTooLarge       = errors.New("file is too large")
	ErrNoFile         = errors.New("no file uploaded")
	ErrForbiddenAlias = errors.New("alias is not allowed")
)

// FormatError is returned by the file manager when a derived path cannot be
// resolved and silent mode is off.
type FormatError struct {
	FileID int64
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %q of file %d: %v", e.Format, e.FileID, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
