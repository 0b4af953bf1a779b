package repository

import "errors"

var (
	// ErrDuplicatePhoto is returned when an insert loses to an existing row
	// with the same file_unique_id. The unique index is the authority, so a
	// concurrent double upload yields exactly one row and one of these.
	ErrDuplicatePhoto = errors.New("photo already stored")

	// ErrQuotaExceeded is returned when the commit-time recheck finds the
	// user already at their photo cap.
	ErrQuotaExceeded = errors.New("photo quota exceeded")
)
