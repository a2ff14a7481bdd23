package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrMediaNotFound     = errors.New("media not found")
	ErrCaptionNotFound   = errors.New("caption request not found")
	ErrProfileNotFound   = errors.New("caption profile not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrJobMismatch       = errors.New("Job ID does not match the submitted transcode job.")
	ErrUnauthenticated   = errors.New("authentication required")
)

// DuplicateContentError is returned when an assembled upload matches an existing record.
type DuplicateContentError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("This file already exists (Media ID: %s). Upload cancelled.", e.ExistingID)
}

// permanentError marks a pipeline failure that retrying cannot fix. Job handlers translate it
// into a non-retryable job failure.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	var p *permanentError
	if errors.As(err, &p) {
		return err
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
