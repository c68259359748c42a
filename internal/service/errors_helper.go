package service

import (
	"database/sql"
	"errors"

	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
)

// asAppError keeps typed errors and wraps everything else as internal.
func asAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}

// notFoundAs maps sql.ErrNoRows to an invalid reference with message.
func notFoundAs(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidReference, message)
	}
	return err
}
