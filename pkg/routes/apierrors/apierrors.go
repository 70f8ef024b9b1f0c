// Package apierrors maps domain errors onto HTTP status codes.
package apierrors

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/laurel/pkg/models"
)

// Translate converts a domain error into an httperror. Errors with no
// mapping pass through and surface as 500s.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUnknownEntity):
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrAliasBoundElsewhere):
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrAlreadyMerged):
		return httperror.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
