// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by the domain layers.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates a malformed request payload.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidFilter indicates a filter value that cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrStoreUnavailable indicates the data store could not be reached or a
	// query failed. Requests fail as a whole; partial dashboards are never
	// returned.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// RespondError maps domain errors to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidFilter):
		Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "the inventory store could not be queried, retry shortly")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
