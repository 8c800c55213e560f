package api

import (
	"errors"
	"net/http"

	"github.com/profile-control/pcc/internal/manager"
	"github.com/profile-control/pcc/internal/store"
)

// MapError converts a domain error into an HTTP status, code, and
// message for the error envelope. The matcher's typed no-match results
// map to 404: an empty result is a valid answer, not a server fault.
func MapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, manager.ErrNoMatchingCapability):
		return http.StatusNotFound, "NO_MATCHING_CAPABILITY",
			"No profile satisfies the requested capabilities"
	case errors.Is(err, manager.ErrNoMatchingNetworkType):
		return http.StatusNotFound, "NO_MATCHING_NETWORK_TYPE",
			"No profile supports the requested network type"
	case errors.Is(err, manager.ErrNoMatchingSetID):
		return http.StatusNotFound, "NO_MATCHING_SET_ID",
			"No profile belongs to the active profile set group"
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, "UNAVAILABLE",
			"Profile store is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL",
			"Internal server error"
	}
}

// WriteDomainError maps err and writes the error envelope.
func WriteDomainError(w http.ResponseWriter, err error) {
	status, code, message := MapError(err)
	WriteAPIError(w, status, code, message)
}
