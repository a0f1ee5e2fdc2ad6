package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/pkg/problemdetails"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeProblem writes an RFC 7807 Problem Details response
func writeProblem(w http.ResponseWriter, problem *problemdetails.ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	json.NewEncoder(w).Encode(problem)
}

// problemFor maps a service error onto its problem document.
func problemFor(err error) *problemdetails.ProblemDetail {
	switch {
	case errors.Is(err, domain.ErrMissingField):
		return problemdetails.New(http.StatusBadRequest, problemdetails.TypeMissingField, "Missing Field", err.Error())
	case errors.Is(err, domain.ErrInvalidURL):
		return problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidURL, "Invalid URL", err.Error())
	case errors.Is(err, domain.ErrInvalidCode):
		return problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidCode, "Invalid Shortcode", err.Error())
	case errors.Is(err, domain.ErrInvalidExpiry):
		return problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidExpiry, "Invalid Expiry", err.Error())
	case errors.Is(err, domain.ErrCodeConflict):
		return problemdetails.New(http.StatusConflict, problemdetails.TypeConflict, "Shortcode Taken", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return problemdetails.New(http.StatusNotFound, problemdetails.TypeNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrExpired):
		return problemdetails.New(http.StatusGone, problemdetails.TypeExpired, "Expired", err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		return problemdetails.New(http.StatusServiceUnavailable, problemdetails.TypeStorageUnavailable,
			"Service Unavailable", "storage backend is unavailable")
	default:
		return problemdetails.New(http.StatusInternalServerError, problemdetails.TypeInternalError,
			"Internal Server Error", "Internal server error")
	}
}
