package micropub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind names the categories of error a micropub request can fail with,
// matching the error codes the protocol sends over the wire.
type ErrorKind string

const (
	ErrUnauthorized      ErrorKind = "unauthorized"
	ErrForbidden         ErrorKind = "forbidden"
	ErrInvalidRequest    ErrorKind = "invalid_request"
	ErrInsufficientScope ErrorKind = "insufficient_scope"
	ErrInternal          ErrorKind = "internal_error"
)

// Error describes why a request could not be processed. Property names the
// offending field or token, when there is one.
type Error struct {
	Kind        ErrorKind
	Property    string
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

// Status returns the HTTP status code for the error's kind. Unknown kinds
// map to 500.
func (e *Error) Status() int {
	switch e.Kind {
	case ErrUnauthorized, ErrInsufficientScope:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteResponse writes the error to w, as JSON if the request asked for it
// and plain text otherwise.
func (e *Error) WriteResponse(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(e.Status())
		json.NewEncoder(w).Encode(struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}{
			Error:       string(e.Kind),
			Description: e.Description,
		})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(e.Status())
	fmt.Fprintf(w, "Error '%s': %s", e.Kind, e.Description)
}
