package request

import (
	"errors"
	"net/http"
	"strings"
)

// ErrMissingQuery is returned when the q parameter is absent or blank.
var ErrMissingQuery = errors.New("q query parameter is required")

// LookupRequest is a company search submitted through GET /api/company.
type LookupRequest struct {
	Query string // company name or CIN, passed through unvalidated
}

// ParseLookup reads the lookup query from r. Surrounding whitespace is
// trimmed; the rest is forwarded verbatim.
func ParseLookup(r *http.Request) (LookupRequest, error) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return LookupRequest{}, ErrMissingQuery
	}
	return LookupRequest{Query: q}, nil
}
