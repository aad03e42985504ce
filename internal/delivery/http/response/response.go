package response

import "time"

// LookupResponse is the DTO returned by GET /api/company, mirroring
// entity.LookupResult.
type LookupResponse struct {
	QueryID    string            `json:"query_id"`
	Query      string            `json:"query"`
	Found      bool              `json:"found"`
	Details    map[string]string `json:"details,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
	DurationMS int64             `json:"duration_ms"`
}

// ErrorResponse carries a client-facing error message.
type ErrorResponse struct {
	Error   string `json:"error"`
	QueryID string `json:"query_id,omitempty"`
}
