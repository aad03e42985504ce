package entity

import "time"

// CompanyRecord maps each result-row label to its value, e.g. "CIN" to
// "L22210MH1995PLC084781". A record is built fresh for every lookup.
type CompanyRecord map[string]string

// LookupResult is the outcome of one registry lookup.
//
// Found is false when the lookup yielded nothing usable. That covers both a
// query with no matches and a page that failed to render or changed shape;
// the two cannot be told apart.
type LookupResult struct {
	QueryID    string
	Query      string
	Found      bool
	Record     CompanyRecord
	FetchedAt  time.Time
	DurationMS int64
}
