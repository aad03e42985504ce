package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/user/company-lookup/internal/entity"
	"github.com/user/company-lookup/pkg/utils"
)

// CompanyLookup defines the interface for running registry lookups.
type CompanyLookup interface {
	Lookup(ctx context.Context, query string) (*entity.LookupResult, error)
	Close() error
}

// SessionReleaser releases the browser session backing a lookup.
type SessionReleaser interface {
	Release() error
}

type lookupUseCase struct {
	// turn admits one lookup at a time: a browser session serves one
	// workflow at a time.
	turn      *semaphore.Weighted
	extractor *Extractor
	sessions  SessionReleaser
}

// NewCompanyLookup creates a CompanyLookup that shares one browser session
// between callers, one lookup at a time.
func NewCompanyLookup(extractor *Extractor, sessions SessionReleaser) CompanyLookup {
	return &lookupUseCase{
		turn:      semaphore.NewWeighted(1),
		extractor: extractor,
		sessions:  sessions,
	}
}

// Lookup runs the search for query. It returns ctx's error when ctx ends
// before the lookup gets its turn or while it runs, and a
// *browser.SessionSetupError when the browser session could not be set up.
func (uc *lookupUseCase) Lookup(ctx context.Context, query string) (*entity.LookupResult, error) {
	if err := uc.turn.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer uc.turn.Release(1)
	// Acquire may succeed on a context that ended while the slot was free.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	record, found, err := uc.extractor.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if !found && ctx.Err() != nil {
		// The caller gave up mid-lookup; the absence says nothing about the registry.
		return nil, ctx.Err()
	}

	return &entity.LookupResult{
		QueryID:    utils.HashQuery(query),
		Query:      query,
		Found:      found,
		Record:     record,
		FetchedAt:  start.UTC(),
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

// Close releases the browser session. It waits for an in-flight lookup.
func (uc *lookupUseCase) Close() error {
	if err := uc.turn.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer uc.turn.Release(1)
	return uc.sessions.Release()
}
