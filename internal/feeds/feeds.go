// Package feeds provides read access to the three source record stores
// (manual entries, scanned receipts, imported history). A feed that cannot be
// reached contributes zero records; it never fails the whole snapshot.
package feeds

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/normalize"
)

// Feed is one origin's query-by-user read operation. The returned records are
// unordered raw documents; only the normalizer interprets their fields.
type Feed interface {
	Origin() domain.Origin
	Query(ctx context.Context, userID string) ([]normalize.RawRecord, error)
}

// Snapshot queries every feed once and concatenates the results in the order
// the feeds are given, which callers arrange as the ingestion order (manual,
// scanned, imported) so deduplication tie-breaks fall out naturally.
//
// complete is false when at least one feed errored; its records are simply
// missing from the snapshot, degrading completeness but not correctness.
func Snapshot(ctx context.Context, log zerolog.Logger, userID string, feedList []Feed) (records []normalize.RawRecord, complete bool) {
	complete = true
	for _, feed := range feedList {
		recs, err := feed.Query(ctx, userID)
		if err != nil {
			log.Warn().
				Err(err).
				Str("origin", string(feed.Origin())).
				Str("user_id", userID).
				Msg("Source feed unavailable, contributing zero records")
			complete = false
			continue
		}
		records = append(records, recs...)
	}
	return records, complete
}

// MemoryFeed is an in-memory Feed for tests and credential-less local runs.
// It is safe for concurrent use.
type MemoryFeed struct {
	mu      sync.RWMutex
	origin  domain.Origin
	records map[string][]normalize.RawRecord
	err     error
}

// NewMemoryFeed creates an empty MemoryFeed for the given origin.
func NewMemoryFeed(origin domain.Origin) *MemoryFeed {
	return &MemoryFeed{
		origin:  origin,
		records: make(map[string][]normalize.RawRecord),
	}
}

// Origin implements the Feed interface.
func (f *MemoryFeed) Origin() domain.Origin {
	return f.origin
}

// Query implements the Feed interface.
func (f *MemoryFeed) Query(ctx context.Context, userID string) ([]normalize.RawRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.err != nil {
		return nil, f.err
	}
	recs := f.records[userID]
	out := make([]normalize.RawRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// Add appends a record for the given user.
func (f *MemoryFeed) Add(userID string, rec normalize.RawRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.Origin = f.origin
	f.records[userID] = append(f.records[userID], rec)
}

// Fail makes every subsequent Query return err; nil restores normal
// operation. Used to simulate an unreachable store.
func (f *MemoryFeed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
