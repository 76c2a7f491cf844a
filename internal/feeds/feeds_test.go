package feeds

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/normalize"
)

func rec(id string) normalize.RawRecord {
	return normalize.RawRecord{ID: id, Fields: map[string]interface{}{"amount": 1.0}}
}

func TestSnapshot_PreservesFeedOrder(t *testing.T) {
	manual := NewMemoryFeed(domain.OriginManual)
	manual.Add("u1", rec("m1"))
	scanned := NewMemoryFeed(domain.OriginScanned)
	scanned.Add("u1", rec("s1"))
	imported := NewMemoryFeed(domain.OriginImported)
	imported.Add("u1", rec("i1"))

	records, complete := Snapshot(context.Background(), zerolog.Nop(), "u1",
		[]Feed{manual, scanned, imported})

	if !complete {
		t.Error("snapshot should be complete")
	}
	want := []string{"m1", "s1", "i1"}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, id)
		}
	}
}

func TestSnapshot_FailedFeedDegrades(t *testing.T) {
	manual := NewMemoryFeed(domain.OriginManual)
	manual.Add("u1", rec("m1"))
	imported := NewMemoryFeed(domain.OriginImported)
	imported.Add("u1", rec("i1"))
	imported.Fail(errors.New("store unreachable"))

	records, complete := Snapshot(context.Background(), zerolog.Nop(), "u1",
		[]Feed{manual, imported})

	if complete {
		t.Error("snapshot must report incomplete after a feed failure")
	}
	if len(records) != 1 || records[0].ID != "m1" {
		t.Errorf("got %+v, want only the healthy feed's record", records)
	}
}

func TestSnapshot_RecoveredFeed(t *testing.T) {
	feed := NewMemoryFeed(domain.OriginManual)
	feed.Add("u1", rec("m1"))
	feed.Fail(errors.New("down"))

	if _, complete := Snapshot(context.Background(), zerolog.Nop(), "u1", []Feed{feed}); complete {
		t.Error("snapshot should be incomplete while the feed is down")
	}

	feed.Fail(nil)
	records, complete := Snapshot(context.Background(), zerolog.Nop(), "u1", []Feed{feed})
	if !complete || len(records) != 1 {
		t.Errorf("recovered feed: complete=%v records=%d, want true and 1", complete, len(records))
	}
}

func TestMemoryFeed_ScopedByUser(t *testing.T) {
	feed := NewMemoryFeed(domain.OriginManual)
	feed.Add("u1", rec("m1"))
	feed.Add("u2", rec("m2"))

	records, err := feed.Query(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(records) != 1 || records[0].ID != "m1" {
		t.Errorf("got %+v, want only u1's record", records)
	}
}

func TestMemoryFeed_StampsOrigin(t *testing.T) {
	feed := NewMemoryFeed(domain.OriginScanned)
	feed.Add("u1", rec("s1"))

	records, err := feed.Query(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if records[0].Origin != domain.OriginScanned {
		t.Errorf("Origin = %q, want scanned", records[0].Origin)
	}
}
