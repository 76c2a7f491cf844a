package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finsight/internal/domain"
)

// Date layouts accepted for occurred/created fields, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02-01-2006",
}

// DefaultCategory labels records whose source carried no usable category.
// Downstream categorization targets exactly this value.
const DefaultCategory = "Other"

// Boilerplate prefixes the OCR path injects into scanned titles.
var scannedTitlePrefixes = []string{
	"receipt from ",
	"scanned receipt: ",
	"receipt: ",
}

// Normalizer converts raw source records into canonical transactions,
// skipping malformed records without aborting the batch.
type Normalizer struct {
	log zerolog.Logger
}

// New creates a Normalizer.
func New(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Batch normalizes a slice of raw records. Records that fail normalization
// are logged and dropped; a corrupt record must never abort the aggregate.
// now is the ingestion moment used as the final date fallback.
func (n *Normalizer) Batch(raws []RawRecord, now time.Time) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(raws))
	for _, raw := range raws {
		tx, err := Record(raw, now)
		if err != nil {
			n.log.Warn().
				Err(err).
				Str("record_id", raw.ID).
				Str("origin", string(raw.Origin)).
				Msg("Skipping malformed record")
			continue
		}
		out = append(out, tx)
	}
	return out
}

// Record converts a single raw record into a canonical Transaction. It is a
// pure mapping function: same inputs, same output, no side effects.
//
// It rejects only records it cannot represent at all (unknown origin, no
// payload). Field-level corruption degrades to defaults instead: a bad amount
// becomes 0, a missing date becomes the ingestion moment, a missing category
// becomes "Other".
func Record(raw RawRecord, now time.Time) (domain.Transaction, error) {
	switch raw.Origin {
	case domain.OriginManual, domain.OriginScanned, domain.OriginImported:
	default:
		return domain.Transaction{}, fmt.Errorf("normalize.Record: unknown origin %q", raw.Origin)
	}
	if raw.Fields == nil {
		return domain.Transaction{}, fmt.Errorf("normalize.Record: record %q has no payload", raw.ID)
	}

	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}

	recordedAt, haveRecorded := coerceTime(raw.Fields["created_at"])
	if !haveRecorded {
		recordedAt = now
	}

	tx := domain.Transaction{
		ID:         id,
		Origin:     raw.Origin,
		Amount:     coerceAmount(fieldFor(raw, "amount", "total_amount")),
		Kind:       resolveKind(raw),
		Category:   resolveCategory(raw.Fields["category"]),
		OccurredAt: resolveOccurredAt(raw, recordedAt, now),
		Title:      resolveTitle(raw),
		RecordedAt: recordedAt,
	}
	return tx, nil
}

// coerceAmount extracts a non-negative amount from a loosely-typed value.
// Non-numeric and negative-after-parse inputs coerce to 0 rather than
// rejecting the record.
func coerceAmount(v interface{}) float64 {
	var amount float64
	switch val := v.(type) {
	case float64:
		amount = val
	case float32:
		amount = float64(val)
	case int:
		amount = float64(val)
	case int64:
		amount = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		amount = parsed
	default:
		return 0
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// resolveKind defaults to expense unless the source explicitly marks the
// entry as income. Scanned records are always expenses: a receipt cannot
// represent income.
func resolveKind(raw RawRecord) domain.Kind {
	if raw.Origin == domain.OriginScanned {
		return domain.KindExpense
	}
	if s, ok := raw.Fields["type"].(string); ok {
		if strings.EqualFold(strings.TrimSpace(s), string(domain.KindIncome)) {
			return domain.KindIncome
		}
	}
	return domain.KindExpense
}

func resolveCategory(v interface{}) string {
	if s, ok := v.(string); ok {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return trimmed
		}
	}
	return DefaultCategory
}

// resolveOccurredAt applies the date resolution order: an explicit occurred
// field, then the record creation time, then the ingestion moment. The result
// is never zero; date accuracy is traded for aggregate completeness.
func resolveOccurredAt(raw RawRecord, recordedAt, now time.Time) time.Time {
	for _, key := range []string{"date", "occurred_at", "timestamp"} {
		if t, ok := coerceTime(raw.Fields[key]); ok {
			return t
		}
	}
	if !recordedAt.Equal(now) {
		return recordedAt
	}
	return now
}

// coerceTime accepts the timestamp encodings seen across the source stores:
// native timestamps, recognized date strings, and unix epoch numbers
// (seconds, or milliseconds for values past the year 33658).
func coerceTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val, true
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case float64:
		return epochToTime(int64(val))
	case int64:
		return epochToTime(val)
	case int:
		return epochToTime(int64(val))
	default:
		return time.Time{}, false
	}
}

func epochToTime(epoch int64) (time.Time, bool) {
	if epoch <= 0 {
		return time.Time{}, false
	}
	if epoch > 1e12 { // milliseconds
		return time.UnixMilli(epoch).UTC(), true
	}
	return time.Unix(epoch, 0).UTC(), true
}

// resolveTitle picks and cleans the human-readable label. Scanned records
// fall back to the first non-empty line of the raw extracted text when no
// merchant name survived extraction.
func resolveTitle(raw RawRecord) string {
	if raw.Origin == domain.OriginScanned {
		if s, ok := raw.Fields["merchant_name"].(string); ok {
			if title := CleanTitle(s); title != "" {
				return title
			}
		}
		if s, ok := raw.Fields["raw_text"].(string); ok {
			if line := firstNonEmptyLine(s); line != "" {
				return CleanTitle(line)
			}
		}
		return "Scanned receipt"
	}

	for _, key := range []string{"title", "description"} {
		if s, ok := raw.Fields[key].(string); ok {
			if title := CleanTitle(s); title != "" {
				return title
			}
		}
	}
	return "Transaction"
}

// CleanTitle strips known OCR boilerplate prefixes and collapses embedded
// whitespace runs (raw-extraction text carries newlines and tab runs).
func CleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	lower := strings.ToLower(s)
	for _, prefix := range scannedTitlePrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	return s
}

// CanonicalTitle lower-cases, boilerplate-strips and whitespace-collapses a
// title for comparison. The deduplicator matches on this form.
func CanonicalTitle(s string) string {
	return strings.ToLower(CleanTitle(s))
}

func firstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func fieldFor(raw RawRecord, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := raw.Fields[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
