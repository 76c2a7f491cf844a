package domain

import (
	"time"
)

// Origin identifies the capture path a transaction record came from.
// It is used for deduplication tie-breaks and display badges only,
// never for financial calculation.
type Origin string

const (
	// OriginManual marks records the user typed in directly.
	OriginManual Origin = "manual"
	// OriginScanned marks records extracted from receipt images.
	OriginScanned Origin = "scanned"
	// OriginImported marks records imported from transaction history.
	OriginImported Origin = "imported"
)

// Kind separates expenses from income. Amounts are always non-negative
// magnitudes; the sign of a transaction is carried here.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Transaction is the canonical post-normalization record. Every component
// downstream of the normalizer operates on this type only; source schema
// variance never leaks past the normalization boundary.
type Transaction struct {
	// ID is an opaque unique identifier, stable for the lifetime of the
	// underlying source record.
	ID string `json:"id"`

	// Amount is the non-negative monetary magnitude.
	Amount float64 `json:"amount"`

	// Kind is expense or income.
	Kind Kind `json:"kind"`

	// Category is a free-text label, never empty after normalization.
	Category string `json:"category"`

	// OccurredAt is the resolved point in time of the transaction. It is
	// never zero: when the source supplies no usable date it falls back to
	// the ingestion moment.
	OccurredAt time.Time `json:"occurred_at"`

	// Title is the human-readable label, cleaned of source-specific
	// boilerplate (e.g. the "Receipt from" prefix injected by the OCR path).
	Title string `json:"title"`

	// Origin is the capture path this record came from.
	Origin Origin `json:"origin"`

	// RecordedAt is the creation timestamp of the underlying source record,
	// used for ordering when OccurredAt is ambiguous.
	RecordedAt time.Time `json:"recorded_at"`
}
