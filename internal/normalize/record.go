package normalize

import (
	"github.com/dvloznov/finsight/internal/domain"
)

// RawRecord is one loosely-structured source record plus its provenance tag.
// Fields carries the decoded source document as-is; only this package knows
// how to read it. Everything downstream operates on domain.Transaction.
type RawRecord struct {
	// ID is the source document identifier.
	ID string

	// Origin is the capture path that produced the record.
	Origin domain.Origin

	// Fields is the raw decoded document. Any field may be absent, null or
	// carry an unexpected type.
	Fields map[string]interface{}
}
