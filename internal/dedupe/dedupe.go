// Package dedupe removes semantically identical transactions that were
// captured through more than one path, e.g. a purchase typed in manually and
// later confirmed by scanning its receipt.
package dedupe

import (
	"math"
	"strings"

	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/normalize"
)

// AmountTolerance is the currency-precision tolerance under which two
// amounts are considered equal.
const AmountTolerance = 0.01

// Deduplicate returns the input with cross-source duplicates removed. Two
// transactions are duplicates when their amounts differ by less than
// AmountTolerance, they occurred on the same calendar day, and their
// canonical titles are equal or one contains the other.
//
// The first-seen record in encounter order wins; callers pass transactions in
// ingestion order (manual, then scanned, then imported) so the tie-break
// matches provenance preference. The input is not mutated.
//
// Candidate pairs are prefiltered by a (rounded-cents, calendar-day) bucket
// map, keeping the practical cost near-linear for the typical few-hundred
// record set. The substring rule can over-merge distinct same-day, same-amount
// purchases at one merchant; that is an accepted false-merge risk.
func Deduplicate(txs []domain.Transaction) []domain.Transaction {
	kept := make([]domain.Transaction, 0, len(txs))
	buckets := make(map[bucketKey][]int) // bucket -> indexes into kept

	for _, tx := range txs {
		key := keyFor(tx)
		if matchesBucket(kept, buckets, key, tx) {
			continue
		}
		kept = append(kept, tx)
		buckets[key] = append(buckets[key], len(kept)-1)
	}
	return kept
}

type bucketKey struct {
	cents int64
	day   string
}

func keyFor(tx domain.Transaction) bucketKey {
	return bucketKey{
		cents: int64(math.Round(tx.Amount * 100)),
		day:   tx.OccurredAt.Format("2006-01-02"),
	}
}

// matchesBucket checks the candidate's own bucket and the two neighboring
// cent buckets; amounts within tolerance can round to adjacent cents.
func matchesBucket(kept []domain.Transaction, buckets map[bucketKey][]int, key bucketKey, tx domain.Transaction) bool {
	for _, cents := range []int64{key.cents - 1, key.cents, key.cents + 1} {
		for _, idx := range buckets[bucketKey{cents: cents, day: key.day}] {
			if isDuplicate(kept[idx], tx) {
				return true
			}
		}
	}
	return false
}

func isDuplicate(a, b domain.Transaction) bool {
	if math.Abs(a.Amount-b.Amount) >= AmountTolerance {
		return false
	}
	ay, am, ad := a.OccurredAt.Date()
	by, bm, bd := b.OccurredAt.Date()
	if ay != by || am != bm || ad != bd {
		return false
	}
	return titlesMatch(a.Title, b.Title)
}

func titlesMatch(a, b string) bool {
	ca := normalize.CanonicalTitle(a)
	cb := normalize.CanonicalTitle(b)
	if ca == "" || cb == "" {
		return ca == cb
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}
