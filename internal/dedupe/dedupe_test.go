package dedupe

import (
	"testing"
	"time"

	"github.com/dvloznov/finsight/internal/domain"
)

var dayD = time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

func tx(id string, origin domain.Origin, title string, amount float64, occurred time.Time) domain.Transaction {
	return domain.Transaction{
		ID:         id,
		Origin:     origin,
		Title:      title,
		Amount:     amount,
		Kind:       domain.KindExpense,
		Category:   "Other",
		OccurredAt: occurred,
	}
}

// A purchase typed in manually and scanned from its receipt later the same
// day must collapse into one transaction, keeping the first-seen record.
func TestDeduplicate_CrossSourcePair(t *testing.T) {
	input := []domain.Transaction{
		tx("m1", domain.OriginManual, "Coffee Shop", 180, dayD.Add(9*time.Hour)),
		tx("s1", domain.OriginScanned, "Coffee Shop", 180.00, dayD.Add(17*time.Hour)),
	}

	out := Deduplicate(input)
	if len(out) != 1 {
		t.Fatalf("got %d transactions, want 1", len(out))
	}
	if out[0].ID != "m1" {
		t.Errorf("kept %q, want the first-seen manual record", out[0].ID)
	}
}

func TestDeduplicate_SubstringTitleMatch(t *testing.T) {
	input := []domain.Transaction{
		tx("m1", domain.OriginManual, "Coffee Shop", 180, dayD),
		tx("s1", domain.OriginScanned, "Coffee Shop Camden Branch", 180, dayD),
	}

	if out := Deduplicate(input); len(out) != 1 {
		t.Fatalf("got %d transactions, want 1 (substring titles must match)", len(out))
	}
}

func TestDeduplicate_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.Transaction
		want int
	}{
		{
			name: "amounts inside tolerance",
			a:    tx("a", domain.OriginManual, "Lunch", 10.004, dayD),
			b:    tx("b", domain.OriginScanned, "Lunch", 9.996, dayD),
			want: 1,
		},
		{
			name: "amounts straddling a cent bucket",
			a:    tx("a", domain.OriginManual, "Lunch", 10.006, dayD),
			b:    tx("b", domain.OriginScanned, "Lunch", 9.998, dayD),
			want: 1,
		},
		{
			name: "amounts outside tolerance",
			a:    tx("a", domain.OriginManual, "Lunch", 10.00, dayD),
			b:    tx("b", domain.OriginScanned, "Lunch", 10.02, dayD),
			want: 2,
		},
		{
			name: "same amount on different days",
			a:    tx("a", domain.OriginManual, "Lunch", 10, dayD),
			b:    tx("b", domain.OriginScanned, "Lunch", 10, dayD.AddDate(0, 0, 1)),
			want: 2,
		},
		{
			name: "same day and amount, unrelated titles",
			a:    tx("a", domain.OriginManual, "Lunch", 10, dayD),
			b:    tx("b", domain.OriginScanned, "Bus fare", 10, dayD),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Deduplicate([]domain.Transaction{tt.a, tt.b})
			if len(out) != tt.want {
				t.Errorf("got %d transactions, want %d", len(out), tt.want)
			}
		})
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	input := []domain.Transaction{
		tx("m1", domain.OriginManual, "Coffee Shop", 180, dayD),
		tx("s1", domain.OriginScanned, "Receipt from Coffee Shop", 180.00, dayD),
		tx("i1", domain.OriginImported, "COFFEE SHOP", 180.004, dayD),
		tx("m2", domain.OriginManual, "Groceries", 54.30, dayD),
	}

	once := Deduplicate(input)
	twice := Deduplicate(once)

	if len(once) != len(twice) {
		t.Fatalf("second pass changed the set: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Errorf("record %d changed: %q -> %q", i, once[i].ID, twice[i].ID)
		}
	}
	if len(once) != 2 {
		t.Errorf("got %d transactions, want 2", len(once))
	}
}

func TestDeduplicate_DoesNotMutateInput(t *testing.T) {
	input := []domain.Transaction{
		tx("m1", domain.OriginManual, "Coffee Shop", 180, dayD),
		tx("s1", domain.OriginScanned, "Coffee Shop", 180, dayD),
	}

	_ = Deduplicate(input)
	if len(input) != 2 || input[1].ID != "s1" {
		t.Error("input slice was mutated")
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	if out := Deduplicate(nil); len(out) != 0 {
		t.Errorf("got %d transactions, want 0", len(out))
	}
}
