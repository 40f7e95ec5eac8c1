package normalization

import (
	"errors"
	"reflect"
	"testing"

	"github.com/guregu/null/v6"
)

func fv(f float64) null.Float {
	return null.FloatFrom(f)
}

func TestNormalize_AliasEquivalence(t *testing.T) {
	// Header casing and aliasing must not change the result:
	// {Revenue, Year} and {sales, year} describe the same record.
	a := Normalize([]RawRow{{"Revenue": 100.0, "Year": 2020}})
	b := Normalize([]RawRow{{"sales": 100.0, "year": 2020}})

	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected 1 record each, got %d and %d", len(a), len(b))
	}
	if a[0] != b[0] {
		t.Errorf("alias forms diverged: %+v vs %+v", a[0], b[0])
	}
	if a[0].Year != 2020 || a[0].Revenue != fv(100) {
		t.Errorf("unexpected record: %+v", a[0])
	}
}

func TestNormalize_WhitespaceInsensitiveHeaders(t *testing.T) {
	got := Normalize([]RawRow{{
		" Year ":             2021,
		"Shares Outstanding": 5.0,
		"Operating Income":   30.0,
		"net income":         20.0,
	}})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.Year != 2021 || r.SharesOutstanding != fv(5) || r.OperatingIncome != fv(30) || r.NetIncome != fv(20) {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestNormalize_SnakeCaseAliases(t *testing.T) {
	got := Normalize([]RawRow{{
		"year":               2021,
		"operating_income":   30.0,
		"net_income":         20.0,
		"shares_outstanding": 5.0,
	}})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.OperatingIncome != fv(30) || r.NetIncome != fv(20) || r.SharesOutstanding != fv(5) {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestNormalize_SortsByYear(t *testing.T) {
	got := Normalize([]RawRow{
		{"year": 2023, "revenue": 3.0},
		{"year": 2021, "revenue": 1.0},
		{"year": 2022, "revenue": 2.0},
	})

	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, wantYear := range []int{2021, 2022, 2023} {
		if got[i].Year != wantYear {
			t.Errorf("position %d: expected year %d, got %d", i, wantYear, got[i].Year)
		}
	}
}

func TestNormalize_DropsRowsWithoutUsableYear(t *testing.T) {
	// Subtotal/footnote rows have no year, or a non-numeric one; they are
	// dropped silently regardless of other fields.
	got := Normalize([]RawRow{
		{"revenue": 100.0},                        // no year key
		{"year": "Total", "revenue": 500.0},       // non-numeric year
		{"year": "", "revenue": 200.0},            // empty year
		{"year": nil, "revenue": 300.0},           // nil year
		{"year": "NaN", "revenue": 400.0},         // ParseFloat accepts NaN, we must not
		{"year": "+Inf", "revenue": 400.0},        // same for infinities
		{"year": 2020, "revenue": 100.0},          // survives
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 surviving record, got %d", len(got))
	}
	if got[0].Year != 2020 {
		t.Errorf("expected year 2020, got %d", got[0].Year)
	}
}

func TestNormalize_UnparseableFieldsBecomeNull(t *testing.T) {
	got := Normalize([]RawRow{{
		"year":      2020,
		"revenue":   "n/a",
		"netincome": "",
	}})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.Revenue.Valid {
		t.Errorf("expected null revenue, got %v", r.Revenue)
	}
	if r.NetIncome.Valid {
		t.Errorf("expected null net income, got %v", r.NetIncome)
	}
	if r.SharesOutstanding.Valid {
		t.Errorf("expected null shares (key absent), got %v", r.SharesOutstanding)
	}
}

func TestNormalize_SharesZeroIsKeptAsZero(t *testing.T) {
	// An explicit 0 share count is preserved as a value here; suppressing
	// the per-share computation is the metrics engine's job.
	got := Normalize([]RawRow{{"year": 2020, "sharesoutstanding": 0.0}})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].SharesOutstanding != fv(0) {
		t.Errorf("expected shares 0, got %v", got[0].SharesOutstanding)
	}
}

func TestNormalize_NumericStringsCoerce(t *testing.T) {
	got := Normalize([]RawRow{{"year": "2020", "revenue": " 123.5 "}})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Year != 2020 || got[0].Revenue != fv(123.5) {
		t.Errorf("unexpected record: %+v", got[0])
	}
}

func TestNormalize_FractionalYearTruncates(t *testing.T) {
	got := Normalize([]RawRow{{"year": 2020.9}})

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].Year != 2020 {
		t.Errorf("expected truncated year 2020, got %d", got[0].Year)
	}
}

func TestNormalize_DuplicateYearsPassThrough(t *testing.T) {
	// Year uniqueness is not enforced; duplicates keep source order.
	got := Normalize([]RawRow{
		{"year": 2020, "revenue": 1.0},
		{"year": 2020, "revenue": 2.0},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Revenue != fv(1) || got[1].Revenue != fv(2) {
		t.Errorf("duplicate years reordered: %+v", got)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	// Identical input must produce identical output on every call,
	// including rows whose headers collide after canonicalization.
	rows := []RawRow{
		{"Year": 2021, "Revenue": 10.0, "REVENUE ": 99.0},
		{"year": 2020, "sales": 5.0},
	}

	first := Normalize(rows)
	for i := 0; i < 50; i++ {
		if got := Normalize(rows); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	got := Normalize(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestRowsFromAny_AcceptedShapes(t *testing.T) {
	want := []RawRow{{"year": 2020.0}}

	fromAnySlice, err := RowsFromAny([]any{map[string]any{"year": 2020.0}})
	if err != nil {
		t.Fatalf("[]any shape: unexpected error %v", err)
	}
	if !reflect.DeepEqual(fromAnySlice, want) {
		t.Errorf("[]any shape: got %+v", fromAnySlice)
	}

	fromMapSlice, err := RowsFromAny([]map[string]any{{"year": 2020.0}})
	if err != nil {
		t.Fatalf("[]map shape: unexpected error %v", err)
	}
	if !reflect.DeepEqual(fromMapSlice, want) {
		t.Errorf("[]map shape: got %+v", fromMapSlice)
	}

	fromRawRows, err := RowsFromAny(want)
	if err != nil {
		t.Fatalf("[]RawRow shape: unexpected error %v", err)
	}
	if !reflect.DeepEqual(fromRawRows, want) {
		t.Errorf("[]RawRow shape: got %+v", fromRawRows)
	}
}

func TestRowsFromAny_RejectsNonSequence(t *testing.T) {
	for _, input := range []any{nil, "rows", 42, map[string]any{"year": 2020}} {
		if _, err := RowsFromAny(input); !errors.Is(err, ErrInputShape) {
			t.Errorf("input %#v: expected ErrInputShape, got %v", input, err)
		}
	}
}

func TestRowsFromAny_RejectsNonRecordElement(t *testing.T) {
	_, err := RowsFromAny([]any{map[string]any{"year": 2020.0}, "not a record"})
	if !errors.Is(err, ErrInputShape) {
		t.Errorf("expected ErrInputShape for scalar element, got %v", err)
	}
}
