package normalization

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"fundamentals-lab/internal/domain"
)

// Header alias sets, in canonical form (lower-cased, whitespace removed).
// The first present alias wins, even when its value fails coercion.
var (
	yearAliases            = []string{"year"}
	revenueAliases         = []string{"revenue", "sales"}
	operatingIncomeAliases = []string{"operatingincome", "operating_income"}
	netIncomeAliases       = []string{"netincome", "net_income"}
	sharesAliases          = []string{"sharesoutstanding", "shares_outstanding"}
)

// Normalize converts loosely-typed source rows into canonical records.
// Per row:
//  1. Build a case- and whitespace-insensitive lookup over the row's keys
//  2. Resolve each field from its alias set (first present key wins)
//  3. Coerce values to numbers; failed coercion yields a null field
//  4. Drop the row entirely when year is missing or not a finite number
//
// Surviving rows are sorted ascending by year (stable, so duplicate years
// keep source order). Data-quality problems never raise an error: subtotal
// and footnote rows from spreadsheet exports are expected and silently
// dropped by the year rule.
func Normalize(rows []RawRow) []domain.FinancialRecord {
	records := make([]domain.FinancialRecord, 0, len(rows))
	for _, row := range rows {
		rec, ok := normalizeRow(row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Year < records[j].Year
	})

	return records
}

// normalizeRow converts one raw row. ok is false when the row has no
// usable year and must be dropped.
func normalizeRow(row RawRow) (domain.FinancialRecord, bool) {
	lookup := canonicalLookup(row)

	yearVal, ok := resolveValue(lookup, yearAliases)
	if !ok {
		return domain.FinancialRecord{}, false
	}
	yearNum := coerceNumber(yearVal)
	if !yearNum.Valid {
		return domain.FinancialRecord{}, false
	}

	rec := domain.FinancialRecord{
		// Fractional years truncate toward zero.
		Year:              int(yearNum.Float64),
		Revenue:           resolveNumber(lookup, revenueAliases),
		OperatingIncome:   resolveNumber(lookup, operatingIncomeAliases),
		NetIncome:         resolveNumber(lookup, netIncomeAliases),
		SharesOutstanding: resolveNumber(lookup, sharesAliases),
	}
	return rec, true
}

// canonicalLookup maps canonical header forms to cell values. Map iteration
// order is random, so colliding canonical keys are resolved by sorted
// original-key order to keep output deterministic.
func canonicalLookup(row RawRow) map[string]any {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lookup := make(map[string]any, len(row))
	for _, k := range keys {
		ck := canonicalKey(k)
		if _, exists := lookup[ck]; exists {
			continue
		}
		lookup[ck] = row[k]
	}
	return lookup
}

// canonicalKey lower-cases a header and strips all whitespace, so "Year",
// "YEAR" and " Shares Outstanding " resolve to the same field.
func canonicalKey(k string) string {
	return strings.Join(strings.Fields(strings.ToLower(k)), "")
}

// resolveValue returns the value of the first alias present in the lookup.
// Presence means the key exists, regardless of the value.
func resolveValue(lookup map[string]any, aliases []string) (any, bool) {
	for _, a := range aliases {
		if v, ok := lookup[a]; ok {
			return v, true
		}
	}
	return nil, false
}

// resolveNumber resolves an aliased field and coerces it. Absent keys and
// failed coercions both yield null, never zero.
func resolveNumber(lookup map[string]any, aliases []string) null.Float {
	v, ok := resolveValue(lookup, aliases)
	if !ok {
		return null.Float{}
	}
	return coerceNumber(v)
}

// coerceNumber converts a cell value to a finite number, or null when it
// cannot. strconv.ParseFloat accepts "NaN" and "Inf", so non-finite results
// are rejected explicitly; they would corrupt downstream ratios and charts.
func coerceNumber(v any) null.Float {
	switch n := v.(type) {
	case float64:
		return finiteFloat(n)
	case float32:
		return finiteFloat(float64(n))
	case int:
		return null.FloatFrom(float64(n))
	case int32:
		return null.FloatFrom(float64(n))
	case int64:
		return null.FloatFrom(float64(n))
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return null.Float{}
		}
		return finiteFloat(f)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return null.Float{}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return null.Float{}
		}
		return finiteFloat(f)
	default:
		return null.Float{}
	}
}

func finiteFloat(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
