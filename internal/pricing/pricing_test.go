package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMultiplier(t *testing.T) {
	require.True(t, Multiplier(Quarter).Equal(dec("1")))
	require.True(t, Multiplier(Half).Equal(dec("1.8")))
	require.True(t, Multiplier(Full).Equal(dec("3.5")))
	require.True(t, Multiplier("kilo").Equal(dec("1")))
	require.False(t, Presentation("kilo").Valid())
	require.Equal(t, "1/2 kg", Half.Label())
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		name   string
		raw    any
		want   string
		reason FallbackReason
		ok     bool
	}{
		{"currency string", "$12,000", "12000", "", true},
		{"decimal string", "$15000.50", "15000.5", "", true},
		{"float", 9800.0, "9800", "", true},
		{"int", 100, "100", "", true},
		{"json number", json.Number("250"), "250", "", true},
		{"nil", nil, "0", ReasonMissing, false},
		{"empty", "  $ ", "0", ReasonMissing, false},
		{"garbage", "abc", "0", ReasonUnparseable, false},
		{"zero", "0", "0", ReasonNonPositive, false},
		{"negative", -5, "0", ReasonNonPositive, false},
		{"unsupported", []int{1}, "0", ReasonUnparseable, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason, ok := ParsePrice(tc.raw)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.reason, reason)
			require.True(t, got.Equal(dec(tc.want)), "got %s", got)
		})
	}
}

func TestPolicyResolveReportsFallback(t *testing.T) {
	var reasons []FallbackReason
	p := DefaultPolicy()
	p.OnFallback = func(_ any, reason FallbackReason) { reasons = append(reasons, reason) }

	require.True(t, p.Resolve("$9,000").Equal(dec("9000")))
	require.True(t, p.Resolve("n/a").Equal(dec("12000")))
	require.True(t, p.Resolve(0).Equal(dec("12000")))
	require.Equal(t, []FallbackReason{ReasonUnparseable, ReasonNonPositive}, reasons)
}

func TestPolicyZeroValueUsesDefaultFallback(t *testing.T) {
	require.True(t, Policy{}.Resolve(nil).Equal(DefaultFallbackPrice))
}

func TestLineTotals(t *testing.T) {
	base := dec("12000")
	require.True(t, LineTotal(Line{BasePrice: base, Wholesale: true, QuarterQty: 2, FullQty: 1}).Equal(dec("66000")))
	require.True(t, LineTotal(Line{BasePrice: base, Presentation: Half, Quantity: 2}).Equal(dec("43200")))
	require.True(t, LineTotal(Line{BasePrice: base, Presentation: "unknown", Quantity: 3}).Equal(dec("36000")))
	require.True(t, LineTotal(Line{BasePrice: base, Wholesale: true}).IsZero())
}

func TestSummarize(t *testing.T) {
	totals := Summarize([]Line{
		{BasePrice: dec("12000"), Presentation: Half, Quantity: 2},
	}, DefaultTaxRate)

	require.True(t, totals.Subtotal.Equal(dec("43200")))
	require.True(t, totals.Tax.Equal(dec("9072")))
	require.True(t, totals.Total.Equal(dec("52272")))
	require.Equal(t, Formatted{Subtotal: "43200.00", Tax: "9072.00", Total: "52272.00"}, totals.Formatted)
}

func TestSummarizeRoundsToCents(t *testing.T) {
	totals := Summarize([]Line{
		{BasePrice: dec("100.5"), Presentation: Quarter, Quantity: 1},
	}, DefaultTaxRate)

	require.True(t, totals.Subtotal.Equal(dec("100.5")))
	require.True(t, totals.Tax.Equal(dec("21.11")), "tax %s", totals.Tax)
	require.True(t, totals.Total.Equal(dec("121.61")), "total %s", totals.Total)
	require.Equal(t, Formatted{Subtotal: "100.50", Tax: "21.11", Total: "121.61"}, totals.Formatted)
	require.True(t, totals.Total.Equal(totals.Subtotal.Add(totals.Tax)))

	raw, err := json.Marshal(totals)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"tax":"21.11"`)
	require.NotContains(t, string(raw), "21.105")
}

func TestSummarizeEmpty(t *testing.T) {
	totals := Summarize(nil, DefaultTaxRate)
	require.Equal(t, "0.00", totals.Formatted.Total)
	require.True(t, totals.Total.IsZero())
}

func TestFormatCurrency(t *testing.T) {
	require.Equal(t, "$21600.00", FormatCurrency(dec("21600")))
	require.Equal(t, "$0.33", FormatCurrency(dec("0.333")))
}
