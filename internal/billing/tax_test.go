package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestInterState(t *testing.T) {
	assert.True(t, InterState("Maharashtra", "Gujarat"))
	assert.False(t, InterState("Maharashtra", "Maharashtra"))
	assert.False(t, InterState("Maharashtra", "maharashtra"), "comparison is case-insensitive")
	assert.False(t, InterState("", "Gujarat"), "unknown seller state falls back to intra-state")
	assert.False(t, InterState("Maharashtra", ""), "unknown buyer state falls back to intra-state")
}

func TestComputeTotalsIntraState(t *testing.T) {
	items := []LineItem{
		{Amount: dec("100"), GSTRate: 18},
		{Amount: dec("100"), GSTRate: 18},
	}
	totals := ComputeTotals(items, decimal.Zero, true, false)
	assert.True(t, totals.Subtotal.Equal(dec("200")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.CGST.Equal(dec("18")), "cgst %s", totals.CGST)
	assert.True(t, totals.SGST.Equal(dec("18")), "sgst %s", totals.SGST)
	assert.True(t, totals.IGST.IsZero())
	assert.True(t, totals.Total.Equal(dec("236")), "total %s", totals.Total)
}

func TestComputeTotalsInterState(t *testing.T) {
	items := []LineItem{
		{Amount: dec("100"), GSTRate: 18},
		{Amount: dec("100"), GSTRate: 18},
	}
	totals := ComputeTotals(items, decimal.Zero, true, true)
	assert.True(t, totals.IGST.Equal(dec("36")), "igst %s", totals.IGST)
	assert.True(t, totals.CGST.IsZero())
	assert.True(t, totals.SGST.IsZero())
	assert.True(t, totals.Total.Equal(dec("236")))
}

func TestComputeTotalsMixedRates(t *testing.T) {
	items := []LineItem{
		{Amount: dec("1000"), GSTRate: 5},
		{Amount: dec("500"), GSTRate: 28},
	}
	totals := ComputeTotals(items, decimal.Zero, true, true)
	// 1000*5% + 500*28% = 50 + 140
	assert.True(t, totals.IGST.Equal(dec("190")), "igst %s", totals.IGST)
	assert.True(t, totals.Total.Equal(dec("1690")))
}

func TestComputeTotalsGSTDisabled(t *testing.T) {
	items := []LineItem{{Amount: dec("200"), GSTRate: 18}}
	totals := ComputeTotals(items, decimal.Zero, false, true)
	assert.True(t, totals.CGST.IsZero())
	assert.True(t, totals.SGST.IsZero())
	assert.True(t, totals.IGST.IsZero())
	assert.True(t, totals.Total.Equal(dec("200")))
}

func TestComputeTotalsExactNoRounding(t *testing.T) {
	items := []LineItem{{Amount: dec("999.50"), GSTRate: 18}}
	totals := ComputeTotals(items, decimal.Zero, true, false)
	// tax 179.91, halves 89.955 rounded to 89.96 each
	assert.True(t, totals.CGST.Equal(dec("89.96")), "cgst %s", totals.CGST)
	assert.True(t, totals.SGST.Equal(dec("89.96")), "sgst %s", totals.SGST)
	taxSum := totals.CGST.Add(totals.SGST).Add(totals.IGST)
	assert.True(t, totals.Total.Equal(totals.Subtotal.Add(taxSum)),
		"total %s must equal subtotal %s plus tax %s", totals.Total, totals.Subtotal, taxSum)
	assert.True(t, totals.Total.Equal(dec("1179.42")), "total %s", totals.Total)
}

func TestComputeTotalsDiscountReducesTotalOnly(t *testing.T) {
	items := []LineItem{{Amount: dec("999.50"), GSTRate: 18}}
	totals := ComputeTotals(items, dec("99.50"), true, false)
	// tax is still levied on the undiscounted line amount
	assert.True(t, totals.CGST.Equal(dec("89.96")), "cgst %s", totals.CGST)
	assert.True(t, totals.SGST.Equal(dec("89.96")), "sgst %s", totals.SGST)
	assert.True(t, totals.Total.Equal(dec("1079.92")), "total %s", totals.Total)
}

func TestComputeTotalsFillsLineBreakdown(t *testing.T) {
	items := []LineItem{
		{Amount: dec("1000"), GSTRate: 5},
		{Amount: dec("999.50"), GSTRate: 18},
	}
	ComputeTotals(items, decimal.Zero, true, true)
	assert.True(t, items[0].TaxAmount.Equal(dec("50")), "tax %s", items[0].TaxAmount)
	assert.True(t, items[0].LineTotal.Equal(dec("1050")), "line total %s", items[0].LineTotal)
	assert.True(t, items[1].TaxAmount.Equal(dec("179.91")), "tax %s", items[1].TaxAmount)
	for _, item := range items {
		assert.True(t, item.LineTotal.Equal(item.Amount.Add(item.TaxAmount)),
			"line total %s must equal amount %s plus tax %s", item.LineTotal, item.Amount, item.TaxAmount)
	}
}

func TestComputeTotalsGSTDisabledZeroesLineTax(t *testing.T) {
	items := []LineItem{{Amount: dec("200"), GSTRate: 18}}
	ComputeTotals(items, decimal.Zero, false, false)
	assert.True(t, items[0].TaxAmount.IsZero())
	assert.True(t, items[0].LineTotal.Equal(dec("200")))
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, StatusUnpaid, DeriveStatus(dec("100"), decimal.Zero))
	assert.Equal(t, StatusPartial, DeriveStatus(dec("100"), dec("50")))
	assert.Equal(t, StatusPaid, DeriveStatus(dec("100"), dec("100")))
	assert.Equal(t, StatusPaid, DeriveStatus(dec("100"), dec("150")))
	assert.Equal(t, StatusUnpaid, DeriveStatus(decimal.Zero, decimal.Zero), "zero-value document stays unpaid")
}

func TestLinePrice(t *testing.T) {
	assert.True(t, linePrice(dec("45"), nil).Equal(dec("45")))
	processes := []Process{{Name: "Cutting", Amount: dec("30")}, {Name: "Plating", Amount: dec("20")}}
	assert.True(t, linePrice(dec("45"), processes).Equal(dec("50")), "process sum overrides unit price")
}
