package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// InterState reports whether supply crosses state lines. It holds only when
// both states are known and differ, compared case-insensitively; a missing
// state on either side falls back to intra-state CGST/SGST.
func InterState(businessState, customerState string) bool {
	b := strings.TrimSpace(businessState)
	c := strings.TrimSpace(customerState)
	if b == "" || c == "" {
		return false
	}
	return !strings.EqualFold(b, c)
}

// Totals is the tax breakdown of a document.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	CGST     decimal.Decimal
	SGST     decimal.Decimal
	IGST     decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals prices a document from its resolved line items, filling in
// each item's TaxAmount and LineTotal as it goes. Tax is levied per line on
// the line amount. Inter-state supply books the full rate as IGST,
// intra-state splits it evenly between CGST and SGST. With GST disabled all
// tax fields stay zero. The grand total is exact: subtotal minus discount
// plus the booked tax, with no rounding of the result.
func ComputeTotals(items []LineItem, discount decimal.Decimal, gstEnabled, interState bool) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Discount: discount,
		CGST:     decimal.Zero,
		SGST:     decimal.Zero,
		IGST:     decimal.Zero,
	}
	var tax decimal.Decimal
	for i := range items {
		item := &items[i]
		t.Subtotal = t.Subtotal.Add(item.Amount)
		item.TaxAmount = decimal.Zero
		if gstEnabled {
			lineTax := item.Amount.Mul(decimal.NewFromInt(int64(item.GSTRate))).Div(hundred)
			item.TaxAmount = lineTax.Round(2)
			tax = tax.Add(lineTax)
		}
		item.LineTotal = item.Amount.Add(item.TaxAmount)
	}
	if gstEnabled {
		if interState {
			t.IGST = tax.Round(2)
		} else {
			half := tax.Div(decimal.NewFromInt(2)).Round(2)
			t.CGST = half
			t.SGST = half
		}
	}
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.CGST).Add(t.SGST).Add(t.IGST)
	return t
}

// linePrice returns the effective unit price for a resolved line. Process
// work overrides everything: the unit price becomes the sum of process
// amounts.
func linePrice(unitPrice decimal.Decimal, processes []Process) decimal.Decimal {
	if len(processes) == 0 {
		return unitPrice
	}
	sum := decimal.Zero
	for _, p := range processes {
		sum = sum.Add(p.Amount)
	}
	return sum
}
