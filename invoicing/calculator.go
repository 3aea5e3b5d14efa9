package invoicing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	commaperiod = strings.NewReplacer(",", ".")
)

// LineItem is one row of an invoice.
type LineItem struct {
	Description     string          `json:"description"`
	Measurements    string          `json:"measurements,omitempty"`
	Quantity        int64           `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxPercent      decimal.Decimal `json:"taxPercent"`
}

// LineAmounts are the derived values of one row. None of them is rounded.
type LineAmounts struct {
	Base     decimal.Decimal `json:"lineBase"`
	Discount decimal.Decimal `json:"lineDiscount"`
	Taxable  decimal.Decimal `json:"lineTaxable"`
	Tax      decimal.Decimal `json:"lineTax"`
	Total    decimal.Decimal `json:"lineTotal"`
}

// ComputeLine derives the row amounts. Discount and tax only count when the
// matching per-row field is visible, whatever the item carries.
func ComputeLine(item LineItem, vis FieldVisibility) LineAmounts {
	qty := item.Quantity
	if qty < 0 {
		qty = 0
	}
	price := nonNegative(item.UnitPrice)

	var la LineAmounts
	la.Base = decimal.NewFromInt(qty).Mul(price)
	la.Discount = decimal.Zero
	if vis.PerRowDiscount {
		la.Discount = percentOf(la.Base, item.DiscountPercent)
	}
	la.Taxable = la.Base.Sub(la.Discount)
	la.Tax = decimal.Zero
	if vis.PerRowTax {
		la.Tax = percentOf(la.Taxable, item.TaxPercent)
	}
	la.Total = la.Taxable.Add(la.Tax)
	return la
}

func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(clampPercent(pct)).Div(hundred)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampPercent(d decimal.Decimal) decimal.Decimal {
	switch {
	case d.IsNegative():
		return decimal.Zero
	case d.GreaterThan(hundred):
		return hundred
	}
	return d
}

// ParseAmount reads a user-typed amount for live previews. Empty, invalid or
// negative input yields zero; a comma is accepted as decimal separator.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(commaperiod.Replace(s))
	if err != nil {
		return decimal.Zero
	}
	return nonNegative(d)
}

// ParseQuantity reads a user-typed quantity. Fractions are truncated.
func ParseQuantity(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	return ParseAmount(s).IntPart()
}

// Money renders an amount for presentation with exactly two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
