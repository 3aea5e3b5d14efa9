package invoicing

import "github.com/shopspring/decimal"

// Charges are the invoice-level amounts entered next to the items.
type Charges struct {
	ShippingCharge         decimal.Decimal `json:"shippingCharge"`
	InvoiceDiscountPercent decimal.Decimal `json:"invoiceDiscountPercent"`
	InvoiceTaxPercent      decimal.Decimal `json:"invoiceTaxPercent"`
	Cutoff                 decimal.Decimal `json:"cutoff"`
}

// Totals is the full breakdown of an invoice. Values are unrounded; use Money
// at the presentation boundary.
type Totals struct {
	Lines                 []LineAmounts   `json:"lines"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	ShippingCharge        decimal.Decimal `json:"shippingCharge"`
	InvoiceDiscountAmount decimal.Decimal `json:"invoiceDiscountAmount"`
	TaxableAmount         decimal.Decimal `json:"taxableAmount"`
	InvoiceTaxAmount      decimal.Decimal `json:"invoiceTaxAmount"`
	Cutoff                decimal.Decimal `json:"cutoff"`
	GrandTotal            decimal.Decimal `json:"grandTotal"`
}

// ComputeTotals folds the items and charges into the invoice totals. The
// order of the steps is fixed: invoice discount applies to the subtotal, tax
// applies after shipping and discount, and the cutoff comes off last.
func ComputeTotals(items []LineItem, charges Charges, vis FieldVisibility) Totals {
	t := Totals{
		Lines:                 make([]LineAmounts, len(items)),
		Subtotal:              decimal.Zero,
		ShippingCharge:        decimal.Zero,
		InvoiceDiscountAmount: decimal.Zero,
		InvoiceTaxAmount:      decimal.Zero,
		Cutoff:                decimal.Zero,
	}

	// 1
	for i, it := range items {
		t.Lines[i] = ComputeLine(it, vis)
		t.Subtotal = t.Subtotal.Add(t.Lines[i].Total)
	}
	// 2
	if vis.ShipCharge {
		t.ShippingCharge = nonNegative(charges.ShippingCharge)
	}
	// 3
	if vis.InvoiceDiscount {
		t.InvoiceDiscountAmount = percentOf(t.Subtotal, charges.InvoiceDiscountPercent)
	}
	// 4
	t.TaxableAmount = t.Subtotal.Add(t.ShippingCharge).Sub(t.InvoiceDiscountAmount)
	// 5
	if vis.InvoiceTax {
		t.InvoiceTaxAmount = percentOf(t.TaxableAmount, charges.InvoiceTaxPercent)
	}
	// 6
	if vis.Cutoff {
		t.Cutoff = nonNegative(charges.Cutoff)
	}
	t.GrandTotal = t.TaxableAmount.Add(t.InvoiceTaxAmount).Sub(t.Cutoff)
	return t
}
