package model

import (
	"strings"
)

// InvoiceProblem is a finding that blocks (error) or degrades (warning) the
// structured e-invoice export.
type InvoiceProblem struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// EInvoiceProblems checks the data an EN 16931 invoice needs. The PDF does
// not depend on any of it.
func (inv *Invoice) EInvoiceProblems(v *Vendor) []InvoiceProblem {
	var problems []InvoiceProblem
	add := func(level, msg string) {
		problems = append(problems, InvoiceProblem{Level: level, Message: msg})
	}

	// [BR-CO-26] seller identification
	if strings.TrimSpace(v.BrandName) == "" {
		add("error", "The vendor profile has no brand name.")
	}
	if strings.TrimSpace(v.Address) == "" {
		add("error", "The vendor profile has no address.")
	}
	if v.Country == "" {
		add("error", "The vendor profile has no country.")
	}
	if strings.TrimSpace(inv.Customer.Name) == "" {
		add("error", "The invoice has no customer name.")
	}

	// [BR-25] each line needs an item name
	for _, it := range inv.Items {
		if strings.TrimSpace(it.Description) == "" {
			add("warning", "One or more items have no description.")
			break
		}
	}

	// invoice-level allowances and charges are not mapped
	t := inv.Record().Totals()
	if !t.ShippingCharge.IsZero() || !t.InvoiceDiscountAmount.IsZero() || !t.Cutoff.IsZero() {
		add("error", "Invoice discounts, shipping charges and cutoffs cannot be exported as e-invoice.")
	}
	if inv.Visibility.PerRowTax && inv.Visibility.InvoiceTax && !inv.InvoiceTaxPercent.IsZero() {
		add("error", "Per-row tax and invoice tax cannot be combined in an e-invoice.")
	}
	return problems
}

// HasErrors reports whether any problem has level error.
func HasErrors(problems []InvoiceProblem) bool {
	for _, p := range problems {
		if p.Level == "error" {
			return true
		}
	}
	return false
}
