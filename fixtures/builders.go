package fixtures

import "github.com/billingcat/invoicedesk/invoicing"

// EditorOption changes an editor state built by EditorState.
type EditorOption func(*invoicing.EditorState)

// EditorState returns a valid simple-template state for customerID with one
// item of 2 × 50.
func EditorState(customerID string, opts ...EditorOption) invoicing.EditorState {
	st := invoicing.EditorState{
		TemplateType: string(invoicing.TemplateSimple),
		IssueDate:    "2025-03-01",
		CustomerID:   customerID,
		Items:        []invoicing.EditorItem{Item("Consulting", "2", "50")},
		Visibility:   invoicing.DefaultVisibility(invoicing.TemplateSimple),
	}
	for _, o := range opts {
		o(&st)
	}
	return st
}

// WithTemplate switches to a built-in template and its default visibility.
func WithTemplate(t invoicing.TemplateType) EditorOption {
	return func(st *invoicing.EditorState) {
		st.TemplateType = string(t)
		st.TemplateID = string(t)
		st.Visibility = invoicing.DefaultVisibility(t)
	}
}

// WithCustomTemplate selects a stored custom template.
func WithCustomTemplate(templateID string, vis invoicing.FieldVisibility) EditorOption {
	return func(st *invoicing.EditorState) {
		st.TemplateType = string(invoicing.TemplateCustom)
		st.TemplateID = templateID
		st.Visibility = vis
	}
}

// WithItems replaces the items.
func WithItems(items ...invoicing.EditorItem) EditorOption {
	return func(st *invoicing.EditorState) { st.Items = items }
}

// WithVisibility overrides the visibility.
func WithVisibility(vis invoicing.FieldVisibility) EditorOption {
	return func(st *invoicing.EditorState) { st.Visibility = vis }
}

// WithInvoiceTax sets the invoice tax percent.
func WithInvoiceTax(pct string) EditorOption {
	return func(st *invoicing.EditorState) { st.InvoiceTaxPercent = invoicing.Input(pct) }
}

// WithNotes sets the notes text.
func WithNotes(notes string) EditorOption {
	return func(st *invoicing.EditorState) { st.Notes = notes }
}

// WithWebsite sets the vendor website typed into the editor.
func WithWebsite(url string) EditorOption {
	return func(st *invoicing.EditorState) { st.VendorWebsite = url }
}

// Item is a line item without discount or tax.
func Item(description, qty, price string) invoicing.EditorItem {
	return invoicing.EditorItem{
		Description: description,
		Quantity:    invoicing.Input(qty),
		UnitPrice:   invoicing.Input(price),
	}
}

// ItemWithRates is a line item with per-row discount and tax percents.
func ItemWithRates(description, qty, price, discount, tax string) invoicing.EditorItem {
	it := Item(description, qty, price)
	it.DiscountPercent = invoicing.Input(discount)
	it.TaxPercent = invoicing.Input(tax)
	return it
}
