package invoicing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Input is a numeric value as typed into the editor. It accepts JSON
// numbers as well as strings.
type Input string

func (in *Input) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*in = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*in = Input(s)
		return nil
	}
	*in = Input(b)
	return nil
}

// EditorItem is a line item as the editor holds it.
type EditorItem struct {
	Description     string `json:"description" form:"description"`
	Measurements    string `json:"measurements" form:"measurements"`
	Quantity        Input  `json:"quantity" form:"quantity"`
	UnitPrice       Input  `json:"unitPrice" form:"unitPrice"`
	DiscountPercent Input  `json:"discountPercent" form:"discountPercent"`
	TaxPercent      Input  `json:"taxPercent" form:"taxPercent"`
}

// PaymentDetails is the optional payment block of an invoice.
type PaymentDetails struct {
	Method         string `json:"method" form:"method"`
	Number         string `json:"number" form:"number"`
	AccountDetails string `json:"accountDetails" form:"accountDetails"`
	TransactionID  string `json:"transactionId" form:"transactionId"`
}

// EditorState is the live, unsaved state of the invoice editor.
type EditorState struct {
	TemplateID             string          `json:"templateId" form:"templateId"`
	TemplateType           string          `json:"templateType" form:"templateType"`
	IssueDate              string          `json:"issueDate" form:"issueDate"`
	CustomerID             string          `json:"customerId" form:"customerId"`
	ShippedFrom            string          `json:"shippedFrom" form:"shippedFrom"`
	ShippingTo             string          `json:"shippingTo" form:"shippingTo"`
	Items                  []EditorItem    `json:"items" form:"items"`
	ShippingCharge         Input           `json:"shippingCharge" form:"shippingCharge"`
	InvoiceDiscountPercent Input           `json:"invoiceDiscountPercent" form:"invoiceDiscountPercent"`
	InvoiceTaxPercent      Input           `json:"invoiceTaxPercent" form:"invoiceTaxPercent"`
	Cutoff                 Input           `json:"cutoff" form:"cutoff"`
	Visibility             FieldVisibility `json:"visibility" form:"visibility"`
	Payment                PaymentDetails  `json:"payment" form:"payment"`
	Notes                  string          `json:"notes" form:"notes"`
	Terms                  string          `json:"terms" form:"terms"`
	VendorWebsite          string          `json:"vendorWebsite" form:"vendorWebsite"`
}

// VendorSnapshot is the part of the vendor profile the assembler needs.
type VendorSnapshot struct {
	ID      string
	Website string
}

// CustomerSnapshot is copied onto the invoice at issue time.
type CustomerSnapshot struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"taxId,omitempty"`
}

// Record is the normalized invoice that storage and renderers consume.
type Record struct {
	InvoiceID    string           `json:"invoiceId"`
	TemplateID   string           `json:"templateId"`
	TemplateType TemplateType     `json:"templateType"`
	VendorID     string           `json:"vendorId"`
	CustomerID   string           `json:"customerId"`
	IssueDate    time.Time        `json:"issueDate"`
	Customer     CustomerSnapshot `json:"customer"`
	ShippedFrom  string           `json:"shippedFrom,omitempty"`
	ShippingTo   string           `json:"shippingTo,omitempty"`
	Items        []LineItem       `json:"items"`
	Charges      Charges          `json:"charges"`
	Visibility   FieldVisibility  `json:"fieldVisibility"`
	Subtotal     decimal.Decimal  `json:"subtotal"`
	GrandTotal   decimal.Decimal  `json:"grandTotal"`
	Payment      PaymentDetails   `json:"payment"`
	Notes        string           `json:"notes,omitempty"`
	Terms        string           `json:"terms,omitempty"`
}

// Totals re-derives the breakdown from the stored items, charges and
// visibility.
func (r Record) Totals() Totals {
	return ComputeTotals(r.Items, r.Charges, r.Visibility)
}

// ErrTotalsMismatch means the persisted totals no longer match the items.
var ErrTotalsMismatch = errors.New("persisted totals do not match items")

// Verify checks that the persisted subtotal and grand total equal a fresh
// computation.
func (r Record) Verify() error {
	t := r.Totals()
	if !t.Subtotal.Equal(r.Subtotal) || !t.GrandTotal.Equal(r.GrandTotal) {
		return fmt.Errorf("%w: invoice %s has subtotal %s/grand total %s, recomputed %s/%s",
			ErrTotalsMismatch, r.InvoiceID, r.Subtotal, r.GrandTotal, t.Subtotal, t.GrandTotal)
	}
	return nil
}

const dateLayout = "2006-01-02"

// Assemble validates the editor state and turns it into a Record with
// frozen visibility and computed totals. Values of hidden fields are
// dropped. The InvoiceID is left for the caller to assign.
func Assemble(state EditorState, vendor VendorSnapshot, customer CustomerSnapshot) (Record, error) {
	fe := fieldErrors{}
	vis := state.Visibility

	tt, err := ParseTemplateType(state.TemplateType)
	if err != nil {
		fe.add("templateType", "unknown template type")
	}

	issue, err := parseDate(state.IssueDate)
	if err != nil {
		fe.add("issueDate", err.Error())
	}

	if strings.TrimSpace(state.CustomerID) == "" {
		fe.add("customerId", "required")
	}
	if strings.TrimSpace(customer.Name) == "" {
		fe.add("customer.name", "required")
	}
	if customer.Email != "" {
		if _, err := mail.ParseAddress(customer.Email); err != nil {
			fe.add("customer.email", "invalid email address")
		}
	}

	if len(state.Items) == 0 {
		fe.add("items", "at least one item is required")
	}
	items := make([]LineItem, 0, len(state.Items))
	for i, ei := range state.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		li := LineItem{
			Description:  strings.TrimSpace(ei.Description),
			Measurements: strings.TrimSpace(ei.Measurements),
		}
		if li.Description == "" {
			fe.add(prefix+"description", "required")
		}
		if q, msg := strictQuantity(ei.Quantity); msg != "" {
			fe.add(prefix+"quantity", msg)
		} else {
			li.Quantity = q
		}
		if d, msg := strictAmount(ei.UnitPrice, true); msg != "" {
			fe.add(prefix+"unitPrice", msg)
		} else {
			li.UnitPrice = d
		}
		li.DiscountPercent = decimal.Zero
		if vis.PerRowDiscount {
			if d, msg := strictPercent(ei.DiscountPercent); msg != "" {
				fe.add(prefix+"discountPercent", msg)
			} else {
				li.DiscountPercent = d
			}
		}
		li.TaxPercent = decimal.Zero
		if vis.PerRowTax {
			if d, msg := strictPercent(ei.TaxPercent); msg != "" {
				fe.add(prefix+"taxPercent", msg)
			} else {
				li.TaxPercent = d
			}
		}
		items = append(items, li)
	}

	charges := Charges{
		ShippingCharge:         decimal.Zero,
		InvoiceDiscountPercent: decimal.Zero,
		InvoiceTaxPercent:      decimal.Zero,
		Cutoff:                 decimal.Zero,
	}
	if vis.ShipCharge {
		if d, msg := strictAmount(state.ShippingCharge, false); msg != "" {
			fe.add("shippingCharge", msg)
		} else {
			charges.ShippingCharge = d
		}
	}
	if vis.InvoiceDiscount {
		if d, msg := strictPercent(state.InvoiceDiscountPercent); msg != "" {
			fe.add("invoiceDiscountPercent", msg)
		} else {
			charges.InvoiceDiscountPercent = d
		}
	}
	if vis.InvoiceTax {
		if d, msg := strictPercent(state.InvoiceTaxPercent); msg != "" {
			fe.add("invoiceTaxPercent", msg)
		} else {
			charges.InvoiceTaxPercent = d
		}
	}
	if vis.Cutoff {
		if d, msg := strictAmount(state.Cutoff, false); msg != "" {
			fe.add("cutoff", msg)
		} else {
			charges.Cutoff = d
		}
	}

	if err := fe.err("assemble invoice"); err != nil {
		return Record{}, err
	}

	totals := ComputeTotals(items, charges, vis)
	if totals.GrandTotal.IsNegative() {
		fe.add("cutoff", "cutoff exceeds the invoice total")
		return Record{}, fe.err("assemble invoice")
	}

	rec := Record{
		TemplateID:   strings.TrimSpace(state.TemplateID),
		TemplateType: tt,
		VendorID:     vendor.ID,
		CustomerID:   strings.TrimSpace(state.CustomerID),
		IssueDate:    issue,
		Customer:     trimCustomer(customer),
		Items:        items,
		Charges:      charges,
		Visibility:   vis,
		Subtotal:     totals.Subtotal,
		GrandTotal:   totals.GrandTotal,
	}
	if vis.ShippedFrom {
		rec.ShippedFrom = strings.TrimSpace(state.ShippedFrom)
	}
	if vis.ShippingTo {
		rec.ShippingTo = strings.TrimSpace(state.ShippingTo)
	}
	if vis.PaymentBlock {
		rec.Payment.Method = strings.TrimSpace(state.Payment.Method)
		if vis.PaymentNumber {
			rec.Payment.Number = strings.TrimSpace(state.Payment.Number)
		}
		if vis.PaymentAccountDetails {
			rec.Payment.AccountDetails = strings.TrimSpace(state.Payment.AccountDetails)
		}
		if vis.PaymentTransactionID {
			rec.Payment.TransactionID = strings.TrimSpace(state.Payment.TransactionID)
		}
	}
	if vis.Notes {
		rec.Notes = strings.TrimSpace(state.Notes)
	}
	if vis.Terms {
		rec.Terms = strings.TrimSpace(state.Terms)
	}
	return rec, nil
}

// PreviewTotals computes totals from the editor state without validation.
// Invalid numbers count as zero so the editor always has something to show.
func PreviewTotals(state EditorState) Totals {
	items := make([]LineItem, len(state.Items))
	for i, ei := range state.Items {
		items[i] = LineItem{
			Description:     ei.Description,
			Quantity:        ParseQuantity(string(ei.Quantity)),
			UnitPrice:       ParseAmount(string(ei.UnitPrice)),
			DiscountPercent: ParseAmount(string(ei.DiscountPercent)),
			TaxPercent:      ParseAmount(string(ei.TaxPercent)),
		}
	}
	charges := Charges{
		ShippingCharge:         ParseAmount(string(state.ShippingCharge)),
		InvoiceDiscountPercent: ParseAmount(string(state.InvoiceDiscountPercent)),
		InvoiceTaxPercent:      ParseAmount(string(state.InvoiceTaxPercent)),
		Cutoff:                 ParseAmount(string(state.Cutoff)),
	}
	return ComputeTotals(items, charges, state.Visibility)
}

// WebsiteChange returns the website to store on the vendor profile when the
// editor changed it.
func WebsiteChange(state EditorState, vendor VendorSnapshot) (string, bool) {
	w := strings.TrimSpace(state.VendorWebsite)
	if w == "" || w == vendor.Website {
		return "", false
	}
	return w, true
}

// ChangedFields names the parts of an invoice that differ between two
// records, for the history of an update.
func ChangedFields(before, after Record) []string {
	var out []string
	add := func(changed bool, name string) {
		if changed {
			out = append(out, name)
		}
	}
	add(before.TemplateType != after.TemplateType || before.TemplateID != after.TemplateID, "template")
	add(!before.IssueDate.Equal(after.IssueDate), "issueDate")
	add(before.CustomerID != after.CustomerID || before.Customer != after.Customer, "customer")
	add(before.ShippedFrom != after.ShippedFrom, "shippedFrom")
	add(before.ShippingTo != after.ShippingTo, "shippingTo")
	add(!itemsEqual(before.Items, after.Items), "items")
	add(!before.Charges.ShippingCharge.Equal(after.Charges.ShippingCharge), "shippingCharge")
	add(!before.Charges.InvoiceDiscountPercent.Equal(after.Charges.InvoiceDiscountPercent), "invoiceDiscountPercent")
	add(!before.Charges.InvoiceTaxPercent.Equal(after.Charges.InvoiceTaxPercent), "invoiceTaxPercent")
	add(!before.Charges.Cutoff.Equal(after.Charges.Cutoff), "cutoff")
	for _, k := range before.Visibility.Diff(after.Visibility) {
		out = append(out, "visibility."+string(k))
	}
	add(before.Payment != after.Payment, "payment")
	add(before.Notes != after.Notes, "notes")
	add(before.Terms != after.Terms, "terms")
	return out
}

func itemsEqual(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Description != y.Description || x.Measurements != y.Measurements || x.Quantity != y.Quantity ||
			!x.UnitPrice.Equal(y.UnitPrice) || !x.DiscountPercent.Equal(y.DiscountPercent) ||
			!x.TaxPercent.Equal(y.TaxPercent) {
			return false
		}
	}
	return true
}

func trimCustomer(c CustomerSnapshot) CustomerSnapshot {
	return CustomerSnapshot{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.TrimSpace(c.Email),
		Address: strings.TrimSpace(c.Address),
		Phone:   strings.TrimSpace(c.Phone),
		TaxID:   strings.TrimSpace(c.TaxID),
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("required")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(24 * time.Hour), nil
	}
	return time.Time{}, errors.New("expected YYYY-MM-DD")
}

func strictQuantity(in Input) (int64, string) {
	s := strings.TrimSpace(string(in))
	if s == "" {
		return 0, "required"
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, "must be a whole number"
	}
	if n < 0 {
		return 0, "must not be negative"
	}
	return n, ""
}

// maxAmount bounds every amount typed into the editor.
var maxAmount = decimal.New(1, 15)

func strictAmount(in Input, required bool) (decimal.Decimal, string) {
	s := strings.TrimSpace(string(in))
	if s == "" {
		if required {
			return decimal.Zero, "required"
		}
		return decimal.Zero, ""
	}
	d, err := decimal.NewFromString(commaperiod.Replace(s))
	if err != nil {
		return decimal.Zero, "must be a number"
	}
	if d.IsNegative() {
		return decimal.Zero, "must not be negative"
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, "too large"
	}
	return d, ""
}

func strictPercent(in Input) (decimal.Decimal, string) {
	d, msg := strictAmount(in, false)
	if msg != "" {
		return d, msg
	}
	if d.GreaterThan(hundred) {
		return decimal.Zero, "must be between 0 and 100"
	}
	return d, ""
}
