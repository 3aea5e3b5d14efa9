// Package render turns stored invoices into documents: PDF (maroto locally
// or the speedata publisher), EN 16931 XML and PNG previews.
//
// All renderers print from the frozen visibility of the invoice. Layout
// decides once which blocks, columns and total lines are shown; the back
// ends only place them on the page.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/shopspring/decimal"
)

// ErrPreviewUnavailable is returned by PreviewPNG in builds without cgo.
var ErrPreviewUnavailable = errors.New("PDF preview not supported (built without cgo/fitz)")

// Renderer produces a PDF for a document.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// Vendor is the live vendor profile printed in the header.
type Vendor struct {
	BrandName    string
	OwnerName    string
	Address      string
	Telephone    string
	Email        string
	Website      string
	BusinessCode string
	Country      string
}

// Document is everything a renderer needs for one invoice.
type Document struct {
	Number          string
	Currency        string
	Record          invoicing.Record
	Vendor          Vendor
	CustomerCountry string
	Logo            []byte // JPEG, optional
}

// Filename is the download name of the PDF.
func (d Document) Filename() string {
	name := d.Number
	if name == "" {
		name = d.Record.InvoiceID
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, name)
	return name + ".pdf"
}

// Labeled is one "label: value" line.
type Labeled struct {
	Label string `xml:"label,attr"`
	Value string `xml:",chardata"`
}

// TotalLine is one line of the totals block.
type TotalLine struct {
	Key    string `xml:"key,attr"`
	Label  string `xml:"label,attr"`
	Amount string `xml:",chardata"`
	Strong bool   `xml:"strong,attr,omitempty"`
}

// Page is the resolved content of an invoice page.
type Page struct {
	Title         string
	Number        string
	IssueDate     string
	Vendor        []string
	Customer      []string
	ShippedFrom   string
	ShippingTo    string
	Columns       []string
	Rows          [][]string
	Totals        []TotalLine
	AmountInWords string
	Payment       []Labeled
	Notes         string
	Terms         string
}

var titles = map[invoicing.TemplateType]string{
	invoicing.TemplateTaxInvoice:      "Tax Invoice",
	invoicing.TemplateDeliveryInvoice: "Delivery Invoice",
}

func title(t invoicing.TemplateType) string {
	if s, ok := titles[t]; ok {
		return s
	}
	return "Invoice"
}

func nonEmpty(ss ...string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func percent(d decimal.Decimal) string {
	return d.String() + " %"
}

// Layout resolves what the page shows. Hidden fields never appear, even if
// a value is stored for them.
func Layout(d Document) Page {
	rec := d.Record
	vis := rec.Visibility
	totals := rec.Totals()
	money := func(v decimal.Decimal) string {
		return strings.TrimSpace(invoicing.Money(v) + " " + d.Currency)
	}

	p := Page{
		Title:     title(rec.TemplateType),
		Number:    d.Number,
		IssueDate: rec.IssueDate.Format("2006-01-02"),
	}

	p.Vendor = nonEmpty(d.Vendor.BrandName, d.Vendor.Address, d.Vendor.Telephone, d.Vendor.Email)
	if vis.CompanyWebsite && d.Vendor.Website != "" {
		p.Vendor = append(p.Vendor, d.Vendor.Website)
	}
	if vis.OwnerName && d.Vendor.OwnerName != "" {
		p.Vendor = append(p.Vendor, d.Vendor.OwnerName)
	}
	if vis.CompanyTaxID && d.Vendor.BusinessCode != "" {
		p.Vendor = append(p.Vendor, "Tax ID: "+d.Vendor.BusinessCode)
	}

	c := rec.Customer
	p.Customer = nonEmpty(c.Name, c.Email)
	if vis.CustomerAddress && c.Address != "" {
		p.Customer = append(p.Customer, c.Address)
	}
	if vis.CustomerPhone && c.Phone != "" {
		p.Customer = append(p.Customer, c.Phone)
	}
	if vis.CustomerTaxID && c.TaxID != "" {
		p.Customer = append(p.Customer, "Tax ID: "+c.TaxID)
	}

	if vis.ShippedFrom {
		p.ShippedFrom = rec.ShippedFrom
	}
	if vis.ShippingTo {
		p.ShippingTo = rec.ShippingTo
	}

	p.Columns = []string{"Description", "Qty", "Unit price"}
	if vis.PerRowDiscount {
		p.Columns = append(p.Columns, "Discount")
	}
	if vis.PerRowTax {
		p.Columns = append(p.Columns, "Tax")
	}
	p.Columns = append(p.Columns, "Amount")

	for i, it := range rec.Items {
		desc := it.Description
		if it.Measurements != "" {
			desc += " (" + it.Measurements + ")"
		}
		row := []string{desc, fmt.Sprintf("%d", it.Quantity), money(it.UnitPrice)}
		if vis.PerRowDiscount {
			row = append(row, percent(it.DiscountPercent))
		}
		if vis.PerRowTax {
			row = append(row, percent(it.TaxPercent))
		}
		row = append(row, money(totals.Lines[i].Total))
		p.Rows = append(p.Rows, row)
	}

	p.Totals = append(p.Totals, TotalLine{Key: "subtotal", Label: "Subtotal", Amount: money(rec.Subtotal)})
	if vis.ShipCharge {
		p.Totals = append(p.Totals, TotalLine{Key: "shipping", Label: "Shipping", Amount: money(totals.ShippingCharge)})
	}
	if vis.InvoiceDiscount {
		p.Totals = append(p.Totals, TotalLine{
			Key:    "discount",
			Label:  "Discount (" + percent(rec.Charges.InvoiceDiscountPercent) + ")",
			Amount: "-" + money(totals.InvoiceDiscountAmount),
		})
	}
	if vis.InvoiceTax {
		p.Totals = append(p.Totals, TotalLine{
			Key:    "tax",
			Label:  "Tax (" + percent(rec.Charges.InvoiceTaxPercent) + ")",
			Amount: money(totals.InvoiceTaxAmount),
		})
	}
	if vis.Cutoff {
		p.Totals = append(p.Totals, TotalLine{Key: "cutoff", Label: "Cutoff", Amount: "-" + money(totals.Cutoff)})
	}
	p.Totals = append(p.Totals, TotalLine{Key: "total", Label: "Total", Amount: money(rec.GrandTotal), Strong: true})

	if vis.GrandTotalInWords {
		p.AmountInWords = strings.TrimSpace(invoicing.NumberToWords(rec.GrandTotal) + " " + d.Currency)
	}

	if vis.PaymentBlock {
		pay := rec.Payment
		if pay.Method != "" {
			p.Payment = append(p.Payment, Labeled{"Payment method", pay.Method})
		}
		if vis.PaymentNumber && pay.Number != "" {
			p.Payment = append(p.Payment, Labeled{"Payment number", pay.Number})
		}
		if vis.PaymentAccountDetails && pay.AccountDetails != "" {
			p.Payment = append(p.Payment, Labeled{"Account", pay.AccountDetails})
		}
		if vis.PaymentTransactionID && pay.TransactionID != "" {
			p.Payment = append(p.Payment, Labeled{"Transaction ID", pay.TransactionID})
		}
	}
	if vis.Notes {
		p.Notes = rec.Notes
	}
	if vis.Terms {
		p.Terms = rec.Terms
	}
	return p
}
