package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/shopspring/decimal"
)

func testDocument(t invoicing.TemplateType, vis invoicing.FieldVisibility) Document {
	doc := Document{
		Number:   "INV-2025-0007",
		Currency: "USD",
		Vendor: Vendor{
			BrandName:    "Billy's Bikes",
			OwnerName:    "Billy Smith",
			Address:      "1 Main St\nSpringfield",
			Email:        "billy@example.com",
			Website:      "https://bikes.example.com",
			BusinessCode: "TAX-1",
			Country:      "US",
		},
		CustomerCountry: "Germany",
		Record: invoicing.Record{
			InvoiceID:    "inv_1",
			TemplateType: t,
			VendorID:     "ven_1",
			IssueDate:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Customer: invoicing.CustomerSnapshot{
				Name:    "Acme Corp",
				Email:   "billing@acme.example",
				Address: "2 Side St",
				Phone:   "+16502530000",
				TaxID:   "DE123",
			},
			ShippedFrom: "Warehouse",
			ShippingTo:  "Dock 4",
			Items: []invoicing.LineItem{
				{Description: "Wheel", Quantity: 2, UnitPrice: decimal.NewFromInt(50), DiscountPercent: decimal.NewFromInt(10), TaxPercent: decimal.NewFromInt(5)},
				{Description: "Bell", Measurements: "small", Quantity: 1, UnitPrice: decimal.NewFromInt(8)},
			},
			Charges: invoicing.Charges{
				ShippingCharge:    decimal.NewFromInt(5),
				InvoiceTaxPercent: decimal.NewFromInt(10),
			},
			Visibility: vis,
			Payment:    invoicing.PaymentDetails{Method: "Bank transfer", AccountDetails: "DE89 3704 0044 0532 0130 00"},
			Notes:      "Thanks!",
			Terms:      "Net 30",
		},
	}
	totals := doc.Record.Totals()
	doc.Record.Subtotal = totals.Subtotal
	doc.Record.GrandTotal = totals.GrandTotal
	return doc
}

func totalKeys(p Page) []string {
	var keys []string
	for _, t := range p.Totals {
		keys = append(keys, t.Key)
	}
	return keys
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name      string
		tmpl      invoicing.TemplateType
		vis       invoicing.FieldVisibility
		title     string
		columns   []string
		totals    []string
		wantTaxID bool
		wantNotes bool
	}{
		{
			name:    "simple shows nothing optional",
			tmpl:    invoicing.TemplateSimple,
			title:   "Invoice",
			columns: []string{"Description", "Qty", "Unit price", "Amount"},
			totals:  []string{"subtotal", "total"},
		},
		{
			name:      "tax invoice",
			tmpl:      invoicing.TemplateTaxInvoice,
			vis:       invoicing.DefaultVisibility(invoicing.TemplateTaxInvoice),
			title:     "Tax Invoice",
			columns:   []string{"Description", "Qty", "Unit price", "Amount"},
			totals:    []string{"subtotal", "tax", "total"},
			wantTaxID: true,
		},
		{
			name: "row columns and notes",
			tmpl: invoicing.TemplateCustom,
			vis: invoicing.VisibilityOf(invoicing.FieldPerRowDiscount, invoicing.FieldPerRowTax,
				invoicing.FieldShipCharge, invoicing.FieldNotes),
			title:     "Invoice",
			columns:   []string{"Description", "Qty", "Unit price", "Discount", "Tax", "Amount"},
			totals:    []string{"subtotal", "shipping", "total"},
			wantNotes: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Layout(testDocument(tc.tmpl, tc.vis))
			if p.Title != tc.title {
				t.Errorf("title = %q, want %q", p.Title, tc.title)
			}
			if !slices.Equal(p.Columns, tc.columns) {
				t.Errorf("columns = %v, want %v", p.Columns, tc.columns)
			}
			for _, row := range p.Rows {
				if len(row) != len(p.Columns) {
					t.Errorf("row has %d cells, %d columns", len(row), len(p.Columns))
				}
			}
			if got := totalKeys(p); !slices.Equal(got, tc.totals) {
				t.Errorf("totals = %v, want %v", got, tc.totals)
			}
			hasTaxID := slices.Contains(p.Customer, "Tax ID: DE123")
			if hasTaxID != tc.wantTaxID {
				t.Errorf("customer tax id shown = %v", hasTaxID)
			}
			if (p.Notes != "") != tc.wantNotes {
				t.Errorf("notes = %q", p.Notes)
			}
			if p.Terms != "" || len(p.Payment) != 0 || p.AmountInWords != "" {
				t.Errorf("hidden blocks rendered: terms %q, payment %v, words %q", p.Terms, p.Payment, p.AmountInWords)
			}
			if p.ShippedFrom != "" || p.ShippingTo != "" {
				t.Errorf("hidden shipping addresses rendered")
			}
		})
	}
}

func TestLayout_HiddenValuesIgnored(t *testing.T) {
	// tax rate and payment data stored, but the template does not show them
	doc := testDocument(invoicing.TemplateSimple, invoicing.FieldVisibility{})
	p := Layout(doc)
	last := p.Totals[len(p.Totals)-1]
	// 2*50 + 8 = 108, no discount, no tax, no shipping
	if last.Amount != "108.00 USD" {
		t.Errorf("total = %q", last.Amount)
	}
	for _, line := range p.Vendor {
		if strings.Contains(line, "bikes.example.com") || strings.Contains(line, "TAX-1") {
			t.Errorf("hidden vendor field printed: %q", line)
		}
	}
}

func TestLayout_PaymentAndWords(t *testing.T) {
	vis := invoicing.VisibilityOf(invoicing.FieldPaymentBlock, invoicing.FieldGrandTotalInWords)
	p := Layout(testDocument(invoicing.TemplateCustom, vis))
	if len(p.Payment) != 1 || p.Payment[0].Value != "Bank transfer" {
		t.Errorf("payment = %v, account details must stay hidden", p.Payment)
	}
	if p.AmountInWords != "One Hundred Eight USD" {
		t.Errorf("words = %q", p.AmountInWords)
	}
}

// The page shows the stored totals, not a second computation.
func TestLayout_PrintsStoredTotals(t *testing.T) {
	doc := testDocument(invoicing.TemplateSimple, invoicing.VisibilityOf(invoicing.FieldGrandTotalInWords))
	doc.Record.Subtotal = decimal.RequireFromString("111.10")
	doc.Record.GrandTotal = decimal.RequireFromString("222.20")
	p := Layout(doc)

	got := map[string]string{}
	for _, line := range p.Totals {
		got[line.Key] = line.Amount
	}
	if got["subtotal"] != "111.10 USD" || got["total"] != "222.20 USD" {
		t.Errorf("totals = %v", got)
	}
	if p.AmountInWords != "Two Hundred Twenty Two USD" {
		t.Errorf("words = %q", p.AmountInWords)
	}
}

func TestPDFRenderer(t *testing.T) {
	r := NewPDFRenderer(nil)
	vis := invoicing.DefaultVisibility(invoicing.TemplateProfessionalInvoice)
	pdf, err := r.Render(context.Background(), testDocument(invoicing.TemplateProfessionalInvoice, vis))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", pdf[:min(len(pdf), 16)])
	}
}

func TestWriteDataXML(t *testing.T) {
	doc := testDocument(invoicing.TemplateTaxInvoice, invoicing.DefaultVisibility(invoicing.TemplateTaxInvoice))
	var buf bytes.Buffer
	if err := WriteDataXML(&buf, doc); err != nil {
		t.Fatal(err)
	}
	var got dataXML
	if err := xml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("parse: %v\n%s", err, buf.String())
	}
	if got.Number != "INV-2025-0007" || got.Title != "Tax Invoice" {
		t.Errorf("header = %q %q", got.Number, got.Title)
	}
	if len(got.Rows) != 2 || got.Rows[1].Cells[0] != "Bell (small)" {
		t.Errorf("rows = %v", got.Rows)
	}
	if got.Logo != "" {
		t.Errorf("logo without image: %q", got.Logo)
	}
}

func TestEInvoiceXML(t *testing.T) {
	doc := testDocument(invoicing.TemplateTaxInvoice, invoicing.DefaultVisibility(invoicing.TemplateTaxInvoice))
	doc.Record.Charges.ShippingCharge = decimal.Zero
	out, err := EInvoiceXML(doc)
	if err != nil {
		t.Fatalf("xml: %v", err)
	}
	for _, want := range []string{"INV-2025-0007", "Acme Corp", "DE123"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("output lacks %q", want)
		}
	}
}

func TestHelpers(t *testing.T) {
	if got := countryID("Germany", "US"); got != "DE" {
		t.Errorf("countryID(Germany) = %q", got)
	}
	if got := countryID("Atlantis", "US"); got != "US" {
		t.Errorf("countryID(Atlantis) = %q", got)
	}
	l1, l2 := splitAddress("1 Main St\nSpringfield\n12345")
	if l1 != "1 Main St" || l2 != "Springfield, 12345" {
		t.Errorf("splitAddress = %q, %q", l1, l2)
	}
	doc := Document{Number: "A/B:1"}
	if got := doc.Filename(); got != "A-B-1.pdf" {
		t.Errorf("Filename = %q", got)
	}
}
