package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/biter777/countries"
	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/shopspring/decimal"
	"github.com/speedata/einvoice"
)

var hundred = decimal.NewFromInt(100)

// countryID returns the ISO alpha-2 code for a country name or code. The
// fallback is used for unknown values.
func countryID(country, fallback string) string {
	c := countries.ByName(strings.TrimSpace(country))
	if c == countries.Unknown {
		return fallback
	}
	return c.Alpha2()
}

// splitAddress puts the first line of a free text address into Line1 and
// the rest into Line2.
func splitAddress(s string) (string, string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(s), "\n")
	rest = strings.Join(strings.Fields(strings.ReplaceAll(rest, "\n", ", ")), " ")
	return strings.TrimSpace(first), rest
}

// EInvoiceXML writes the invoice as EN 16931 (ZUGFeRD / Factur-X) XML. Only
// item lines are mapped; invoices with document level charges must be
// rejected by the caller before.
func EInvoiceXML(doc Document) ([]byte, error) {
	rec := doc.Record
	vis := rec.Visibility
	sellerCountry := countryID(doc.Vendor.Country, "US")

	sellerLine1, sellerLine2 := splitAddress(doc.Vendor.Address)
	buyerLine1, buyerLine2 := splitAddress(rec.Customer.Address)

	var notes []einvoice.Note
	if text := strings.TrimSpace(strings.Join(nonEmpty(rec.Notes, rec.Terms), "·")); text != "" {
		notes = append(notes, einvoice.Note{Text: text})
	}

	zi := einvoice.Invoice{
		InvoiceNumber:       doc.Number,
		InvoiceTypeCode:     380,
		Profile:             einvoice.CProfileEN16931,
		InvoiceDate:         rec.IssueDate,
		OccurrenceDateTime:  rec.IssueDate,
		InvoiceCurrencyCode: doc.Currency,
		TaxCurrencyCode:     doc.Currency,
		Notes:               notes,
		Seller: einvoice.Party{
			Name:              doc.Vendor.BrandName,
			VATaxRegistration: doc.Vendor.BusinessCode,
			PostalAddress: &einvoice.PostalAddress{
				Line1:     sellerLine1,
				Line2:     sellerLine2,
				CountryID: sellerCountry,
			},
			DefinedTradeContact: []einvoice.DefinedTradeContact{{
				PersonName: doc.Vendor.OwnerName,
				EMail:      doc.Vendor.Email,
			}},
		},
		Buyer: einvoice.Party{
			Name: rec.Customer.Name,
			PostalAddress: &einvoice.PostalAddress{
				Line1:     buyerLine1,
				Line2:     buyerLine2,
				CountryID: countryID(doc.CustomerCountry, sellerCountry),
			},
			DefinedTradeContact: []einvoice.DefinedTradeContact{{
				EMail: rec.Customer.Email,
			}},
			VATaxRegistration: rec.Customer.TaxID,
		},
	}

	// 30 = credit transfer, 1 = not defined
	means := einvoice.PaymentMeans{TypeCode: 1}
	if vis.PaymentBlock {
		means.TypeCode = 30
		if vis.PaymentAccountDetails {
			means.PayeePartyCreditorFinancialAccountIBAN = rec.Payment.AccountDetails
		}
		means.PayeePartyCreditorFinancialAccountName = doc.Vendor.BrandName
	}
	zi.PaymentMeans = []einvoice.PaymentMeans{means}

	for i, it := range rec.Items {
		line := invoicing.ComputeLine(it, vis)
		rate := decimal.Zero
		switch {
		case vis.PerRowTax:
			rate = it.TaxPercent
		case vis.InvoiceTax:
			rate = rec.Charges.InvoiceTaxPercent
		}
		category := "S"
		if rate.IsZero() {
			category = "Z"
		}
		net := it.UnitPrice
		if vis.PerRowDiscount {
			net = net.Mul(hundred.Sub(it.DiscountPercent)).Div(hundred)
		}
		name := it.Description
		if it.Measurements != "" {
			name += " (" + it.Measurements + ")"
		}
		zi.InvoiceLines = append(zi.InvoiceLines, einvoice.InvoiceLine{
			LineID:                   fmt.Sprintf("%d", i+1),
			ItemName:                 name,
			BilledQuantity:           decimal.NewFromInt(it.Quantity),
			BilledQuantityUnit:       "C62",
			NetPrice:                 net.Round(2),
			TaxRateApplicablePercent: rate,
			Total:                    line.Taxable.Round(2),
			TaxTypeCode:              "VAT",
			TaxCategoryCode:          category,
		})
	}
	zi.UpdateApplicableTradeTax(map[string]string{})
	zi.UpdateTotals()

	var buf bytes.Buffer
	if err := zi.Write(&buf); err != nil {
		return nil, invoicing.E(invoicing.KindRender, "e-invoice xml", err)
	}
	return buf.Bytes(), nil
}
