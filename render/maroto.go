package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// PDFRenderer renders invoices locally with maroto.
type PDFRenderer struct {
	logger *slog.Logger
}

func NewPDFRenderer(logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFRenderer{logger: logger}
}

func (r *PDFRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := Layout(doc)

	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()
	m := maroto.New(cfg)

	addHeader(m, page, doc.Logo)
	addParties(m, page)
	addItems(m, page)
	addTotals(m, page)
	addFooter(m, page)

	pdf, err := m.Generate()
	if err != nil {
		return nil, invoicing.E(invoicing.KindRender, "generate pdf", err)
	}
	r.logger.DebugContext(ctx, "pdf rendered", "invoice_id", doc.Record.InvoiceID, "bytes", len(pdf.GetBytes()))
	return pdf.GetBytes(), nil
}

func small(top float64) props.Text {
	return props.Text{Size: 9, Top: top, Align: align.Left}
}

func lines(ss []string, first float64) []core.Component {
	out := make([]core.Component, len(ss))
	for i, s := range ss {
		out[i] = text.New(s, small(first+float64(i)*4.5))
	}
	return out
}

func blockHeight(n int) float64 {
	h := 6 + float64(n)*4.5
	if h < 12 {
		return 12
	}
	return h
}

func addHeader(m core.Maroto, page Page, logo []byte) {
	if len(logo) > 0 {
		m.AddRow(22, image.NewFromBytesCol(4, logo, extension.Jpg, props.Rect{Percent: 90}))
	}
	vendor := lines(page.Vendor[min(1, len(page.Vendor)):], 8)
	if len(page.Vendor) > 0 {
		vendor = append([]core.Component{text.New(page.Vendor[0], props.Text{Size: 14, Style: fontstyle.Bold})}, vendor...)
	}
	m.AddRow(blockHeight(len(page.Vendor)+1),
		col.New(7).Add(vendor...),
		col.New(5).Add(
			text.New(page.Title, props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right}),
			text.New("# "+page.Number, props.Text{Size: 10, Top: 9, Align: align.Right}),
			text.New(page.IssueDate, props.Text{Size: 10, Top: 14, Align: align.Right}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func addParties(m core.Maroto, page Page) {
	billTo := append([]core.Component{text.New("BILL TO", props.Text{Size: 9, Style: fontstyle.Bold})}, lines(page.Customer, 5)...)
	var shipping []core.Component
	top := 0.0
	if page.ShippedFrom != "" {
		shipping = append(shipping,
			text.New("SHIPPED FROM", props.Text{Size: 9, Style: fontstyle.Bold, Top: top}),
			text.New(page.ShippedFrom, small(top+5)))
		top += 12
	}
	if page.ShippingTo != "" {
		shipping = append(shipping,
			text.New("SHIP TO", props.Text{Size: 9, Style: fontstyle.Bold, Top: top}),
			text.New(page.ShippingTo, small(top+5)))
	}
	h := blockHeight(len(page.Customer) + 1)
	if len(shipping) > 0 && h < 26 {
		h = 26
	}
	m.AddRow(h, col.New(6).Add(billTo...), col.New(6).Add(shipping...))
}

// columnSizes spreads the 12 grid columns over the item table. The
// description gets what the number columns leave.
func columnSizes(n int) []int {
	sizes := make([]int, n)
	rest := 12
	for i := 1; i < n; i++ {
		sizes[i] = 2
		if i == 1 {
			sizes[i] = 1
		}
		rest -= sizes[i]
	}
	sizes[0] = rest
	return sizes
}

func addItems(m core.Maroto, page Page) {
	sizes := columnSizes(len(page.Columns))
	header := make([]core.Col, len(page.Columns))
	for i, c := range page.Columns {
		a := align.Right
		if i == 0 {
			a = align.Left
		}
		header[i] = col.New(sizes[i]).Add(text.New(c, props.Text{Size: 9, Style: fontstyle.Bold, Align: a}))
	}
	m.AddRow(7, header...)
	m.AddRow(2, line.NewCol(12))

	for _, row := range page.Rows {
		cols := make([]core.Col, len(row))
		for i, cell := range row {
			a := align.Right
			if i == 0 {
				a = align.Left
			}
			cols[i] = col.New(sizes[i]).Add(text.New(cell, props.Text{Size: 9, Align: a}))
		}
		m.AddRow(6, cols...)
	}
	m.AddRow(3, line.NewCol(12))
}

func addTotals(m core.Maroto, page Page) {
	for _, t := range page.Totals {
		style := fontstyle.Normal
		if t.Strong {
			style = fontstyle.Bold
		}
		m.AddRow(6,
			col.New(6),
			col.New(3).Add(text.New(t.Label, props.Text{Size: 9, Style: style, Align: align.Right})),
			col.New(3).Add(text.New(t.Amount, props.Text{Size: 9, Style: style, Align: align.Right})),
		)
	}
	if page.AmountInWords != "" {
		m.AddRow(8, col.New(12).Add(
			text.New("Amount in words: "+page.AmountInWords, props.Text{Size: 9, Style: fontstyle.Italic, Top: 2, Align: align.Right}),
		))
	}
}

func addFooter(m core.Maroto, page Page) {
	if len(page.Payment) > 0 {
		entries := make([]string, len(page.Payment))
		for i, p := range page.Payment {
			entries[i] = p.Label + ": " + p.Value
		}
		m.AddRow(blockHeight(len(entries)+1), col.New(12).Add(
			append([]core.Component{text.New("PAYMENT", props.Text{Size: 9, Style: fontstyle.Bold, Top: 4})}, lines(entries, 9)...)...,
		))
	}
	for _, block := range []struct{ title, body string }{
		{"NOTES", page.Notes},
		{"TERMS", page.Terms},
	} {
		if strings.TrimSpace(block.body) == "" {
			continue
		}
		n := strings.Count(block.body, "\n") + 1
		m.AddRow(blockHeight(n+1), col.New(12).Add(
			text.New(block.title, props.Text{Size: 9, Style: fontstyle.Bold, Top: 4}),
			text.New(block.body, small(9)),
		))
	}
	m.AddRow(10, col.New(12).Add(
		text.New(fmt.Sprintf("%s %s", page.Title, page.Number), props.Text{Size: 7, Top: 6, Align: align.Center}),
	))
}
