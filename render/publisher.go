package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	api "github.com/speedata/publisher-api"
)

//go:embed assets/layout.xml
var defaultLayout []byte

// PublisherRenderer renders invoices on a speedata publishing server. The
// layout is taken from <Basedir>/assets/userassets/<vendor>/ when the vendor
// has one, else from <Basedir>/assets/generic/layout.xml, else the built-in
// layout.
type PublisherRenderer struct {
	Username string
	Address  string
	Basedir  string
	Version  string
	logger   *slog.Logger
}

func NewPublisherRenderer(username, address, basedir string, logger *slog.Logger) *PublisherRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PublisherRenderer{
		Username: username,
		Address:  address,
		Basedir:  basedir,
		Version:  "5.1.25",
		logger:   logger,
	}
}

type dataXML struct {
	XMLName     xml.Name    `xml:"invoice"`
	Title       string      `xml:"title,attr"`
	Number      string      `xml:"number,attr"`
	Date        string      `xml:"date,attr"`
	Logo        string      `xml:"logo"`
	Vendor      []string    `xml:"vendor>line"`
	Customer    []string    `xml:"customer>line"`
	ShippedFrom string      `xml:"shippedfrom"`
	ShippingTo  string      `xml:"shippingto"`
	Columns     []string    `xml:"columns>column"`
	Rows        []xmlRow    `xml:"rows>row"`
	Totals      []TotalLine `xml:"totals>total"`
	Words       string      `xml:"words"`
	Payment     []Labeled   `xml:"payment>entry"`
	Notes       string      `xml:"notes"`
	Terms       string      `xml:"terms"`
}

type xmlRow struct {
	Cells []string `xml:"cell"`
}

const logoFilename = "logo.jpg"

// WriteDataXML writes the data file for the publisher layout.
func WriteDataXML(w io.Writer, doc Document) error {
	page := Layout(doc)
	data := dataXML{
		Title:       page.Title,
		Number:      page.Number,
		Date:        page.IssueDate,
		Vendor:      page.Vendor,
		Customer:    page.Customer,
		ShippedFrom: page.ShippedFrom,
		ShippingTo:  page.ShippingTo,
		Columns:     page.Columns,
		Totals:      page.Totals,
		Words:       page.AmountInWords,
		Payment:     page.Payment,
		Notes:       page.Notes,
		Terms:       page.Terms,
	}
	if len(doc.Logo) > 0 {
		data.Logo = logoFilename
	}
	for _, r := range page.Rows {
		data.Rows = append(data.Rows, xmlRow{Cells: r})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(data); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (r *PublisherRenderer) attachLayout(p *api.PublishRequest, vendorID string) error {
	reject := map[string]bool{
		".DS_Store":     true,
		"publisher.cfg": true,
		"data.xml":      true,
	}
	hasLayout := false
	userAssetsDir := filepath.Join(r.Basedir, "assets", "userassets", vendorID)
	files, err := os.ReadDir(userAssetsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for _, file := range files {
		if file.IsDir() || reject[file.Name()] {
			continue
		}
		fullPath := filepath.Join(userAssetsDir, file.Name())
		contents, err := os.ReadFile(fullPath)
		if err != nil {
			return err
		}
		if file.Name() == "layout.xml" {
			hasLayout = true
		}
		r.logger.Debug("attaching user asset", "file", fullPath)
		p.Files = append(p.Files, api.PublishFile{Filename: file.Name(), Contents: contents})
	}
	if hasLayout {
		return nil
	}

	layout := defaultLayout
	generic := filepath.Join(r.Basedir, "assets", "generic", "layout.xml")
	if b, err := os.ReadFile(generic); err == nil {
		layout = b
	}
	p.Files = append(p.Files, api.PublishFile{Filename: "layout.xml", Contents: layout})
	return nil
}

func (r *PublisherRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ep, err := api.NewEndpoint(r.Username, r.Address)
	if err != nil {
		return nil, invoicing.E(invoicing.KindRender, "publisher endpoint", err)
	}
	p := ep.NewPublishRequest()
	p.Version = r.Version

	var data bytes.Buffer
	if err = WriteDataXML(&data, doc); err != nil {
		return nil, invoicing.E(invoicing.KindRender, "data xml", err)
	}
	p.Files = append(p.Files, api.PublishFile{Filename: "data.xml", Contents: data.Bytes()})
	if len(doc.Logo) > 0 {
		p.Files = append(p.Files, api.PublishFile{Filename: logoFilename, Contents: doc.Logo})
	}
	if err = r.attachLayout(p, doc.Record.VendorID); err != nil {
		return nil, invoicing.E(invoicing.KindRender, "attach layout", err)
	}

	resp, err := ep.Publish(p)
	if err != nil {
		return nil, invoicing.E(invoicing.KindRender, "publish", err)
	}
	ps, err := resp.Wait()
	if err != nil {
		return nil, invoicing.E(invoicing.KindRender, "wait for publisher", err)
	}
	if ps.Errors > 0 {
		r.logger.Error("PDF generation done", "invoice_id", doc.Record.InvoiceID, "errors", ps.Errors, "finishedAt", ps.Finished.Format(time.Stamp))
	} else {
		r.logger.Debug("PDF generation done", "invoice_id", doc.Record.InvoiceID, "errors", ps.Errors, "finishedAt", ps.Finished.Format(time.Stamp))
	}
	for _, e := range ps.Errormessages {
		r.logger.Error("error during PDF generation", "message", e.Error)
	}
	if ps.Errors > 0 {
		return nil, invoicing.E(invoicing.KindRender, "publish", fmt.Errorf("publisher reported %d errors", ps.Errors))
	}

	var pdf bytes.Buffer
	if err = resp.GetPDF(&pdf); err != nil {
		return nil, invoicing.E(invoicing.KindRender, "fetch pdf", err)
	}
	return pdf.Bytes(), nil
}
