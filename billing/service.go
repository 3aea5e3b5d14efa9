// Package billing runs the invoice flows: preparing and updating invoices,
// downloads, sending by mail, e-invoice export and template selection.
//
// Every flow reads the vendor's plan fresh through the gate, persists only
// complete records and records history on a best-effort basis. Errors are
// *invoicing.Error values so the HTTP layer can map them by kind.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/mail"
	"github.com/billingcat/invoicedesk/model"
	"github.com/billingcat/invoicedesk/render"
	"gorm.io/gorm"
)

// Store is the persistence the flows need.
type Store interface {
	GetVendor(ctx context.Context, vendorID string) (*model.Vendor, error)
	UpdateVendorWebsite(ctx context.Context, vendorID, website string) error
	GetCustomer(ctx context.Context, vendorID, customerID string) (*model.Customer, error)
	GetTemplate(ctx context.Context, vendorID, templateID string) (*model.Template, error)
	SaveTemplate(ctx context.Context, t *model.Template) error
	CreateInvoice(ctx context.Context, rec invoicing.Record) (*model.Invoice, error)
	UpdateInvoice(ctx context.Context, rec invoicing.Record) (*model.Invoice, error)
	GetInvoice(ctx context.Context, vendorID, invoiceID string) (*model.Invoice, error)
}

// ImageLoader returns stored profile images.
type ImageLoader interface {
	LoadImage(ctx context.Context, key string) ([]byte, error)
}

// Service wires the invoice flows to their collaborators.
type Service struct {
	store    Store
	gate     *invoicing.Gate
	history  *invoicing.Emitter
	renderer render.Renderer
	mailer   mail.Sender
	images   ImageLoader
	logger   *slog.Logger

	// PreviewDPI is the resolution of PNG previews.
	PreviewDPI float64
}

// NewService returns a service. images may be nil, then PDFs are rendered
// without logo.
func NewService(store Store, gate *invoicing.Gate, history *invoicing.Emitter, renderer render.Renderer, mailer mail.Sender, images ImageLoader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		gate:       gate,
		history:    history,
		renderer:   renderer,
		mailer:     mailer,
		images:     images,
		logger:     logger,
		PreviewDPI: 50,
	}
}

// Result is a saved invoice plus a warning for the editor, if any.
type Result struct {
	Invoice *model.Invoice `json:"invoice"`
	Warning string         `json:"warning,omitempty"`
}

func persistence(op string, err error) error {
	var e *invoicing.Error
	if errors.As(err, &e) {
		return err
	}
	return invoicing.E(invoicing.KindPersistence, op, err)
}

func fieldError(op, field, msg string) error {
	return &invoicing.Error{
		Kind:   invoicing.KindValidation,
		Op:     op,
		Fields: map[string]string{field: msg},
	}
}

// PreviewTotals computes the live totals of the editor. It never fails.
func (s *Service) PreviewTotals(state invoicing.EditorState) invoicing.Totals {
	return invoicing.PreviewTotals(state)
}

// assemble runs the gate and the assembler for state. The vendor and the
// plan are read fresh.
func (s *Service) assemble(ctx context.Context, op, vendorID string, state invoicing.EditorState) (invoicing.Record, *model.Vendor, string, error) {
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return invoicing.Record{}, nil, "", persistence(op, err)
	}

	if err := s.resolveTemplate(ctx, op, vendorID, &state); err != nil {
		return invoicing.Record{}, nil, "", err
	}

	var warning string
	if tt, err := invoicing.ParseTemplateType(state.TemplateType); err == nil {
		vis, w, err := s.gate.Enforce(ctx, vendorID, tt, state.Visibility)
		if err != nil {
			if invoicing.KindOf(err) == invoicing.KindPlanGate {
				s.logger.WarnContext(ctx, "premium template refused", "vendor_id", vendorID, "template_type", string(tt))
			}
			return invoicing.Record{}, nil, "", err
		}
		state.Visibility = vis
		warning = w
	}

	var snapshot invoicing.CustomerSnapshot
	if id := strings.TrimSpace(state.CustomerID); id != "" {
		customer, err := s.store.GetCustomer(ctx, vendorID, id)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return invoicing.Record{}, nil, "", fieldError(op, "customerId", "unknown customer")
		case err != nil:
			return invoicing.Record{}, nil, "", persistence(op, err)
		}
		snapshot = customer.Snapshot()
	}

	rec, err := invoicing.Assemble(state, vendor.Snapshot(), snapshot)
	if err != nil {
		return invoicing.Record{}, nil, "", err
	}
	return rec, vendor, warning, nil
}

// resolveTemplate looks up the template id of state. The type always comes
// from the stored template so the gate judges what is actually referenced.
func (s *Service) resolveTemplate(ctx context.Context, op, vendorID string, state *invoicing.EditorState) error {
	id := strings.TrimSpace(state.TemplateID)
	if id == "" {
		return nil
	}
	tpl, err := s.store.GetTemplate(ctx, vendorID, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fieldError(op, "templateId", "unknown template")
	case err != nil:
		return persistence(op, err)
	}
	if typ := strings.TrimSpace(state.TemplateType); typ != "" && typ != string(tpl.TemplateType) {
		return fieldError(op, "templateType", "does not match the template")
	}
	state.TemplateID = tpl.TemplateID
	state.TemplateType = string(tpl.TemplateType)
	return nil
}

// Prepare validates the editor state and stores a new invoice.
func (s *Service) Prepare(ctx context.Context, vendorID string, state invoicing.EditorState) (*Result, error) {
	rec, vendor, warning, err := s.assemble(ctx, "prepare invoice", vendorID, state)
	if err != nil {
		return nil, err
	}
	rec.InvoiceID = invoicing.GenerateID("inv")

	inv, err := s.store.CreateInvoice(ctx, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "cannot store invoice", "vendor_id", vendorID, "error", err)
		return nil, persistence("prepare invoice", err)
	}

	if website, ok := invoicing.WebsiteChange(state, vendor.Snapshot()); ok {
		if err := s.store.UpdateVendorWebsite(ctx, vendorID, website); err != nil {
			s.logger.ErrorContext(ctx, "cannot update vendor website", "vendor_id", vendorID, "error", err)
		}
	}

	_ = s.history.Emit(ctx, inv.InvoiceID, vendorID, inv.CustomerID, invoicing.ActionCreated, map[string]any{
		"number":     inv.Number,
		"grandTotal": invoicing.Money(inv.GrandTotal),
	})
	return &Result{Invoice: inv, Warning: warning}, nil
}

// Update replaces the content of an existing invoice. Id, number and
// creation time stay.
func (s *Service) Update(ctx context.Context, vendorID, invoiceID string, state invoicing.EditorState) (*Result, error) {
	before, err := s.store.GetInvoice(ctx, vendorID, invoiceID)
	if err != nil {
		return nil, persistence("update invoice", err)
	}
	rec, vendor, warning, err := s.assemble(ctx, "update invoice", vendorID, state)
	if err != nil {
		return nil, err
	}
	rec.InvoiceID = invoiceID

	inv, err := s.store.UpdateInvoice(ctx, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "cannot update invoice", "invoice_id", invoiceID, "error", err)
		return nil, persistence("update invoice", err)
	}

	if website, ok := invoicing.WebsiteChange(state, vendor.Snapshot()); ok {
		if err := s.store.UpdateVendorWebsite(ctx, vendorID, website); err != nil {
			s.logger.ErrorContext(ctx, "cannot update vendor website", "vendor_id", vendorID, "error", err)
		}
	}

	_ = s.history.Emit(ctx, invoiceID, vendorID, inv.CustomerID, invoicing.ActionUpdated, map[string]any{
		"fields": invoicing.ChangedFields(before.Record(), rec),
	})
	return &Result{Invoice: inv, Warning: warning}, nil
}

// Open loads an invoice for the editor. The template is checked against the
// current plan; a refused premium template is reported as a fallback
// selection, the stored invoice stays untouched.
func (s *Service) Open(ctx context.Context, vendorID, invoiceID string) (*model.Invoice, invoicing.Selection, error) {
	inv, err := s.store.GetInvoice(ctx, vendorID, invoiceID)
	if err != nil {
		return nil, invoicing.Selection{}, persistence("open invoice", err)
	}
	sel, err := s.gate.Select(ctx, vendorID, inv.TemplateType, inv.Visibility)
	if err != nil {
		return nil, invoicing.Selection{}, err
	}
	if sel.Rejected() {
		s.logger.InfoContext(ctx, "invoice opened with fallback template", "invoice_id", invoiceID, "template_type", string(inv.TemplateType))
	} else {
		sel.TemplateID = inv.TemplateID
		// the invoice keeps its frozen visibility, not the template default
		sel.Visibility = inv.Visibility
	}
	return inv, sel, nil
}

// document loads everything a renderer needs and checks the stored totals.
func (s *Service) document(ctx context.Context, op, vendorID, invoiceID string) (render.Document, *model.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, vendorID, invoiceID)
	if err != nil {
		return render.Document{}, nil, persistence(op, err)
	}
	rec := inv.Record()
	if err := rec.Verify(); err != nil {
		s.logger.ErrorContext(ctx, "stored totals do not match items", "invoice_id", invoiceID, "error", err)
		return render.Document{}, nil, invoicing.E(invoicing.KindRender, op, err)
	}
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return render.Document{}, nil, persistence(op, err)
	}

	doc := render.Document{
		Number:   inv.Number,
		Currency: inv.Currency,
		Record:   rec,
		Vendor: render.Vendor{
			BrandName:    vendor.BrandName,
			OwnerName:    vendor.OwnerName,
			Address:      vendor.Address,
			Telephone:    vendor.Telephone,
			Email:        vendor.Email,
			Website:      vendor.Website,
			BusinessCode: vendor.BusinessCode,
			Country:      vendor.Country,
		},
	}
	if inv.CustomerID != "" {
		// country is not part of the snapshot; a deleted customer just
		// leaves it empty
		if c, err := s.store.GetCustomer(ctx, vendorID, inv.CustomerID); err == nil {
			doc.CustomerCountry = c.Country
		}
	}
	if vendor.ImageKey != "" && s.images != nil {
		logo, err := s.images.LoadImage(ctx, vendor.ImageKey)
		if err != nil {
			s.logger.WarnContext(ctx, "profile image not available", "vendor_id", vendorID, "error", err)
		} else {
			doc.Logo = logo
		}
	}
	return doc, inv, nil
}

func (s *Service) renderPDF(ctx context.Context, op string, doc render.Document) ([]byte, error) {
	pdf, err := s.renderer.Render(ctx, doc)
	if err != nil {
		s.logger.ErrorContext(ctx, "cannot render invoice", "invoice_id", doc.Record.InvoiceID, "error", err)
		if invoicing.KindOf(err) == invoicing.KindRender {
			return nil, err
		}
		return nil, invoicing.E(invoicing.KindRender, op, err)
	}
	return pdf, nil
}

// File is a rendered document.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download renders the invoice PDF and records the download.
func (s *Service) Download(ctx context.Context, vendorID, invoiceID string) (*File, error) {
	doc, inv, err := s.document(ctx, "download invoice", vendorID, invoiceID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderPDF(ctx, "download invoice", doc)
	if err != nil {
		return nil, err
	}
	_ = s.history.Emit(ctx, invoiceID, vendorID, inv.CustomerID, invoicing.ActionDownloaded, nil)
	return &File{Filename: doc.Filename(), ContentType: "application/pdf", Data: pdf}, nil
}

// Preview renders the first page of the invoice as PNG. Previews are not
// recorded in the history.
func (s *Service) Preview(ctx context.Context, vendorID, invoiceID string) (*File, error) {
	doc, _, err := s.document(ctx, "preview invoice", vendorID, invoiceID)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderPDF(ctx, "preview invoice", doc)
	if err != nil {
		return nil, err
	}
	png, err := render.PreviewPNG(pdf, s.PreviewDPI)
	if err != nil {
		return nil, invoicing.E(invoicing.KindRender, "preview invoice", err)
	}
	return &File{Filename: strings.TrimSuffix(doc.Filename(), ".pdf") + ".png", ContentType: "image/png", Data: png}, nil
}

// SendOptions override the defaults of an invoice mail.
type SendOptions struct {
	To      string `json:"to" validate:"omitempty,email"`
	Subject string `json:"subject" validate:"max=200"`
	Body    string `json:"body" validate:"max=10000"`
}

// Send renders the invoice and mails it. The invoice is already saved, so a
// delivery failure only withholds the history entry.
func (s *Service) Send(ctx context.Context, vendorID, invoiceID string, opts SendOptions) error {
	const op = "send invoice"
	doc, inv, err := s.document(ctx, op, vendorID, invoiceID)
	if err != nil {
		return err
	}
	to := strings.TrimSpace(opts.To)
	if to == "" {
		to = inv.Customer.Email
	}
	if to == "" {
		return fieldError(op, "to", "the customer has no email address")
	}
	subject := opts.Subject
	if subject == "" {
		subject = fmt.Sprintf("Invoice %s from %s", inv.Number, doc.Vendor.BrandName)
	}
	body := opts.Body
	if body == "" {
		body = fmt.Sprintf("Hello %s,\n\nplease find attached invoice %s over %s %s.\n\n%s",
			inv.Customer.Name, inv.Number, invoicing.Money(inv.GrandTotal), inv.Currency, doc.Vendor.BrandName)
	}

	pdf, err := s.renderPDF(ctx, op, doc)
	if err != nil {
		return err
	}
	msg := mail.Message{
		To:      to,
		ReplyTo: doc.Vendor.Email,
		Subject: subject,
		Body:    body,
		Attachments: []mail.Attachment{{
			Filename:    doc.Filename(),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "cannot send invoice", "invoice_id", invoiceID, "to", to, "error", err)
		if errors.Is(err, mail.ErrNoRecipient) {
			return fieldError(op, "to", "invalid email address")
		}
		return invoicing.E(invoicing.KindDelivery, op, err)
	}
	_ = s.history.Emit(ctx, invoiceID, vendorID, inv.CustomerID, invoicing.ActionSent, map[string]any{"to": to})
	return nil
}

// EInvoice returns the EN 16931 XML of the invoice together with non
// blocking findings.
func (s *Service) EInvoice(ctx context.Context, vendorID, invoiceID string) (*File, []model.InvoiceProblem, error) {
	const op = "e-invoice"
	doc, inv, err := s.document(ctx, op, vendorID, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, nil, persistence(op, err)
	}
	problems := inv.EInvoiceProblems(vendor)
	if model.HasErrors(problems) {
		fields := map[string]string{}
		for i, p := range problems {
			fields[fmt.Sprintf("einvoice[%d]", i)] = p.Message
		}
		return nil, problems, &invoicing.Error{Kind: invoicing.KindValidation, Op: op, Fields: fields}
	}
	data, err := render.EInvoiceXML(doc)
	if err != nil {
		return nil, problems, err
	}
	name := strings.TrimSuffix(doc.Filename(), ".pdf") + ".xml"
	return &File{Filename: name, ContentType: "application/xml", Data: data}, problems, nil
}

// SelectTemplate resolves a template id (or a built-in type name) for the
// editor, falling back to simple when the plan does not allow it.
func (s *Service) SelectTemplate(ctx context.Context, vendorID, templateID string) (invoicing.Selection, error) {
	tpl, err := s.store.GetTemplate(ctx, vendorID, templateID)
	if err != nil {
		return invoicing.Selection{}, persistence("select template", err)
	}
	sel, err := s.gate.Select(ctx, vendorID, tpl.TemplateType, tpl.Visibility)
	if err != nil {
		return sel, err
	}
	if sel.Rejected() {
		s.logger.InfoContext(ctx, "template selection fell back", "vendor_id", vendorID, "template_type", string(tpl.TemplateType))
		return sel, nil
	}
	sel.TemplateID = tpl.TemplateID
	return sel, nil
}

// SaveCustomTemplate creates (empty templateID) or updates a custom
// template. Only the keys switched on are stored.
func (s *Service) SaveCustomTemplate(ctx context.Context, vendorID, templateID, name string, vis invoicing.FieldVisibility) (*model.Template, error) {
	const op = "save template"
	if err := s.gate.Authorize(ctx, vendorID, invoicing.TemplateCustom); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fieldError(op, "name", "required")
	}
	tpl := &model.Template{
		TemplateID:   templateID,
		VendorID:     vendorID,
		Name:         name,
		TemplateType: invoicing.TemplateCustom,
		Visibility:   invoicing.FilterVisibleFields(vis, vis.Enabled()),
	}
	if err := s.store.SaveTemplate(ctx, tpl); err != nil {
		return nil, persistence(op, err)
	}
	return tpl, nil
}
