// controller/api_invoice.go
package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/billingcat/invoicedesk/billing"
	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
)

// ---- DTOs für Invoices ----
type APIInvoice struct {
	ID           string                 `json:"id" xml:"id,attr"`
	Number       string                 `json:"number" xml:"number"`
	TemplateType invoicing.TemplateType `json:"templateType" xml:"template_type"`
	CustomerID   string                 `json:"customerId,omitempty" xml:"customer_id,omitempty"`
	CustomerName string                 `json:"customerName,omitempty" xml:"customer_name,omitempty"`
	Currency     string                 `json:"currency" xml:"currency"`
	IssueDate    string                 `json:"issueDate" xml:"issue_date"`
	Subtotal     string                 `json:"subtotal" xml:"subtotal"`
	GrandTotal   string                 `json:"grandTotal" xml:"grand_total"`
	CreatedAt    time.Time              `json:"createdAt" xml:"created_at"`
	UpdatedAt    time.Time              `json:"updatedAt" xml:"updated_at"`
}

type APIInvoiceList struct {
	XMLName    struct{}     `json:"-" xml:"invoices"`
	Items      []APIInvoice `json:"items" xml:"invoice"`
	NextCursor string       `json:"next_cursor,omitempty" xml:"next_cursor,omitempty"`
}

// APIInvoiceDetail is one invoice with everything the editor needs.
// Selection is the template as the current plan allows it.
type APIInvoiceDetail struct {
	XMLName struct{} `json:"-" xml:"invoice"`
	APIInvoice
	Record    invoicing.Record    `json:"record" xml:"record"`
	Totals    invoicing.Totals    `json:"totals" xml:"totals"`
	Selection invoicing.Selection `json:"selection" xml:"selection"`
	Warning   string              `json:"warning,omitempty" xml:"warning,omitempty"`
}

type invoiceListQuery struct {
	CustomerID string `query:"customer"`
	Limit      int    `query:"limit"`
	Cursor     string `query:"cursor"`
	Sort       string `query:"sort"`
}

func toAPIInvoice(inv *model.Invoice, customerName string) APIInvoice {
	if customerName == "" {
		customerName = inv.Customer.Name
	}
	return APIInvoice{
		ID:           inv.InvoiceID,
		Number:       inv.Number,
		TemplateType: inv.TemplateType,
		CustomerID:   inv.CustomerID,
		CustomerName: customerName,
		Currency:     inv.Currency,
		IssueDate:    inv.IssueDate.Format("2006-01-02"),
		Subtotal:     invoicing.Money(inv.Subtotal),
		GrandTotal:   invoicing.Money(inv.GrandTotal),
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
	}
}

func toAPIInvoiceDetail(inv *model.Invoice, sel invoicing.Selection, warning string) APIInvoiceDetail {
	rec := inv.Record()
	return APIInvoiceDetail{
		APIInvoice: toAPIInvoice(inv, ""),
		Record:     rec,
		Totals:     rec.Totals(),
		Selection:  sel,
		Warning:    warning,
	}
}

// apiInvoiceList handles GET /invoices
func (ctrl *controller) apiInvoiceList(c echo.Context) error {
	ctx := c.Request().Context()
	vid := vendorID(c)
	var q invoiceListQuery
	if err := c.Bind(&q); err != nil {
		return respond(c, http.StatusBadRequest, apiError("bad_query", "invalid query params"))
	}
	invs, next, err := ctrl.model.ListInvoices(ctx, vid, model.InvoiceListQuery{
		CustomerID: q.CustomerID,
		Limit:      q.Limit,
		Cursor:     q.Cursor,
		Sort:       q.Sort,
	})
	if err != nil {
		return respond(c, http.StatusInternalServerError, apiError("db_error", "could not load invoices"))
	}

	ids := make([]string, 0, len(invs))
	for _, inv := range invs {
		if inv.CustomerID != "" {
			ids = append(ids, inv.CustomerID)
		}
	}
	// current names; deleted customers fall back to the snapshot
	names, err := ctrl.model.CustomerNamesByIDs(ctx, vid, ids)
	if err != nil {
		requestLogger(c).Warn("cannot load customer names", "error", err)
		names = map[string]string{}
	}

	items := make([]APIInvoice, len(invs))
	for i := range invs {
		items[i] = toAPIInvoice(&invs[i], names[invs[i].CustomerID])
	}
	return respond(c, http.StatusOK, APIInvoiceList{Items: items, NextCursor: next})
}

// apiInvoiceGet handles GET /invoices/:id
func (ctrl *controller) apiInvoiceGet(c echo.Context) error {
	inv, sel, err := ctrl.billing.Open(c.Request().Context(), vendorID(c), c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set("ETag",
		`W/"inv-`+inv.InvoiceID+`-`+strconv.FormatInt(inv.UpdatedAt.Unix(), 10)+`"`)
	return respond(c, http.StatusOK, toAPIInvoiceDetail(inv, sel, sel.Warning))
}

// apiInvoiceCreate handles POST /invoices with a JSON body or a form post.
func (ctrl *controller) apiInvoiceCreate(c echo.Context) error {
	state, err := bindEditorState(c)
	if err != nil {
		return err
	}
	res, err := ctrl.billing.Prepare(c.Request().Context(), vendorID(c), state)
	if err != nil {
		return err
	}
	sel := invoicing.Selection{
		Requested:  res.Invoice.TemplateType,
		Effective:  res.Invoice.TemplateType,
		TemplateID: res.Invoice.TemplateID,
		Visibility: res.Invoice.Visibility,
	}
	c.Response().Header().Set("Location", c.Path()+"/"+res.Invoice.InvoiceID)
	return respond(c, http.StatusCreated, toAPIInvoiceDetail(res.Invoice, sel, res.Warning))
}

// apiInvoiceUpdate handles PUT /invoices/:id
func (ctrl *controller) apiInvoiceUpdate(c echo.Context) error {
	state, err := bindEditorState(c)
	if err != nil {
		return err
	}
	res, err := ctrl.billing.Update(c.Request().Context(), vendorID(c), c.Param("id"), state)
	if err != nil {
		return err
	}
	sel := invoicing.Selection{
		Requested:  res.Invoice.TemplateType,
		Effective:  res.Invoice.TemplateType,
		TemplateID: res.Invoice.TemplateID,
		Visibility: res.Invoice.Visibility,
	}
	return respond(c, http.StatusOK, toAPIInvoiceDetail(res.Invoice, sel, res.Warning))
}

// apiInvoiceDelete handles DELETE /invoices/:id
func (ctrl *controller) apiInvoiceDelete(c echo.Context) error {
	if err := ctrl.model.DeleteInvoice(c.Request().Context(), vendorID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type totalsResp struct {
	Totals     invoicing.Totals `json:"totals"`
	Subtotal   string           `json:"subtotal"`
	GrandTotal string           `json:"grandTotal"`
	InWords    string           `json:"inWords,omitempty"`
}

// apiInvoiceTotals handles POST /invoices/totals. It is the live preview of
// the editor and never fails on bad numbers.
func (ctrl *controller) apiInvoiceTotals(c echo.Context) error {
	state, err := bindEditorState(c)
	if err != nil {
		return err
	}
	t := ctrl.billing.PreviewTotals(state)
	out := totalsResp{
		Totals:     t,
		Subtotal:   invoicing.Money(t.Subtotal),
		GrandTotal: invoicing.Money(t.GrandTotal),
	}
	if state.Visibility.GrandTotalInWords {
		out.InWords = invoicing.NumberToWords(t.GrandTotal) + " " + ctrl.model.Config.Currency
	}
	return c.JSON(http.StatusOK, out)
}

// apiInvoicePDF handles GET /invoices/:id/pdf
func (ctrl *controller) apiInvoicePDF(c echo.Context) error {
	f, err := ctrl.billing.Download(c.Request().Context(), vendorID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return attachment(c, f.Filename, f.ContentType, f.Data)
}

// apiInvoicePreview handles GET /invoices/:id/preview.png
func (ctrl *controller) apiInvoicePreview(c echo.Context) error {
	f, err := ctrl.billing.Preview(c.Request().Context(), vendorID(c), c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, f.ContentType, f.Data)
}

// apiInvoiceEInvoice handles GET /invoices/:id/einvoice.xml. Non-blocking
// findings go into X-EInvoice-Warnings.
func (ctrl *controller) apiInvoiceEInvoice(c echo.Context) error {
	f, problems, err := ctrl.billing.EInvoice(c.Request().Context(), vendorID(c), c.Param("id"))
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		c.Response().Header().Set("X-EInvoice-Warnings", strconv.Itoa(len(problems)))
	}
	return attachment(c, f.Filename, f.ContentType, f.Data)
}

// apiInvoiceSend handles POST /invoices/:id/send
func (ctrl *controller) apiInvoiceSend(c echo.Context) error {
	var opts billing.SendOptions
	if err := bindValid(c, &opts); err != nil {
		return err
	}
	if err := ctrl.billing.Send(c.Request().Context(), vendorID(c), c.Param("id"), opts); err != nil {
		return err
	}
	return respond(c, http.StatusOK, messageResp{Message: "The invoice has been sent."})
}
