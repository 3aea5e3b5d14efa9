package controller

import (
	"bytes"
	"fmt"
	"time"

	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
)

const (
	sheetInvoices = "Invoices"
	sheetItems    = "Items"
	mimeXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// invoiceExportXLSX handles GET /invoices/export.xlsx
func (ctrl *controller) invoiceExportXLSX(c echo.Context) error {
	invs, err := ctrl.model.AllInvoices(c.Request().Context(), vendorID(c))
	if err != nil {
		return fmt.Errorf("cannot load invoices for export: %w", err)
	}
	data, err := invoicesWorkbook(invs)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("2006-01-02"))
	return attachment(c, name, mimeXLSX, data)
}

// invoicesWorkbook writes one sheet with the invoice headers and one with
// all items. Amounts are numbers so that they sum in a spreadsheet.
func invoicesWorkbook(invs []model.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetInvoices); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetItems); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := func(sheet string, cols []any) error {
		if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(cols), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
		return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	if err := header(sheetInvoices, []any{"Number", "Date", "Customer", "Template", "Currency", "Subtotal", "Shipping", "Discount %", "Tax %", "Cutoff", "Grand total"}); err != nil {
		return nil, err
	}
	if err := header(sheetItems, []any{"Invoice", "Pos", "Description", "Measurements", "Quantity", "Unit price", "Discount %", "Tax %"}); err != nil {
		return nil, err
	}

	itemRow := 2
	for i, inv := range invs {
		row := []any{
			inv.Number,
			inv.IssueDate.Format("2006-01-02"),
			inv.Customer.Name,
			string(inv.TemplateType),
			inv.Currency,
			inv.Subtotal.Round(2).InexactFloat64(),
			inv.ShippingCharge.InexactFloat64(),
			inv.InvoiceDiscountPercent.InexactFloat64(),
			inv.InvoiceTaxPercent.InexactFloat64(),
			inv.Cutoff.InexactFloat64(),
			inv.GrandTotal.Round(2).InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetInvoices, cell, &row); err != nil {
			return nil, err
		}
		for _, it := range inv.Items {
			line := []any{
				inv.Number,
				it.Position + 1,
				it.Description,
				it.Measurements,
				it.Quantity,
				it.UnitPrice.InexactFloat64(),
				it.DiscountPercent.InexactFloat64(),
				it.TaxPercent.InexactFloat64(),
			}
			cell, err := excelize.CoordinatesToCellName(1, itemRow)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheetItems, cell, &line); err != nil {
				return nil, err
			}
			itemRow++
		}
	}
	if err := f.SetColWidth(sheetInvoices, "A", "C", 24); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetItems, "C", "C", 40); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("cannot write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
