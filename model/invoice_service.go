// model/invoice_service.go
package model

import (
	"context"
	"strconv"

	"gorm.io/gorm"
)

// InvoiceListQuery captures filter, paging, and sorting options for listing invoices.
type InvoiceListQuery struct {
	CustomerID string // Optional: restrict to a single customer
	Limit      int    // Page size (1–200); defaults to 50 when out of range
	Cursor     string // Simple offset cursor encoded as a string: "0", "50", ...
	Sort       string // Sort mode: "date_desc" (default), "date_asc", "created_desc"
	WithItems  bool   // Preload the line items
}

// ListInvoices returns a page of invoices for the given vendor along with the next cursor.
// Items are only loaded with q.WithItems.
//
// Paging model:
//   - Uses an offset-based cursor encoded as a string (q.Cursor).
//   - Fetches Limit+1 rows to determine if there is a next page; if so, trims to Limit and
//     returns nextCursor = offset + Limit (as string).
func (s *Store) ListInvoices(ctx context.Context, vendorID string, q InvoiceListQuery) (items []Invoice, nextCursor string, err error) {
	// Clamp/normalize limit
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}

	// Decode offset cursor
	offset := 0
	if q.Cursor != "" {
		if n, e := strconv.Atoi(q.Cursor); e == nil && n >= 0 {
			offset = n
		}
	}

	db := s.db.WithContext(ctx).Model(&Invoice{}).Where("vendor_id = ?", vendorID)
	if q.CustomerID != "" {
		db = db.Where("customer_id = ?", q.CustomerID)
	}
	if q.WithItems {
		db = db.Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") })
	}

	switch q.Sort {
	case "date_asc":
		db = db.Order("issue_date asc").Order("id asc")
	case "created_desc":
		db = db.Order("created_at desc")
	default:
		db = db.Order("issue_date desc").Order("id desc")
	}

	// Page fetch (limit+1 to compute "has next")
	var invs []Invoice
	if err = db.Offset(offset).Limit(q.Limit + 1).Find(&invs).Error; err != nil {
		return nil, "", err
	}

	if len(invs) > q.Limit {
		invs = invs[:q.Limit]
		nextCursor = strconv.Itoa(offset + q.Limit)
	}
	return invs, nextCursor, nil
}

// AllInvoices walks every page of the vendor's invoices, for exports.
func (s *Store) AllInvoices(ctx context.Context, vendorID string) ([]Invoice, error) {
	var out []Invoice
	q := InvoiceListQuery{Limit: 200, Sort: "date_asc", WithItems: true}
	for {
		page, next, err := s.ListInvoices(ctx, vendorID, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		q.Cursor = next
	}
}
