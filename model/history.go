package model

import (
	"context"
	"strconv"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// History is one append-only audit entry for an invoice.
type History struct {
	ID         uint             `gorm:"primaryKey"`
	CreatedAt  time.Time        `gorm:"index"`
	InvoiceID  string           `gorm:"size:40;index"`
	VendorID   string           `gorm:"size:40;index;not null"`
	CustomerID string           `gorm:"size:40"`
	Action     invoicing.Action `gorm:"size:20;not null"`
	Details    datatypes.JSONMap
	At         time.Time `gorm:"not null"`
}

func (History) TableName() string { return "history" }

func (*History) BeforeUpdate(tx *gorm.DB) error { return ErrHistoryImmutable }
func (*History) BeforeDelete(tx *gorm.DB) error { return ErrHistoryImmutable }

// AppendHistory stores ev.
func (s *Store) AppendHistory(ctx context.Context, ev invoicing.Event) error {
	h := History{
		InvoiceID:  ev.InvoiceID,
		VendorID:   ev.VendorID,
		CustomerID: ev.CustomerID,
		Action:     ev.Action,
		Details:    datatypes.JSONMap(ev.Details),
		At:         ev.At,
	}
	if h.At.IsZero() {
		h.At = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(&h).Error
}

// HistoryQuery filters the history list.
type HistoryQuery struct {
	InvoiceID string
	Limit     int
	Cursor    string
}

// ListHistory returns the vendor's history newest first with an offset
// cursor.
func (s *Store) ListHistory(ctx context.Context, vendorID string, q HistoryQuery) ([]History, string, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	offset := 0
	if q.Cursor != "" {
		if n, err := strconv.Atoi(q.Cursor); err == nil && n >= 0 {
			offset = n
		}
	}
	db := s.db.WithContext(ctx).Where("vendor_id = ?", vendorID)
	if q.InvoiceID != "" {
		db = db.Where("invoice_id = ?", q.InvoiceID)
	}
	var rows []History
	if err := db.Order("at desc").Order("id desc").
		Offset(offset).Limit(q.Limit + 1).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	next := ""
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
		next = strconv.Itoa(offset + q.Limit)
	}
	return rows, next, nil
}
