package model

import (
	"context"
	"fmt"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Invoice is the persisted invoice record. Visibility, customer and payment
// are flattened into show_*, customer_* and payment_* columns.
type Invoice struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	InvoiceID    string                 `gorm:"size:40;uniqueIndex;not null"`
	VendorID     string                 `gorm:"size:40;index;not null"`
	CustomerID   string                 `gorm:"size:40;index"`
	TemplateID   string                 `gorm:"size:40"`
	TemplateType invoicing.TemplateType `gorm:"size:32;not null"`
	Number       string                 `gorm:"index"`
	Counter      int
	Currency     string
	IssueDate    time.Time

	Customer    invoicing.CustomerSnapshot `gorm:"embedded;embeddedPrefix:customer_"`
	ShippedFrom string
	ShippingTo  string

	ShippingCharge         decimal.Decimal
	InvoiceDiscountPercent decimal.Decimal
	InvoiceTaxPercent      decimal.Decimal
	Cutoff                 decimal.Decimal

	Visibility invoicing.FieldVisibility `gorm:"embedded;embeddedPrefix:show_"`
	Subtotal   decimal.Decimal
	GrandTotal decimal.Decimal

	Payment invoicing.PaymentDetails `gorm:"embedded;embeddedPrefix:payment_"`
	Notes   string
	Terms   string

	Items []InvoiceItem `gorm:"foreignKey:InvoiceRef;constraint:OnDelete:CASCADE"`
}

// InvoiceItem contains one line in the invoice
type InvoiceItem struct {
	ID              uint `gorm:"primaryKey"`
	InvoiceRef      uint `gorm:"index;not null"`
	Position        int
	Description     string
	Measurements    string
	Quantity        int64
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// Record converts the row into the form the core computes with.
func (inv *Invoice) Record() invoicing.Record {
	items := make([]invoicing.LineItem, len(inv.Items))
	for i, it := range inv.Items {
		items[i] = invoicing.LineItem{
			Description:     it.Description,
			Measurements:    it.Measurements,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			TaxPercent:      it.TaxPercent,
		}
	}
	return invoicing.Record{
		InvoiceID:    inv.InvoiceID,
		TemplateID:   inv.TemplateID,
		TemplateType: inv.TemplateType,
		VendorID:     inv.VendorID,
		CustomerID:   inv.CustomerID,
		IssueDate:    inv.IssueDate,
		Customer:     inv.Customer,
		ShippedFrom:  inv.ShippedFrom,
		ShippingTo:   inv.ShippingTo,
		Items:        items,
		Charges: invoicing.Charges{
			ShippingCharge:         inv.ShippingCharge,
			InvoiceDiscountPercent: inv.InvoiceDiscountPercent,
			InvoiceTaxPercent:      inv.InvoiceTaxPercent,
			Cutoff:                 inv.Cutoff,
		},
		Visibility: inv.Visibility,
		Subtotal:   inv.Subtotal,
		GrandTotal: inv.GrandTotal,
		Payment:    inv.Payment,
		Notes:      inv.Notes,
		Terms:      inv.Terms,
	}
}

// applyRecord copies every field of rec onto inv. Identity, number and
// timestamps are left alone.
func (inv *Invoice) applyRecord(rec invoicing.Record) {
	inv.VendorID = rec.VendorID
	inv.CustomerID = rec.CustomerID
	inv.TemplateID = rec.TemplateID
	inv.TemplateType = rec.TemplateType
	inv.IssueDate = rec.IssueDate
	inv.Customer = rec.Customer
	inv.ShippedFrom = rec.ShippedFrom
	inv.ShippingTo = rec.ShippingTo
	inv.ShippingCharge = rec.Charges.ShippingCharge
	inv.InvoiceDiscountPercent = rec.Charges.InvoiceDiscountPercent
	inv.InvoiceTaxPercent = rec.Charges.InvoiceTaxPercent
	inv.Cutoff = rec.Charges.Cutoff
	inv.Visibility = rec.Visibility
	inv.Subtotal = rec.Subtotal
	inv.GrandTotal = rec.GrandTotal
	inv.Payment = rec.Payment
	inv.Notes = rec.Notes
	inv.Terms = rec.Terms
	inv.Items = make([]InvoiceItem, len(rec.Items))
	for i, it := range rec.Items {
		inv.Items[i] = InvoiceItem{
			Position:        i + 1,
			Description:     it.Description,
			Measurements:    it.Measurements,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			TaxPercent:      it.TaxPercent,
		}
	}
}

// replaceItems deletes the old rows and writes inv.Items.
func replaceItems(tx *gorm.DB, inv *Invoice) error {
	if err := tx.Where("invoice_ref = ?", inv.ID).Delete(&InvoiceItem{}).Error; err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if len(inv.Items) == 0 {
		return nil
	}
	for i := range inv.Items {
		inv.Items[i].ID = 0 // wichtig!
		inv.Items[i].InvoiceRef = inv.ID
	}
	if err := tx.Omit("ID").Create(&inv.Items).Error; err != nil {
		return fmt.Errorf("create items: %w", err)
	}
	return nil
}

// CreateInvoice persists rec with a new human-readable number. rec.InvoiceID
// must be set. Everything happens in one transaction.
func (s *Store) CreateInvoice(ctx context.Context, rec invoicing.Record) (*Invoice, error) {
	if rec.InvoiceID == "" {
		return nil, fmt.Errorf("create invoice: missing invoice id")
	}
	inv := &Invoice{InvoiceID: rec.InvoiceID, Currency: s.Config.Currency}
	inv.applyRecord(rec)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customerNumber string
		if err := tx.Model(&Customer{}).Select("number").
			Where("vendor_id = ? AND customer_id = ?", rec.VendorID, rec.CustomerID).
			Scan(&customerNumber).Error; err != nil {
			return err
		}
		counter, number, err := nextInvoiceNumber(tx, rec.VendorID, customerNumber, rec.IssueDate)
		if err != nil {
			return err
		}
		inv.Counter = counter
		inv.Number = number
		if err := tx.Omit(clause.Associations).Create(inv).Error; err != nil {
			return err
		}
		return replaceItems(tx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice %s: %w", rec.InvoiceID, err)
	}
	return inv, nil
}

// UpdateInvoice overwrites the invoice rec.InvoiceID with rec and fully
// replaces its items (hard delete + recreate). Id, number and creation time
// are kept.
func (s *Store) UpdateInvoice(ctx context.Context, rec invoicing.Record) (*Invoice, error) {
	var inv Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("vendor_id = ? AND invoice_id = ?", rec.VendorID, rec.InvoiceID).
			First(&inv).Error; err != nil {
			return err
		}
		inv.applyRecord(rec)
		if err := tx.Omit(clause.Associations).Save(&inv).Error; err != nil {
			return err
		}
		return replaceItems(tx, &inv)
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice %s: %w", rec.InvoiceID, err)
	}
	return &inv, nil
}

// GetInvoice loads an invoice with its items.
func (s *Store) GetInvoice(ctx context.Context, vendorID, invoiceID string) (*Invoice, error) {
	var inv Invoice
	err := s.db.WithContext(ctx).
		Where("vendor_id = ? AND invoice_id = ?", vendorID, invoiceID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&inv).Error
	if err != nil {
		return nil, fmt.Errorf("load invoice %s: %w", invoiceID, err)
	}
	return &inv, nil
}

// DeleteInvoice removes an invoice and all its items. History entries stay.
func (s *Store) DeleteInvoice(ctx context.Context, vendorID, invoiceID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		if err := tx.Where("vendor_id = ? AND invoice_id = ?", vendorID, invoiceID).
			First(&inv).Error; err != nil {
			return fmt.Errorf("delete invoice %s: %w", invoiceID, err)
		}
		if err := tx.Where("invoice_ref = ?", inv.ID).Delete(&InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&inv).Error
	})
}
