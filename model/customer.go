package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
)

// Customer is a business or person a vendor bills.
type Customer struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	CustomerID string `gorm:"size:40;uniqueIndex;not null"`
	VendorID   string `gorm:"size:40;index;not null"`
	Number     string // Kundennummer, used by %CN% in invoice numbers
	Name       string `gorm:"not null"`
	Email      string
	Address    string
	Phone      string // E.164
	TaxID      string
	Country    string // ISO alpha-2
}

// Snapshot is copied onto invoices at issue time.
func (c *Customer) Snapshot() invoicing.CustomerSnapshot {
	return invoicing.CustomerSnapshot{
		Name:    c.Name,
		Email:   c.Email,
		Address: c.Address,
		Phone:   c.Phone,
		TaxID:   c.TaxID,
	}
}

// CreateCustomer stores c for its vendor and assigns the public id.
func (s *Store) CreateCustomer(ctx context.Context, c *Customer) error {
	if c.VendorID == "" {
		return ErrNotAllowed
	}
	c.ID = 0
	c.CustomerID = invoicing.GenerateID("cus")
	c.Email = NormalizeEmail(c.Email)
	return s.db.WithContext(ctx).Create(c).Error
}

// UpdateCustomer saves c. The vendor of c must own the row.
func (s *Store) UpdateCustomer(ctx context.Context, c *Customer) error {
	c.Email = NormalizeEmail(c.Email)
	res := s.db.WithContext(ctx).Model(&Customer{}).
		Where("customer_id = ? AND vendor_id = ?", c.CustomerID, c.VendorID).
		Select("number", "name", "email", "address", "phone", "tax_id", "country").
		Updates(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update customer %s: %w", c.CustomerID, ErrNotAllowed)
	}
	return nil
}

// GetCustomer loads one customer of vendorID.
func (s *Store) GetCustomer(ctx context.Context, vendorID, customerID string) (*Customer, error) {
	var c Customer
	if err := s.db.WithContext(ctx).
		Where("vendor_id = ? AND customer_id = ?", vendorID, customerID).
		First(&c).Error; err != nil {
		return nil, fmt.Errorf("load customer %s: %w", customerID, err)
	}
	return &c, nil
}

// DeleteCustomer removes a customer. Invoices keep their snapshot.
func (s *Store) DeleteCustomer(ctx context.Context, vendorID, customerID string) error {
	res := s.db.WithContext(ctx).
		Where("vendor_id = ? AND customer_id = ?", vendorID, customerID).
		Delete(&Customer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete customer %s: %w", customerID, ErrNotAllowed)
	}
	return nil
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListCustomers returns a page of customers matching search in name or
// email, plus the total count.
func (s *Store) ListCustomers(ctx context.Context, vendorID, search string, offset, limit int) ([]Customer, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&Customer{}).Where("vendor_id = ?", vendorID)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + likeEscape(search) + "%"
		switch s.db.Dialector.Name() {
		case "postgres":
			q = q.Where("(name ILIKE ? ESCAPE '\\' OR email ILIKE ? ESCAPE '\\')", like, like)
		default: // sqlite
			q = q.Where("(LOWER(name) LIKE LOWER(?) ESCAPE '\\' OR LOWER(email) LIKE LOWER(?) ESCAPE '\\')", like, like)
		}
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var customers []Customer
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// CustomerNamesByIDs maps customer ids to names for list views.
func (s *Store) CustomerNamesByIDs(ctx context.Context, vendorID string, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	type row struct {
		CustomerID string
		Name       string
	}
	var rs []row
	if err := s.db.WithContext(ctx).
		Table("customers").
		Select("customer_id, name").
		Where("vendor_id = ? AND customer_id IN ?", vendorID, ids).
		Scan(&rs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rs))
	for _, r := range rs {
		out[r.CustomerID] = r.Name
	}
	return out, nil
}
