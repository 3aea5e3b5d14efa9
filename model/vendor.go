package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ===== Utilities =====

// NormalizeEmail lowercases and trims the email string
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var (
	ErrInvalidPassword  = errors.New("invalid password")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenDisabled    = errors.New("token disabled")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrCodeInvalid      = errors.New("code invalid")
	ErrTooManyAttempts  = errors.New("too many attempts")
	ErrAccountRevoked   = errors.New("account revoked")
	ErrNotVerified      = errors.New("email address not verified")
	ErrEmailTaken       = errors.New("email address already registered")
	ErrNotAllowed       = errors.New("not allowed")
	ErrHistoryImmutable = errors.New("history entries cannot be changed")
)

// Role of a vendor account.
type Role string

const (
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

// ===== Vendor =====

// Vendor is a tenant business account. The public id is VendorID; ID is
// internal.
type Vendor struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	VendorID     string `gorm:"size:40;uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"` // always stored lowercase
	Password     string `gorm:"not null"`
	BrandName    string
	OwnerName    string
	Address      string
	Telephone    string // E.164
	Website      string
	BusinessCode string // tax or registration id printed as company tax id
	Country      string // ISO alpha-2
	ImageKey     string

	Plan                  invoicing.Plan               `gorm:"size:20;not null;default:free"`
	SubscriptionStatus    invoicing.SubscriptionStatus `gorm:"size:20;not null;default:none"`
	SubscriptionExpiresAt *time.Time

	Verified    bool `gorm:"not null;default:false"`
	Role        Role `gorm:"size:20;not null;default:vendor"`
	RevokedAt   *time.Time
	LastLoginAt *time.Time

	InvoiceCounter       int `gorm:"not null;default:0"`
	InvoiceNumberPattern string
}

// Normalize email before saving
func (v *Vendor) BeforeSave(tx *gorm.DB) error {
	v.Email = NormalizeEmail(v.Email)
	if v.Role == "" {
		v.Role = RoleVendor
	}
	if v.Plan == "" {
		v.Plan = invoicing.PlanFree
	}
	if v.SubscriptionStatus == "" {
		v.SubscriptionStatus = invoicing.SubscriptionNone
	}
	return nil
}

// Revoked is true after an admin revoked the account.
func (v *Vendor) Revoked() bool { return v.RevokedAt != nil }

// IsAdmin reports the admin role.
func (v *Vendor) IsAdmin() bool { return v.Role == RoleAdmin }

// PlanStateAt is the plan state as the gate sees it at now. An active
// subscription past its expiry counts as expired.
func (v *Vendor) PlanStateAt(now time.Time) invoicing.PlanState {
	st := invoicing.PlanState{Plan: v.Plan, Status: v.SubscriptionStatus}
	if st.Status == invoicing.SubscriptionActive && v.SubscriptionExpiresAt != nil && now.After(*v.SubscriptionExpiresAt) {
		st.Status = invoicing.SubscriptionExpired
	}
	return st
}

// Snapshot is what the invoice assembler needs from the vendor.
func (v *Vendor) Snapshot() invoicing.VendorSnapshot {
	return invoicing.VendorSnapshot{ID: v.VendorID, Website: v.Website}
}

// ---- Vendor Authentication / Password ----

// CreateVendor stores a new, unverified vendor with a hashed password.
func (s *Store) CreateVendor(ctx context.Context, v *Vendor, password string) error {
	v.Email = NormalizeEmail(v.Email)
	var n int64
	if err := s.db.WithContext(ctx).Model(&Vendor{}).Where("email = ?", v.Email).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrEmailTaken
	}
	if err := setPassword(v, password); err != nil {
		return err
	}
	if v.VendorID == "" {
		v.VendorID = invoicing.GenerateID("ven")
	}
	if v.InvoiceNumberPattern == "" {
		v.InvoiceNumberPattern = s.Config.InvoiceNumberPattern
	}
	return s.db.WithContext(ctx).Create(v).Error
}

func setPassword(v *Vendor, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	v.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares password with the stored hash.
func CheckPassword(v *Vendor, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(v.Password), []byte(password)) == nil
}

// AuthenticateVendor checks the credentials of a verified, active vendor.
func (s *Store) AuthenticateVendor(ctx context.Context, email, password string) (*Vendor, error) {
	v, err := s.GetVendorByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidPassword
		}
		return nil, err
	}
	if !CheckPassword(v, password) {
		return nil, ErrInvalidPassword
	}
	if v.Revoked() {
		return nil, ErrAccountRevoked
	}
	if !v.Verified {
		return nil, ErrNotVerified
	}
	return v, nil
}

// GetVendor loads a vendor by its public id.
func (s *Store) GetVendor(ctx context.Context, vendorID string) (*Vendor, error) {
	var v Vendor
	if err := s.db.WithContext(ctx).Where("vendor_id = ?", vendorID).First(&v).Error; err != nil {
		return nil, fmt.Errorf("load vendor %s: %w", vendorID, err)
	}
	return &v, nil
}

// GetVendorByEmail loads a vendor by email address.
func (s *Store) GetVendorByEmail(ctx context.Context, email string) (*Vendor, error) {
	var v Vendor
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateVendorProfile saves the editable profile fields. Plan, role and
// credentials are not touched.
func (s *Store) UpdateVendorProfile(ctx context.Context, v *Vendor) error {
	return s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ?", v.VendorID).
		Select("brand_name", "owner_name", "address", "telephone", "website",
			"business_code", "country", "invoice_number_pattern").
		Updates(v).Error
}

// UpdateVendorWebsite is the one profile write the invoice flow may do.
func (s *Store) UpdateVendorWebsite(ctx context.Context, vendorID, website string) error {
	return s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ?", vendorID).
		Update("website", website).Error
}

// SetVendorImage stores the key of the uploaded profile image.
func (s *Store) SetVendorImage(ctx context.Context, vendorID, key string) error {
	return s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ?", vendorID).
		Update("image_key", key).Error
}

// ChangePassword replaces the password hash.
func (s *Store) ChangePassword(ctx context.Context, vendorID, password string) error {
	var v Vendor
	if err := setPassword(&v, password); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ?", vendorID).
		Update("password", v.Password).Error
}

// MarkVendorVerified flags the email address as confirmed.
func (s *Store) MarkVendorVerified(ctx context.Context, vendorID string) error {
	return s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ?", vendorID).
		Update("verified", true).Error
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, v *Vendor) error {
	now := time.Now().UTC()
	v.LastLoginAt = &now
	return s.db.WithContext(ctx).Model(&Vendor{}).Where("id = ?", v.ID).Update("last_login_at", now).Error
}

// PlanState reads the vendor row on every call; the plan gate relies on
// that.
func (s *Store) PlanState(ctx context.Context, vendorID string) (invoicing.PlanState, error) {
	v, err := s.GetVendor(ctx, vendorID)
	if err != nil {
		return invoicing.PlanState{}, err
	}
	return v.PlanStateAt(time.Now()), nil
}

// nextInvoiceNumber increments the vendor counter inside tx and returns the
// counter and the formatted number.
func nextInvoiceNumber(tx *gorm.DB, vendorID, customerNumber string, date time.Time) (int, string, error) {
	var v Vendor
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&v).Error; err != nil {
		return 0, "", fmt.Errorf("lock vendor %s: %w", vendorID, err)
	}
	counter := v.InvoiceCounter + 1
	if err := tx.Model(&Vendor{}).Where("id = ?", v.ID).Update("invoice_counter", counter).Error; err != nil {
		return 0, "", err
	}
	return counter, formatInvoiceNumber(v.InvoiceNumberPattern, customerNumber, counter, date), nil
}
