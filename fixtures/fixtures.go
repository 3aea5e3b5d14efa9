// Package fixtures provides a sqlite-backed store, seed data and builders
// for tests.
package fixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/model"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DefaultVendorID = "ven_test_default"
	PremiumVendorID = "ven_test_premium"
	AdminVendorID   = "ven_test_admin"
	DefaultPassword = "correct horse battery"
)

// NewTestStore opens a fresh sqlite database in a temp dir and migrates it.
func NewTestStore(t testing.TB) *model.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	store := model.NewStore(db, &model.Config{
		Mode:             "test",
		Currency:         "USD",
		PremiumPrice:     "9.99",
		SubscriptionDays: 30,
	})
	if err := store.AutoMigrate(); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestData holds the seeded rows.
type TestData struct {
	Vendor        *model.Vendor
	PremiumVendor *model.Vendor
	Admin         *model.Vendor
	Customer      *model.Customer
	// PremiumCustomer belongs to PremiumVendor.
	PremiumCustomer *model.Customer
	// Template is a custom template of PremiumVendor.
	Template *model.Template
}

// SeedTestData creates a free vendor, a premium vendor with an active
// subscription, an admin, a customer for each vendor and a custom template.
func SeedTestData(t testing.TB, store *model.Store) *TestData {
	t.Helper()
	ctx := context.Background()
	data := &TestData{}

	data.Vendor = createVendor(t, store, DefaultVendorID, "vendor@example.com", "Corner Shop", model.RoleVendor)
	data.PremiumVendor = createVendor(t, store, PremiumVendorID, "premium@example.com", "Premium Works", model.RoleVendor)
	data.Admin = createVendor(t, store, AdminVendorID, "admin@example.com", "Admin", model.RoleAdmin)

	ActivatePremium(t, store, PremiumVendorID)
	var err error
	if data.PremiumVendor, err = store.GetVendor(ctx, PremiumVendorID); err != nil {
		t.Fatalf("reload premium vendor: %v", err)
	}

	data.Customer = &model.Customer{
		VendorID: DefaultVendorID,
		Number:   "K100",
		Name:     "Acme Corp",
		Email:    "billing@acme.example",
		Address:  "1 Main Street, Springfield",
		Phone:    "+14155550100",
		TaxID:    "US-123456",
		Country:  "US",
	}
	if err := store.CreateCustomer(ctx, data.Customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	data.PremiumCustomer = &model.Customer{
		VendorID: PremiumVendorID,
		Number:   "P200",
		Name:     "Globex Inc",
		Email:    "ap@globex.example",
		Address:  "42 Industrial Way",
		Country:  "US",
	}
	if err := store.CreateCustomer(ctx, data.PremiumCustomer); err != nil {
		t.Fatalf("create premium customer: %v", err)
	}

	data.Template = &model.Template{
		VendorID:     PremiumVendorID,
		Name:         "Workshop",
		TemplateType: invoicing.TemplateCustom,
		Visibility: invoicing.VisibilityOf(
			invoicing.FieldPerRowTax,
			invoicing.FieldNotes,
			invoicing.FieldShipCharge,
		),
	}
	if err := store.SaveTemplate(ctx, data.Template); err != nil {
		t.Fatalf("save template: %v", err)
	}
	return data
}

func createVendor(t testing.TB, store *model.Store, id, email, brand string, role model.Role) *model.Vendor {
	t.Helper()
	v := &model.Vendor{
		VendorID:     id,
		Email:        email,
		BrandName:    brand,
		OwnerName:    "Pat Owner",
		Address:      "7 Market Square",
		Telephone:    "+14155550123",
		Website:      "https://" + brand[:1] + ".example.com",
		BusinessCode: "TAX-" + id,
		Country:      "US",
		Verified:     true,
		Role:         role,
	}
	if err := store.CreateVendor(context.Background(), v, DefaultPassword); err != nil {
		t.Fatalf("create vendor %s: %v", id, err)
	}
	return v
}

// ActivatePremium runs a paid checkout for vendorID.
func ActivatePremium(t testing.TB, store *model.Store, vendorID string) {
	t.Helper()
	ctx := context.Background()
	p := &model.Payment{
		OrderID:  invoicing.GenerateID("order"),
		VendorID: vendorID,
		Amount:   store.Config.PremiumAmount(),
		Currency: store.Config.Currency,
	}
	if err := store.CreatePayment(ctx, p); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := store.CompleteSubscriptionPayment(ctx, vendorID, p.OrderID, "gw_test", 30, time.Now()); err != nil {
		t.Fatalf("complete payment: %v", err)
	}
}
