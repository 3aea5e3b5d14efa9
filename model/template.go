package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
)

// Template is a vendor's saved custom layout. Built-in templates are not
// stored; BuiltinTemplate returns them.
type Template struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TemplateID   string                    `gorm:"size:40;uniqueIndex;not null"`
	VendorID     string                    `gorm:"size:40;index"`
	Name         string                    `gorm:"not null"`
	TemplateType invoicing.TemplateType    `gorm:"size:32;not null"`
	Visibility   invoicing.FieldVisibility `gorm:"embedded;embeddedPrefix:show_"`
}

// EffectiveVisibility is the stored visibility for custom templates and the
// registry default for built-ins.
func (t *Template) EffectiveVisibility() invoicing.FieldVisibility {
	if t.TemplateType == invoicing.TemplateCustom {
		return t.Visibility
	}
	return invoicing.DefaultVisibility(t.TemplateType)
}

// Builtin is true for templates that come from the registry.
func (t *Template) Builtin() bool { return t.TemplateType.IsBuiltin() }

// BuiltinTemplate returns the virtual template row of a built-in type. Its
// id is the type name.
func BuiltinTemplate(tt invoicing.TemplateType) Template {
	return Template{
		TemplateID:   string(tt),
		Name:         string(tt),
		TemplateType: tt,
		Visibility:   invoicing.DefaultVisibility(tt),
	}
}

// BuiltinTemplates lists all built-in templates.
func BuiltinTemplates() []Template {
	var out []Template
	for _, tt := range invoicing.TemplateTypes() {
		if tt.IsBuiltin() {
			out = append(out, BuiltinTemplate(tt))
		}
	}
	return out
}

// GetTemplate resolves templateID to a built-in or to one of the vendor's
// custom templates.
func (s *Store) GetTemplate(ctx context.Context, vendorID, templateID string) (*Template, error) {
	if tt, err := invoicing.ParseTemplateType(templateID); err == nil && tt.IsBuiltin() {
		t := BuiltinTemplate(tt)
		return &t, nil
	}
	var t Template
	if err := s.db.WithContext(ctx).
		Where("vendor_id = ? AND template_id = ?", vendorID, templateID).
		First(&t).Error; err != nil {
		return nil, fmt.Errorf("load template %s: %w", templateID, err)
	}
	return &t, nil
}

// ListTemplates returns the built-ins followed by the vendor's custom
// templates.
func (s *Store) ListTemplates(ctx context.Context, vendorID string) ([]Template, error) {
	var custom []Template
	if err := s.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("name ASC").
		Find(&custom).Error; err != nil {
		return nil, err
	}
	return append(BuiltinTemplates(), custom...), nil
}

var errBuiltinTemplate = errors.New("built-in templates cannot be changed")

// SaveTemplate creates t when it has no id yet, otherwise updates the
// vendor's template.
func (s *Store) SaveTemplate(ctx context.Context, t *Template) error {
	if t.TemplateType != invoicing.TemplateCustom {
		return errBuiltinTemplate
	}
	db := s.db.WithContext(ctx)
	if t.TemplateID == "" {
		t.ID = 0
		t.TemplateID = invoicing.GenerateID("tpl")
		return db.Create(t).Error
	}
	var existing Template
	if err := db.Where("vendor_id = ? AND template_id = ?", t.VendorID, t.TemplateID).
		First(&existing).Error; err != nil {
		return fmt.Errorf("load template %s: %w", t.TemplateID, err)
	}
	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	return db.Save(t).Error
}

// DeleteTemplate removes a custom template. Invoices keep their frozen
// visibility.
func (s *Store) DeleteTemplate(ctx context.Context, vendorID, templateID string) error {
	res := s.db.WithContext(ctx).
		Where("vendor_id = ? AND template_id = ?", vendorID, templateID).
		Delete(&Template{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete template %s: %w", templateID, ErrNotAllowed)
	}
	return nil
}
