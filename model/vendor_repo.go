package model

import (
	"context"
	"strings"
	"time"
)

// ListVendors returns a page of vendors filtered by query `q` (matches email or brand name, case-insensitive).
// It also returns the total count for pagination.
func (s *Store) ListVendors(ctx context.Context, q string, offset, limit int) ([]Vendor, int64, error) {
	var (
		vendors []Vendor
		total   int64
	)

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	db := s.db.WithContext(ctx).Model(&Vendor{})

	if q != "" {
		like := "%" + strings.ToLower(likeEscape(q)) + "%"
		db = db.Where("LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(brand_name) LIKE ? ESCAPE '\\'", like, like)
	}

	// Count first
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Page data
	if err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&vendors).Error; err != nil {
		return nil, 0, err
	}

	return vendors, total, nil
}

// RevokeVendor blocks logins, sessions and API tokens of the vendor.
func (s *Store) RevokeVendor(ctx context.Context, vendorID string) error {
	res := s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ? AND role <> ?", vendorID, RoleAdmin).
		Update("revoked_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotAllowed
	}
	return nil
}

// RestoreVendor lifts a revocation.
func (s *Store) RestoreVendor(ctx context.Context, vendorID string) error {
	return s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ?", vendorID).
		Update("revoked_at", nil).Error
}
