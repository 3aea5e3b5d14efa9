// model/api_token_service.go
package model

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// CreateAPIToken creates a new API token record and returns its plaintext token **once**.
// The plaintext token is never stored; only a salted hash and prefix are persisted.
//
// Parameters:
//   - vendorID:  The vendor that owns the token.
//   - name:      A human-readable label (e.g. “accounting sync”).
//   - scope:     ScopeFull or ScopeRead.
//   - expiresAt: Optional expiration timestamp.
func (s *Store) CreateAPIToken(ctx context.Context, vendorID, name, scope string, expiresAt *time.Time) (plain string, rec *APIToken, err error) {
	plain, prefix, saltHex, hash, err := makeToken()
	if err != nil {
		return "", nil, err
	}
	if expiresAt != nil {
		u := expiresAt.UTC()
		expiresAt = &u
	}
	rec = &APIToken{
		VendorID:    vendorID,
		TokenPrefix: prefix,
		TokenHash:   hash,
		Salt:        saltHex,
		Name:        name,
		Scope:       scope,
		ExpiresAt:   expiresAt,
	}
	if err = s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", nil, err
	}
	return plain, rec, nil
}

// ValidateAPIToken verifies an incoming raw token string.
//
// Validation steps:
//  1. Check minimum length.
//  2. Look up the token by its prefix.
//  3. Recompute and compare the salted SHA-256 hash in constant time.
//  4. Ensure the token is not disabled and not expired.
//  5. Update its "last_used_at" timestamp (best-effort; errors ignored).
func (s *Store) ValidateAPIToken(ctx context.Context, raw string) (*APIToken, error) {
	if len(raw) < 12 {
		return nil, ErrTokenInvalid
	}
	prefix := raw[:8]

	var rec APIToken
	if err := s.db.WithContext(ctx).Where("token_prefix = ?", prefix).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	// Recompute hash from stored salt and raw token
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	h := sha256.Sum256(append(salt, []byte(raw)...))
	got := hex.EncodeToString(h[:])
	if subtle.ConstantTimeCompare([]byte(got), []byte(rec.TokenHash)) != 1 {
		return nil, ErrTokenInvalid
	}

	if rec.Disabled {
		return nil, ErrTokenDisabled
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	_ = s.db.WithContext(ctx).Model(&APIToken{}).Where("id = ?", rec.ID).Update("last_used_at", time.Now()).Error
	return &rec, nil
}

// RevokeAPIToken disables a token of the vendor.
func (s *Store) RevokeAPIToken(ctx context.Context, vendorID string, tokenID uint) error {
	res := s.db.WithContext(ctx).Model(&APIToken{}).
		Where("id = ? AND vendor_id = ?", tokenID, vendorID).
		Update("disabled", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// ListAPITokensByVendor returns a page of the vendor's tokens, most recent
// first, and the next offset cursor ("" on the last page).
func (s *Store) ListAPITokensByVendor(ctx context.Context, vendorID string, limit int, cursor string) ([]APIToken, string, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil && n >= 0 {
			offset = n
		}
	}

	var rows []APIToken
	if err := s.db.WithContext(ctx).Where("vendor_id = ?", vendorID).
		Order("created_at desc").
		Offset(offset).Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		next = strconv.Itoa(offset + limit)
	}
	return rows, next, nil
}
