package model

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CodePurpose says what a one-time code unlocks.
type CodePurpose string

const (
	PurposeVerify CodePurpose = "verify"
	PurposeReset  CodePurpose = "reset"
)

const (
	codeTTL         = 10 * time.Minute
	codeMaxAttempts = 5
)

// OneTimeCode is a six digit code sent by email. Only a bcrypt hash is
// stored.
type OneTimeCode struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	Email      string      `gorm:"index;not null"` // lowercase
	Purpose    CodePurpose `gorm:"size:20;not null"`
	CodeHash   string      `gorm:"not null"`
	ExpiresAt  time.Time   `gorm:"not null"`
	Attempts   int         `gorm:"not null;default:0"`
	ConsumedAt *time.Time
}

// Normalize email before saving
func (o *OneTimeCode) BeforeSave(tx *gorm.DB) error {
	o.Email = NormalizeEmail(o.Email)
	return nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// CreateOneTimeCode issues a new code and invalidates earlier open codes for
// the same email and purpose. The plain code is returned once.
func (s *Store) CreateOneTimeCode(ctx context.Context, email string, purpose CodePurpose) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("email empty")
	}
	plain, err := randomCode()
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&OneTimeCode{}).
			Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
			Update("consumed_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&OneTimeCode{
			Email:     email,
			Purpose:   purpose,
			CodeHash:  string(hash),
			ExpiresAt: now.Add(codeTTL),
		}).Error
	})
	if err != nil {
		return "", err
	}
	return plain, nil
}

// ConsumeOneTimeCode checks code against the newest open code. A wrong code
// counts as an attempt; after five attempts the code is dead.
func (s *Store) ConsumeOneTimeCode(ctx context.Context, email string, purpose CodePurpose, code string) error {
	email = NormalizeEmail(email)
	var wrong bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var otc OneTimeCode
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purpose).
			Order("created_at DESC").
			First(&otc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeInvalid
			}
			return err
		}
		if time.Now().After(otc.ExpiresAt) {
			return ErrTokenExpired
		}
		if otc.Attempts >= codeMaxAttempts {
			return ErrTooManyAttempts
		}
		if bcrypt.CompareHashAndPassword([]byte(otc.CodeHash), []byte(code)) != nil {
			wrong = true
			return tx.Model(&OneTimeCode{}).Where("id = ?", otc.ID).
				Update("attempts", gorm.Expr("attempts + 1")).Error
		}
		return tx.Model(&OneTimeCode{}).Where("id = ?", otc.ID).
			Update("consumed_at", time.Now().UTC()).Error
	})
	if err != nil {
		return err
	}
	if wrong {
		return ErrCodeInvalid
	}
	return nil
}
