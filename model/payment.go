package model

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentStatus of a subscription payment.
type PaymentStatus string

const (
	PaymentCreated PaymentStatus = "created"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment is one subscription checkout.
type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	PaymentID        string          `gorm:"size:40;uniqueIndex;not null"`
	OrderID          string          `gorm:"size:64;uniqueIndex;not null"`
	VendorID         string          `gorm:"size:40;index;not null"`
	Amount           decimal.Decimal `gorm:"not null"`
	Currency         string          `gorm:"size:3;not null"`
	Status           PaymentStatus   `gorm:"size:20;not null;default:created;check:status IN ('created','paid','failed')"`
	GatewayPaymentID string          `gorm:"size:100"`
	PaidAt           *time.Time
}

// CreatePayment records a new checkout order and marks the vendor's
// subscription as pending unless it is already active.
func (s *Store) CreatePayment(ctx context.Context, p *Payment) error {
	p.ID = 0
	p.PaymentID = invoicing.GenerateID("pay")
	p.Status = PaymentCreated
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Model(&Vendor{}).
			Where("vendor_id = ? AND subscription_status <> ?", p.VendorID, invoicing.SubscriptionActive).
			Update("subscription_status", invoicing.SubscriptionPending).Error
	})
}

// CompleteSubscriptionPayment marks the order paid and activates premium for
// days, counted from the current expiry if that lies in the future. Calling
// it again for a paid order is a no-op.
func (s *Store) CompleteSubscriptionPayment(ctx context.Context, vendorID, orderID, gatewayPaymentID string, days int, now time.Time) (*Payment, error) {
	var p Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the rows (Postgres: FOR UPDATE; SQLite: no-op)
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND vendor_id = ?", orderID, vendorID).
			First(&p).Error; err != nil {
			return err
		}
		if p.Status == PaymentPaid {
			return nil
		}
		var v Vendor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("vendor_id = ?", vendorID).
			First(&v).Error; err != nil {
			return err
		}

		now = now.UTC()
		start := now
		if v.SubscriptionStatus == invoicing.SubscriptionActive && v.SubscriptionExpiresAt != nil && v.SubscriptionExpiresAt.After(now) {
			start = *v.SubscriptionExpiresAt
		}
		expires := start.AddDate(0, 0, days)

		if err := tx.Model(&Payment{}).Where("id = ?", p.ID).Updates(map[string]any{
			"status":             PaymentPaid,
			"gateway_payment_id": gatewayPaymentID,
			"paid_at":            now,
		}).Error; err != nil {
			return err
		}
		p.Status = PaymentPaid
		p.GatewayPaymentID = gatewayPaymentID
		p.PaidAt = &now

		return tx.Model(&Vendor{}).Where("id = ?", v.ID).Updates(map[string]any{
			"plan":                    invoicing.PlanPremium,
			"subscription_status":     invoicing.SubscriptionActive,
			"subscription_expires_at": expires,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("complete payment %s: %w", orderID, err)
	}
	return &p, nil
}

// FailPayment marks an unpaid order as failed. A pending subscription falls
// back to none.
func (s *Store) FailPayment(ctx context.Context, vendorID, orderID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Payment{}).
			Where("order_id = ? AND vendor_id = ? AND status = ?", orderID, vendorID, PaymentCreated).
			Update("status", PaymentFailed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("fail payment %s: %w", orderID, gorm.ErrRecordNotFound)
		}
		return tx.Model(&Vendor{}).
			Where("vendor_id = ? AND subscription_status = ?", vendorID, invoicing.SubscriptionPending).
			Update("subscription_status", invoicing.SubscriptionNone).Error
	})
}

// CancelSubscription stops premium access at once. The plan stays premium
// for the record, but the gate only accepts active subscriptions.
func (s *Store) CancelSubscription(ctx context.Context, vendorID string) error {
	res := s.db.WithContext(ctx).Model(&Vendor{}).
		Where("vendor_id = ? AND subscription_status IN ?", vendorID,
			[]invoicing.SubscriptionStatus{invoicing.SubscriptionActive, invoicing.SubscriptionPending}).
		Update("subscription_status", invoicing.SubscriptionCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("cancel subscription: %w", ErrNotAllowed)
	}
	return nil
}

// ExpireSubscriptions sets lapsed active subscriptions to expired.
func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Vendor{}).
		Where("subscription_status = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at < ?",
			invoicing.SubscriptionActive, now.UTC()).
		Update("subscription_status", invoicing.SubscriptionExpired)
	return res.RowsAffected, res.Error
}

// ListPayments returns the vendor's payments, newest first.
func (s *Store) ListPayments(ctx context.Context, vendorID string, limit int, cursor string) ([]Payment, string, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil && n >= 0 {
			offset = n
		}
	}
	var rows []Payment
	if err := s.db.WithContext(ctx).Where("vendor_id = ?", vendorID).
		Order("created_at desc").Order("id desc").
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
