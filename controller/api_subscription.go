package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/model"
	"github.com/billingcat/invoicedesk/payments"
	"github.com/labstack/echo/v4"
)

type subscriptionResp struct {
	Plan      invoicing.Plan               `json:"plan"`
	Status    invoicing.SubscriptionStatus `json:"status"`
	Premium   bool                         `json:"premium"`
	ExpiresAt *time.Time                   `json:"expiresAt,omitempty"`
	Price     string                       `json:"price"`
	Currency  string                       `json:"currency"`
	Days      int                          `json:"days"`
	KeyID     string                       `json:"keyId,omitempty"`
}

type verifyPaymentReq struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type APIPayment struct {
	PaymentID string              `json:"id"`
	OrderID   string              `json:"orderId"`
	Amount    string              `json:"amount"`
	Currency  string              `json:"currency"`
	Status    model.PaymentStatus `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	PaidAt    *time.Time          `json:"paidAt,omitempty"`
}

func (ctrl *controller) subscriptionState(v *model.Vendor) subscriptionResp {
	cfg := ctrl.model.Config
	st := v.PlanStateAt(time.Now())
	out := subscriptionResp{
		Plan:      st.Plan,
		Status:    st.Status,
		Premium:   st.Premium(),
		ExpiresAt: v.SubscriptionExpiresAt,
		Price:     invoicing.Money(cfg.PremiumAmount()),
		Currency:  cfg.Currency,
		Days:      cfg.SubscriptionDays,
	}
	if ctrl.payments.Configured() {
		out.KeyID = ctrl.payments.KeyID()
	}
	return out
}

// subscriptionGet handles GET /api/subscription
func (ctrl *controller) subscriptionGet(c echo.Context) error {
	return c.JSON(http.StatusOK, ctrl.subscriptionState(currentVendor(c)))
}

// subscriptionOrder handles POST /api/subscription/order. It creates a
// checkout order at the configured price.
func (ctrl *controller) subscriptionOrder(c echo.Context) error {
	cfg := ctrl.model.Config
	order, err := ctrl.payments.NewOrder(cfg.PremiumAmount(), cfg.Currency)
	if errors.Is(err, payments.ErrNotConfigured) {
		return &appError{Code: "UNAVAILABLE", Status: http.StatusServiceUnavailable, Err: err,
			Public: "Payments are not available right now."}
	}
	if err != nil {
		return ErrInternal(err)
	}
	p := &model.Payment{
		OrderID:  order.OrderID,
		VendorID: vendorID(c),
		Amount:   order.Amount,
		Currency: order.Currency,
	}
	if err := ctrl.model.CreatePayment(c.Request().Context(), p); err != nil {
		return err
	}
	requestLogger(c).Info("subscription order created", "order_id", order.OrderID, "amount", order.Amount.String())
	return c.JSON(http.StatusCreated, order)
}

// subscriptionVerify handles POST /api/subscription/verify. A bad signature
// fails the order.
func (ctrl *controller) subscriptionVerify(c echo.Context) error {
	var req verifyPaymentReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	vid := vendorID(c)
	if err := ctrl.payments.Verify(req.OrderID, req.PaymentID, req.Signature); err != nil {
		if errors.Is(err, payments.ErrSignatureMismatch) {
			if ferr := ctrl.model.FailPayment(ctx, vid, req.OrderID); ferr != nil {
				requestLogger(c).Warn("cannot mark payment failed", "order_id", req.OrderID, "error", ferr)
			}
			return ErrInvalid(err, "The payment could not be verified.")
		}
		return &appError{Code: "UNAVAILABLE", Status: http.StatusServiceUnavailable, Err: err,
			Public: "Payments are not available right now."}
	}
	p, err := ctrl.model.CompleteSubscriptionPayment(ctx, vid, req.OrderID, req.PaymentID, ctrl.model.Config.SubscriptionDays, time.Now())
	if err != nil {
		return err
	}
	requestLogger(c).Info("subscription activated", "order_id", p.OrderID, "payment_id", p.PaymentID)

	v, err := ctrl.model.GetVendor(ctx, vid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ctrl.subscriptionState(v))
}

// subscriptionCancel handles POST /api/subscription/cancel
func (ctrl *controller) subscriptionCancel(c echo.Context) error {
	ctx := c.Request().Context()
	if err := ctrl.model.CancelSubscription(ctx, vendorID(c)); err != nil {
		if errors.Is(err, model.ErrNotAllowed) {
			return &appError{Code: "CONFLICT", Status: http.StatusConflict, Err: err,
				Public: "There is no subscription to cancel."}
		}
		return err
	}
	v, err := ctrl.model.GetVendor(ctx, vendorID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ctrl.subscriptionState(v))
}

// paymentList handles GET /api/payments
func (ctrl *controller) paymentList(c echo.Context) error {
	rows, next, err := ctrl.model.ListPayments(c.Request().Context(), vendorID(c), queryInt(c, "limit"), c.QueryParam("cursor"))
	if err != nil {
		return err
	}
	items := make([]APIPayment, len(rows))
	for i, p := range rows {
		items[i] = APIPayment{
			PaymentID: p.PaymentID,
			OrderID:   p.OrderID,
			Amount:    invoicing.Money(p.Amount),
			Currency:  p.Currency,
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
			PaidAt:    p.PaidAt,
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items, "next_cursor": next})
}
