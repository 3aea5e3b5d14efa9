package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/mail"
	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

func (ctrl *controller) authInit(e *echo.Echo) {
	g := e.Group("/api/auth")
	g.POST("/register", ctrl.register)
	g.POST("/verify", ctrl.verifyEmail)
	g.POST("/login", ctrl.login)
	g.POST("/logout", ctrl.logout)
	g.POST("/password/forgot", ctrl.handlePasswordResetRequest)
	g.POST("/password/reset", ctrl.handlePasswordResetSubmit)
	g.GET("/me", ctrl.me, ctrl.authMiddleware)
}

type registerReq struct {
	BrandName string `json:"brandName" form:"brandName" validate:"required,max=200"`
	OwnerName string `json:"ownerName" form:"ownerName" validate:"max=200"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required,min=8,max=200"`
}

type verifyReq struct {
	Email string `json:"email" form:"email" validate:"required,email"`
	Code  string `json:"code" form:"code" validate:"required,len=6,numeric"`
}

type loginReq struct {
	Email      string `json:"email" form:"email" validate:"required"`
	Password   string `json:"password" form:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe" form:"rememberMe"`
}

type forgotReq struct {
	Email string `json:"email" form:"email" validate:"required"`
}

type resetReq struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Code     string `json:"code" form:"code" validate:"required"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=200"`
}

type messageResp struct {
	Message string `json:"message" xml:"message"`
}

// meResp describes the logged in vendor.
type meResp struct {
	VendorID           string                       `json:"vendorId"`
	Email              string                       `json:"email"`
	BrandName          string                       `json:"brandName"`
	OwnerName          string                       `json:"ownerName"`
	Role               model.Role                   `json:"role"`
	Plan               invoicing.Plan               `json:"plan"`
	SubscriptionStatus invoicing.SubscriptionStatus `json:"subscriptionStatus"`
	Premium            bool                         `json:"premium"`
	ExpiresAt          *time.Time                   `json:"subscriptionExpiresAt,omitempty"`
	CSRFToken          string                       `json:"csrfToken,omitempty"`
}

func newMeResp(c echo.Context, v *model.Vendor) meResp {
	st := v.PlanStateAt(time.Now())
	out := meResp{
		VendorID:           v.VendorID,
		Email:              v.Email,
		BrandName:          v.BrandName,
		OwnerName:          v.OwnerName,
		Role:               v.Role,
		Plan:               st.Plan,
		SubscriptionStatus: st.Status,
		Premium:            st.Premium(),
		ExpiresAt:          v.SubscriptionExpiresAt,
	}
	if t, ok := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		out.CSRFToken = t
	}
	return out
}

// sendCode mails a one-time code. Failures are logged only; the caller
// always answers neutrally.
func (ctrl *controller) sendCode(c echo.Context, email string, purpose model.CodePurpose, subject, intro string) {
	logger := requestLogger(c)
	code, err := ctrl.model.CreateOneTimeCode(c.Request().Context(), email, purpose)
	if err != nil {
		logger.Error("cannot create one-time code", "purpose", purpose, "error", err)
		return
	}
	body := fmt.Sprintf("%s\n\n    %s\n\nThe code is valid for 10 minutes. If you did not request it, you can ignore this message.", intro, code)
	ctrl.sendMail(c, email, subject, body)
}

func (ctrl *controller) sendMail(c echo.Context, to, subject, body string) {
	// detached from the request so a client disconnect does not cancel delivery
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 30*time.Second)
	defer cancel()
	if err := ctrl.mailer.Send(ctx, mail.Message{To: to, Subject: subject, Body: body}); err != nil {
		requestLogger(c).Error("cannot send email", "subject", subject, "error", err)
	}
}

// register creates an unverified vendor and mails a verification code. The
// answer is the same whether or not the address is taken.
func (ctrl *controller) register(c echo.Context) error {
	if !ctrl.model.Config.RegistrationAllowed {
		return echo.NewHTTPError(http.StatusForbidden, "Registration is disabled")
	}
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	neutral := func() error {
		return respond(c, http.StatusAccepted, messageResp{
			Message: "If we can create an account for that email, we have sent you a code to confirm it.",
		})
	}

	v := &model.Vendor{
		Email:     req.Email,
		BrandName: strings.TrimSpace(req.BrandName),
		OwnerName: strings.TrimSpace(req.OwnerName),
		Country:   "US",
	}
	err := ctrl.model.CreateVendor(c.Request().Context(), v, req.Password)
	switch {
	case errors.Is(err, model.ErrEmailTaken):
		ctrl.sendMail(c, model.NormalizeEmail(req.Email), "Sign in to invoicedesk",
			"Someone tried to sign up with your email. If this was you, sign in or reset your password.")
		return neutral()
	case err != nil:
		return ErrInternal(err)
	}
	requestLogger(c).Info("vendor registered", "vendor_id", v.VendorID)
	ctrl.sendCode(c, v.Email, model.PurposeVerify, "Confirm your email for invoicedesk",
		"Please confirm your email address with this code:")
	return neutral()
}

func codeError(err error) error {
	switch {
	case errors.Is(err, model.ErrCodeInvalid), errors.Is(err, model.ErrTokenExpired):
		return ErrInvalid(err, "The code is invalid or has expired.")
	case errors.Is(err, model.ErrTooManyAttempts):
		return ErrInvalid(err, "Too many attempts. Please request a new code.")
	}
	return ErrInternal(err)
}

func (ctrl *controller) verifyEmail(c echo.Context) error {
	var req verifyReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := ctrl.model.ConsumeOneTimeCode(ctx, req.Email, model.PurposeVerify, req.Code); err != nil {
		return codeError(err)
	}
	v, err := ctrl.model.GetVendorByEmail(ctx, req.Email)
	if err != nil {
		return ErrInternal(err)
	}
	if err := ctrl.model.MarkVendorVerified(ctx, v.VendorID); err != nil {
		return ErrInternal(err)
	}
	return respond(c, http.StatusOK, messageResp{Message: "Your email address is confirmed. You can sign in now."})
}

func (ctrl *controller) login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	v, err := ctrl.model.AuthenticateVendor(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, model.ErrInvalidPassword):
		return ErrUnauthorized(err, "Login failed. Please check your input.")
	case errors.Is(err, model.ErrNotVerified):
		return ErrForbidden(err, "Please confirm your email first.")
	case errors.Is(err, model.ErrAccountRevoked):
		return ErrForbidden(err, "This account has been disabled.")
	case err != nil:
		return ErrInternal(err)
	}

	sw, err := LoadSession(c)
	if err != nil {
		return ErrInternal(err)
	}
	sw.Login(v.VendorID, req.RememberMe)
	if err := sw.Save(); err != nil {
		return ErrInternal(err)
	}
	if err := ctrl.model.TouchLastLogin(ctx, v); err != nil {
		requestLogger(c).Warn("cannot record login", "error", err)
	}
	return respond(c, http.StatusOK, newMeResp(c, v))
}

// logout clears the session and deletes the cookie.
func (ctrl *controller) logout(c echo.Context) error {
	if err := ClearSession(c); err != nil {
		return ErrInternal(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *controller) me(c echo.Context) error {
	return respond(c, http.StatusOK, newMeResp(c, currentVendor(c)))
}

// handlePasswordResetRequest mails a reset code in an enumeration-safe way.
func (ctrl *controller) handlePasswordResetRequest(c echo.Context) error {
	var req forgotReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	genericResponse := func() error {
		return respond(c, http.StatusAccepted, messageResp{Message: "If an account exists, we have sent you an email."})
	}
	v, err := ctrl.model.GetVendorByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			requestLogger(c).Error("cannot load vendor for reset", "error", err)
		}
		return genericResponse()
	}
	if v.Revoked() {
		return genericResponse()
	}
	ctrl.sendCode(c, v.Email, model.PurposeReset, "Reset your invoicedesk password",
		"Use this code to set a new password:")
	return genericResponse()
}

// handlePasswordResetSubmit sets the new password. Resetting also confirms
// the email address, since the code arrived there.
func (ctrl *controller) handlePasswordResetSubmit(c echo.Context) error {
	var req resetReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := ctrl.model.ConsumeOneTimeCode(ctx, req.Email, model.PurposeReset, req.Code); err != nil {
		return codeError(err)
	}
	v, err := ctrl.model.GetVendorByEmail(ctx, req.Email)
	if err != nil {
		return ErrInternal(err)
	}
	if err := ctrl.model.ChangePassword(ctx, v.VendorID, req.Password); err != nil {
		return ErrInternal(err)
	}
	if !v.Verified {
		if err := ctrl.model.MarkVendorVerified(ctx, v.VendorID); err != nil {
			requestLogger(c).Error("cannot mark vendor verified", "error", err)
		}
	}
	return respond(c, http.StatusOK, messageResp{Message: "Your password has been updated. You can sign in now."})
}
