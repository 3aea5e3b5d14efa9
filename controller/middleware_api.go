package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ctxKey string

const (
	ctxVendorID ctxKey = "vendor_id"
	ctxVendor   ctxKey = "vendor"
	ctxScope    ctxKey = "api_scope"
	ctxViaToken ctxKey = "api_token"
)

// bearerToken extracts the token of "Authorization: Bearer|Api-Key <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || (!strings.EqualFold(parts[0], "Bearer") && !strings.EqualFold(parts[0], "Api-Key")) {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// authMiddleware accepts an API token or a session cookie. The vendor row is
// loaded on every request so that a revocation takes effect at once.
func (ctrl *controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var (
			vid   string
			scope = model.ScopeFull
			token bool
		)
		if hdr := c.Request().Header.Get(echo.HeaderAuthorization); hdr != "" {
			raw, ok := bearerToken(hdr)
			if !ok {
				return respond(c, http.StatusUnauthorized, apiError("bad_token", "Use Bearer or Api-Key"))
			}
			rec, err := ctrl.model.ValidateAPIToken(ctx, raw)
			if err != nil {
				requestLogger(c).Info("api token rejected", "error", err)
				return respond(c, http.StatusUnauthorized, apiError("unauthorized", "Unauthorized"))
			}
			if !rec.Allows(c.Request().Method) {
				return respond(c, http.StatusForbidden, apiError("insufficient_scope", "token is read-only"))
			}
			vid, scope, token = rec.VendorID, rec.Scope, true
		} else {
			sw, err := LoadSession(c)
			if err != nil {
				return ErrInternal(err)
			}
			vid = sw.VendorID()
		}
		if vid == "" {
			return ErrUnauthorized(errors.New("no session"), "")
		}

		v, err := ctrl.model.GetVendor(ctx, vid)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctrl.rejectSession(c, token, err)
		}
		if err != nil {
			return ErrInternal(err)
		}
		if v.Revoked() {
			return ctrl.rejectSession(c, token, model.ErrAccountRevoked)
		}

		c.Set(string(ctxVendorID), v.VendorID)
		c.Set(string(ctxVendor), v)
		c.Set(string(ctxScope), scope)
		c.Set(string(ctxViaToken), token)
		return next(c)
	}
}

func (ctrl *controller) rejectSession(c echo.Context, token bool, err error) error {
	if !token {
		if cerr := ClearSession(c); cerr != nil {
			requestLogger(c).Warn("cannot clear session", "error", cerr)
		}
	}
	public := ""
	if errors.Is(err, model.ErrAccountRevoked) {
		public = "This account has been disabled."
	}
	return ErrUnauthorized(err, public)
}

// APIKeyAuthMiddleware is authMiddleware without the session fallback, for
// the /api/v1 integration routes.
func (ctrl *controller) APIKeyAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	auth := ctrl.authMiddleware(next)
	return func(c echo.Context) error {
		if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
			return respond(c, http.StatusUnauthorized, apiError("missing_token", "Provide Authorization header"))
		}
		return auth(c)
	}
}

// adminMiddleware runs after authMiddleware.
func (ctrl *controller) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if v := currentVendor(c); v != nil && v.IsAdmin() {
			return next(c)
		}
		// wie ein unbekannter Pfad
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}
}

// sessionOnly rejects token clients, e.g. for token management.
func sessionOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if b, _ := c.Get(string(ctxViaToken)).(bool); b {
			return ErrForbidden(errors.New("token used for session-only route"), "This needs a logged in session.")
		}
		return next(c)
	}
}

// kleine Getter
func vendorID(c echo.Context) string {
	v, _ := c.Get(string(ctxVendorID)).(string)
	return v
}

func currentVendor(c echo.Context) *model.Vendor {
	v, _ := c.Get(string(ctxVendor)).(*model.Vendor)
	return v
}
