package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/billingcat/invoicedesk/billing"
	"github.com/billingcat/invoicedesk/filestore"
	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/mail"
	"github.com/billingcat/invoicedesk/model"
	"github.com/billingcat/invoicedesk/payments"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type appError struct {
	Code   string // stabiler, interner Fehlercode für Ops/Support
	Status int    // passender HTTP-Status
	Err    error  // ursprünglicher Fehler (wird nie an den Client gegeben)
	Public string // sicherer Text für Nutzer (optional)

	Fields   map[string]string
	Fallback *invoicing.Selection
}

func (e *appError) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *appError) Unwrap() error { return e.Err }

// Hilfsfunktionen zum Bauen typischer Fehler
func ErrNotFound(err error) *appError {
	return &appError{Code: "NOT_FOUND", Status: http.StatusNotFound, Err: err}
}
func ErrInvalid(err error, public string) *appError {
	return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err, Public: public}
}
func ErrInternal(err error) *appError {
	return &appError{Code: "INTERNAL", Status: http.StatusInternalServerError, Err: err}
}
func ErrUnauthorized(err error, public string) *appError {
	return &appError{Code: "UNAUTHORIZED", Status: http.StatusUnauthorized, Err: err, Public: public}
}
func ErrForbidden(err error, public string) *appError {
	return &appError{Code: "FORBIDDEN", Status: http.StatusForbidden, Err: err, Public: public}
}

// appErrorFrom maps domain errors to their HTTP form. It returns nil for
// errors it does not know.
func appErrorFrom(err error) *appError {
	var ie *invoicing.Error
	if errors.As(err, &ie) {
		switch ie.Kind {
		case invoicing.KindValidation:
			return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err,
				Public: "Some fields are invalid. Please correct them and try again.", Fields: ie.Fields}
		case invoicing.KindPlanGate:
			ae := &appError{Code: "PLAN_REQUIRED", Status: http.StatusForbidden, Err: err,
				Public: "This needs an active premium subscription."}
			if ie.Fallback != nil {
				ae.Fallback = ie.Fallback
				ae.Public = ie.Fallback.Warning
			}
			return ae
		}
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, model.ErrNotAllowed),
		errors.Is(err, model.ErrTokenNotFound):
		return ErrNotFound(err)
	}
	if ie != nil {
		switch ie.Kind {
		case invoicing.KindPersistence:
			return &appError{Code: "PERSISTENCE_FAILED", Status: http.StatusInternalServerError, Err: err,
				Public: "The invoice could not be saved. Your input is still there, please try again."}
		case invoicing.KindRender:
			return &appError{Code: "RENDER_FAILED", Status: http.StatusBadGateway, Err: err,
				Public: "The invoice document could not be generated. The invoice itself is saved."}
		case invoicing.KindDelivery:
			return &appError{Code: "DELIVERY_FAILED", Status: http.StatusBadGateway, Err: err,
				Public: "The email could not be sent. The invoice itself is saved."}
		}
	}
	return nil
}

// Deps are the services the HTTP layer calls into.
type Deps struct {
	Billing  *billing.Service
	Gate     *invoicing.Gate
	Images   *filestore.ProfileImages
	Mailer   mail.Sender
	Payments *payments.Gateway
	Logger   *slog.Logger
}

type controller struct {
	model    *model.Store
	billing  *billing.Service
	gate     *invoicing.Gate
	images   *filestore.ProfileImages
	mailer   mail.Sender
	payments *payments.Gateway
	logger   *slog.Logger
}

// NewLogger returns the process logger.
// Prod: JSON, Info+; Dev: Text, Debug
func NewLogger(mode string) *slog.Logger {
	if mode == "development" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newController(store *model.Store, deps Deps) *controller {
	logger := deps.Logger
	if logger == nil {
		logger = NewLogger(store.Config.Mode)
	}
	return &controller{
		model:    store,
		billing:  deps.Billing,
		gate:     deps.Gate,
		images:   deps.Images,
		mailer:   deps.Mailer,
		payments: deps.Payments,
		logger:   logger,
	}
}

// NewServer builds the echo instance with all middleware and routes.
func NewServer(store *model.Store, deps Deps) *echo.Echo {
	return newController(store, deps).server()
}

// NewController ist der Einstiegspunkt. It blocks until the server stops.
func NewController(store *model.Store, deps Deps) error {
	e := NewServer(store, deps)
	if err := e.Start(fmt.Sprintf(":%d", store.Config.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("cannot start application %w", err)
	}
	return nil
}

func (ctrl *controller) server() *echo.Echo {
	cfg := ctrl.model.Config
	logger := ctrl.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.BodyLimit("20M"))
	e.Use(middleware.RequestID()) // adds X-Request-ID
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll:   false, // only log stack trace
		DisablePrintStack: true,
	}))

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()
			rid := res.Header().Get(echo.HeaderXRequestID)

			// Request-scoped Logger bauen und in den Context legen
			reqLogger := logger.With(
				"request_id", rid,
			).WithGroup("http").With(
				"method", req.Method,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			c.Set("logger", reqLogger)

			err := next(c)
			if err != nil {
				// write the error response now so that the status below is the real one
				c.Error(err)
			}

			if shouldSkipAccessLog(c) {
				return nil
			}
			latency := time.Since(start)

			attrs := []any{
				"status", res.Status,
				"latency_ms", float64(latency.Microseconds()) / 1000.0,
			}
			if vid := vendorID(c); vid != "" {
				attrs = append(attrs, "vendor_id", vid)
			}

			switch {
			case res.Status >= 500:
				reqLogger.Error("http_request", attrs...)
			case res.Status >= 400:
				reqLogger.Warn("http_request", attrs...)
			default:
				reqLogger.Info("http_request", attrs...)
			}
			return nil
		}
	})

	// Eigener HTTPErrorHandler: intern alles loggen, extern nur sichere Payload
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		l, _ := c.Get("logger").(*slog.Logger)
		if l == nil {
			l = logger
		}

		var ae *appError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			// schon unser appError
		case errors.As(err, &he):
			// Nur 4xx-Mitteilungen an Nutzer durchlassen; 5xx maskieren
			public := ""
			if he.Code >= 400 && he.Code < 500 {
				public = fmt.Sprint(he.Message)
			}
			ae = &appError{
				Code:   httpStatusToCode(he.Code),
				Status: he.Code,
				Err:    fmt.Errorf("%v", he.Message),
				Public: public,
			}
		default:
			if ae = appErrorFrom(err); ae == nil {
				ae = ErrInternal(err)
			}
		}

		attrs := []any{
			"status", ae.Status,
			"code", ae.Code,
			"error", ae.Err.Error(),
		}
		if ae.Status >= 500 {
			l.Error("handler_error", attrs...)
		} else {
			l.Warn("handler_error", attrs...)
		}

		body := map[string]any{
			"error":      userMessage(ae),
			"error_code": ae.Code,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}
		if len(ae.Fields) > 0 {
			body["fields"] = ae.Fields
		}
		if ae.Fallback != nil {
			body["fallback"] = ae.Fallback
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(ae.Status)
			return
		}
		_ = c.JSON(ae.Status, body)
	}

	secret := []byte(cfg.CookieSecret)
	if len(secret) == 0 {
		// sessions do not survive a restart without a configured secret
		secret = securecookie.GenerateRandomKey(32)
		logger.Warn("no cookie secret configured, using a random key")
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   cfg.Mode == "production",
	}
	e.Use(session.Middleware(store))
	e.Use(ctrl.CookieCfgMiddleware)

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLength:    32,
		TokenLookup:    "form:csrf,header:X-CSRF-Token",
		CookieName:     "csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   cfg.Mode == "production",
		Skipper:        csrfSkipper,
	}))

	ctrl.authInit(e)
	ctrl.apiInit(e)
	return e
}

// csrfSkipper lets token clients and the unauthenticated auth endpoints
// through. Browsers cannot send an Authorization header cross-site.
func csrfSkipper(c echo.Context) bool {
	if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
		return true
	}
	p := c.Request().URL.Path
	if strings.HasPrefix(p, "/api/v1/") {
		return true
	}
	if c.Request().Method == http.MethodPost && strings.HasPrefix(p, "/api/auth/") {
		return p != "/api/auth/logout"
	}
	return false
}

func userMessage(ae *appError) string {
	if ae.Public != "" {
		return ae.Public
	}
	switch ae.Code {
	case "INVALID_INPUT":
		return "The input is invalid. Please check it and send it again."
	case "UNAUTHORIZED":
		return "Please log in."
	case "FORBIDDEN":
		return "You are not allowed to do this."
	case "NOT_FOUND":
		return "The requested resource was not found."
	case "METHOD_NOT_ALLOWED":
		return "This HTTP method is not supported here."
	default:
		return "Something went wrong. Please try again later."
	}
}

func httpStatusToCode(status int) string {
	switch status {
	case 400:
		return "INVALID_INPUT"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 405:
		return "METHOD_NOT_ALLOWED"
	case 413:
		return "TOO_LARGE"
	default:
		if status >= 500 {
			return "INTERNAL"
		}
		return "ERROR"
	}
}

func shouldSkipAccessLog(c echo.Context) bool {
	p := c.Request().URL.Path
	switch p {
	case "/favicon.ico", "/robots.txt", "/healthz":
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".css", ".js", ".map", ".ico", ".svg", ".webp":
		return true
	}
	m := c.Request().Method
	if m == http.MethodHead || m == http.MethodOptions {
		return true
	}
	return false
}
