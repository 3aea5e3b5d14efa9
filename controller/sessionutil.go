package controller

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName       = "session"
	sessKeyVendorID   = "vendor_id"
	sessKeyPersist    = "persist"
	rememberMeSeconds = 60 * 60 * 24 * 365
)

// SessionWriter wraps a gorilla session so that every Save applies the same
// cookie options. Saving without them would turn a remember-me cookie into a
// session cookie.
type SessionWriter struct {
	sess *sessions.Session
	c    echo.Context
}

// LoadSession returns the request's session. A cookie that no longer
// decodes (rotated secret, old format) is treated as no session.
func LoadSession(c echo.Context) (*SessionWriter, error) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		if !isRecoverableSessionError(err) {
			return nil, err
		}
		requestLogger(c).Info("invalid session cookie, starting fresh", "error", err)
	}
	return &SessionWriter{sess: sess, c: c}, nil
}

func (sw *SessionWriter) Values() map[any]any {
	return sw.sess.Values
}

// VendorID is the logged in vendor or "".
func (sw *SessionWriter) VendorID() string {
	v, _ := sw.sess.Values[sessKeyVendorID].(string)
	return v
}

// Login stores the vendor and the remember-me choice.
func (sw *SessionWriter) Login(vendorID string, persist bool) {
	sw.sess.Values[sessKeyVendorID] = vendorID
	sw.sess.Values[sessKeyPersist] = persist
}

// Save writes the cookie with options derived from the persist flag.
func (sw *SessionWriter) Save() error {
	applySessionOptionsFromPersist(sw.c, sw.sess)
	return sw.sess.Save(sw.c.Request(), sw.c.Response())
}

// applySessionOptionsFromPersist sets MaxAge to one year for remember-me
// sessions and 0 (browser session) otherwise.
func applySessionOptionsFromPersist(c echo.Context, sess *sessions.Session) {
	persist, _ := sess.Values[sessKeyPersist].(bool)
	maxAge := 0
	if persist {
		maxAge = rememberMeSeconds
	}
	cfg, ok := c.Get("cookiecfg").(CookieCfg)
	if !ok {
		cfg = CookieCfg{}
	}
	sess.Options = cookieOptions(maxAge, cfg)
}

// isRecoverableSessionError checks whether the error from session.Get()
// means an invalid or old cookie.
func isRecoverableSessionError(err error) bool {
	if err == nil {
		return false
	}
	if strings.Contains(err.Error(), "securecookie: the value is not valid") {
		return true
	}
	var scErr securecookie.Error
	return errors.As(err, &scErr)
}

// ClearSession drops all values and expires the cookie.
func ClearSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil && !isRecoverableSessionError(err) {
		return err
	}
	if sess == nil {
		sess = sessions.NewSession(nil, sessionName)
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	cfg, _ := c.Get("cookiecfg").(CookieCfg)
	sess.Options = cookieOptions(-1, cfg)
	return sess.Save(c.Request(), c.Response())
}

func requestLogger(c echo.Context) *slog.Logger {
	if l, ok := c.Get("logger").(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
