package controller

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

// CookieCfg controls how the session cookie is scoped and secured.
type CookieCfg struct {
	IsProd       bool
	ShareSubdoms bool
	ParentDomain string
}

// cookieOptions builds the cookie options for the environment.
func cookieOptions(maxAge int, cfg CookieCfg) *sessions.Options {
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.IsProd {
		opts.Secure = true
		if cfg.ShareSubdoms && cfg.ParentDomain != "" {
			opts.Domain = "." + cfg.ParentDomain
		}
	}
	return opts
}

// CookieCfgMiddleware puts the CookieCfg for this request into the context.
func (ctrl *controller) CookieCfgMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	cfg := CookieCfg{
		IsProd:       ctrl.model.Config.Mode == "production",
		ShareSubdoms: ctrl.model.Config.CookieDomain != "",
		ParentDomain: ctrl.model.Config.CookieDomain,
	}
	return func(c echo.Context) error {
		c.Set("cookiecfg", cfg)
		return next(c)
	}
}
