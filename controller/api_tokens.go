// controller/api_tokens.go
package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
)

type createTokenReq struct {
	Name      string     `json:"name" validate:"required,max=100"`
	Scope     string     `json:"scope" validate:"omitempty,oneof=full read"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type createTokenResp struct {
	ID     uint   `json:"id"`
	Prefix string `json:"prefix"`
	Scope  string `json:"scope"`
	Token  string `json:"token"` // nur einmalig!
}

type APIToken struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	Scope      string     `json:"scope"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	Disabled   bool       `json:"disabled"`
}

type APITokenList struct {
	Items      []APIToken `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// apiListTokens handles GET /api/tokens
func (ctrl *controller) apiListTokens(c echo.Context) error {
	rows, next, err := ctrl.model.ListAPITokensByVendor(c.Request().Context(), vendorID(c), queryInt(c, "limit"), c.QueryParam("cursor"))
	if err != nil {
		return respond(c, http.StatusInternalServerError, apiError("db_error", "could not load tokens"))
	}
	items := make([]APIToken, len(rows))
	for i, t := range rows {
		items[i] = APIToken{
			ID:         t.ID,
			Name:       t.Name,
			Prefix:     t.TokenPrefix,
			Scope:      t.Scope,
			CreatedAt:  t.CreatedAt,
			ExpiresAt:  t.ExpiresAt,
			LastUsedAt: t.LastUsedAt,
			Disabled:   t.Disabled,
		}
	}
	return c.JSON(http.StatusOK, APITokenList{Items: items, NextCursor: next})
}

// apiCreateToken handles POST /api/tokens. The plain token is shown once.
func (ctrl *controller) apiCreateToken(c echo.Context) error {
	var req createTokenReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	scope, err := model.ParseScope(strings.TrimSpace(req.Scope))
	if err != nil {
		return ErrInvalid(err, "Unknown token scope.")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: errors.New("token expiry in the past"),
			Public: "Some fields are invalid. Please correct them and try again.",
			Fields: map[string]string{"expires_at": "must be in the future"}}
	}
	token, rec, err := ctrl.model.CreateAPIToken(c.Request().Context(), vendorID(c), strings.TrimSpace(req.Name), scope, req.ExpiresAt)
	if err != nil {
		return respond(c, http.StatusInternalServerError, apiError("db_error", "could not create token"))
	}
	requestLogger(c).Info("api token created", "token_id", rec.ID, "scope", rec.Scope)
	return c.JSON(http.StatusCreated, createTokenResp{
		ID: rec.ID, Prefix: rec.TokenPrefix, Scope: rec.Scope, Token: token,
	})
}

// apiRevokeToken handles DELETE /api/tokens/:id
func (ctrl *controller) apiRevokeToken(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respond(c, http.StatusBadRequest, apiError("bad_request", "invalid id"))
	}
	if err := ctrl.model.RevokeAPIToken(c.Request().Context(), vendorID(c), uint(id)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
