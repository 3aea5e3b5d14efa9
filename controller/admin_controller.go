package controller

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
)

// adminInit wires the /api/admin routes. They run behind authMiddleware.
func (ctrl *controller) adminInit(api *echo.Group) {
	g := api.Group("/admin", ctrl.adminMiddleware, sessionOnly)

	// Vendor list with optional search & pagination.
	g.GET("/vendors", ctrl.adminVendorsList)
	g.POST("/vendors/:id/revoke", ctrl.adminVendorRevoke)
	g.POST("/vendors/:id/restore", ctrl.adminVendorRestore)
}

type adminVendor struct {
	VendorID           string     `json:"vendorId"`
	Email              string     `json:"email"`
	BrandName          string     `json:"brandName"`
	Role               model.Role `json:"role"`
	Plan               string     `json:"plan"`
	SubscriptionStatus string     `json:"subscriptionStatus"`
	Verified           bool       `json:"verified"`
	RevokedAt          *time.Time `json:"revokedAt,omitempty"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type adminVendorPage struct {
	Q          string        `json:"q"`
	Vendors    []adminVendor `json:"vendors"`
	Page       int           `json:"page"`
	Per        int           `json:"per"`
	Total      int64         `json:"total"`
	TotalPages int           `json:"totalPages"`
	PrevURL    string        `json:"prevUrl,omitempty"`
	NextURL    string        `json:"nextUrl,omitempty"`
	SelfURL    string        `json:"selfUrl"`
}

// adminVendorsList returns a searchable, paginated list of vendors.
func (ctrl *controller) adminVendorsList(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))

	// Pagination params
	const defaultPerPage = 20
	const maxPerPage = 100

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("per"))
	if perPage <= 0 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	offset := (page - 1) * perPage

	vendors, total, err := ctrl.model.ListVendors(c.Request().Context(), q, offset, perPage)
	if err != nil {
		return err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	// Keep q and per in the query while changing page
	buildURL := func(p int) string {
		return "/api/admin/vendors?q=" + url.QueryEscape(q) +
			"&per=" + strconv.Itoa(perPage) +
			"&page=" + strconv.Itoa(p)
	}

	out := adminVendorPage{
		Q:          q,
		Vendors:    make([]adminVendor, len(vendors)),
		Page:       page,
		Per:        perPage,
		Total:      total,
		TotalPages: totalPages,
		SelfURL:    buildURL(page),
	}
	if page > 1 {
		out.PrevURL = buildURL(page - 1)
	}
	if page < totalPages {
		out.NextURL = buildURL(page + 1)
	}
	for i, v := range vendors {
		out.Vendors[i] = adminVendor{
			VendorID:           v.VendorID,
			Email:              v.Email,
			BrandName:          v.BrandName,
			Role:               v.Role,
			Plan:               string(v.Plan),
			SubscriptionStatus: string(v.SubscriptionStatus),
			Verified:           v.Verified,
			RevokedAt:          v.RevokedAt,
			LastLoginAt:        v.LastLoginAt,
			CreatedAt:          v.CreatedAt,
		}
	}
	return c.JSON(http.StatusOK, out)
}

// adminVendorRevoke blocks a vendor. Admins cannot be revoked.
func (ctrl *controller) adminVendorRevoke(c echo.Context) error {
	id := c.Param("id")
	if err := ctrl.model.RevokeVendor(c.Request().Context(), id); err != nil {
		return err
	}
	requestLogger(c).Warn("vendor revoked", "target_vendor_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *controller) adminVendorRestore(c echo.Context) error {
	id := c.Param("id")
	if err := ctrl.model.RestoreVendor(c.Request().Context(), id); err != nil {
		return err
	}
	requestLogger(c).Info("vendor restored", "target_vendor_id", id)
	return c.NoContent(http.StatusNoContent)
}
