package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (ctrl *controller) apiInit(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// session or token
	api := e.Group("/api", ctrl.authMiddleware)
	ctrl.resourceRoutes(api)

	api.GET("/tokens", ctrl.apiListTokens, sessionOnly)
	api.POST("/tokens", ctrl.apiCreateToken, sessionOnly)
	api.DELETE("/tokens/:id", ctrl.apiRevokeToken, sessionOnly)

	api.GET("/subscription", ctrl.subscriptionGet)
	api.POST("/subscription/order", ctrl.subscriptionOrder, sessionOnly)
	api.POST("/subscription/verify", ctrl.subscriptionVerify, sessionOnly)
	api.POST("/subscription/cancel", ctrl.subscriptionCancel, sessionOnly)
	api.GET("/payments", ctrl.paymentList)

	ctrl.adminInit(api)

	// token only, for integrations
	v1 := e.Group("/api/v1", ctrl.APIKeyAuthMiddleware)
	ctrl.resourceRoutes(v1)
}

// resourceRoutes are served under /api and /api/v1.
func (ctrl *controller) resourceRoutes(g *echo.Group) {
	g.GET("/profile", ctrl.profileGet)
	g.PUT("/profile", ctrl.profileUpdate)
	g.POST("/profile/image", ctrl.profileImageUpload)
	g.GET("/profile/image", ctrl.profileImage)

	g.GET("/customers", ctrl.apiCustomerList)
	g.POST("/customers", ctrl.apiCustomerCreate)
	g.GET("/customers/:id", ctrl.apiCustomerGet)
	g.PUT("/customers/:id", ctrl.apiCustomerUpdate)
	g.DELETE("/customers/:id", ctrl.apiCustomerDelete)

	g.GET("/templates", ctrl.apiTemplateList)
	g.GET("/templates/defaults/:type", ctrl.apiTemplateDefaults)
	g.POST("/templates/select", ctrl.apiTemplateSelect)
	g.GET("/templates/:id", ctrl.apiTemplateGet)
	g.POST("/templates", ctrl.apiTemplateSave)
	g.PUT("/templates/:id", ctrl.apiTemplateSave)
	g.DELETE("/templates/:id", ctrl.apiTemplateDelete)

	g.GET("/invoices", ctrl.apiInvoiceList)
	g.POST("/invoices", ctrl.apiInvoiceCreate)
	g.POST("/invoices/totals", ctrl.apiInvoiceTotals)
	g.GET("/invoices/export.xlsx", ctrl.invoiceExportXLSX)
	g.GET("/invoices/:id", ctrl.apiInvoiceGet)
	g.PUT("/invoices/:id", ctrl.apiInvoiceUpdate)
	g.DELETE("/invoices/:id", ctrl.apiInvoiceDelete)
	g.GET("/invoices/:id/pdf", ctrl.apiInvoicePDF)
	g.GET("/invoices/:id/preview.png", ctrl.apiInvoicePreview)
	g.GET("/invoices/:id/einvoice.xml", ctrl.apiInvoiceEInvoice)
	g.POST("/invoices/:id/send", ctrl.apiInvoiceSend)

	g.GET("/history", ctrl.apiHistoryList)
}
