package controller

import (
	"net/http"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
	"github.com/xeonx/timeago"
	"gorm.io/datatypes"
)

type APIHistory struct {
	InvoiceID  string            `json:"invoiceId,omitempty" xml:"invoice_id,omitempty"`
	CustomerID string            `json:"customerId,omitempty" xml:"customer_id,omitempty"`
	Action     invoicing.Action  `json:"action" xml:"action"`
	Details    datatypes.JSONMap `json:"details,omitempty" xml:"-"`
	At         time.Time         `json:"at" xml:"at"`
	When       string            `json:"when" xml:"when"`
}

type APIHistoryList struct {
	XMLName    struct{}     `json:"-" xml:"history"`
	Items      []APIHistory `json:"items" xml:"event"`
	NextCursor string       `json:"next_cursor,omitempty" xml:"next_cursor,omitempty"`
}

// apiHistoryList handles GET /history?invoice=<id>
func (ctrl *controller) apiHistoryList(c echo.Context) error {
	rows, next, err := ctrl.model.ListHistory(c.Request().Context(), vendorID(c), model.HistoryQuery{
		InvoiceID: c.QueryParam("invoice"),
		Limit:     queryInt(c, "limit"),
		Cursor:    c.QueryParam("cursor"),
	})
	if err != nil {
		return err
	}
	ago := timeago.NoMax(timeago.English)
	items := make([]APIHistory, len(rows))
	for i, h := range rows {
		items[i] = APIHistory{
			InvoiceID:  h.InvoiceID,
			CustomerID: h.CustomerID,
			Action:     h.Action,
			Details:    h.Details,
			At:         h.At,
			When:       ago.Format(h.At),
		}
	}
	return respond(c, http.StatusOK, APIHistoryList{Items: items, NextCursor: next})
}
