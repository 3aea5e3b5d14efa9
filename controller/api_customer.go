package controller

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
)

type APICustomer struct {
	ID        string    `json:"id" xml:"id,attr"`
	Number    string    `json:"number,omitempty" xml:"number,omitempty"`
	Name      string    `json:"name" xml:"name"`
	Email     string    `json:"email,omitempty" xml:"email,omitempty"`
	Address   string    `json:"address,omitempty" xml:"address,omitempty"`
	Phone     string    `json:"phone,omitempty" xml:"phone,omitempty"`
	TaxID     string    `json:"taxId,omitempty" xml:"tax_id,omitempty"`
	Country   string    `json:"country,omitempty" xml:"country,omitempty"`
	CreatedAt time.Time `json:"createdAt" xml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" xml:"updated_at"`
}

type APICustomerList struct {
	XMLName struct{}      `json:"-" xml:"customers"`
	Items   []APICustomer `json:"items" xml:"customer"`
	Total   int64         `json:"total" xml:"total,attr"`
	Limit   int           `json:"limit" xml:"limit,attr"`
	Offset  int           `json:"offset" xml:"offset,attr"`
}

type customerListQuery struct {
	Query  string `query:"q"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

// APICustomerInput is the body of POST and PUT /customers.
type APICustomerInput struct {
	Number  string `json:"number" xml:"number" validate:"max=50"`
	Name    string `json:"name" xml:"name" validate:"required,max=200"`
	Email   string `json:"email" xml:"email" validate:"omitempty,email"`
	Address string `json:"address" xml:"address" validate:"max=1000"`
	Phone   string `json:"phone" xml:"phone" validate:"max=50"`
	TaxID   string `json:"taxId" xml:"tax_id" validate:"max=50"`
	Country string `json:"country" xml:"country" validate:"max=100"`
}

// apply copies the input into comp. Country and phone are normalized; a
// phone number that does not parse is rejected.
func (in *APICustomerInput) apply(comp *model.Customer, defaultRegion string) error {
	comp.Number = strings.TrimSpace(in.Number)
	comp.Name = strings.TrimSpace(in.Name)
	comp.Email = strings.TrimSpace(in.Email)
	comp.Address = strings.TrimSpace(in.Address)
	comp.TaxID = strings.TrimSpace(in.TaxID)
	comp.Country = model.NormalizeCountry(in.Country)
	comp.Phone = ""
	if p := strings.TrimSpace(in.Phone); p != "" {
		region := comp.Country
		if region == "" {
			region = defaultRegion
		}
		phone, err := model.NormalizePhone(p, region)
		if err != nil {
			return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err,
				Public: "Some fields are invalid. Please correct them and try again.",
				Fields: map[string]string{"phone": "is not a valid phone number"}}
		}
		comp.Phone = phone
	}
	return nil
}

// apiCustomerList handles GET /customers
func (ctrl *controller) apiCustomerList(c echo.Context) error {
	var q customerListQuery
	if err := c.Bind(&q); err != nil {
		return respond(c, http.StatusBadRequest, apiError("bad_query", "invalid query params"))
	}
	if q.Limit <= 0 {
		q.Limit = 25
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	rows, total, err := ctrl.model.ListCustomers(c.Request().Context(), vendorID(c), strings.TrimSpace(q.Query), q.Offset, q.Limit)
	if err != nil {
		return err
	}
	items := make([]APICustomer, len(rows))
	for i := range rows {
		items[i] = toAPICustomer(&rows[i])
	}
	return respond(c, http.StatusOK, APICustomerList{
		Items:  items,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
}

// apiCustomerGet handles GET /customers/:id
func (ctrl *controller) apiCustomerGet(c echo.Context) error {
	comp, err := ctrl.model.GetCustomer(c.Request().Context(), vendorID(c), c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set("ETag",
		`W/"cust-`+comp.CustomerID+`-`+strconv.FormatInt(comp.UpdatedAt.Unix(), 10)+`"`)
	return respond(c, http.StatusOK, toAPICustomer(comp))
}

// apiCustomerCreate handles POST /customers
func (ctrl *controller) apiCustomerCreate(c echo.Context) error {
	var input APICustomerInput
	if err := bindValid(c, &input); err != nil {
		return err
	}
	v := currentVendor(c)
	comp := &model.Customer{VendorID: v.VendorID}
	if err := input.apply(comp, v.Country); err != nil {
		return err
	}
	if err := ctrl.model.CreateCustomer(c.Request().Context(), comp); err != nil {
		return err
	}
	c.Response().Header().Set("Location", c.Path()+"/"+comp.CustomerID)
	return respond(c, http.StatusCreated, toAPICustomer(comp))
}

// apiCustomerUpdate handles PUT /customers/:id
func (ctrl *controller) apiCustomerUpdate(c echo.Context) error {
	var input APICustomerInput
	if err := bindValid(c, &input); err != nil {
		return err
	}
	ctx := c.Request().Context()
	v := currentVendor(c)
	comp, err := ctrl.model.GetCustomer(ctx, v.VendorID, c.Param("id"))
	if err != nil {
		return err
	}
	if err := input.apply(comp, v.Country); err != nil {
		return err
	}
	if err := ctrl.model.UpdateCustomer(ctx, comp); err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPICustomer(comp))
}

// apiCustomerDelete handles DELETE /customers/:id. Issued invoices keep
// their customer snapshot.
func (ctrl *controller) apiCustomerDelete(c echo.Context) error {
	if err := ctrl.model.DeleteCustomer(c.Request().Context(), vendorID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toAPICustomer(comp *model.Customer) APICustomer {
	return APICustomer{
		ID:        comp.CustomerID,
		Number:    comp.Number,
		Name:      comp.Name,
		Email:     comp.Email,
		Address:   comp.Address,
		Phone:     comp.Phone,
		TaxID:     comp.TaxID,
		Country:   comp.Country,
		CreatedAt: comp.CreatedAt,
		UpdatedAt: comp.UpdatedAt,
	}
}
