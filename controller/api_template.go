package controller

import (
	"net/http"
	"time"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
)

type APITemplate struct {
	ID         string                    `json:"id" xml:"id,attr"`
	Name       string                    `json:"name" xml:"name"`
	Type       invoicing.TemplateType    `json:"type" xml:"type"`
	Builtin    bool                      `json:"builtin" xml:"builtin"`
	Premium    bool                      `json:"premium" xml:"premium"`
	Locked     bool                      `json:"locked" xml:"locked"` // premium template on a free plan
	Visibility invoicing.FieldVisibility `json:"visibility" xml:"-"`
	Fields     []invoicing.FieldKey      `json:"fields" xml:"fields>field"`
	UpdatedAt  *time.Time                `json:"updatedAt,omitempty" xml:"updated_at,omitempty"`
}

type APITemplateList struct {
	XMLName struct{}      `json:"-" xml:"templates"`
	Items   []APITemplate `json:"items" xml:"template"`
}

type templateSaveReq struct {
	Name       string                    `json:"name" validate:"required,max=100"`
	Visibility invoicing.FieldVisibility `json:"visibility"`
}

type templateSelectReq struct {
	TemplateID string `json:"templateId" validate:"required"`
}

func toAPITemplate(t *model.Template, st invoicing.PlanState) APITemplate {
	vis := t.EffectiveVisibility()
	out := APITemplate{
		ID:         t.TemplateID,
		Name:       t.Name,
		Type:       t.TemplateType,
		Builtin:    t.Builtin(),
		Premium:    invoicing.IsPremiumTemplate(t.TemplateType),
		Locked:     !invoicing.CanActivate(t.TemplateType, st),
		Visibility: vis,
		Fields:     vis.Enabled(),
	}
	if !t.Builtin() {
		u := t.UpdatedAt
		out.UpdatedAt = &u
	}
	return out
}

// apiTemplateList handles GET /templates
func (ctrl *controller) apiTemplateList(c echo.Context) error {
	rows, err := ctrl.model.ListTemplates(c.Request().Context(), vendorID(c))
	if err != nil {
		return err
	}
	st := currentVendor(c).PlanStateAt(time.Now())
	items := make([]APITemplate, len(rows))
	for i := range rows {
		items[i] = toAPITemplate(&rows[i], st)
	}
	return respond(c, http.StatusOK, APITemplateList{Items: items})
}

// apiTemplateDefaults handles GET /templates/defaults/:type
func (ctrl *controller) apiTemplateDefaults(c echo.Context) error {
	tt, err := invoicing.ParseTemplateType(c.Param("type"))
	if err != nil {
		return ErrNotFound(err)
	}
	t := model.BuiltinTemplate(tt)
	return respond(c, http.StatusOK, toAPITemplate(&t, currentVendor(c).PlanStateAt(time.Now())))
}

// apiTemplateGet handles GET /templates/:id. The answer carries the gate's
// selection, which is the simple template when the plan does not cover it.
func (ctrl *controller) apiTemplateGet(c echo.Context) error {
	ctx := c.Request().Context()
	t, err := ctrl.model.GetTemplate(ctx, vendorID(c), c.Param("id"))
	if err != nil {
		return err
	}
	sel, err := ctrl.billing.SelectTemplate(ctx, vendorID(c), t.TemplateID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"template":  toAPITemplate(t, currentVendor(c).PlanStateAt(time.Now())),
		"selection": sel,
	})
}

// apiTemplateSelect handles POST /templates/select
func (ctrl *controller) apiTemplateSelect(c echo.Context) error {
	var req templateSelectReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	sel, err := ctrl.billing.SelectTemplate(c.Request().Context(), vendorID(c), req.TemplateID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sel)
}

// apiTemplateSave handles POST /templates and PUT /templates/:id
func (ctrl *controller) apiTemplateSave(c echo.Context) error {
	var req templateSaveReq
	if err := bindValid(c, &req); err != nil {
		return err
	}
	t, err := ctrl.billing.SaveCustomTemplate(c.Request().Context(), vendorID(c), c.Param("id"), req.Name, req.Visibility)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if c.Request().Method == http.MethodPost {
		status = http.StatusCreated
	}
	return respond(c, status, toAPITemplate(t, currentVendor(c).PlanStateAt(time.Now())))
}

// apiTemplateDelete handles DELETE /templates/:id
func (ctrl *controller) apiTemplateDelete(c echo.Context) error {
	if err := ctrl.model.DeleteTemplate(c.Request().Context(), vendorID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
