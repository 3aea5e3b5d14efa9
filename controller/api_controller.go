package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
)

type APIError struct {
	Code    string `json:"code" xml:"code"`
	Message string `json:"message" xml:"message"`
}

func apiError(code, msg string) *APIError { return &APIError{Code: code, Message: msg} }

func wantsXML(c echo.Context) bool {
	if c.QueryParam("format") == "xml" {
		return true
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, "application/xml") || strings.Contains(accept, "text/xml")
}

func respond(c echo.Context, status int, v any) error {
	if wantsXML(c) {
		return c.XML(status, v)
	}
	return c.JSON(status, v)
}

// bindValid binds the request into v and runs the struct validation.
func bindValid(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return ErrInvalid(err, "invalid request body")
	}
	return c.Validate(v)
}

// attachment sends a file download.
func attachment(c echo.Context, filename, contentType string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, contentType, data)
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

var editorDecoder = newEditorDecoder()

// newEditorDecoder reads the invoice editor as a classic form post.
// Visibility is sent as repeated keys: visibility=notes&visibility=perRowTax.
func newEditorDecoder() *form.Decoder {
	dec := form.NewDecoder()
	dec.SetTagName("form")
	dec.RegisterCustomTypeFunc(func(vals []string) (any, error) {
		var vis invoicing.FieldVisibility
		for _, s := range vals {
			for _, part := range strings.Split(s, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				k, err := invoicing.ParseFieldKey(part)
				if err != nil {
					return nil, err
				}
				vis.Set(k, true)
			}
		}
		return vis, nil
	}, invoicing.FieldVisibility{})
	return dec
}

// bindEditorState accepts JSON or a form post.
func bindEditorState(c echo.Context) (invoicing.EditorState, error) {
	var state invoicing.EditorState
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEApplicationForm) || strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		if err := c.Request().ParseForm(); err != nil {
			return state, ErrInvalid(err, "invalid form data")
		}
		if err := editorDecoder.Decode(&state, c.Request().Form); err != nil {
			var de form.DecodeErrors
			if errors.As(err, &de) {
				fields := make(map[string]string, len(de))
				for k, v := range de {
					fields[k] = v.Error()
				}
				return state, &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err, Fields: fields}
			}
			return state, ErrInvalid(err, "invalid form data")
		}
		return state, nil
	}
	if err := (&echo.DefaultBinder{}).BindBody(c, &state); err != nil {
		return state, ErrInvalid(err, "invalid request body")
	}
	return state, nil
}
