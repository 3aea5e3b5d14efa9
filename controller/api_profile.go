package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/billingcat/invoicedesk/filestore"
	"github.com/billingcat/invoicedesk/model"
	"github.com/labstack/echo/v4"
)

type APIProfile struct {
	VendorID             string `json:"vendorId" xml:"vendor_id,attr"`
	Email                string `json:"email" xml:"email"`
	BrandName            string `json:"brandName" xml:"brand_name"`
	OwnerName            string `json:"ownerName" xml:"owner_name"`
	Address              string `json:"address,omitempty" xml:"address,omitempty"`
	Telephone            string `json:"telephone,omitempty" xml:"telephone,omitempty"`
	Website              string `json:"website,omitempty" xml:"website,omitempty"`
	BusinessCode         string `json:"businessCode,omitempty" xml:"business_code,omitempty"`
	Country              string `json:"country,omitempty" xml:"country,omitempty"`
	InvoiceNumberPattern string `json:"invoiceNumberPattern,omitempty" xml:"invoice_number_pattern,omitempty"`
	HasImage             bool   `json:"hasImage" xml:"has_image"`
}

type profileInput struct {
	BrandName            string `json:"brandName" validate:"required,max=200"`
	OwnerName            string `json:"ownerName" validate:"max=200"`
	Address              string `json:"address" validate:"max=1000"`
	Telephone            string `json:"telephone" validate:"max=50"`
	Website              string `json:"website" validate:"omitempty,max=200"`
	BusinessCode         string `json:"businessCode" validate:"max=50"`
	Country              string `json:"country" validate:"max=100"`
	InvoiceNumberPattern string `json:"invoiceNumberPattern" validate:"max=100"`
}

func toAPIProfile(v *model.Vendor) APIProfile {
	return APIProfile{
		VendorID:             v.VendorID,
		Email:                v.Email,
		BrandName:            v.BrandName,
		OwnerName:            v.OwnerName,
		Address:              v.Address,
		Telephone:            v.Telephone,
		Website:              v.Website,
		BusinessCode:         v.BusinessCode,
		Country:              v.Country,
		InvoiceNumberPattern: v.InvoiceNumberPattern,
		HasImage:             v.ImageKey != "",
	}
}

// profileGet handles GET /profile
func (ctrl *controller) profileGet(c echo.Context) error {
	return respond(c, http.StatusOK, toAPIProfile(currentVendor(c)))
}

// profileUpdate handles PUT /profile
func (ctrl *controller) profileUpdate(c echo.Context) error {
	var in profileInput
	if err := bindValid(c, &in); err != nil {
		return err
	}
	v := *currentVendor(c)
	v.BrandName = strings.TrimSpace(in.BrandName)
	v.OwnerName = strings.TrimSpace(in.OwnerName)
	v.Address = strings.TrimSpace(in.Address)
	v.Website = strings.TrimSpace(in.Website)
	v.BusinessCode = strings.TrimSpace(in.BusinessCode)
	v.Country = model.NormalizeCountry(in.Country)
	v.InvoiceNumberPattern = strings.TrimSpace(in.InvoiceNumberPattern)

	phone, err := model.NormalizePhone(in.Telephone, v.Country)
	if err != nil {
		return &appError{Code: "INVALID_INPUT", Status: http.StatusBadRequest, Err: err,
			Public: "Some fields are invalid. Please correct them and try again.",
			Fields: map[string]string{"telephone": "is not a valid phone number"}}
	}
	v.Telephone = phone

	if err := ctrl.model.UpdateVendorProfile(c.Request().Context(), &v); err != nil {
		return err
	}
	return respond(c, http.StatusOK, toAPIProfile(&v))
}

// profileImageUpload handles POST /profile/image with a multipart field
// "image". The image is scaled down and stored as JPEG.
func (ctrl *controller) profileImageUpload(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return ErrInvalid(err, "Please choose an image to upload.")
	}
	if fh.Size > filestore.MaxImageSize {
		return &appError{Code: "TOO_LARGE", Status: http.StatusRequestEntityTooLarge,
			Err:    fmt.Errorf("upload of %d bytes", fh.Size),
			Public: fmt.Sprintf("The image must be smaller than %d MB.", filestore.MaxImageSize>>20)}
	}
	src, err := fh.Open()
	if err != nil {
		return ErrInternal(err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, filestore.MaxImageSize+1))
	if err != nil {
		return ErrInternal(err)
	}

	ctx := c.Request().Context()
	vid := vendorID(c)
	key, err := ctrl.images.Save(ctx, vid, data)
	if errors.Is(err, filestore.ErrNotAnImage) {
		return ErrInvalid(err, "The file is not a supported image.")
	}
	if err != nil {
		return ErrInternal(err)
	}
	if err := ctrl.model.SetVendorImage(ctx, vid, key); err != nil {
		return err
	}
	requestLogger(c).Info("profile image stored", "key", key, "bytes", len(data))
	v := *currentVendor(c)
	v.ImageKey = key
	return respond(c, http.StatusOK, toAPIProfile(&v))
}

// profileImage handles GET /profile/image
func (ctrl *controller) profileImage(c echo.Context) error {
	v := currentVendor(c)
	if v.ImageKey == "" {
		return ErrNotFound(errors.New("no profile image"))
	}
	data, err := ctrl.images.LoadImage(c.Request().Context(), v.ImageKey)
	if errors.Is(err, filestore.ErrNotFound) {
		return ErrNotFound(err)
	}
	if err != nil {
		return ErrInternal(err)
	}
	c.Response().Header().Set("Last-Modified", v.UpdatedAt.UTC().Format(http.TimeFormat))
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Blob(http.StatusOK, "image/jpeg", data)
}
