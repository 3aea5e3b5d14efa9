package invoicing

import "fmt"

// TemplateType is the closed set of invoice layouts.
type TemplateType string

const (
	TemplateSimple              TemplateType = "simple"
	TemplateTaxInvoice          TemplateType = "taxInvoice"
	TemplateDeliveryInvoice     TemplateType = "deliveryInvoice"
	TemplateProfessionalInvoice TemplateType = "professionalInvoice"
	TemplateElegantInvoice      TemplateType = "elegantInvoice"
	TemplateCustom              TemplateType = "custom"
)

// TemplateTypes returns all template types, built-ins first.
func TemplateTypes() []TemplateType {
	return []TemplateType{
		TemplateSimple,
		TemplateTaxInvoice,
		TemplateDeliveryInvoice,
		TemplateProfessionalInvoice,
		TemplateElegantInvoice,
		TemplateCustom,
	}
}

// ParseTemplateType is the only way external input becomes a TemplateType.
func ParseTemplateType(s string) (TemplateType, error) {
	for _, t := range TemplateTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown template type %q", s)
}

// DefaultVisibility returns the fields a template shows before the vendor
// toggles anything. Custom templates start empty; their stored visibility is
// the vendor's own.
func DefaultVisibility(t TemplateType) FieldVisibility {
	switch t {
	case TemplateSimple:
		return FieldVisibility{}
	case TemplateTaxInvoice:
		return VisibilityOf(FieldCompanyTaxID, FieldCustomerTaxID, FieldInvoiceTax)
	case TemplateDeliveryInvoice:
		return VisibilityOf(FieldCompanyWebsite, FieldShippedFrom, FieldShippingTo)
	case TemplateProfessionalInvoice:
		return VisibilityOf(
			FieldCompanyWebsite,
			FieldOwnerName,
			FieldCustomerAddress,
			FieldInvoiceTax,
			FieldInvoiceDiscount,
			FieldPaymentBlock,
			FieldPaymentAccountDetails,
			FieldGrandTotalInWords,
		)
	case TemplateElegantInvoice:
		return VisibilityOf(
			FieldCompanyWebsite,
			FieldCustomerTaxID,
			FieldPerRowDiscount,
			FieldPerRowTax,
			FieldPaymentBlock,
			FieldPaymentAccountDetails,
			FieldGrandTotalInWords,
		)
	case TemplateCustom:
		return FieldVisibility{}
	}
	panic(fmt.Sprintf("invoicing: unhandled template type %q", string(t)))
}

// IsPremiumTemplate reports whether t needs an active premium subscription.
func IsPremiumTemplate(t TemplateType) bool {
	switch t {
	case TemplateProfessionalInvoice, TemplateElegantInvoice, TemplateCustom:
		return true
	}
	return false
}

// IsBuiltin is false only for custom templates.
func (t TemplateType) IsBuiltin() bool { return t != TemplateCustom }
