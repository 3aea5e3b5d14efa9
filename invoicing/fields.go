package invoicing

import "fmt"

// FieldKey names one optional invoice field that a template can switch on or off.
type FieldKey string

const (
	FieldCompanyWebsite        FieldKey = "companyWebsite"
	FieldOwnerName             FieldKey = "ownerName"
	FieldCompanyTaxID          FieldKey = "companyTaxId"
	FieldCustomerAddress       FieldKey = "customerAddress"
	FieldCustomerPhone         FieldKey = "customerPhone"
	FieldCustomerTaxID         FieldKey = "customerTaxId"
	FieldShippedFrom           FieldKey = "shippedFrom"
	FieldShippingTo            FieldKey = "shippingTo"
	FieldInvoiceTax            FieldKey = "invoiceTax"
	FieldInvoiceDiscount       FieldKey = "invoiceDiscount"
	FieldCutoff                FieldKey = "cutoff"
	FieldShipCharge            FieldKey = "shipCharge"
	FieldPerRowDiscount        FieldKey = "perRowDiscount"
	FieldPerRowTax             FieldKey = "perRowTax"
	FieldPaymentBlock          FieldKey = "paymentBlock"
	FieldPaymentNumber         FieldKey = "paymentNumber"
	FieldPaymentAccountDetails FieldKey = "paymentAccountDetails"
	FieldPaymentTransactionID  FieldKey = "paymentTransactionId"
	FieldNotes                 FieldKey = "notes"
	FieldTerms                 FieldKey = "terms"
	FieldGrandTotalInWords     FieldKey = "grandTotalInWords"
)

var allFieldKeys = []FieldKey{
	FieldCompanyWebsite,
	FieldOwnerName,
	FieldCompanyTaxID,
	FieldCustomerAddress,
	FieldCustomerPhone,
	FieldCustomerTaxID,
	FieldShippedFrom,
	FieldShippingTo,
	FieldInvoiceTax,
	FieldInvoiceDiscount,
	FieldCutoff,
	FieldShipCharge,
	FieldPerRowDiscount,
	FieldPerRowTax,
	FieldPaymentBlock,
	FieldPaymentNumber,
	FieldPaymentAccountDetails,
	FieldPaymentTransactionID,
	FieldNotes,
	FieldTerms,
	FieldGrandTotalInWords,
}

// AllFieldKeys returns every optional field key in display order.
func AllFieldKeys() []FieldKey {
	out := make([]FieldKey, len(allFieldKeys))
	copy(out, allFieldKeys)
	return out
}

// ParseFieldKey validates a key coming from outside the process.
func ParseFieldKey(s string) (FieldKey, error) {
	for _, k := range allFieldKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// FieldVisibility holds one flag per optional field. It is a plain struct so
// that it can be embedded into database rows as flattened columns.
type FieldVisibility struct {
	CompanyWebsite        bool `json:"companyWebsite"`
	OwnerName             bool `json:"ownerName"`
	CompanyTaxID          bool `json:"companyTaxId"`
	CustomerAddress       bool `json:"customerAddress"`
	CustomerPhone         bool `json:"customerPhone"`
	CustomerTaxID         bool `json:"customerTaxId"`
	ShippedFrom           bool `json:"shippedFrom"`
	ShippingTo            bool `json:"shippingTo"`
	InvoiceTax            bool `json:"invoiceTax"`
	InvoiceDiscount       bool `json:"invoiceDiscount"`
	Cutoff                bool `json:"cutoff"`
	ShipCharge            bool `json:"shipCharge"`
	PerRowDiscount        bool `json:"perRowDiscount"`
	PerRowTax             bool `json:"perRowTax"`
	PaymentBlock          bool `json:"paymentBlock"`
	PaymentNumber         bool `json:"paymentNumber"`
	PaymentAccountDetails bool `json:"paymentAccountDetails"`
	PaymentTransactionID  bool `json:"paymentTransactionId"`
	Notes                 bool `json:"notes"`
	Terms                 bool `json:"terms"`
	GrandTotalInWords     bool `json:"grandTotalInWords"`
}

func (v *FieldVisibility) flag(k FieldKey) *bool {
	switch k {
	case FieldCompanyWebsite:
		return &v.CompanyWebsite
	case FieldOwnerName:
		return &v.OwnerName
	case FieldCompanyTaxID:
		return &v.CompanyTaxID
	case FieldCustomerAddress:
		return &v.CustomerAddress
	case FieldCustomerPhone:
		return &v.CustomerPhone
	case FieldCustomerTaxID:
		return &v.CustomerTaxID
	case FieldShippedFrom:
		return &v.ShippedFrom
	case FieldShippingTo:
		return &v.ShippingTo
	case FieldInvoiceTax:
		return &v.InvoiceTax
	case FieldInvoiceDiscount:
		return &v.InvoiceDiscount
	case FieldCutoff:
		return &v.Cutoff
	case FieldShipCharge:
		return &v.ShipCharge
	case FieldPerRowDiscount:
		return &v.PerRowDiscount
	case FieldPerRowTax:
		return &v.PerRowTax
	case FieldPaymentBlock:
		return &v.PaymentBlock
	case FieldPaymentNumber:
		return &v.PaymentNumber
	case FieldPaymentAccountDetails:
		return &v.PaymentAccountDetails
	case FieldPaymentTransactionID:
		return &v.PaymentTransactionID
	case FieldNotes:
		return &v.Notes
	case FieldTerms:
		return &v.Terms
	case FieldGrandTotalInWords:
		return &v.GrandTotalInWords
	}
	return nil
}

// Get reports whether k is visible. Unknown keys are never visible.
func (v FieldVisibility) Get(k FieldKey) bool {
	if p := v.flag(k); p != nil {
		return *p
	}
	return false
}

// Set switches k on or off. Unknown keys are ignored.
func (v *FieldVisibility) Set(k FieldKey, on bool) {
	if p := v.flag(k); p != nil {
		*p = on
	}
}

// Enabled lists the visible keys in display order.
func (v FieldVisibility) Enabled() []FieldKey {
	var out []FieldKey
	for _, k := range allFieldKeys {
		if v.Get(k) {
			out = append(out, k)
		}
	}
	return out
}

// VisibilityOf returns a FieldVisibility with exactly the given keys on.
func VisibilityOf(keys ...FieldKey) FieldVisibility {
	var v FieldVisibility
	for _, k := range keys {
		v.Set(k, true)
	}
	return v
}

// Diff lists the keys whose flag differs between v and other.
func (v FieldVisibility) Diff(other FieldVisibility) []FieldKey {
	var out []FieldKey
	for _, k := range allFieldKeys {
		if v.Get(k) != other.Get(k) {
			out = append(out, k)
		}
	}
	return out
}

// PaymentVisible reports whether a payment sub-field is shown. The sub-fields
// only appear inside the payment block.
func (v FieldVisibility) PaymentVisible(k FieldKey) bool {
	return v.PaymentBlock && v.Get(k)
}
