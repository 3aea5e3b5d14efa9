package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Plan is the vendor's commercial plan.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// SubscriptionStatus is the state of the vendor's premium subscription.
type SubscriptionStatus string

const (
	SubscriptionNone      SubscriptionStatus = "none"
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// PlanState is what the gate needs to know about a vendor.
type PlanState struct {
	Plan   Plan               `json:"plan"`
	Status SubscriptionStatus `json:"subscriptionStatus"`
}

// Premium is true for a premium plan with an active subscription.
func (s PlanState) Premium() bool {
	return s.Plan == PlanPremium && s.Status == SubscriptionActive
}

// CanActivate reports whether a vendor in state may use template t.
func CanActivate(t TemplateType, state PlanState) bool {
	return !IsPremiumTemplate(t) || state.Premium()
}

// PlanReader returns the authoritative plan state for a vendor. The gate
// calls it at every decision; implementations must not cache.
type PlanReader interface {
	PlanState(ctx context.Context, vendorID string) (PlanState, error)
}

// Selection is the outcome of choosing a template in the editor.
type Selection struct {
	Requested  TemplateType    `json:"requested"`
	Effective  TemplateType    `json:"effective"`
	TemplateID string          `json:"templateId,omitempty"`
	Visibility FieldVisibility `json:"visibility"`
	Warning    string          `json:"warning,omitempty"`
}

// Rejected is true when the gate forced a fallback.
func (s Selection) Rejected() bool { return s.Requested != s.Effective }

// FallbackSelection is the simple template, used whenever a premium
// template is refused.
func FallbackSelection(requested TemplateType) Selection {
	return Selection{
		Requested:  requested,
		Effective:  TemplateSimple,
		Visibility: DefaultVisibility(TemplateSimple),
		Warning: fmt.Sprintf("The %s template needs an active premium subscription. "+
			"Switched to the simple template.", requested),
	}
}

// Gate decides template access from a fresh plan read.
type Gate struct {
	plans PlanReader
}

// NewGate returns a gate reading plan state from plans.
func NewGate(plans PlanReader) *Gate {
	return &Gate{plans: plans}
}

// Select resolves a template choice. For built-in templates the visibility
// is the registry default; stored is the visibility of a custom template.
// A refused premium template falls back to simple with a warning; the
// returned error is only set when the plan could not be read.
func (g *Gate) Select(ctx context.Context, vendorID string, t TemplateType, stored FieldVisibility) (Selection, error) {
	state, err := g.plans.PlanState(ctx, vendorID)
	if err != nil {
		return FallbackSelection(t), E(KindPersistence, "read plan", err)
	}
	if !CanActivate(t, state) {
		return FallbackSelection(t), nil
	}
	sel := Selection{Requested: t, Effective: t, Visibility: DefaultVisibility(t)}
	if t == TemplateCustom {
		sel.Visibility = stored
	}
	return sel, nil
}

// Authorize is the save-time check. It returns a plan gate error carrying
// the fallback selection when t is refused.
func (g *Gate) Authorize(ctx context.Context, vendorID string, t TemplateType) error {
	state, err := g.plans.PlanState(ctx, vendorID)
	if err != nil {
		return E(KindPersistence, "read plan", err)
	}
	if CanActivate(t, state) {
		return nil
	}
	return planGateError(t)
}

func planGateError(t TemplateType) *Error {
	fb := FallbackSelection(t)
	return &Error{
		Kind:     KindPlanGate,
		Op:       "authorize template",
		Err:      fmt.Errorf("%w: %s", ErrPlanRequired, t),
		Fallback: &fb,
	}
}

// FilterVisibleFields keeps the keys in allowed that are on in full. Every
// other key is off.
func FilterVisibleFields(full FieldVisibility, allowed []FieldKey) FieldVisibility {
	var out FieldVisibility
	for _, k := range allowed {
		if full.Get(k) {
			out.Set(k, true)
		}
	}
	return out
}

// PlanGateFallback extracts the fallback selection of a plan gate error.
func PlanGateFallback(err error) (Selection, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindPlanGate && e.Fallback != nil {
		return *e.Fallback, true
	}
	return Selection{}, false
}

// PremiumFields are the optional fields that only premium built-in
// templates switch on. They are derived from the registry table.
func PremiumFields() []FieldKey {
	var free, premium FieldVisibility
	for _, t := range TemplateTypes() {
		def := DefaultVisibility(t)
		for _, k := range def.Enabled() {
			if IsPremiumTemplate(t) {
				premium.Set(k, true)
			} else {
				free.Set(k, true)
			}
		}
	}
	var out []FieldKey
	for _, k := range allFieldKeys {
		if premium.Get(k) && !free.Get(k) {
			out = append(out, k)
		}
	}
	return out
}

// StripPremiumFields turns off premium-only fields unless state is premium.
// It returns the keys it switched off.
func StripPremiumFields(vis FieldVisibility, state PlanState) (FieldVisibility, []FieldKey) {
	if state.Premium() {
		return vis, nil
	}
	var stripped []FieldKey
	for _, k := range PremiumFields() {
		if vis.Get(k) {
			vis.Set(k, false)
			stripped = append(stripped, k)
		}
	}
	return vis, stripped
}

// Enforce is the save-time check for an invoice: a refused template is a
// plan gate error, premium-only fields on a non-premium plan are switched
// off with a warning.
func (g *Gate) Enforce(ctx context.Context, vendorID string, t TemplateType, vis FieldVisibility) (FieldVisibility, string, error) {
	state, err := g.plans.PlanState(ctx, vendorID)
	if err != nil {
		return vis, "", E(KindPersistence, "read plan", err)
	}
	if !CanActivate(t, state) {
		e := planGateError(t)
		return e.Fallback.Visibility, e.Fallback.Warning, e
	}
	vis, stripped := StripPremiumFields(vis, state)
	if len(stripped) == 0 {
		return vis, "", nil
	}
	names := make([]string, len(stripped))
	for i, k := range stripped {
		names[i] = string(k)
	}
	return vis, "Premium fields were hidden: " + strings.Join(names, ", "), nil
}
