package billing_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/billingcat/invoicedesk/billing"
	"github.com/billingcat/invoicedesk/fixtures"
	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/mail"
	"github.com/billingcat/invoicedesk/model"
	"github.com/billingcat/invoicedesk/render"
	"github.com/shopspring/decimal"
)

type fakeRenderer struct {
	docs []render.Document
	err  error
}

func (r *fakeRenderer) Render(ctx context.Context, doc render.Document) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.docs = append(r.docs, doc)
	return []byte("%PDF-1.4 fake"), nil
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeImages map[string][]byte

func (f fakeImages) LoadImage(ctx context.Context, key string) ([]byte, error) {
	b, ok := f[key]
	if !ok {
		return nil, errors.New("no such image")
	}
	return b, nil
}

type failingHistory struct{}

func (failingHistory) AppendHistory(ctx context.Context, ev invoicing.Event) error {
	return errors.New("disk full")
}

// failingStore refuses to write invoices.
type failingStore struct {
	*model.Store
}

func (failingStore) CreateInvoice(ctx context.Context, rec invoicing.Record) (*model.Invoice, error) {
	return nil, errors.New("connection reset")
}

type testEnv struct {
	store    *model.Store
	data     *fixtures.TestData
	svc      *billing.Service
	renderer *fakeRenderer
	mailer   *fakeMailer
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	store := fixtures.NewTestStore(t)
	env := &testEnv{
		store:    store,
		data:     fixtures.SeedTestData(t, store),
		renderer: &fakeRenderer{},
		mailer:   &fakeMailer{},
	}
	env.svc = env.service(store, store)
	return env
}

func (env *testEnv) service(store billing.Store, history invoicing.HistoryAppender) *billing.Service {
	logger := quietLogger()
	return billing.NewService(store, invoicing.NewGate(env.store), invoicing.NewEmitter(history, logger),
		env.renderer, env.mailer, nil, logger)
}

func (env *testEnv) actions(t *testing.T, vendorID, invoiceID string) []invoicing.Action {
	t.Helper()
	rows, _, err := env.store.ListHistory(context.Background(), vendorID, model.HistoryQuery{InvoiceID: invoiceID})
	if err != nil {
		t.Fatal(err)
	}
	var out []invoicing.Action
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i].Action)
	}
	return out
}

func (env *testEnv) invoiceCount(t *testing.T, vendorID string) int {
	t.Helper()
	all, err := env.store.AllInvoices(context.Background(), vendorID)
	if err != nil {
		t.Fatal(err)
	}
	return len(all)
}

func TestPrepare_Totals(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		vendorID   string
		state      invoicing.EditorState
		subtotal   string
		grandTotal string
	}{
		{
			name:       "simple",
			vendorID:   fixtures.DefaultVendorID,
			state:      fixtures.EditorState(env.data.Customer.CustomerID),
			subtotal:   "100",
			grandTotal: "100",
		},
		{
			name:     "tax invoice",
			vendorID: fixtures.DefaultVendorID,
			state: fixtures.EditorState(env.data.Customer.CustomerID,
				fixtures.WithTemplate(invoicing.TemplateTaxInvoice),
				fixtures.WithItems(fixtures.Item("Audit", "1", "200")),
				fixtures.WithInvoiceTax("10")),
			subtotal:   "200",
			grandTotal: "220",
		},
		{
			name:     "per-row discount and tax",
			vendorID: fixtures.PremiumVendorID,
			state: fixtures.EditorState(env.data.PremiumCustomer.CustomerID,
				fixtures.WithTemplate(invoicing.TemplateElegantInvoice),
				fixtures.WithItems(
					fixtures.ItemWithRates("Bolts", "3", "10", "10", "5"),
					fixtures.ItemWithRates("Nuts", "1", "20", "0", "0"),
				)),
			subtotal:   "48.35",
			grandTotal: "48.35",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := env.svc.Prepare(ctx, tc.vendorID, tc.state)
			if err != nil {
				t.Fatalf("prepare: %v", err)
			}
			inv := res.Invoice
			if !inv.Subtotal.Equal(decimal.RequireFromString(tc.subtotal)) {
				t.Errorf("subtotal = %s, want %s", inv.Subtotal, tc.subtotal)
			}
			if !inv.GrandTotal.Equal(decimal.RequireFromString(tc.grandTotal)) {
				t.Errorf("grand total = %s, want %s", inv.GrandTotal, tc.grandTotal)
			}
			if !strings.HasPrefix(inv.InvoiceID, "inv_") || inv.Number == "" {
				t.Errorf("id %q, number %q", inv.InvoiceID, inv.Number)
			}
			stored, err := env.store.GetInvoice(ctx, tc.vendorID, inv.InvoiceID)
			if err != nil {
				t.Fatal(err)
			}
			if err := stored.Record().Verify(); err != nil {
				t.Errorf("round trip: %v", err)
			}
			if got := env.actions(t, tc.vendorID, inv.InvoiceID); len(got) != 1 || got[0] != invoicing.ActionCreated {
				t.Errorf("history = %v", got)
			}
		})
	}
}

func TestPrepare_PremiumTemplateRefused(t *testing.T) {
	env := setup(t)
	state := fixtures.EditorState(env.data.Customer.CustomerID,
		fixtures.WithTemplate(invoicing.TemplateProfessionalInvoice))

	_, err := env.svc.Prepare(context.Background(), fixtures.DefaultVendorID, state)
	if invoicing.KindOf(err) != invoicing.KindPlanGate {
		t.Fatalf("err = %v, want plan gate", err)
	}
	sel, ok := invoicing.PlanGateFallback(err)
	if !ok || sel.Effective != invoicing.TemplateSimple || sel.Warning == "" {
		t.Errorf("fallback = %+v", sel)
	}
	if n := env.invoiceCount(t, fixtures.DefaultVendorID); n != 0 {
		t.Errorf("%d invoices stored", n)
	}
}

func TestPrepare_TemplateIDIsResolved(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	// a premium id under a simple type is judged by the stored template
	state := fixtures.EditorState(env.data.Customer.CustomerID)
	state.TemplateID = string(invoicing.TemplateProfessionalInvoice)
	_, err := env.svc.Prepare(ctx, fixtures.DefaultVendorID, state)
	var e *invoicing.Error
	if !errors.As(err, &e) || e.Kind != invoicing.KindValidation {
		t.Fatalf("type mismatch: err = %v, want validation", err)
	}
	if _, ok := e.Fields["templateType"]; !ok {
		t.Errorf("fields = %v, want templateType", e.Fields)
	}

	// without a type the stored one is used and the gate refuses it
	state.TemplateType = ""
	_, err = env.svc.Prepare(ctx, fixtures.DefaultVendorID, state)
	if invoicing.KindOf(err) != invoicing.KindPlanGate {
		t.Errorf("id only: err = %v, want plan gate", err)
	}
	if n := env.invoiceCount(t, fixtures.DefaultVendorID); n != 0 {
		t.Errorf("%d invoices stored for the free vendor", n)
	}

	tests := []struct {
		name       string
		templateID string
	}{
		{"unknown id", "tpl_does_not_exist"},
		// custom templates of other vendors are unknown too
		{"foreign template", env.data.Template.TemplateID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := fixtures.EditorState(env.data.PremiumCustomer.CustomerID,
				fixtures.WithCustomTemplate(tc.templateID, invoicing.VisibilityOf(invoicing.FieldNotes)))
			vendorID := fixtures.PremiumVendorID
			if tc.name == "foreign template" {
				st.CustomerID = env.data.Customer.CustomerID
				vendorID = fixtures.DefaultVendorID
			}
			_, err := env.svc.Prepare(ctx, vendorID, st)
			var e *invoicing.Error
			if !errors.As(err, &e) || e.Kind != invoicing.KindValidation {
				t.Fatalf("err = %v, want validation", err)
			}
			if _, ok := e.Fields["templateId"]; !ok {
				t.Errorf("fields = %v, want templateId", e.Fields)
			}
		})
	}
	if n := env.invoiceCount(t, fixtures.PremiumVendorID); n != 0 {
		t.Errorf("%d invoices stored for the premium vendor", n)
	}

	// a matching id and type is stored as sent
	res, err := env.svc.Prepare(ctx, fixtures.PremiumVendorID, fixtures.EditorState(env.data.PremiumCustomer.CustomerID,
		fixtures.WithCustomTemplate(env.data.Template.TemplateID, env.data.Template.Visibility)))
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.TemplateID != env.data.Template.TemplateID || res.Invoice.TemplateType != invoicing.TemplateCustom {
		t.Errorf("stored template = %q/%q", res.Invoice.TemplateID, res.Invoice.TemplateType)
	}
}

func TestPrepare_Validation(t *testing.T) {
	env := setup(t)
	tests := []struct {
		name  string
		state invoicing.EditorState
		field string
	}{
		{"no items", fixtures.EditorState(env.data.Customer.CustomerID, fixtures.WithItems()), "items"},
		{"bad price", fixtures.EditorState(env.data.Customer.CustomerID,
			fixtures.WithItems(fixtures.Item("Consulting", "1", "abc"))), "items[0].unitPrice"},
		{"empty description", fixtures.EditorState(env.data.Customer.CustomerID,
			fixtures.WithItems(fixtures.Item(" ", "1", "5"))), "items[0].description"},
		{"unknown customer", fixtures.EditorState("cus_missing"), "customerId"},
		// customers of other vendors are unknown too
		{"foreign customer", fixtures.EditorState(env.data.PremiumCustomer.CustomerID), "customerId"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Prepare(context.Background(), fixtures.DefaultVendorID, tc.state)
			var e *invoicing.Error
			if !errors.As(err, &e) || e.Kind != invoicing.KindValidation {
				t.Fatalf("err = %v, want validation", err)
			}
			if _, ok := e.Fields[tc.field]; !ok {
				t.Errorf("fields = %v, want %s", e.Fields, tc.field)
			}
		})
	}
	if n := env.invoiceCount(t, fixtures.DefaultVendorID); n != 0 {
		t.Errorf("%d invoices stored", n)
	}
}

func TestPrepare_PersistenceFailure(t *testing.T) {
	env := setup(t)
	svc := env.service(failingStore{env.store}, env.store)
	_, err := svc.Prepare(context.Background(), fixtures.DefaultVendorID,
		fixtures.EditorState(env.data.Customer.CustomerID))
	if invoicing.KindOf(err) != invoicing.KindPersistence {
		t.Fatalf("err = %v, want persistence", err)
	}
	rows, _, _ := env.store.ListHistory(context.Background(), fixtures.DefaultVendorID, model.HistoryQuery{})
	if len(rows) != 0 {
		t.Errorf("history written for a failed save: %d rows", len(rows))
	}
}

func TestPrepare_AuditFailureKeepsInvoice(t *testing.T) {
	env := setup(t)
	svc := env.service(env.store, failingHistory{})
	res, err := svc.Prepare(context.Background(), fixtures.DefaultVendorID,
		fixtures.EditorState(env.data.Customer.CustomerID))
	if err != nil {
		t.Fatalf("prepare must succeed without history: %v", err)
	}
	if _, err := env.store.GetInvoice(context.Background(), fixtures.DefaultVendorID, res.Invoice.InvoiceID); err != nil {
		t.Errorf("invoice not stored: %v", err)
	}
}

func TestPrepare_WebsiteSideEffect(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	_, err := env.svc.Prepare(ctx, fixtures.DefaultVendorID,
		fixtures.EditorState(env.data.Customer.CustomerID, fixtures.WithWebsite("https://corner.example.org")))
	if err != nil {
		t.Fatal(err)
	}
	v, _ := env.store.GetVendor(ctx, fixtures.DefaultVendorID)
	if v.Website != "https://corner.example.org" {
		t.Errorf("website = %q", v.Website)
	}
}

func TestUpdate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	res, err := env.svc.Prepare(ctx, fixtures.DefaultVendorID, fixtures.EditorState(env.data.Customer.CustomerID))
	if err != nil {
		t.Fatal(err)
	}
	created := res.Invoice

	state := fixtures.EditorState(env.data.Customer.CustomerID,
		fixtures.WithItems(fixtures.Item("Consulting", "2", "50"), fixtures.Item("Travel", "1", "30")))
	res, err = env.svc.Update(ctx, fixtures.DefaultVendorID, created.InvoiceID, state)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Invoice.Number != created.Number || !res.Invoice.GrandTotal.Equal(decimal.NewFromInt(130)) {
		t.Errorf("number %q total %s", res.Invoice.Number, res.Invoice.GrandTotal)
	}

	rows, _, _ := env.store.ListHistory(ctx, fixtures.DefaultVendorID, model.HistoryQuery{InvoiceID: created.InvoiceID})
	if len(rows) != 2 || rows[0].Action != invoicing.ActionUpdated {
		t.Fatalf("history = %+v", rows)
	}
	fields, _ := rows[0].Details["fields"].([]any)
	if len(fields) != 1 || fields[0] != "items" {
		t.Errorf("changed fields = %v", rows[0].Details["fields"])
	}

	if _, err := env.svc.Update(ctx, fixtures.PremiumVendorID, created.InvoiceID, state); invoicing.KindOf(err) != invoicing.KindPersistence {
		t.Errorf("update by another vendor: err = %v", err)
	}
}

// A vendor loses premium while the editor is open: selecting worked,
// saving must not.
func TestPlanDowngradeMidSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	tpl := env.data.Template

	sel, err := env.svc.SelectTemplate(ctx, fixtures.PremiumVendorID, tpl.TemplateID)
	if err != nil || sel.Rejected() || sel.TemplateID != tpl.TemplateID {
		t.Fatalf("select while premium: %+v, %v", sel, err)
	}

	if err := env.store.CancelSubscription(ctx, fixtures.PremiumVendorID); err != nil {
		t.Fatal(err)
	}

	_, err = env.svc.SaveCustomTemplate(ctx, fixtures.PremiumVendorID, tpl.TemplateID, "Workshop v2", tpl.Visibility)
	if invoicing.KindOf(err) != invoicing.KindPlanGate {
		t.Errorf("save template: err = %v, want plan gate", err)
	}
	stored, _ := env.store.GetTemplate(ctx, fixtures.PremiumVendorID, tpl.TemplateID)
	if stored.Name != "Workshop" {
		t.Errorf("template changed to %q", stored.Name)
	}

	state := fixtures.EditorState(env.data.PremiumCustomer.CustomerID,
		fixtures.WithCustomTemplate(tpl.TemplateID, tpl.Visibility))
	_, err = env.svc.Prepare(ctx, fixtures.PremiumVendorID, state)
	fb, ok := invoicing.PlanGateFallback(err)
	if !ok || fb.Effective != invoicing.TemplateSimple {
		t.Errorf("prepare: err = %v", err)
	}

	sel, err = env.svc.SelectTemplate(ctx, fixtures.PremiumVendorID, tpl.TemplateID)
	if err != nil || !sel.Rejected() || sel.Effective != invoicing.TemplateSimple {
		t.Errorf("select after downgrade: %+v, %v", sel, err)
	}
	if sel.Visibility != invoicing.DefaultVisibility(invoicing.TemplateSimple) {
		t.Errorf("fallback visibility = %+v", sel.Visibility)
	}
}

func TestOpen_FallbackKeepsInvoice(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	res, err := env.svc.Prepare(ctx, fixtures.PremiumVendorID, fixtures.EditorState(env.data.PremiumCustomer.CustomerID,
		fixtures.WithTemplate(invoicing.TemplateProfessionalInvoice)))
	if err != nil {
		t.Fatal(err)
	}

	inv, sel, err := env.svc.Open(ctx, fixtures.PremiumVendorID, res.Invoice.InvoiceID)
	if err != nil || sel.Rejected() || sel.Visibility != inv.Visibility {
		t.Fatalf("open while premium: %+v, %v", sel, err)
	}

	if err := env.store.CancelSubscription(ctx, fixtures.PremiumVendorID); err != nil {
		t.Fatal(err)
	}
	inv, sel, err = env.svc.Open(ctx, fixtures.PremiumVendorID, res.Invoice.InvoiceID)
	if err != nil || !sel.Rejected() {
		t.Fatalf("open after downgrade: %+v, %v", sel, err)
	}
	if inv.TemplateType != invoicing.TemplateProfessionalInvoice {
		t.Errorf("stored template changed to %s", inv.TemplateType)
	}
}

func TestSelectTemplate_Builtin(t *testing.T) {
	env := setup(t)
	sel, err := env.svc.SelectTemplate(context.Background(), fixtures.DefaultVendorID, string(invoicing.TemplateTaxInvoice))
	if err != nil || sel.Rejected() {
		t.Fatalf("%+v, %v", sel, err)
	}
	if sel.Visibility != invoicing.DefaultVisibility(invoicing.TemplateTaxInvoice) {
		t.Errorf("visibility = %+v", sel.Visibility)
	}
}

func TestSaveCustomTemplate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	vis := invoicing.VisibilityOf(invoicing.FieldNotes, invoicing.FieldTerms)

	tpl, err := env.svc.SaveCustomTemplate(ctx, fixtures.PremiumVendorID, "", "Plain", vis)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(tpl.TemplateID, "tpl_") || tpl.Visibility != vis {
		t.Errorf("template = %+v", tpl)
	}
	if _, err := env.svc.SaveCustomTemplate(ctx, fixtures.PremiumVendorID, "", "  ", vis); invoicing.KindOf(err) != invoicing.KindValidation {
		t.Errorf("empty name: err = %v", err)
	}
	if _, err := env.svc.SaveCustomTemplate(ctx, fixtures.DefaultVendorID, "", "Mine", vis); invoicing.KindOf(err) != invoicing.KindPlanGate {
		t.Errorf("free vendor: err = %v", err)
	}
}

func prepared(t *testing.T, env *testEnv) *model.Invoice {
	t.Helper()
	res, err := env.svc.Prepare(context.Background(), fixtures.DefaultVendorID,
		fixtures.EditorState(env.data.Customer.CustomerID))
	if err != nil {
		t.Fatal(err)
	}
	return res.Invoice
}

func TestDownload(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	inv := prepared(t, env)

	f, err := env.svc.Download(ctx, fixtures.DefaultVendorID, inv.InvoiceID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if f.Filename != inv.Number+".pdf" || !bytes.HasPrefix(f.Data, []byte("%PDF")) {
		t.Errorf("file = %s, %q", f.Filename, f.Data)
	}
	doc := env.renderer.docs[0]
	if !doc.Record.GrandTotal.Equal(inv.GrandTotal) || doc.Vendor.BrandName != "Corner Shop" || doc.CustomerCountry != "US" {
		t.Errorf("renderer got %+v", doc)
	}

	env.renderer.err = errors.New("out of fonts")
	if _, err := env.svc.Download(ctx, fixtures.DefaultVendorID, inv.InvoiceID); invoicing.KindOf(err) != invoicing.KindRender {
		t.Errorf("err = %v, want render", err)
	}
	got := env.actions(t, fixtures.DefaultVendorID, inv.InvoiceID)
	want := []invoicing.Action{invoicing.ActionCreated, invoicing.ActionDownloaded}
	if len(got) != len(want) || got[1] != want[1] {
		t.Errorf("history = %v, want %v", got, want)
	}
}

func TestDownload_WithLogo(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	if err := env.store.SetVendorImage(ctx, fixtures.DefaultVendorID, "vendors/x/logo.jpg"); err != nil {
		t.Fatal(err)
	}
	logger := quietLogger()
	svc := billing.NewService(env.store, invoicing.NewGate(env.store), invoicing.NewEmitter(env.store, logger),
		env.renderer, env.mailer, fakeImages{"vendors/x/logo.jpg": []byte("jpeg")}, logger)
	inv := prepared(t, env)
	if _, err := svc.Download(ctx, fixtures.DefaultVendorID, inv.InvoiceID); err != nil {
		t.Fatal(err)
	}
	if string(env.renderer.docs[0].Logo) != "jpeg" {
		t.Errorf("logo = %q", env.renderer.docs[0].Logo)
	}
}

func TestSend(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	inv := prepared(t, env)

	if err := env.svc.Send(ctx, fixtures.DefaultVendorID, inv.InvoiceID, billing.SendOptions{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := env.mailer.sent[0]
	if msg.To != "billing@acme.example" || len(msg.Attachments) != 1 || !strings.Contains(msg.Subject, inv.Number) {
		t.Errorf("message = %+v", msg)
	}
	if msg.ReplyTo != "vendor@example.com" {
		t.Errorf("reply to = %q", msg.ReplyTo)
	}

	env.mailer.err = errors.New("mailjet down")
	err := env.svc.Send(ctx, fixtures.DefaultVendorID, inv.InvoiceID, billing.SendOptions{To: "other@example.com"})
	if invoicing.KindOf(err) != invoicing.KindDelivery {
		t.Errorf("err = %v, want delivery", err)
	}
	got := env.actions(t, fixtures.DefaultVendorID, inv.InvoiceID)
	if len(got) != 2 || got[1] != invoicing.ActionSent {
		t.Errorf("history = %v", got)
	}
	if _, err := env.store.GetInvoice(ctx, fixtures.DefaultVendorID, inv.InvoiceID); err != nil {
		t.Errorf("invoice gone after failed delivery: %v", err)
	}
}

func TestEInvoice(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	inv := prepared(t, env)

	f, problems, err := env.svc.EInvoice(ctx, fixtures.DefaultVendorID, inv.InvoiceID)
	if err != nil {
		t.Fatalf("e-invoice: %v (%v)", err, problems)
	}
	if !strings.HasSuffix(f.Filename, ".xml") || !bytes.Contains(f.Data, []byte(inv.Number)) {
		t.Errorf("file %s lacks number", f.Filename)
	}

	res, err := env.svc.Prepare(ctx, fixtures.DefaultVendorID, fixtures.EditorState(env.data.Customer.CustomerID,
		fixtures.WithVisibility(invoicing.VisibilityOf(invoicing.FieldShipCharge)),
		func(st *invoicing.EditorState) { st.ShippingCharge = "5" }))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.svc.EInvoice(ctx, fixtures.DefaultVendorID, res.Invoice.InvoiceID); invoicing.KindOf(err) != invoicing.KindValidation {
		t.Errorf("shipping charge: err = %v, want validation", err)
	}
}

func TestPreviewTotals(t *testing.T) {
	env := setup(t)
	state := fixtures.EditorState("", fixtures.WithItems(fixtures.Item("x", "2", "1,5"), fixtures.Item("y", "oops", "3")))
	totals := env.svc.PreviewTotals(state)
	if !totals.GrandTotal.Equal(decimal.NewFromInt(3)) {
		t.Errorf("grand total = %s", totals.GrandTotal)
	}
}
