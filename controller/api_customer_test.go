package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/billingcat/invoicedesk/billing"
	"github.com/billingcat/invoicedesk/filestore"
	"github.com/billingcat/invoicedesk/fixtures"
	"github.com/billingcat/invoicedesk/invoicing"
	"github.com/billingcat/invoicedesk/mail"
	"github.com/billingcat/invoicedesk/model"
	"github.com/billingcat/invoicedesk/payments"
	"github.com/billingcat/invoicedesk/render"
	"github.com/labstack/echo/v4"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, doc render.Document) ([]byte, error) {
	return []byte("%PDF-1.4 fake"), nil
}

type testAPI struct {
	e       *echo.Echo
	store   *model.Store
	data    *fixtures.TestData
	mailer  *fakeMailer
	gateway *payments.Gateway
	// token is a full-scope token of the default vendor
	token string
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := fixtures.NewTestStore(t)
	data := fixtures.SeedTestData(t, store)
	store.Config.CookieSecret = "test-cookie-secret-0123456789abcdef"
	store.Config.RegistrationAllowed = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	files, err := filestore.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	images := filestore.NewProfileImages(files)
	mailer := &fakeMailer{}
	gate := invoicing.NewGate(store)
	api := &testAPI{
		store:   store,
		data:    data,
		mailer:  mailer,
		gateway: payments.NewGateway("key_test", "gateway-secret"),
	}
	api.e = NewServer(store, Deps{
		Billing:  billing.NewService(store, gate, invoicing.NewEmitter(store, logger), fakeRenderer{}, mailer, images, logger),
		Gate:     gate,
		Images:   images,
		Mailer:   mailer,
		Payments: api.gateway,
		Logger:   logger,
	})
	api.token = api.tokenFor(t, fixtures.DefaultVendorID, model.ScopeFull)
	return api
}

func (a *testAPI) tokenFor(t *testing.T, vendorID, scope string) string {
	t.Helper()
	plain, _, err := a.store.CreateAPIToken(context.Background(), vendorID, "test", scope, nil)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return plain
}

// do sends a JSON request. An empty token sends no Authorization header.
func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("JSON unmarshal error: %v (body %s)", err, rec.Body.String())
	}
}

type errorBody struct {
	Error     string              `json:"error"`
	ErrorCode string              `json:"error_code"`
	RequestID string              `json:"request_id"`
	Fields    map[string]string   `json:"fields"`
	Fallback  *invoicing.Selection `json:"fallback"`
}

func TestAPICustomerList(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/customers", api.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var result APICustomerList
	decode(t, rec, &result)

	// SeedTestData creates one customer per vendor
	if len(result.Items) != 1 {
		t.Errorf("Items count = %d, want 1", len(result.Items))
	}
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
	if result.Limit != 25 {
		t.Errorf("Limit = %d, want default 25", result.Limit)
	}
}

func TestAPICustomerListXML(t *testing.T) {
	api := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+api.token)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationXML)
	rec := httptest.NewRecorder()
	api.e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<customers") {
		t.Errorf("expected XML body, got %s", rec.Body.String())
	}
}

func TestAPICustomerGet(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/customers/"+api.data.Customer.CustomerID, api.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("ETag header missing")
	}
	var got APICustomer
	decode(t, rec, &got)
	if got.Name != "Acme Corp" {
		t.Errorf("Name = %q, want Acme Corp", got.Name)
	}
}

func TestAPICustomerGetForeignVendor(t *testing.T) {
	api := setupTestAPI(t)

	// the premium vendor's customer is invisible to the default vendor
	rec := api.do(t, http.MethodGet, "/api/v1/customers/"+api.data.PremiumCustomer.CustomerID, api.token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var body errorBody
	decode(t, rec, &body)
	if body.ErrorCode != "NOT_FOUND" {
		t.Errorf("error_code = %q", body.ErrorCode)
	}
}

func TestAPICustomerCreate(t *testing.T) {
	api := setupTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/customers", api.token, APICustomerInput{
		Name:    "  Initech  ",
		Email:   "ap@initech.example",
		Phone:   "+1 (650) 253-0000",
		Country: "Germany",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var got APICustomer
	decode(t, rec, &got)
	if got.Name != "Initech" {
		t.Errorf("Name = %q, want trimmed", got.Name)
	}
	if got.Country != "DE" {
		t.Errorf("Country = %q, want DE", got.Country)
	}
	if got.Phone != "+16502530000" {
		t.Errorf("Phone = %q, want E.164", got.Phone)
	}
	if loc := rec.Header().Get("Location"); !strings.HasSuffix(loc, "/"+got.ID) {
		t.Errorf("Location = %q", loc)
	}
}

func TestAPICustomerCreateValidation(t *testing.T) {
	api := setupTestAPI(t)

	tests := []struct {
		name  string
		input APICustomerInput
		field string
	}{
		{"missing name", APICustomerInput{Email: "a@b.example"}, "name"},
		{"bad email", APICustomerInput{Name: "X", Email: "not-an-email"}, "email"},
		{"bad phone", APICustomerInput{Name: "X", Phone: "12"}, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/v1/customers", api.token, tt.input)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Status = %d, want 400 (%s)", rec.Code, rec.Body.String())
			}
			var body errorBody
			decode(t, rec, &body)
			if body.ErrorCode != "INVALID_INPUT" {
				t.Errorf("error_code = %q", body.ErrorCode)
			}
			if _, ok := body.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", body.Fields, tt.field)
			}
		})
	}
}

func TestAPICustomerUpdateDelete(t *testing.T) {
	api := setupTestAPI(t)
	path := "/api/v1/customers/" + api.data.Customer.CustomerID

	rec := api.do(t, http.MethodPut, path, api.token, APICustomerInput{Name: "Acme Holding", Country: "Germany"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d (%s)", rec.Code, rec.Body.String())
	}
	var got APICustomer
	decode(t, rec, &got)
	if got.Name != "Acme Holding" || got.Country != "DE" {
		t.Errorf("got %+v", got)
	}

	if rec := api.do(t, http.MethodDelete, path, api.token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, path, api.token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("after delete status = %d, want 404", rec.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	api := setupTestAPI(t)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"v1 without header", "/api/v1/customers", "", http.StatusUnauthorized},
		{"v1 with bad token", "/api/v1/customers", "nope", http.StatusUnauthorized},
		{"session route without cookie", "/api/customers", "", http.StatusUnauthorized},
		{"session route with token", "/api/customers", api.token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := api.do(t, http.MethodGet, tt.path, tt.token, nil); rec.Code != tt.want {
				t.Errorf("Status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
