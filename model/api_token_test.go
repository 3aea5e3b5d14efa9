package model_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/billingcat/invoicedesk/fixtures"
	"github.com/billingcat/invoicedesk/model"
)

func TestAPITokenLifecycle(t *testing.T) {
	store := fixtures.NewTestStore(t)
	fixtures.SeedTestData(t, store)
	ctx := context.Background()

	plain, rec, err := store.CreateAPIToken(ctx, fixtures.DefaultVendorID, "sync", model.ScopeFull, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.TokenHash == plain || len(plain) < 40 {
		t.Fatalf("unexpected token %q", plain)
	}

	got, err := store.ValidateAPIToken(ctx, plain)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.VendorID != fixtures.DefaultVendorID {
		t.Errorf("vendor = %s", got.VendorID)
	}

	if _, err := store.ValidateAPIToken(ctx, plain+"x"); !errors.Is(err, model.ErrTokenInvalid) {
		t.Errorf("tampered token: err = %v", err)
	}
	if _, err := store.ValidateAPIToken(ctx, "short"); !errors.Is(err, model.ErrTokenInvalid) {
		t.Errorf("short token: err = %v", err)
	}
	if _, err := store.ValidateAPIToken(ctx, "zzzzzzzzzzzzzzzzzzzzzzzz"); !errors.Is(err, model.ErrTokenNotFound) {
		t.Errorf("unknown token: err = %v", err)
	}

	if err := store.RevokeAPIToken(ctx, fixtures.PremiumVendorID, rec.ID); !errors.Is(err, model.ErrTokenNotFound) {
		t.Errorf("revoke by another vendor: err = %v", err)
	}
	if err := store.RevokeAPIToken(ctx, fixtures.DefaultVendorID, rec.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.ValidateAPIToken(ctx, plain); !errors.Is(err, model.ErrTokenDisabled) {
		t.Errorf("revoked token: err = %v", err)
	}
}

func TestAPIToken_Expired(t *testing.T) {
	store := fixtures.NewTestStore(t)
	fixtures.SeedTestData(t, store)

	past := time.Now().Add(-time.Minute)
	plain, _, err := store.CreateAPIToken(context.Background(), fixtures.DefaultVendorID, "old", model.ScopeRead, &past)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.ValidateAPIToken(context.Background(), plain); !errors.Is(err, model.ErrTokenExpired) {
		t.Errorf("err = %v", err)
	}
}

func TestAPIToken_Allows(t *testing.T) {
	read := &model.APIToken{Scope: model.ScopeRead}
	full := &model.APIToken{Scope: model.ScopeFull}
	legacy := &model.APIToken{}

	tests := []struct {
		tok    *model.APIToken
		method string
		want   bool
	}{
		{read, http.MethodGet, true},
		{read, http.MethodHead, true},
		{read, http.MethodPost, false},
		{read, http.MethodDelete, false},
		{full, http.MethodPut, true},
		{legacy, http.MethodPost, true},
	}
	for _, tc := range tests {
		if got := tc.tok.Allows(tc.method); got != tc.want {
			t.Errorf("scope %q %s: got %v", tc.tok.Scope, tc.method, got)
		}
	}

	if _, err := model.ParseScope("admin"); err == nil {
		t.Error("unknown scope accepted")
	}
	if s, _ := model.ParseScope(""); s != model.ScopeFull {
		t.Errorf("empty scope = %q", s)
	}
}

func TestOneTimeCode(t *testing.T) {
	store := fixtures.NewTestStore(t)
	ctx := context.Background()

	first, err := store.CreateOneTimeCode(ctx, "Someone@Example.com", model.PurposeVerify)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("code = %q", first)
	}
	second, err := store.CreateOneTimeCode(ctx, "someone@example.com", model.PurposeVerify)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		if err := store.ConsumeOneTimeCode(ctx, "someone@example.com", model.PurposeVerify, first); !errors.Is(err, model.ErrCodeInvalid) {
			t.Errorf("superseded code: err = %v", err)
		}
	}
	if err := store.ConsumeOneTimeCode(ctx, "someone@example.com", model.PurposeReset, second); !errors.Is(err, model.ErrCodeInvalid) {
		t.Errorf("wrong purpose: err = %v", err)
	}
	if err := store.ConsumeOneTimeCode(ctx, "SOMEONE@example.com", model.PurposeVerify, second); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := store.ConsumeOneTimeCode(ctx, "someone@example.com", model.PurposeVerify, second); !errors.Is(err, model.ErrCodeInvalid) {
		t.Errorf("reuse: err = %v", err)
	}
}

func TestOneTimeCode_TooManyAttempts(t *testing.T) {
	store := fixtures.NewTestStore(t)
	ctx := context.Background()

	code, err := store.CreateOneTimeCode(ctx, "a@example.com", model.PurposeReset)
	if err != nil {
		t.Fatal(err)
	}
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 5; i++ {
		if err := store.ConsumeOneTimeCode(ctx, "a@example.com", model.PurposeReset, wrong); !errors.Is(err, model.ErrCodeInvalid) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}
	if err := store.ConsumeOneTimeCode(ctx, "a@example.com", model.PurposeReset, code); !errors.Is(err, model.ErrTooManyAttempts) {
		t.Errorf("after five wrong attempts: err = %v", err)
	}
}
