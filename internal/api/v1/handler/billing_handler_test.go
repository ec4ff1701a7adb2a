package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"app/internal/api/v1/dto"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
)

type fakeCheckout struct {
	calls []string
	err   error
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, planType, userID, email string) (string, error) {
	f.calls = append(f.calls, planType+"|"+userID+"|"+email)
	if f.err != nil {
		return "", f.err
	}
	return "cs_test_123", nil
}

func postCheckout(h *BillingHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/create-checkout-session", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.createCheckoutSession(rr, req)
	return rr
}

func TestCreateCheckoutSessionSuccess(t *testing.T) {
	billing := &fakeCheckout{}
	h := NewBillingHandler(billing, validator.New(validator.WithRequiredStructEnabled()))

	rr := postCheckout(h, `{"planType":"basic","userId":"user_1","userEmail":"a@b.com"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp dto.CheckoutSessionResponseDTO
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.SessionID != "cs_test_123" {
		t.Errorf("unexpected session id: %s", resp.SessionID)
	}
	if len(billing.calls) != 1 || billing.calls[0] != "basic|user_1|a@b.com" {
		t.Errorf("unexpected service calls: %v", billing.calls)
	}
}

func TestCreateCheckoutSessionValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing plan", `{"userId":"user_1","userEmail":"a@b.com"}`},
		{"missing user", `{"planType":"basic","userEmail":"a@b.com"}`},
		{"bad email", `{"planType":"basic","userId":"user_1","userEmail":"not-an-email"}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			billing := &fakeCheckout{}
			h := NewBillingHandler(billing, validator.New(validator.WithRequiredStructEnabled()))

			rr := postCheckout(h, tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
			if len(billing.calls) != 0 {
				t.Error("invalid request must not reach the billing service")
			}
		})
	}
}

func TestCreateCheckoutSessionUnknownPlan(t *testing.T) {
	billing := &fakeCheckout{err: service.ErrUnknownPlan}
	h := NewBillingHandler(billing, validator.New(validator.WithRequiredStructEnabled()))

	rr := postCheckout(h, `{"planType":"enterprise","userId":"user_1","userEmail":"a@b.com"}`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown plan, got %d", rr.Code)
	}
}

func TestCreateCheckoutSessionProcessorDown(t *testing.T) {
	billing := &fakeCheckout{err: service.ErrProcessorUnavailable}
	h := NewBillingHandler(billing, validator.New(validator.WithRequiredStructEnabled()))

	rr := postCheckout(h, `{"planType":"basic","userId":"user_1","userEmail":"a@b.com"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when the processor is unavailable, got %d", rr.Code)
	}
}

func TestCreateCheckoutSessionRejectsGet(t *testing.T) {
	h := NewBillingHandler(&fakeCheckout{}, validator.New(validator.WithRequiredStructEnabled()))
	req := httptest.NewRequest(http.MethodGet, "/create-checkout-session", nil)
	rr := httptest.NewRecorder()
	h.createCheckoutSession(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for GET, got %d", rr.Code)
	}
}
