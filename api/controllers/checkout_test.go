package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/api/middleware"
	checkoutsvc "github.com/healios-dev/healios-backend/internal/checkout"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/types"
)

type stubCheckoutService struct {
	result *checkoutsvc.Result
	order  *models.Order
	err    error
}

func (s stubCheckoutService) Execute(context.Context, discounts.Identity) (*checkoutsvc.Result, error) {
	return s.result, s.err
}

func (s stubCheckoutService) HandlePaymentResult(context.Context, uuid.UUID, bool, string) (*models.Order, error) {
	return s.order, s.err
}

func withCustomer(req *http.Request) *http.Request {
	customerID := uuid.New()
	ctx := middleware.WithIdentity(req.Context(), discounts.Identity{CustomerID: &customerID})
	return req.WithContext(ctx)
}

func TestCheckoutSuccess(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:     uuid.New(),
		CartID: uuid.New(),
		Status: enums.OrderStatusPendingPayment,
		Total:  decimal.RequireFromString("153.00"),
	}
	handler := Checkout(stubCheckoutService{result: &checkoutsvc.Result{Order: order}}, nil)

	req := withCustomer(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data orderView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID || !envelope.Data.Total.Equal(order.Total) {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestCheckoutCapExceededMapsToConflict(t *testing.T) {
	t.Parallel()

	handler := Checkout(stubCheckoutService{
		err: pkgerrors.New(pkgerrors.CodeCapExceeded, "redemption cap reached at commit"),
	}, nil)

	req := withCustomer(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeCapExceeded) {
		t.Fatalf("expected cap-exceeded error code, got %s", envelope.Error.Code)
	}
}

func TestCheckoutRequiresIdentity(t *testing.T) {
	t.Parallel()

	handler := Checkout(stubCheckoutService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPaymentResultValidatesBody(t *testing.T) {
	t.Parallel()

	handler := PaymentResult(stubCheckoutService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/result", strings.NewReader(`{"reason":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPaymentResultSettlesOrder(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:     uuid.New(),
		CartID: uuid.New(),
		Status: enums.OrderStatusPaymentFailed,
		Total:  decimal.RequireFromString("88.00"),
	}
	handler := PaymentResult(stubCheckoutService{order: order}, nil)

	body := `{"order_id":"` + order.ID.String() + `","succeeded":false,"reason":"card_declined"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/result", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data orderView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != string(enums.OrderStatusPaymentFailed) {
		t.Fatalf("expected payment_failed, got %s", envelope.Data.Status)
	}
}
