package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/api/middleware"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/internal/orders"
	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/pagination"
	"github.com/healios-dev/healios-backend/pkg/types"
)

type stubAdminService struct {
	code  *models.DiscountCode
	codes []models.DiscountCode
	err   error
	input discounts.CodeInput
}

func (s *stubAdminService) Create(_ context.Context, input discounts.CodeInput) (*models.DiscountCode, error) {
	s.input = input
	return s.code, s.err
}

func (s *stubAdminService) Update(_ context.Context, _ uuid.UUID, input discounts.CodeInput) (*models.DiscountCode, error) {
	s.input = input
	return s.code, s.err
}

func (s *stubAdminService) Get(context.Context, uuid.UUID) (*models.DiscountCode, error) {
	return s.code, s.err
}

func (s *stubAdminService) List(context.Context, pagination.Params) ([]models.DiscountCode, string, error) {
	return s.codes, "", s.err
}

func (s *stubAdminService) Deactivate(context.Context, uuid.UUID) (*models.DiscountCode, error) {
	return s.code, s.err
}

func (s *stubAdminService) Redemptions(context.Context, uuid.UUID, pagination.Params) ([]models.Redemption, string, error) {
	return nil, "", s.err
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAdminDiscountCreate(t *testing.T) {
	t.Parallel()

	stored := &models.DiscountCode{
		ID:        uuid.New(),
		Code:      "SAVE10",
		Kind:      enums.DiscountKindPercentage,
		Value:     decimal.RequireFromString("10"),
		Active:    true,
		Stackable: true,
	}
	svc := &stubAdminService{code: stored}
	handler := AdminDiscountCreate(svc, nil)

	body := `{"code":"save10","kind":"percentage","value":"10","stackable":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/discounts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.Code != "save10" || svc.input.Kind != enums.DiscountKindPercentage {
		t.Fatalf("unexpected input %+v", svc.input)
	}
	var envelope struct {
		Data discountCodeView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Code != "SAVE10" {
		t.Fatalf("expected stored code in response, got %q", envelope.Data.Code)
	}
}

func TestAdminDiscountCreateRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	handler := AdminDiscountCreate(&stubAdminService{}, nil)
	body := `{"code":"SAVE10","kind":"bogus","value":"10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/discounts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %s", envelope.Error.Code)
	}
}

func TestAdminDiscountDeactivate(t *testing.T) {
	t.Parallel()

	stored := &models.DiscountCode{ID: uuid.New(), Code: "SAVE10", Kind: enums.DiscountKindPercentage, Active: false}
	handler := AdminDiscountDeactivate(&stubAdminService{code: stored}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/v1/discounts/"+stored.ID.String(), nil)
	req = withURLParam(req, "codeId", stored.ID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data discountCodeView `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Active {
		t.Fatal("expected deactivated code in response")
	}
}

type stubOrderService struct {
	order *models.Order
	err   error
}

func (s stubOrderService) Get(context.Context, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s stubOrderService) ListByCustomer(context.Context, uuid.UUID, pagination.Params) ([]models.Order, string, error) {
	if s.order == nil {
		return nil, "", s.err
	}
	return []models.Order{*s.order}, "", s.err
}

var _ orders.Service = stubOrderService{}

func TestAdminDiscountGetReportsRemainingGlobal(t *testing.T) {
	t.Parallel()

	globalCap := 100
	stored := &models.DiscountCode{
		ID:                  uuid.New(),
		Code:                "LAUNCH",
		Kind:                enums.DiscountKindPercentage,
		Value:               decimal.NewFromInt(10),
		Active:              true,
		GlobalRedemptionCap: &globalCap,
		RedemptionCount:     40,
	}
	handler := AdminDiscountGet(&stubAdminService{code: stored}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/discounts/"+stored.ID.String(), nil)
	req = withURLParam(req, "codeId", stored.ID.String())
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			RemainingGlobal *int `json:"remaining_global"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Data.RemainingGlobal == nil || *envelope.Data.RemainingGlobal != 60 {
		t.Fatalf("expected 60 redemptions left, got %v", envelope.Data.RemainingGlobal)
	}
}

func TestOrderGetHidesForeignOrders(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	order := &models.Order{ID: uuid.New(), CustomerID: &owner, Status: enums.OrderStatusPendingPayment}
	handler := OrderGet(stubOrderService{order: order}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
	req = withURLParam(req, "orderId", order.ID.String())
	req = withCustomer(req)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign order, got %d", resp.Code)
	}
}

func TestOrderGetReturnsOwnOrder(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	order := &models.Order{ID: uuid.New(), CustomerID: &owner, Status: enums.OrderStatusPaid}
	handler := OrderGet(stubOrderService{order: order}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil)
	req = withURLParam(req, "orderId", order.ID.String())
	ctx := middleware.WithIdentity(req.Context(), discounts.Identity{CustomerID: &owner})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
