package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/internal/cart"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/pkg/db/models"
)

type productView struct {
	ID          uuid.UUID       `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Categories  []string        `json:"categories"`
	Price       decimal.Decimal `json:"price"`
}

func newProductView(product *models.Product) productView {
	return productView{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Description: product.Description,
		Categories:  []string(product.Categories),
		Price:       product.Price,
	}
}

type cartItemView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type appliedCodeView struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type codeOutcomeView struct {
	Code     string `json:"code,omitempty"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

type breakdownView struct {
	Subtotal           decimal.Decimal   `json:"subtotal"`
	DiscountedSubtotal decimal.Decimal   `json:"discounted_subtotal"`
	DiscountTotal      decimal.Decimal   `json:"discount_total"`
	ShippingCost       decimal.Decimal   `json:"shipping_cost"`
	TaxAmount          decimal.Decimal   `json:"tax_amount"`
	Total              decimal.Decimal   `json:"total"`
	AppliedCodes       []appliedCodeView `json:"applied_codes"`
}

func newBreakdownView(breakdown discounts.Breakdown) breakdownView {
	applied := make([]appliedCodeView, 0, len(breakdown.Applied))
	for _, line := range breakdown.Applied {
		applied = append(applied, appliedCodeView{
			Code:   line.Code.Code,
			Amount: line.Amount.Round(2),
		})
	}
	return breakdownView{
		Subtotal:           breakdown.Subtotal.Round(2),
		DiscountedSubtotal: breakdown.DiscountedSubtotal.Round(2),
		DiscountTotal:      breakdown.DiscountTotal().Round(2),
		ShippingCost:       breakdown.ShippingCost.Round(2),
		TaxAmount:          breakdown.TaxAmount.Round(2),
		Total:              breakdown.Total,
		AppliedCodes:       applied,
	}
}

type cartView struct {
	ID        uuid.UUID         `json:"id"`
	Status    string            `json:"status"`
	Items     []cartItemView    `json:"items"`
	Codes     []string          `json:"codes"`
	Outcomes  []codeOutcomeView `json:"code_outcomes,omitempty"`
	Breakdown breakdownView     `json:"breakdown"`
}

func newCartView(view *cart.PricedCartView) cartView {
	items := make([]cartItemView, 0, len(view.Cart.Items))
	for _, item := range view.Cart.Items {
		items = append(items, cartItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal().Round(2),
		})
	}

	outcomes := make([]codeOutcomeView, 0, len(view.Outcomes))
	for _, outcome := range view.Outcomes {
		entry := codeOutcomeView{Accepted: outcome.Accepted}
		if outcome.Code != nil {
			entry.Code = outcome.Code.Code
		}
		if !outcome.Accepted {
			entry.Reason = string(outcome.Reason)
			entry.Message = outcome.Reason.Message()
		}
		outcomes = append(outcomes, entry)
	}

	return cartView{
		ID:        view.Cart.ID,
		Status:    string(view.Cart.Status),
		Items:     items,
		Codes:     []string(view.Cart.AppliedCodes),
		Outcomes:  outcomes,
		Breakdown: newBreakdownView(view.Breakdown),
	}
}

type orderItemView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type orderView struct {
	ID            uuid.UUID         `json:"id"`
	CartID        uuid.UUID         `json:"cart_id"`
	Status        string            `json:"status"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	DiscountTotal decimal.Decimal   `json:"discount_total"`
	ShippingCost  decimal.Decimal   `json:"shipping_cost"`
	TaxAmount     decimal.Decimal   `json:"tax_amount"`
	Total         decimal.Decimal   `json:"total"`
	AppliedCodes  []appliedCodeView `json:"applied_codes"`
	Items         []orderItemView   `json:"items"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	FailedAt      *time.Time        `json:"failed_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func newOrderView(order *models.Order) orderView {
	applied := make([]appliedCodeView, 0, len(order.AppliedCodes))
	for _, entry := range order.AppliedCodes {
		applied = append(applied, appliedCodeView{Code: entry.Code, Amount: entry.Amount})
	}
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}
	return orderView{
		ID:            order.ID,
		CartID:        order.CartID,
		Status:        string(order.Status),
		Subtotal:      order.Subtotal,
		DiscountTotal: order.DiscountTotal,
		ShippingCost:  order.ShippingCost,
		TaxAmount:     order.TaxAmount,
		Total:         order.Total,
		AppliedCodes:  applied,
		Items:         items,
		PaidAt:        order.PaidAt,
		FailedAt:      order.FailedAt,
		CreatedAt:     order.CreatedAt,
	}
}

type redemptionView struct {
	ID               uuid.UUID       `json:"id"`
	OrderID          uuid.UUID       `json:"order_id"`
	CustomerID       *uuid.UUID      `json:"customer_id,omitempty"`
	AmountDiscounted decimal.Decimal `json:"amount_discounted"`
	Released         bool            `json:"released"`
	CreatedAt        time.Time       `json:"created_at"`
}

func newRedemptionView(row models.Redemption) redemptionView {
	return redemptionView{
		ID:               row.ID,
		OrderID:          row.OrderID,
		CustomerID:       row.CustomerID,
		AmountDiscounted: row.AmountDiscounted,
		Released:         row.Released,
		CreatedAt:        row.CreatedAt,
	}
}

type discountCodeView struct {
	ID                   uuid.UUID        `json:"id"`
	Code                 string           `json:"code"`
	Kind                 string           `json:"kind"`
	Value                decimal.Decimal  `json:"value"`
	Description          *string          `json:"description,omitempty"`
	MinSpend             *decimal.Decimal `json:"min_spend,omitempty"`
	ApplicableCategories []string         `json:"applicable_categories,omitempty"`
	ExcludedCategories   []string         `json:"excluded_categories,omitempty"`
	StartsAt             *time.Time       `json:"starts_at,omitempty"`
	EndsAt               *time.Time       `json:"ends_at,omitempty"`
	Active               bool             `json:"active"`
	Stackable            bool             `json:"stackable"`
	PerCustomerCap       *int             `json:"per_customer_cap,omitempty"`
	GlobalRedemptionCap  *int             `json:"global_redemption_cap,omitempty"`
	RedemptionCount      int              `json:"redemption_count"`
	RemainingGlobal      *int             `json:"remaining_global,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

func newDiscountCodeView(code *models.DiscountCode) discountCodeView {
	return discountCodeView{
		ID:                   code.ID,
		Code:                 code.Code,
		Kind:                 string(code.Kind),
		Value:                code.Value,
		Description:          code.Description,
		MinSpend:             code.MinSpend,
		ApplicableCategories: []string(code.ApplicableCategories),
		ExcludedCategories:   []string(code.ExcludedCategories),
		StartsAt:             code.StartsAt,
		EndsAt:               code.EndsAt,
		Active:               code.Active,
		Stackable:            code.Stackable,
		PerCustomerCap:       code.PerCustomerCap,
		GlobalRedemptionCap:  code.GlobalRedemptionCap,
		RedemptionCount:      code.RedemptionCount,
		RemainingGlobal:      code.RemainingGlobal(),
		CreatedAt:            code.CreatedAt,
	}
}
