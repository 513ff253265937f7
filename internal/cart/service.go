package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
)

type productLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// PricedCartView is a cart record together with its freshly computed
// price breakdown and per-code verdicts.
type PricedCartView struct {
	Cart      *models.CartRecord
	Outcomes  []discounts.Outcome
	Breakdown discounts.Breakdown
}

// Service owns cart state: items, the applied code list, and the
// identity fields that feed the discount engine.
type Service interface {
	GetOrCreate(ctx context.Context, identity discounts.Identity) (*models.CartRecord, error)
	Get(ctx context.Context, identity discounts.Identity) (*PricedCartView, error)
	AddItem(ctx context.Context, identity discounts.Identity, productID uuid.UUID, quantity int) (*PricedCartView, error)
	RemoveItem(ctx context.Context, identity discounts.Identity, productID uuid.UUID) (*PricedCartView, error)
	ApplyCode(ctx context.Context, identity discounts.Identity, rawCode string) (*PricedCartView, *discounts.PreviewResult, error)
	RemoveCode(ctx context.Context, identity discounts.Identity, rawCode string) (*PricedCartView, error)
	Price(ctx context.Context, record *models.CartRecord, identity discounts.Identity) (*PricedCartView, error)
}

type service struct {
	repo      CartRepository
	products  productLoader
	discounts discounts.Service
	shipping  decimal.Decimal
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products productLoader, discountSvc discounts.Service, defaultShipping decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if discountSvc == nil {
		return nil, fmt.Errorf("discount service required")
	}
	return &service{
		repo:      repo,
		products:  products,
		discounts: discountSvc,
		shipping:  defaultShipping,
	}, nil
}

func (s *service) GetOrCreate(ctx context.Context, identity discounts.Identity) (*models.CartRecord, error) {
	record, err := s.findActive(ctx, identity)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	record = &models.CartRecord{
		CustomerID:       identity.CustomerID,
		Status:           enums.CartStatusActive,
		ShippingEstimate: s.shipping,
	}
	if identity.SessionID != "" {
		record.SessionID = &identity.SessionID
	}
	if identity.Email != "" {
		record.Email = &identity.Email
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	return created, nil
}

func (s *service) findActive(ctx context.Context, identity discounts.Identity) (*models.CartRecord, error) {
	if identity.CustomerID != nil {
		return s.repo.FindActiveByCustomer(ctx, *identity.CustomerID)
	}
	if identity.SessionID != "" {
		return s.repo.FindActiveBySession(ctx, identity.SessionID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *service) Get(ctx context.Context, identity discounts.Identity) (*PricedCartView, error) {
	record, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.Price(ctx, record, identity)
}

func (s *service) AddItem(ctx context.Context, identity discounts.Identity, productID uuid.UUID, quantity int) (*PricedCartView, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	record, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		CartID:     record.ID,
		ProductID:  product.ID,
		Name:       product.Name,
		Categories: product.Categories,
		Quantity:   quantity,
		UnitPrice:  product.Price,
	}
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart item")
	}
	return s.reload(ctx, record.ID, identity)
}

func (s *service) RemoveItem(ctx context.Context, identity discounts.Identity, productID uuid.UUID) (*PricedCartView, error) {
	record, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, record.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart item")
	}
	return s.reload(ctx, record.ID, identity)
}

// ApplyCode previews the candidate against the cart's current stack and
// attaches it only on acceptance. The applied list keeps user entry
// order so pricing stays deterministic across retries.
func (s *service) ApplyCode(ctx context.Context, identity discounts.Identity, rawCode string) (*PricedCartView, *discounts.PreviewResult, error) {
	record, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	snapshot := discounts.SnapshotFromItems(record.Items, record.ShippingEstimate)
	preview, err := s.discounts.Preview(ctx, discounts.PreviewInput{
		Code:         rawCode,
		AppliedCodes: record.AppliedCodes,
		Cart:         snapshot,
		Identity:     identity,
	})
	if err != nil {
		return nil, nil, err
	}
	if !preview.Accepted {
		view, err := s.Price(ctx, record, identity)
		if err != nil {
			return nil, nil, err
		}
		return view, preview, nil
	}

	normalized := s.discounts.Normalize(rawCode)
	for _, existing := range record.AppliedCodes {
		if existing == normalized {
			view, err := s.Price(ctx, record, identity)
			return view, preview, err
		}
	}
	record.AppliedCodes = append(record.AppliedCodes, normalized)
	if _, err := s.repo.Update(ctx, record); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attaching discount code")
	}

	view, err := s.Price(ctx, record, identity)
	return view, preview, err
}

func (s *service) RemoveCode(ctx context.Context, identity discounts.Identity, rawCode string) (*PricedCartView, error) {
	record, err := s.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	normalized := s.discounts.Normalize(rawCode)
	kept := record.AppliedCodes[:0]
	for _, code := range record.AppliedCodes {
		if code != normalized {
			kept = append(kept, code)
		}
	}
	record.AppliedCodes = kept
	if _, err := s.repo.Update(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "detaching discount code")
	}
	return s.Price(ctx, record, identity)
}

// Price recomputes the breakdown from scratch. Codes that stopped
// resolving since they were attached drop out of the stack here rather
// than failing the cart.
func (s *service) Price(ctx context.Context, record *models.CartRecord, identity discounts.Identity) (*PricedCartView, error) {
	snapshot := discounts.SnapshotFromItems(record.Items, record.ShippingEstimate)
	priced, err := s.discounts.PriceCart(ctx, snapshot, identity, record.AppliedCodes)
	if err != nil {
		return nil, err
	}
	return &PricedCartView{
		Cart:      record,
		Outcomes:  priced.Outcomes,
		Breakdown: priced.Breakdown,
	}, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID, identity discounts.Identity) (*PricedCartView, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}
	return s.Price(ctx, record, identity)
}
