package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/enums"
)

// DiscountCode is the single source of truth for a promotion code.
//
// Code is stored uppercase; lookups normalize input before hitting the
// unique index. RedemptionCount is only ever moved by the conditional
// UPDATE in the repository, never by read-modify-write.
type DiscountCode struct {
	ID                   uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                 string             `gorm:"column:code;not null;uniqueIndex"`
	Kind                 enums.DiscountKind `gorm:"column:kind;type:discount_kind;not null"`
	Value                decimal.Decimal    `gorm:"column:value;type:numeric(12,4);not null"`
	Description          *string            `gorm:"column:description"`
	MinSpend             *decimal.Decimal   `gorm:"column:min_spend;type:numeric(12,2)"`
	ApplicableCategories pq.StringArray     `gorm:"column:applicable_categories;type:text[]"`
	ExcludedCategories   pq.StringArray     `gorm:"column:excluded_categories;type:text[]"`
	StartsAt             *time.Time         `gorm:"column:starts_at"`
	EndsAt               *time.Time         `gorm:"column:ends_at"`
	Active               bool               `gorm:"column:active;not null;default:true"`
	Stackable            bool               `gorm:"column:stackable;not null;default:false"`
	PerCustomerCap       *int               `gorm:"column:per_customer_cap"`
	GlobalRedemptionCap  *int               `gorm:"column:global_redemption_cap"`
	RedemptionCount      int                `gorm:"column:redemption_count;not null;default:0"`
	CreatedAt            time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Percent reports the percentage value as a fraction of one for
// percentage codes, e.g. a stored value of 10 becomes 0.10.
func (d *DiscountCode) Percent() decimal.Decimal {
	return d.Value.Div(decimal.NewFromInt(100))
}

// RemainingGlobal reports how many redemptions are left under the global
// cap, or nil when the code is uncapped.
func (d *DiscountCode) RemainingGlobal() *int {
	if d.GlobalRedemptionCap == nil {
		return nil
	}
	left := *d.GlobalRedemptionCap - d.RedemptionCount
	if left < 0 {
		left = 0
	}
	return &left
}
