// Package domain contains persistence models for promotions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/innkeep/pkg/money"
	"gorm.io/datatypes"
)

// DiscountType is how the promotion value is interpreted.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Applicability scopes which rooms a promotion covers.
type Applicability string

const (
	ApplicableAll       Applicability = "all"
	ApplicableRooms     Applicability = "specific_rooms"
	ApplicableRoomTypes Applicability = "specific_room_types"
)

// Promotion is a code-redeemable discount rule.
type Promotion struct {
	ID                snowflake.ID                     `gorm:"primaryKey"`
	PropertyID        *snowflake.ID                    `gorm:"index"`
	Code              string                           `gorm:"type:text;not null;uniqueIndex:ux_promotions_code"`
	Description       string                           `gorm:"type:text"`
	DiscountType      DiscountType                     `gorm:"type:text;not null"`
	DiscountValue     money.Money                      `gorm:"type:decimal(14,2);not null"`
	MaxDiscountAmount *money.Money                     `gorm:"type:decimal(14,2)"`
	MinPurchaseAmount *money.Money                     `gorm:"type:decimal(14,2)"`
	MaxUsageLimit     int64                            `gorm:"not null;default:0"`
	MaxUsagePerUser   int64                            `gorm:"not null;default:0"`
	UsageCount        int64                            `gorm:"not null;default:0"`
	StartDate         time.Time                        `gorm:"not null"`
	EndDate           time.Time                        `gorm:"not null"`
	IsActive          bool                             `gorm:"not null;default:true"`
	ApplicableTo      Applicability                    `gorm:"type:text;not null;default:'all'"`
	RoomIDs           datatypes.JSONSlice[snowflake.ID] `gorm:"type:jsonb"`
	RoomTypeIDs       datatypes.JSONSlice[snowflake.ID] `gorm:"type:jsonb"`
	CreatedAt         time.Time                        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time                        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Promotion) TableName() string { return "promotions" }

// IsValidAt reports whether the promotion can be redeemed at the instant.
func (p Promotion) IsValidAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return false
	}
	return true
}

// PromotionUsage records one consumption of a promotion, written in the
// same transaction as the guarded usage_count increment.
type PromotionUsage struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	PromotionID    snowflake.ID  `gorm:"not null;index;uniqueIndex:ux_promotion_usage_invoice"`
	InvoiceID      snowflake.ID  `gorm:"not null;uniqueIndex:ux_promotion_usage_invoice"`
	BookingID      *snowflake.ID `gorm:"index"`
	GuestID        *snowflake.ID `gorm:"index"`
	DiscountAmount money.Money   `gorm:"type:decimal(14,2);not null"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PromotionUsage) TableName() string { return "promotion_usages" }
