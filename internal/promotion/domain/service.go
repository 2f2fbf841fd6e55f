package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/innkeep/pkg/money"
	"gorm.io/gorm"
)

var (
	ErrPromotionNotFound      = errors.New("promotion_not_found")
	ErrPromotionNotValid      = errors.New("promotion_not_valid")
	ErrPromotionNotApplicable = errors.New("promotion_not_applicable")
	ErrMinimumNotMet          = errors.New("promotion_minimum_not_met")
	ErrUsageLimitExceeded     = errors.New("promotion_usage_limit_exceeded")
	ErrPerUserLimitExceeded   = errors.New("promotion_per_user_limit_exceeded")
	ErrPromotionAlreadyUsed   = errors.New("promotion_already_applied")
	ErrCodeExists             = errors.New("promotion_code_exists")
	ErrInvalidPromotion       = errors.New("invalid_promotion")
)

type ValidateRequest struct {
	Code        string
	TotalAmount money.Money
	RoomIDs     []snowflake.ID
	PropertyID  *snowflake.ID
}

// ValidateResult carries the matched promotion and the computed discount.
type ValidateResult struct {
	Promotion      Promotion   `json:"promotion"`
	DiscountAmount money.Money `json:"discount_amount"`
	FinalAmount    money.Money `json:"final_amount"`
}

// RedeemRequest consumes one use of a promotion for an invoice.
type RedeemRequest struct {
	PromotionID    snowflake.ID
	InvoiceID      snowflake.ID
	BookingID      *snowflake.ID
	GuestID        *snowflake.ID
	DiscountAmount money.Money
}

type CreatePromotionRequest struct {
	Promotion Promotion
}

type ListPromotionsRequest struct {
	ActiveOnly bool
}

type ListPromotionsResponse struct {
	Promotions []Promotion `json:"promotions"`
}

type Service interface {
	List(ctx context.Context, req ListPromotionsRequest) (ListPromotionsResponse, error)
	GetByID(ctx context.Context, id string) (Promotion, error)
	Create(ctx context.Context, req CreatePromotionRequest) (Promotion, error)

	// Validate checks a code against an amount and room scope without
	// consuming a use.
	Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error)

	// RedeemInTx performs the guarded usage increment and usage insert
	// inside the caller's transaction, so redemption commits or rolls
	// back together with the financial mutation it belongs to.
	RedeemInTx(ctx context.Context, tx *gorm.DB, req RedeemRequest) error
}
