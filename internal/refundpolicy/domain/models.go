// Package domain contains persistence models for refund policies.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var (
	ErrPolicyNotFound = errors.New("refund_policy_not_found")
	ErrInvalidPolicy  = errors.New("invalid_refund_policy")
)

// RefundPolicy maps a cancellation timing to a refund percentage and an
// optional penalty.
type RefundPolicy struct {
	ID                snowflake.ID    `gorm:"primaryKey"`
	Name              string          `gorm:"type:text;not null"`
	RefundPercent     decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	DaysBeforeCheckin int             `gorm:"not null;default:0"`
	PenaltyPercent    decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	IsActive          bool            `gorm:"not null;default:true"`
	CreatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (RefundPolicy) TableName() string { return "refund_policies" }

type ListPoliciesResponse struct {
	Policies []RefundPolicy `json:"policies"`
}

type Service interface {
	List(ctx context.Context) (ListPoliciesResponse, error)
	GetByID(ctx context.Context, id string) (RefundPolicy, error)
	Create(ctx context.Context, policy RefundPolicy) (RefundPolicy, error)
}
