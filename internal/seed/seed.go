// Package seed bootstraps reference data so a fresh install is usable
// without manual setup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	refunddomain "github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
)

// EnsureDefaultRefundPolicies seeds the standard cancellation ladder:
// free cancellation far out, half refund close in, no refund at the door.
// Existing policies with the same name are left untouched.
func EnsureDefaultRefundPolicies(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	defaults := []refunddomain.RefundPolicy{
		{
			Name:              "Free cancellation",
			RefundPercent:     decimal.NewFromInt(100),
			DaysBeforeCheckin: 7,
			PenaltyPercent:    decimal.Zero,
			IsActive:          true,
		},
		{
			Name:              "Half refund",
			RefundPercent:     decimal.NewFromInt(50),
			DaysBeforeCheckin: 2,
			PenaltyPercent:    decimal.Zero,
			IsActive:          true,
		},
		{
			Name:              "Non-refundable",
			RefundPercent:     decimal.Zero,
			DaysBeforeCheckin: 0,
			PenaltyPercent:    decimal.Zero,
			IsActive:          true,
		},
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, policy := range defaults {
			var existing refunddomain.RefundPolicy
			err := tx.Where("name = ?", policy.Name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			now := time.Now().UTC()
			policy.ID = node.Generate()
			policy.CreatedAt = now
			policy.UpdatedAt = now
			if err := tx.Create(&policy).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
