// Package service implements refund policy management.
package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/innkeep/internal/clock"
	"github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("refundpolicy.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *service) List(ctx context.Context) (domain.ListPoliciesResponse, error) {
	var policies []domain.RefundPolicy
	err := s.db.WithContext(ctx).
		Order("days_before_checkin DESC").
		Find(&policies).Error
	if err != nil {
		return domain.ListPoliciesResponse{}, err
	}
	return domain.ListPoliciesResponse{Policies: policies}, nil
}

func (s *service) GetByID(ctx context.Context, id string) (domain.RefundPolicy, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return domain.RefundPolicy{}, domain.ErrPolicyNotFound
	}
	var policy domain.RefundPolicy
	if err := s.db.WithContext(ctx).First(&policy, "id = ?", snowflake.ID(n)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RefundPolicy{}, domain.ErrPolicyNotFound
		}
		return domain.RefundPolicy{}, err
	}
	return policy, nil
}

func (s *service) Create(ctx context.Context, policy domain.RefundPolicy) (domain.RefundPolicy, error) {
	if err := validatePolicy(policy); err != nil {
		return domain.RefundPolicy{}, err
	}

	now := s.clock.Now()
	policy.ID = s.genID.Generate()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&policy).Error; err != nil {
		return domain.RefundPolicy{}, err
	}

	s.log.Info("refund policy created",
		zap.String("policy_id", policy.ID.String()),
		zap.String("name", policy.Name),
	)
	return policy, nil
}

var hundred = decimal.NewFromInt(100)

func validatePolicy(p domain.RefundPolicy) error {
	if p.Name == "" {
		return domain.ErrInvalidPolicy
	}
	if p.RefundPercent.IsNegative() || p.RefundPercent.GreaterThan(hundred) {
		return domain.ErrInvalidPolicy
	}
	if p.PenaltyPercent.IsNegative() || p.PenaltyPercent.GreaterThan(hundred) {
		return domain.ErrInvalidPolicy
	}
	if p.DaysBeforeCheckin < 0 {
		return domain.ErrInvalidPolicy
	}
	return nil
}
