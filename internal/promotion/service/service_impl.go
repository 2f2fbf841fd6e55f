// Package service implements promotion management, validation and
// redemption.
package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/smallbiznis/innkeep/internal/catalog/domain"
	"github.com/smallbiznis/innkeep/internal/clock"
	"github.com/smallbiznis/innkeep/internal/promotion/domain"
	"github.com/smallbiznis/innkeep/pkg/db"
	"github.com/smallbiznis/innkeep/pkg/money"
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
		log:   p.Log.Named("promotion.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.ErrPromotionNotFound
	}
	return snowflake.ID(n), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) List(ctx context.Context, req domain.ListPromotionsRequest) (domain.ListPromotionsResponse, error) {
	q := s.db.WithContext(ctx).Model(&domain.Promotion{})
	if req.ActiveOnly {
		now := s.clock.Now()
		q = q.Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now)
	}

	var promotions []domain.Promotion
	if err := q.Order("created_at DESC").Find(&promotions).Error; err != nil {
		return domain.ListPromotionsResponse{}, err
	}
	return domain.ListPromotionsResponse{Promotions: promotions}, nil
}

func (s *service) GetByID(ctx context.Context, id string) (domain.Promotion, error) {
	promotionID, err := parseID(id)
	if err != nil {
		return domain.Promotion{}, err
	}
	var promo domain.Promotion
	if err := s.db.WithContext(ctx).First(&promo, "id = ?", promotionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Promotion{}, domain.ErrPromotionNotFound
		}
		return domain.Promotion{}, err
	}
	return promo, nil
}

// Create registers a new promotion. Codes are stored upper-cased and must
// be unique.
func (s *service) Create(ctx context.Context, req domain.CreatePromotionRequest) (domain.Promotion, error) {
	promo := req.Promotion
	promo.Code = normalizeCode(promo.Code)
	if err := validatePromotion(promo); err != nil {
		return domain.Promotion{}, err
	}

	now := s.clock.Now()
	promo.ID = s.genID.Generate()
	promo.UsageCount = 0
	promo.CreatedAt = now
	promo.UpdatedAt = now
	if promo.ApplicableTo == "" {
		promo.ApplicableTo = domain.ApplicableAll
	}

	if err := s.db.WithContext(ctx).Create(&promo).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Promotion{}, domain.ErrCodeExists
		}
		return domain.Promotion{}, err
	}

	s.log.Info("promotion created",
		zap.String("promotion_id", promo.ID.String()),
		zap.String("code", promo.Code),
	)
	return promo, nil
}

func validatePromotion(p domain.Promotion) error {
	if p.Code == "" {
		return domain.ErrInvalidPromotion
	}
	if !p.DiscountValue.IsPositive() {
		return domain.ErrInvalidPromotion
	}
	if p.DiscountType == domain.DiscountPercentage && money.FromInt(100).LessThan(p.DiscountValue) {
		return domain.ErrInvalidPromotion
	}
	if p.DiscountType != domain.DiscountPercentage && p.DiscountType != domain.DiscountFixedAmount {
		return domain.ErrInvalidPromotion
	}
	if p.EndDate.Before(p.StartDate) {
		return domain.ErrInvalidPromotion
	}
	if p.MaxUsageLimit < 0 || p.MaxUsagePerUser < 0 {
		return domain.ErrInvalidPromotion
	}
	return nil
}

// Validate checks a code against an amount and room scope and computes
// the discount it would grant. It consumes nothing; the usage-limit check
// here is advisory and re-run with a guard at redemption time.
func (s *service) Validate(ctx context.Context, req domain.ValidateRequest) (domain.ValidateResult, error) {
	code := normalizeCode(req.Code)
	if code == "" {
		return domain.ValidateResult{}, domain.ErrPromotionNotFound
	}

	q := s.db.WithContext(ctx).Where("code = ?", code)
	if req.PropertyID != nil {
		q = q.Where("property_id IS NULL OR property_id = ?", *req.PropertyID)
	}
	var promo domain.Promotion
	if err := q.First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ValidateResult{}, domain.ErrPromotionNotFound
		}
		return domain.ValidateResult{}, err
	}

	if !promo.IsValidAt(s.clock.Now()) {
		return domain.ValidateResult{}, domain.ErrPromotionNotValid
	}
	if promo.MaxUsageLimit > 0 && promo.UsageCount >= promo.MaxUsageLimit {
		return domain.ValidateResult{}, domain.ErrUsageLimitExceeded
	}
	if err := s.checkApplicability(ctx, promo, req.RoomIDs); err != nil {
		return domain.ValidateResult{}, err
	}
	if promo.MinPurchaseAmount != nil && req.TotalAmount.LessThan(*promo.MinPurchaseAmount) {
		return domain.ValidateResult{}, domain.ErrMinimumNotMet
	}

	discount := computeDiscount(promo, req.TotalAmount)
	return domain.ValidateResult{
		Promotion:      promo,
		DiscountAmount: discount,
		FinalAmount:    req.TotalAmount.Sub(discount).ClampNonNegative(),
	}, nil
}

// checkApplicability enforces the promotion's room scope. The promotion
// qualifies when at least one of the given rooms is covered; with no
// rooms given a scoped promotion cannot match.
func (s *service) checkApplicability(ctx context.Context, promo domain.Promotion, roomIDs []snowflake.ID) error {
	switch promo.ApplicableTo {
	case domain.ApplicableAll, "":
		return nil
	case domain.ApplicableRooms:
		allowed := make(map[snowflake.ID]bool, len(promo.RoomIDs))
		for _, id := range promo.RoomIDs {
			allowed[id] = true
		}
		for _, id := range roomIDs {
			if allowed[id] {
				return nil
			}
		}
		return domain.ErrPromotionNotApplicable
	case domain.ApplicableRoomTypes:
		if len(roomIDs) == 0 {
			return domain.ErrPromotionNotApplicable
		}
		var rooms []catalogdomain.Room
		if err := s.db.WithContext(ctx).Where("id IN ?", roomIDs).Find(&rooms).Error; err != nil {
			return err
		}
		allowed := make(map[snowflake.ID]bool, len(promo.RoomTypeIDs))
		for _, id := range promo.RoomTypeIDs {
			allowed[id] = true
		}
		for _, r := range rooms {
			if allowed[r.RoomTypeID] {
				return nil
			}
		}
		return domain.ErrPromotionNotApplicable
	}
	return domain.ErrPromotionNotApplicable
}

// computeDiscount derives the amount a promotion grants on the total.
// Percentage discounts round once and honor the optional cap; fixed
// discounts never exceed the total itself.
func computeDiscount(promo domain.Promotion, total money.Money) money.Money {
	switch promo.DiscountType {
	case domain.DiscountPercentage:
		discount := total.PercentOf(promo.DiscountValue.Decimal())
		if promo.MaxDiscountAmount != nil {
			discount = discount.Min(*promo.MaxDiscountAmount)
		}
		return discount
	case domain.DiscountFixedAmount:
		return promo.DiscountValue.Min(total)
	}
	return money.Zero()
}

// RedeemInTx consumes one use inside the caller's transaction. The
// usage_count increment is guarded in SQL so two concurrent redemptions
// can never both take the last slot, regardless of what Validate saw.
func (s *service) RedeemInTx(ctx context.Context, tx *gorm.DB, req domain.RedeemRequest) error {
	var promo domain.Promotion
	if err := tx.First(&promo, "id = ?", req.PromotionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrPromotionNotFound
		}
		return err
	}

	if req.GuestID != nil && promo.MaxUsagePerUser > 0 {
		var used int64
		if err := tx.Model(&domain.PromotionUsage{}).
			Where("promotion_id = ? AND guest_id = ?", req.PromotionID, *req.GuestID).
			Count(&used).Error; err != nil {
			return err
		}
		if used >= promo.MaxUsagePerUser {
			return domain.ErrPerUserLimitExceeded
		}
	}

	res := tx.Exec(
		`UPDATE promotions
		    SET usage_count = usage_count + 1, updated_at = ?
		  WHERE id = ? AND (max_usage_limit = 0 OR usage_count < max_usage_limit)`,
		s.clock.Now(), req.PromotionID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUsageLimitExceeded
	}

	usage := domain.PromotionUsage{
		ID:             s.genID.Generate(),
		PromotionID:    req.PromotionID,
		InvoiceID:      req.InvoiceID,
		BookingID:      req.BookingID,
		GuestID:        req.GuestID,
		DiscountAmount: req.DiscountAmount,
		CreatedAt:      s.clock.Now(),
	}
	if err := tx.Create(&usage).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrPromotionAlreadyUsed
		}
		return err
	}
	return nil
}
