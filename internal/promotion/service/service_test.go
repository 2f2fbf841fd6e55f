package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogdomain "github.com/smallbiznis/innkeep/internal/catalog/domain"
	"github.com/smallbiznis/innkeep/internal/clock"
	"github.com/smallbiznis/innkeep/internal/promotion/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Promotion{},
		&domain.PromotionUsage{},
		&catalogdomain.Room{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
	})
	return svc, db, node, clk
}

func basePromotion(clk *clock.FakeClock) domain.Promotion {
	now := clk.Now()
	return domain.Promotion{
		Code:          "summer20",
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: money.FromInt(20),
		StartDate:     now.AddDate(0, 0, -1),
		EndDate:       now.AddDate(0, 1, 0),
		IsActive:      true,
		ApplicableTo:  domain.ApplicableAll,
	}
}

func TestCreatePromotion(t *testing.T) {
	svc, _, _, clk := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreatePromotionRequest{Promotion: basePromotion(clk)})
	require.NoError(t, err)
	assert.Equal(t, "SUMMER20", created.Code)
	assert.Zero(t, created.UsageCount)

	_, err = svc.Create(ctx, domain.CreatePromotionRequest{Promotion: basePromotion(clk)})
	assert.ErrorIs(t, err, domain.ErrCodeExists)

	bad := basePromotion(clk)
	bad.Code = "OVER100"
	bad.DiscountValue = money.FromInt(120)
	_, err = svc.Create(ctx, domain.CreatePromotionRequest{Promotion: bad})
	assert.ErrorIs(t, err, domain.ErrInvalidPromotion)

	inverted := basePromotion(clk)
	inverted.Code = "BACKWARDS"
	inverted.StartDate, inverted.EndDate = inverted.EndDate, inverted.StartDate
	_, err = svc.Create(ctx, domain.CreatePromotionRequest{Promotion: inverted})
	assert.ErrorIs(t, err, domain.ErrInvalidPromotion)
}

func TestValidateComputesDiscount(t *testing.T) {
	svc, _, _, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreatePromotionRequest{Promotion: basePromotion(clk)})
	require.NoError(t, err)

	result, err := svc.Validate(ctx, domain.ValidateRequest{
		Code:        " summer20 ",
		TotalAmount: money.FromInt(1000000),
	})
	require.NoError(t, err)
	assert.Equal(t, "200000.00", result.DiscountAmount.String())
	assert.Equal(t, "800000.00", result.FinalAmount.String())

	fixed := basePromotion(clk)
	fixed.Code = "FLAT50K"
	fixed.DiscountType = domain.DiscountFixedAmount
	fixed.DiscountValue = money.FromInt(50000)
	_, err = svc.Create(ctx, domain.CreatePromotionRequest{Promotion: fixed})
	require.NoError(t, err)

	// A fixed discount never exceeds the amount it applies to.
	result, err = svc.Validate(ctx, domain.ValidateRequest{
		Code:        "FLAT50K",
		TotalAmount: money.FromInt(30000),
	})
	require.NoError(t, err)
	assert.Equal(t, "30000.00", result.DiscountAmount.String())
	assert.Equal(t, "0.00", result.FinalAmount.String())
}

func TestValidateWindowAndActive(t *testing.T) {
	svc, _, _, clk := newTestService(t)
	ctx := context.Background()

	promo := basePromotion(clk)
	_, err := svc.Create(ctx, domain.CreatePromotionRequest{Promotion: promo})
	require.NoError(t, err)

	clk.Advance(45 * 24 * time.Hour)
	_, err = svc.Validate(ctx, domain.ValidateRequest{Code: "SUMMER20", TotalAmount: money.FromInt(100000)})
	assert.ErrorIs(t, err, domain.ErrPromotionNotValid)
}

func TestValidateRoomScope(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	ctx := context.Background()

	roomTypeID := node.Generate()
	covered := catalogdomain.Room{
		ID:         node.Generate(),
		PropertyID: node.Generate(),
		RoomTypeID: roomTypeID,
		Name:       "Suite 1",
	}
	outside := catalogdomain.Room{
		ID:         node.Generate(),
		PropertyID: covered.PropertyID,
		RoomTypeID: node.Generate(),
		Name:       "Standard 2",
	}
	require.NoError(t, db.Create(&covered).Error)
	require.NoError(t, db.Create(&outside).Error)

	scoped := basePromotion(clk)
	scoped.Code = "SUITEONLY"
	scoped.ApplicableTo = domain.ApplicableRoomTypes
	scoped.RoomTypeIDs = []snowflake.ID{roomTypeID}
	_, err := svc.Create(ctx, domain.CreatePromotionRequest{Promotion: scoped})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, domain.ValidateRequest{
		Code:        "SUITEONLY",
		TotalAmount: money.FromInt(500000),
		RoomIDs:     []snowflake.ID{covered.ID},
	})
	assert.NoError(t, err)

	_, err = svc.Validate(ctx, domain.ValidateRequest{
		Code:        "SUITEONLY",
		TotalAmount: money.FromInt(500000),
		RoomIDs:     []snowflake.ID{outside.ID},
	})
	assert.ErrorIs(t, err, domain.ErrPromotionNotApplicable)

	_, err = svc.Validate(ctx, domain.ValidateRequest{
		Code:        "SUITEONLY",
		TotalAmount: money.FromInt(500000),
	})
	assert.ErrorIs(t, err, domain.ErrPromotionNotApplicable)
}

func TestRedeemGuardsUsageLimit(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	ctx := context.Background()

	limited := basePromotion(clk)
	limited.Code = "ONESHOT"
	limited.MaxUsageLimit = 1
	created, err := svc.Create(ctx, domain.CreatePromotionRequest{Promotion: limited})
	require.NoError(t, err)

	redeem := func(invoiceID snowflake.ID) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return svc.RedeemInTx(ctx, tx, domain.RedeemRequest{
				PromotionID:    created.ID,
				InvoiceID:      invoiceID,
				DiscountAmount: money.FromInt(10000),
			})
		})
	}

	require.NoError(t, redeem(node.Generate()))
	assert.ErrorIs(t, redeem(node.Generate()), domain.ErrUsageLimitExceeded)

	var promo domain.Promotion
	require.NoError(t, db.First(&promo, "id = ?", created.ID).Error)
	assert.Equal(t, int64(1), promo.UsageCount)
}

func TestRedeemPerUserLimit(t *testing.T) {
	svc, db, node, clk := newTestService(t)
	ctx := context.Background()

	perUser := basePromotion(clk)
	perUser.Code = "ONCEEACH"
	perUser.MaxUsagePerUser = 1
	created, err := svc.Create(ctx, domain.CreatePromotionRequest{Promotion: perUser})
	require.NoError(t, err)

	guest := node.Generate()
	redeem := func(invoiceID snowflake.ID) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return svc.RedeemInTx(ctx, tx, domain.RedeemRequest{
				PromotionID:    created.ID,
				InvoiceID:      invoiceID,
				GuestID:        &guest,
				DiscountAmount: money.FromInt(10000),
			})
		})
	}

	require.NoError(t, redeem(node.Generate()))
	assert.ErrorIs(t, redeem(node.Generate()), domain.ErrPerUserLimitExceeded)
}
