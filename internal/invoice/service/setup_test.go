package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/smallbiznis/innkeep/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/innkeep/internal/catalog/domain"
	"github.com/smallbiznis/innkeep/internal/clock"
	"github.com/smallbiznis/innkeep/internal/config"
	"github.com/smallbiznis/innkeep/internal/invoice/domain"
	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	promotionservice "github.com/smallbiznis/innkeep/internal/promotion/service"
	refunddomain "github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

type testEnv struct {
	db    *gorm.DB
	node  *snowflake.Node
	clk   *clock.FakeClock
	svc   domain.Service
	promo promotiondomain.Service
}

func newTestEnv(t *testing.T, billing config.BillingConfig) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&bookingdomain.Booking{},
		&bookingdomain.BookingStay{},
		&bookingdomain.BookingService{},
		&bookingdomain.Payment{},
		&catalogdomain.Room{},
		&catalogdomain.Service{},
		&domain.Invoice{},
		&domain.InvoiceItem{},
		&domain.InvoiceDiscount{},
		&promotiondomain.Promotion{},
		&promotiondomain.PromotionUsage{},
		&refunddomain.RefundPolicy{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	promoSvc := promotionservice.NewService(promotionservice.ServiceParam{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: clk,
	})

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       logger,
		GenID:     node,
		Clock:     clk,
		Billing:   config.NewStaticBillingConfigHolder(billing),
		Promotion: promoSvc,
	})

	return &testEnv{db: db, node: node, clk: clk, svc: svc, promo: promoSvc}
}

// seedBooking creates a booking with one 3-night stay at 500000/night and
// one booked service of 2 x 100000, the running example booking worth
// 1700000 before tax.
func (e *testEnv) seedBooking(t *testing.T) bookingdomain.Booking {
	t.Helper()

	propertyID := e.node.Generate()
	booking := bookingdomain.Booking{
		ID:         e.node.Generate(),
		PropertyID: propertyID,
		GuestID:    e.node.Generate(),
		Status:     "confirmed",
	}
	require.NoError(t, e.db.Create(&booking).Error)

	room := catalogdomain.Room{
		ID:          e.node.Generate(),
		PropertyID:  propertyID,
		RoomTypeID:  e.node.Generate(),
		Name:        "Deluxe 101",
		NightlyRate: money.FromInt(450000),
	}
	require.NoError(t, e.db.Create(&room).Error)

	rate := money.FromInt(500000)
	stay := bookingdomain.BookingStay{
		ID:           e.node.Generate(),
		BookingID:    booking.ID,
		RoomID:       room.ID,
		CheckInDate:  time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		NightlyRate:  &rate,
	}
	require.NoError(t, e.db.Create(&stay).Error)

	svc := catalogdomain.Service{
		ID:         e.node.Generate(),
		PropertyID: propertyID,
		Name:       "Airport transfer",
		UnitPrice:  money.FromInt(100000),
	}
	require.NoError(t, e.db.Create(&svc).Error)

	booked := bookingdomain.BookingService{
		ID:        e.node.Generate(),
		BookingID: booking.ID,
		ServiceID: svc.ID,
		Quantity:  2,
	}
	require.NoError(t, e.db.Create(&booked).Error)

	return booking
}
