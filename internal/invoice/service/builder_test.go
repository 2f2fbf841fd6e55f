package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingdomain "github.com/smallbiznis/innkeep/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/innkeep/internal/catalog/domain"
	"github.com/smallbiznis/innkeep/internal/config"
	"github.com/smallbiznis/innkeep/internal/invoice/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

func TestCreateFromBooking(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	booking := env.seedBooking(t)
	ctx := context.Background()

	detail, err := env.svc.CreateFromBooking(ctx, domain.CreateFromBookingRequest{
		BookingID: booking.ID.String(),
	})
	require.NoError(t, err)

	inv := detail.Invoice
	assert.Equal(t, domain.StatusPending, inv.PaymentStatus)
	assert.Equal(t, domain.CalculationAutomatic, inv.CalculationMethod)
	assert.Equal(t, "1700000.00", inv.Subtotal.String())
	assert.Equal(t, "0.00", inv.TaxAmount.String())
	assert.Equal(t, "1700000.00", inv.TotalAmount.String())
	assert.Equal(t, "1700000.00", inv.Balance.String())
	assert.Equal(t, inv.IssueDate.AddDate(0, 0, 14), inv.DueDate)

	require.Len(t, detail.Items, 2)
	roomLine := detail.Items[0]
	if roomLine.ItemType != domain.ItemRoomCharge {
		roomLine = detail.Items[1]
	}
	assert.Equal(t, int64(3), roomLine.Quantity)
	assert.Equal(t, "500000.00", roomLine.UnitPrice.String())
	assert.Equal(t, "1500000.00", roomLine.Amount.String())
}

func TestCreateFromBookingWithTax(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14, DefaultTaxPercent: 10})
	booking := env.seedBooking(t)

	detail, err := env.svc.CreateFromBooking(context.Background(), domain.CreateFromBookingRequest{
		BookingID: booking.ID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "1700000.00", detail.Invoice.Subtotal.String())
	assert.Equal(t, "170000.00", detail.Invoice.TaxAmount.String())
	assert.Equal(t, "1870000.00", detail.Invoice.TotalAmount.String())
}

func TestCreateFromBookingOnlyOnce(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	booking := env.seedBooking(t)
	ctx := context.Background()

	_, err := env.svc.CreateFromBooking(ctx, domain.CreateFromBookingRequest{BookingID: booking.ID.String()})
	require.NoError(t, err)

	_, err = env.svc.CreateFromBooking(ctx, domain.CreateFromBookingRequest{BookingID: booking.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvoiceAlreadyExists)
}

func TestCreateFromBookingGuards(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	ctx := context.Background()

	_, err := env.svc.CreateFromBooking(ctx, domain.CreateFromBookingRequest{BookingID: "999999"})
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	_, err = env.svc.CreateFromBooking(ctx, domain.CreateFromBookingRequest{BookingID: "not-a-number"})
	assert.ErrorIs(t, err, domain.ErrInvalidInvoiceID)

	// A booking without stays has nothing billable.
	empty := bookingdomain.Booking{
		ID:         env.node.Generate(),
		PropertyID: env.node.Generate(),
		GuestID:    env.node.Generate(),
	}
	require.NoError(t, env.db.Create(&empty).Error)
	_, err = env.svc.CreateFromBooking(ctx, domain.CreateFromBookingRequest{BookingID: empty.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidBooking)
}

func TestSameDayStayBillsOneNight(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	booking := env.seedBooking(t)

	// Replace the stay with a same-day check-in/check-out.
	require.NoError(t, env.db.Where("booking_id = ?", booking.ID).Delete(&bookingdomain.BookingStay{}).Error)
	var room catalogdomain.Room
	require.NoError(t, env.db.First(&room).Error)
	rate := money.FromInt(500000)
	stay := bookingdomain.BookingStay{
		ID:           env.node.Generate(),
		BookingID:    booking.ID,
		RoomID:       room.ID,
		CheckInDate:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		CheckOutDate: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		NightlyRate:  &rate,
	}
	require.NoError(t, env.db.Create(&stay).Error)

	detail, err := env.svc.CreateFromBooking(context.Background(), domain.CreateFromBookingRequest{
		BookingID: booking.ID.String(),
	})
	require.NoError(t, err)

	for _, it := range detail.Items {
		if it.ItemType == domain.ItemRoomCharge {
			assert.Equal(t, int64(1), it.Quantity)
			assert.Equal(t, "500000.00", it.Amount.String())
		}
	}
}

func TestCreateManual(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 7})
	ctx := context.Background()
	propertyID := env.node.Generate()

	detail, err := env.svc.CreateManual(ctx, domain.CreateManualRequest{
		PropertyID: propertyID.String(),
		Items: []domain.ManualItemInput{
			{ItemType: domain.ItemDamageFee, Description: "Broken lamp", Quantity: 1, UnitPrice: money.FromInt(250000)},
			{Description: "Late checkout", Quantity: 2, UnitPrice: money.FromInt(50000)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CalculationManual, detail.Invoice.CalculationMethod)
	assert.Nil(t, detail.Invoice.BookingID)
	assert.Equal(t, "350000.00", detail.Invoice.TotalAmount.String())
	require.Len(t, detail.Items, 2)
	assert.Equal(t, domain.ItemOther, detail.Items[1].ItemType)

	_, err = env.svc.CreateManual(ctx, domain.CreateManualRequest{PropertyID: propertyID.String()})
	assert.ErrorIs(t, err, domain.ErrNoItemsSelected)

	_, err = env.svc.CreateManual(ctx, domain.CreateManualRequest{
		PropertyID: propertyID.String(),
		Items: []domain.ManualItemInput{
			{Description: "bad", Quantity: 0, UnitPrice: money.FromInt(100)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBooking)
}

func TestDeleteGuards(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	booking := env.seedBooking(t)
	ctx := context.Background()

	detail, err := env.svc.CreateFromBooking(ctx, domain.CreateFromBookingRequest{BookingID: booking.ID.String()})
	require.NoError(t, err)
	id := detail.Invoice.ID.String()

	_, err = env.svc.MarkAsPaid(ctx, id)
	require.NoError(t, err)
	assert.ErrorIs(t, env.svc.Delete(ctx, id), domain.ErrInvoiceNotDeletable)

	// Once force-reset to pending, delete removes invoice and children.
	_, err = env.svc.UpdateStatus(ctx, id, domain.StatusPending)
	require.NoError(t, err)
	require.NoError(t, env.svc.Delete(ctx, id))

	_, err = env.svc.GetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	var orphans int64
	require.NoError(t, env.db.Model(&domain.InvoiceItem{}).Where("invoice_id = ?", detail.Invoice.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)
}
