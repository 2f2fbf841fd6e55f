// Package domain holds the booking-side records the financial engine
// consumes. These tables are owned by the reservation system; the engine
// reads them and never writes back.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/innkeep/pkg/money"
)

// Booking is the reservation the engine bills against.
type Booking struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PropertyID snowflake.ID `gorm:"not null;index"`
	GuestID    snowflake.ID `gorm:"not null;index"`
	Status     string       `gorm:"type:text;not null;default:'confirmed'"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Booking) TableName() string { return "bookings" }

// BookingStay is one room stay segment of a booking. NightlyRate is the
// rate captured at booking time; nil means no rate was recorded and the
// room's current rate applies.
type BookingStay struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	BookingID    snowflake.ID `gorm:"not null;index"`
	RoomID       snowflake.ID `gorm:"not null;index"`
	CheckInDate  time.Time    `gorm:"not null"`
	CheckOutDate time.Time    `gorm:"not null"`
	NightlyRate  *money.Money `gorm:"type:decimal(14,2)"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BookingStay) TableName() string { return "booking_stays" }

// BookingService is an extra service booked with the stay. UnitPrice is
// the price recorded when the guest booked, preserved for historical
// accuracy even when the catalog price changes later.
type BookingService struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	BookingID snowflake.ID `gorm:"not null;index"`
	ServiceID snowflake.ID `gorm:"not null;index"`
	Quantity  int64        `gorm:"not null;default:1"`
	UnitPrice *money.Money `gorm:"type:decimal(14,2)"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BookingService) TableName() string { return "booking_services" }

// Payment is an external fact recorded by the payment system. The engine
// aggregates paid amounts from these rows and never creates them.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	InvoiceID snowflake.ID `gorm:"not null;index"`
	Amount    money.Money  `gorm:"type:decimal(14,2);not null"`
	Method    string       `gorm:"type:text"`
	PaidAt    time.Time    `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }
