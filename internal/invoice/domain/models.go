// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/innkeep/pkg/money"
)

// PaymentStatus represents invoice lifecycle states.
type PaymentStatus string

const (
	StatusPending       PaymentStatus = "pending"
	StatusPartiallyPaid PaymentStatus = "partially_paid"
	StatusPaid          PaymentStatus = "paid"
	StatusOverdue       PaymentStatus = "overdue"
	StatusCancelled     PaymentStatus = "cancelled"
)

// Valid reports whether the status is one the engine knows.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Deletable reports whether an invoice in this status may be destroyed.
func (s PaymentStatus) Deletable() bool {
	return s == StatusPending || s == StatusCancelled
}

// CalculationMethod distinguishes generated invoices from hand-entered ones.
type CalculationMethod string

const (
	CalculationAutomatic CalculationMethod = "automatic"
	CalculationManual    CalculationMethod = "manual"
)

// ItemType classifies an invoice line.
type ItemType string

const (
	ItemRoomCharge    ItemType = "room_charge"
	ItemServiceCharge ItemType = "service_charge"
	ItemDamageFee     ItemType = "damage_fee"
	ItemPenalty       ItemType = "penalty"
	ItemOther         ItemType = "other"
)

// DiscountType is how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Invoice is the billable document derived from a booking. Aggregate money
// fields are always recomputed from the item and discount rows; they are
// never patched incrementally.
type Invoice struct {
	ID                snowflake.ID      `gorm:"primaryKey"`
	BookingID         *snowflake.ID     `gorm:"index"`
	PropertyID        snowflake.ID      `gorm:"not null;index"`
	IssueDate         time.Time         `gorm:"not null"`
	DueDate           time.Time         `gorm:"not null"`
	Subtotal          money.Money       `gorm:"type:decimal(14,2);not null"`
	DiscountAmount    money.Money       `gorm:"type:decimal(14,2);not null"`
	TaxAmount         money.Money       `gorm:"type:decimal(14,2);not null"`
	RefundAmount      money.Money       `gorm:"type:decimal(14,2);not null"`
	TotalAmount       money.Money       `gorm:"type:decimal(14,2);not null"`
	PaidAmount        money.Money       `gorm:"type:decimal(14,2);not null"`
	Balance           money.Money       `gorm:"type:decimal(14,2);not null"`
	PaymentStatus     PaymentStatus     `gorm:"type:text;not null;default:'pending';index"`
	CalculationMethod CalculationMethod `gorm:"type:text;not null;default:'automatic'"`
	RefundPolicyID    *snowflake.ID     `gorm:"index"`
	RefundDate        *time.Time        `gorm:""`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one billable line. Amount and Total are derived:
// amount = quantity x unit_price, total = amount + tax_amount.
type InvoiceItem struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	InvoiceID     snowflake.ID  `gorm:"not null;index"`
	ItemType      ItemType      `gorm:"type:text;not null;default:'other'"`
	Description   string        `gorm:"type:text"`
	Quantity      int64         `gorm:"not null;default:1"`
	UnitPrice     money.Money   `gorm:"type:decimal(14,2);not null"`
	TaxRate       money.Money   `gorm:"type:decimal(5,2);not null"`
	TaxAmount     money.Money   `gorm:"type:decimal(14,2);not null"`
	Amount        money.Money   `gorm:"type:decimal(14,2);not null"`
	Total         money.Money   `gorm:"type:decimal(14,2);not null"`
	RoomID        *snowflake.ID `gorm:"index"`
	ServiceID     *snowflake.ID `gorm:"index"`
	BookingStayID *snowflake.ID `gorm:"index"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// InvoiceDiscount is one applied discount. DiscountAmount is the computed
// (and, for fixed discounts, possibly clamped) amount; removal reverses
// exactly this stored value.
type InvoiceDiscount struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	InvoiceID      snowflake.ID  `gorm:"not null;index"`
	PromotionID    *snowflake.ID `gorm:"index"`
	DiscountType   DiscountType  `gorm:"type:text;not null"`
	DiscountValue  money.Money   `gorm:"type:decimal(14,2);not null"`
	DiscountAmount money.Money   `gorm:"type:decimal(14,2);not null"`
	Reason         string        `gorm:"type:text"`
	ApprovedAt     *time.Time    `gorm:""`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceDiscount) TableName() string { return "invoice_discounts" }
