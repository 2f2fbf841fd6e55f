package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/innkeep/pkg/money"
)

var (
	ErrInvoiceNotFound      = errors.New("invoice_not_found")
	ErrInvalidInvoiceID     = errors.New("invalid_invoice_id")
	ErrBookingNotFound      = errors.New("booking_not_found")
	ErrInvoiceAlreadyExists = errors.New("invoice_already_exists")
	ErrInvalidBooking       = errors.New("invalid_booking")

	ErrAlreadyPaid         = errors.New("invoice_already_paid")
	ErrInvoiceCancelled    = errors.New("invoice_cancelled")
	ErrInvoiceNotDeletable = errors.New("invoice_not_deletable")
	ErrInvalidStatus       = errors.New("invalid_status")

	ErrDiscountNotFound     = errors.New("discount_not_found")
	ErrDiscountNotOwned     = errors.New("discount_not_owned")
	ErrDiscountNotAllowed   = errors.New("discount_not_allowed")
	ErrInvalidDiscountValue = errors.New("invalid_discount_value")

	ErrRefundPolicyNotFound = errors.New("refund_policy_not_found")
	ErrRefundPolicyInactive = errors.New("refund_policy_inactive")

	ErrNoItemsSelected     = errors.New("no_items_selected")
	ErrItemsNotOwned       = errors.New("items_not_owned")
	ErrCannotMoveAllItems  = errors.New("cannot_move_all_items")
	ErrInvoiceNotPending   = errors.New("invoice_not_pending")
	ErrCrossBookingMerge   = errors.New("cross_booking_merge")
	ErrNothingToMerge      = errors.New("nothing_to_merge")
	ErrMergeTargetNotFound = errors.New("merge_target_not_found")
)

type ListInvoicesRequest struct {
	Status    *PaymentStatus
	BookingID *string
}

type ListInvoicesResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// InvoiceDetail is an invoice with its child rows.
type InvoiceDetail struct {
	Invoice   Invoice           `json:"invoice"`
	Items     []InvoiceItem     `json:"items"`
	Discounts []InvoiceDiscount `json:"discounts"`
}

type CreateFromBookingRequest struct {
	BookingID string `json:"booking_id"`
}

type ManualItemInput struct {
	ItemType    ItemType    `json:"item_type"`
	Description string      `json:"description"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   money.Money `json:"unit_price"`
}

type CreateManualRequest struct {
	PropertyID string            `json:"property_id"`
	Items      []ManualItemInput `json:"items"`
}

type ApplyDiscountRequest struct {
	InvoiceID string
	Type      DiscountType
	Value     money.Money
	Reason    string
}

type ApplyPromotionRequest struct {
	InvoiceID string
	Code      string
	GuestID   *string
}

type SplitRequest struct {
	InvoiceID string
	ItemIDs   []string
}

// SplitResult returns both halves after a split.
type SplitResult struct {
	Original Invoice `json:"original"`
	Created  Invoice `json:"created"`
}

type MergeRequest struct {
	TargetID   string
	InvoiceIDs []string
}

type Service interface {
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)
	GetByID(ctx context.Context, id string) (InvoiceDetail, error)
	CreateFromBooking(ctx context.Context, req CreateFromBookingRequest) (InvoiceDetail, error)
	CreateManual(ctx context.Context, req CreateManualRequest) (InvoiceDetail, error)
	Delete(ctx context.Context, id string) error

	ApplyDiscount(ctx context.Context, req ApplyDiscountRequest) (InvoiceDiscount, error)
	RemoveDiscount(ctx context.Context, invoiceID, discountID string) error
	ApplyPromotion(ctx context.Context, req ApplyPromotionRequest) (InvoiceDiscount, error)

	ApplyRefundPolicy(ctx context.Context, invoiceID, policyID string) (Invoice, error)

	MarkAsPaid(ctx context.Context, id string) (Invoice, error)
	Cancel(ctx context.Context, id string) (Invoice, error)
	UpdateStatus(ctx context.Context, id string, status PaymentStatus) (Invoice, error)
	SyncPayments(ctx context.Context, id string) (Invoice, error)
	SweepOverdue(ctx context.Context) (int64, error)

	Split(ctx context.Context, req SplitRequest) (SplitResult, error)
	Merge(ctx context.Context, req MergeRequest) (Invoice, error)
}
