// Package pdf renders invoices as PDF documents.
package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error)
}

// InvoiceData is the render model, pre-formatted by the caller so the
// renderer stays free of money arithmetic.
type InvoiceData struct {
	PropertyName  string
	InvoiceNumber string
	BookingRef    string
	IssueDate     string
	DueDate       string
	Status        string

	Items     []LineItem
	Discounts []DiscountLine

	Subtotal     string
	TaxAmount    string
	Discount     string
	RefundAmount string
	Total        string
	PaidAmount   string
	Balance      string
}

type LineItem struct {
	Description string
	Qty         int64
	UnitPrice   string
	Amount      string
}

type DiscountLine struct {
	Reason string
	Amount string
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error) {
	return nil, nil
}
