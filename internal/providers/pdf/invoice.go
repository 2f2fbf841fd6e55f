package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(22,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 0}),
			text.New("Booking: "+invoice.BookingRef, props.Text{Top: 4}),
			text.New("Date of issue: "+invoice.IssueDate, props.Text{Top: 8}),
			text.New("Date due: "+invoice.DueDate, props.Text{Top: 12}),
			text.New("Status: "+invoice.Status, props.Text{Top: 16}),
		),
		col.New(6).Add(
			text.New(invoice.PropertyName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range invoice.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", item.Qty), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	for _, discount := range invoice.Discounts {
		reason := discount.Reason
		if reason == "" {
			reason = "Discount"
		}
		m.AddRow(8,
			text.NewCol(10, reason, props.Text{Size: 9}),
			text.NewCol(2, "-"+discount.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	totalRow := func(label, value string, bold bool) {
		style := fontstyle.Normal
		if bold {
			style = fontstyle.Bold
		}
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}

	totalRow("Subtotal", invoice.Subtotal, false)
	totalRow("Tax", invoice.TaxAmount, false)
	if invoice.Discount != "" {
		totalRow("Discount", "-"+invoice.Discount, false)
	}
	if invoice.RefundAmount != "" {
		totalRow("Refund", "-"+invoice.RefundAmount, false)
	}
	totalRow("Total", invoice.Total, true)
	totalRow("Paid", invoice.PaidAmount, false)
	totalRow("Balance due", invoice.Balance, true)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
