package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/innkeep/internal/config"
	"github.com/smallbiznis/innkeep/internal/invoice/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

func TestSplitThenMergeConservesTotals(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	ctx := context.Background()

	detail, err := env.svc.CreateManual(ctx, domain.CreateManualRequest{
		PropertyID: env.node.Generate().String(),
		Items: []domain.ManualItemInput{
			{Description: "room", Quantity: 1, UnitPrice: money.FromInt(700000)},
			{Description: "spa", Quantity: 1, UnitPrice: money.FromInt(300000)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "1000000.00", detail.Invoice.TotalAmount.String())

	var spaItem domain.InvoiceItem
	for _, it := range detail.Items {
		if it.Description == "spa" {
			spaItem = it
		}
	}

	result, err := env.svc.Split(ctx, domain.SplitRequest{
		InvoiceID: detail.Invoice.ID.String(),
		ItemIDs:   []string{spaItem.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "700000.00", result.Original.TotalAmount.String())
	assert.Equal(t, "300000.00", result.Created.TotalAmount.String())
	assert.Equal(t, detail.Invoice.TotalAmount.String(),
		result.Original.TotalAmount.Add(result.Created.TotalAmount).String())
	assert.Equal(t, detail.Invoice.DueDate, result.Created.DueDate)

	merged, err := env.svc.Merge(ctx, domain.MergeRequest{
		TargetID:   result.Original.ID.String(),
		InvoiceIDs: []string{result.Created.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "1000000.00", merged.TotalAmount.String())

	// The source invoice is gone and its items now belong to the target.
	_, err = env.svc.GetByID(ctx, result.Created.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	after, err := env.svc.GetByID(ctx, merged.ID.String())
	require.NoError(t, err)
	assert.Len(t, after.Items, 2)
}

func TestSplitGuards(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	ctx := context.Background()

	detail, err := env.svc.CreateManual(ctx, domain.CreateManualRequest{
		PropertyID: env.node.Generate().String(),
		Items: []domain.ManualItemInput{
			{Description: "room", Quantity: 1, UnitPrice: money.FromInt(500000)},
			{Description: "bar", Quantity: 1, UnitPrice: money.FromInt(80000)},
		},
	})
	require.NoError(t, err)
	id := detail.Invoice.ID.String()

	_, err = env.svc.Split(ctx, domain.SplitRequest{InvoiceID: id})
	assert.ErrorIs(t, err, domain.ErrNoItemsSelected)

	_, err = env.svc.Split(ctx, domain.SplitRequest{InvoiceID: id, ItemIDs: []string{"987654"}})
	assert.ErrorIs(t, err, domain.ErrItemsNotOwned)

	allIDs := []string{detail.Items[0].ID.String(), detail.Items[1].ID.String()}
	_, err = env.svc.Split(ctx, domain.SplitRequest{InvoiceID: id, ItemIDs: allIDs})
	assert.ErrorIs(t, err, domain.ErrCannotMoveAllItems)

	_, err = env.svc.MarkAsPaid(ctx, id)
	require.NoError(t, err)
	_, err = env.svc.Split(ctx, domain.SplitRequest{InvoiceID: id, ItemIDs: allIDs[:1]})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotPending)
}

func TestMergeGuards(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	ctx := context.Background()

	first := env.createInvoice(t)

	// A second booking with its own invoice.
	second := env.createInvoice(t)

	_, err := env.svc.Merge(ctx, domain.MergeRequest{
		TargetID:   first.Invoice.ID.String(),
		InvoiceIDs: []string{second.Invoice.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrCrossBookingMerge)

	_, err = env.svc.Merge(ctx, domain.MergeRequest{
		TargetID:   first.Invoice.ID.String(),
		InvoiceIDs: []string{first.Invoice.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrNothingToMerge)

	_, err = env.svc.Merge(ctx, domain.MergeRequest{
		TargetID:   "131313",
		InvoiceIDs: []string{first.Invoice.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrMergeTargetNotFound)

	_, err = env.svc.MarkAsPaid(ctx, second.Invoice.ID.String())
	require.NoError(t, err)
	_, err = env.svc.Merge(ctx, domain.MergeRequest{
		TargetID:   second.Invoice.ID.String(),
		InvoiceIDs: []string{first.Invoice.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotPending)
}

func TestSplitInvoiceKeepsBookingReference(t *testing.T) {
	env := newTestEnv(t, config.BillingConfig{DueInDays: 14})
	ctx := context.Background()
	detail := env.createInvoice(t)

	var moveID string
	for _, it := range detail.Items {
		if it.ItemType == domain.ItemServiceCharge {
			moveID = it.ID.String()
		}
	}
	require.NotEmpty(t, moveID)

	result, err := env.svc.Split(ctx, domain.SplitRequest{
		InvoiceID: detail.Invoice.ID.String(),
		ItemIDs:   []string{moveID},
	})
	require.NoError(t, err)

	require.NotNil(t, result.Created.BookingID)
	assert.Equal(t, *detail.Invoice.BookingID, *result.Created.BookingID)
	assert.Equal(t, "1500000.00", result.Original.TotalAmount.String())
	assert.Equal(t, "200000.00", result.Created.TotalAmount.String())
}
