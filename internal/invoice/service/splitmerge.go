package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/innkeep/internal/invoice/domain"
)

// Split moves the selected items onto a new invoice for the same booking
// and recomputes both documents. Line totals are already rounded, so the
// two invoices always sum back to the original to the cent.
func (s *service) Split(ctx context.Context, req domain.SplitRequest) (domain.SplitResult, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.SplitResult{}, err
	}
	if len(req.ItemIDs) == 0 {
		return domain.SplitResult{}, domain.ErrNoItemsSelected
	}
	itemIDs := make([]snowflake.ID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		id, err := parseID(raw)
		if err != nil {
			return domain.SplitResult{}, err
		}
		itemIDs = append(itemIDs, id)
	}

	var result domain.SplitResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		original, err := s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		if original.PaymentStatus != domain.StatusPending {
			return domain.ErrInvoiceNotPending
		}

		items, err := s.loadItems(tx, original.ID)
		if err != nil {
			return err
		}
		owned := make(map[snowflake.ID]bool, len(items))
		for _, it := range items {
			owned[it.ID] = true
		}
		selected := make(map[snowflake.ID]bool, len(itemIDs))
		for _, id := range itemIDs {
			if !owned[id] {
				return domain.ErrItemsNotOwned
			}
			selected[id] = true
		}
		if len(selected) == len(items) {
			return domain.ErrCannotMoveAllItems
		}

		now := s.clock.Now()
		created := domain.Invoice{
			ID:                s.genID.Generate(),
			BookingID:         original.BookingID,
			PropertyID:        original.PropertyID,
			IssueDate:         original.IssueDate,
			DueDate:           original.DueDate,
			PaymentStatus:     domain.StatusPending,
			CalculationMethod: original.CalculationMethod,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		moved := make([]snowflake.ID, 0, len(selected))
		for id := range selected {
			moved = append(moved, id)
		}
		if err := tx.Model(&domain.InvoiceItem{}).
			Where("id IN ?", moved).
			Update("invoice_id", created.ID).Error; err != nil {
			return err
		}

		if err := s.recompute(tx, &original); err != nil {
			return err
		}
		if err := s.persist(tx, &original); err != nil {
			return err
		}
		if err := s.recompute(tx, &created); err != nil {
			return err
		}
		if err := s.persist(tx, &created); err != nil {
			return err
		}

		result = domain.SplitResult{Original: original, Created: created}
		return nil
	})
	if err != nil {
		return domain.SplitResult{}, err
	}

	s.log.Info("invoice split",
		zap.String("original_id", result.Original.ID.String()),
		zap.String("created_id", result.Created.ID.String()),
		zap.Int("items_moved", len(itemIDs)),
	)
	return result, nil
}

// Merge folds the source invoices into the target: items and discounts
// move over, paid and refund amounts accumulate, the emptied sources are
// deleted, and the target is recomputed. Only pending invoices from the
// same booking may merge.
func (s *service) Merge(ctx context.Context, req domain.MergeRequest) (domain.Invoice, error) {
	targetID, err := parseID(req.TargetID)
	if err != nil {
		return domain.Invoice{}, err
	}
	sourceIDs := make([]snowflake.ID, 0, len(req.InvoiceIDs))
	for _, raw := range req.InvoiceIDs {
		id, err := parseID(raw)
		if err != nil {
			return domain.Invoice{}, err
		}
		if id != targetID {
			sourceIDs = append(sourceIDs, id)
		}
	}
	if len(sourceIDs) == 0 {
		return domain.Invoice{}, domain.ErrNothingToMerge
	}

	var target domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err = s.lockInvoice(tx, targetID)
		if err != nil {
			if errors.Is(err, domain.ErrInvoiceNotFound) {
				return domain.ErrMergeTargetNotFound
			}
			return err
		}
		if target.PaymentStatus != domain.StatusPending {
			return domain.ErrInvoiceNotPending
		}

		bookings := map[snowflake.ID]bool{}
		if target.BookingID != nil {
			bookings[*target.BookingID] = true
		}

		sources := make([]domain.Invoice, 0, len(sourceIDs))
		for _, id := range sourceIDs {
			src, err := s.lockInvoice(tx, id)
			if err != nil {
				return err
			}
			if src.PaymentStatus != domain.StatusPending {
				return domain.ErrInvoiceNotPending
			}
			if src.BookingID != nil {
				bookings[*src.BookingID] = true
			}
			sources = append(sources, src)
		}
		if len(bookings) > 1 {
			return domain.ErrCrossBookingMerge
		}

		if err := tx.Model(&domain.InvoiceItem{}).
			Where("invoice_id IN ?", sourceIDs).
			Update("invoice_id", target.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.InvoiceDiscount{}).
			Where("invoice_id IN ?", sourceIDs).
			Update("invoice_id", target.ID).Error; err != nil {
			return err
		}

		for _, src := range sources {
			target.PaidAmount = target.PaidAmount.Add(src.PaidAmount)
			target.RefundAmount = target.RefundAmount.Add(src.RefundAmount)
		}

		if err := tx.Delete(&domain.Invoice{}, "id IN ?", sourceIDs).Error; err != nil {
			return err
		}
		if err := s.recompute(tx, &target); err != nil {
			return err
		}
		return s.persist(tx, &target)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("invoices merged",
		zap.String("target_id", target.ID.String()),
		zap.Int("merged", len(sourceIDs)),
	)
	return target, nil
}
