package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/innkeep/internal/invoice/domain"
	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

// discountable reports whether an invoice may gain or lose discounts.
// Paid and cancelled invoices are frozen.
func discountable(status domain.PaymentStatus) error {
	switch status {
	case domain.StatusPaid:
		return domain.ErrAlreadyPaid
	case domain.StatusCancelled:
		return domain.ErrInvoiceCancelled
	}
	return nil
}

// ApplyDiscount attaches a staff discount. Percentage discounts compute
// off the pre-discount total (subtotal + tax) and round once; fixed
// discounts clamp to the remaining payable amount so the invoice can
// never go negative. The clamped amount is what gets stored, making
// removal an exact inverse.
func (s *service) ApplyDiscount(ctx context.Context, req domain.ApplyDiscountRequest) (domain.InvoiceDiscount, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.InvoiceDiscount{}, err
	}
	if !req.Value.IsPositive() {
		return domain.InvoiceDiscount{}, domain.ErrInvalidDiscountValue
	}
	switch req.Type {
	case domain.DiscountPercentage:
		if money.FromInt(100).LessThan(req.Value) {
			return domain.InvoiceDiscount{}, domain.ErrInvalidDiscountValue
		}
	case domain.DiscountFixedAmount:
	default:
		return domain.InvoiceDiscount{}, domain.ErrInvalidDiscountValue
	}

	var discount domain.InvoiceDiscount
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		if err := discountable(inv.PaymentStatus); err != nil {
			return err
		}

		amount, err := s.computeDiscountAmount(inv, req.Type, req.Value)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		discount = domain.InvoiceDiscount{
			ID:             s.genID.Generate(),
			InvoiceID:      inv.ID,
			DiscountType:   req.Type,
			DiscountValue:  req.Value,
			DiscountAmount: amount,
			Reason:         req.Reason,
			ApprovedAt:     &now,
			CreatedAt:      now,
		}
		if err := tx.Create(&discount).Error; err != nil {
			return err
		}
		if err := s.recompute(tx, &inv); err != nil {
			return err
		}
		return s.persist(tx, &inv)
	})
	if err != nil {
		return domain.InvoiceDiscount{}, err
	}

	s.log.Info("discount applied",
		zap.String("invoice_id", req.InvoiceID),
		zap.String("type", string(req.Type)),
		zap.String("amount", discount.DiscountAmount.String()),
	)
	return discount, nil
}

// computeDiscountAmount derives the concrete amount a discount row will
// carry against the invoice's current state.
func (s *service) computeDiscountAmount(inv domain.Invoice, discountType domain.DiscountType, value money.Money) (money.Money, error) {
	base := inv.Subtotal.Add(inv.TaxAmount)
	switch discountType {
	case domain.DiscountPercentage:
		amount := base.PercentOf(value.Decimal())
		if base.Sub(inv.DiscountAmount).LessThan(amount) {
			return money.Zero(), domain.ErrInvalidDiscountValue
		}
		return amount, nil
	case domain.DiscountFixedAmount:
		remaining := inv.TotalAmount.Sub(inv.PaidAmount).Sub(inv.RefundAmount).ClampNonNegative()
		amount := value.Min(remaining)
		if !amount.IsPositive() {
			return money.Zero(), domain.ErrInvalidDiscountValue
		}
		return amount, nil
	}
	return money.Zero(), domain.ErrInvalidDiscountValue
}

// RemoveDiscount detaches a discount and restores the totals it reduced.
// The stored computed amount is reversed verbatim, so apply-then-remove
// always round-trips to the original figures.
func (s *service) RemoveDiscount(ctx context.Context, invoiceIDRaw, discountIDRaw string) error {
	invoiceID, err := parseID(invoiceIDRaw)
	if err != nil {
		return err
	}
	discountID, err := parseID(discountIDRaw)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		if err := discountable(inv.PaymentStatus); err != nil {
			return err
		}

		var discount domain.InvoiceDiscount
		if err := tx.First(&discount, "id = ?", discountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrDiscountNotFound
			}
			return err
		}
		if discount.InvoiceID != inv.ID {
			return domain.ErrDiscountNotOwned
		}

		if err := tx.Delete(&domain.InvoiceDiscount{}, "id = ?", discountID).Error; err != nil {
			return err
		}
		if err := s.recompute(tx, &inv); err != nil {
			return err
		}
		return s.persist(tx, &inv)
	})
}

// ApplyPromotion validates a promotion code against the invoice, consumes
// one use, and attaches the resulting discount. Validation, the guarded
// usage increment, the usage record, and the totals update all commit in
// one transaction.
func (s *service) ApplyPromotion(ctx context.Context, req domain.ApplyPromotionRequest) (domain.InvoiceDiscount, error) {
	invoiceID, err := parseID(req.InvoiceID)
	if err != nil {
		return domain.InvoiceDiscount{}, err
	}

	var guestID *snowflake.ID
	if req.GuestID != nil {
		id, err := parseID(*req.GuestID)
		if err != nil {
			return domain.InvoiceDiscount{}, err
		}
		guestID = &id
	}

	var discount domain.InvoiceDiscount
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		if err := discountable(inv.PaymentStatus); err != nil {
			return err
		}

		items, err := s.loadItems(tx, inv.ID)
		if err != nil {
			return err
		}
		roomIDs := make([]snowflake.ID, 0, len(items))
		for _, it := range items {
			if it.RoomID != nil {
				roomIDs = append(roomIDs, *it.RoomID)
			}
		}

		propertyID := inv.PropertyID
		result, err := s.promotion.Validate(ctx, promotiondomain.ValidateRequest{
			Code:        req.Code,
			TotalAmount: inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount),
			RoomIDs:     roomIDs,
			PropertyID:  &propertyID,
		})
		if err != nil {
			return err
		}

		if guestID == nil && inv.BookingID != nil {
			guestID, err = s.bookingGuest(tx, *inv.BookingID)
			if err != nil {
				return err
			}
		}

		if err := s.promotion.RedeemInTx(ctx, tx, promotiondomain.RedeemRequest{
			PromotionID:    result.Promotion.ID,
			InvoiceID:      inv.ID,
			BookingID:      inv.BookingID,
			GuestID:        guestID,
			DiscountAmount: result.DiscountAmount,
		}); err != nil {
			return err
		}

		now := s.clock.Now()
		promotionID := result.Promotion.ID
		discount = domain.InvoiceDiscount{
			ID:             s.genID.Generate(),
			InvoiceID:      inv.ID,
			PromotionID:    &promotionID,
			DiscountType:   domain.DiscountType(result.Promotion.DiscountType),
			DiscountValue:  result.Promotion.DiscountValue,
			DiscountAmount: result.DiscountAmount,
			Reason:         "promotion " + result.Promotion.Code,
			ApprovedAt:     &now,
			CreatedAt:      now,
		}
		if err := tx.Create(&discount).Error; err != nil {
			return err
		}
		if err := s.recompute(tx, &inv); err != nil {
			return err
		}
		return s.persist(tx, &inv)
	})
	if err != nil {
		return domain.InvoiceDiscount{}, err
	}

	s.log.Info("promotion applied",
		zap.String("invoice_id", req.InvoiceID),
		zap.String("code", req.Code),
		zap.String("amount", discount.DiscountAmount.String()),
	)
	return discount, nil
}

func (s *service) bookingGuest(tx *gorm.DB, bookingID snowflake.ID) (*snowflake.ID, error) {
	var guestID snowflake.ID
	err := tx.Raw("SELECT guest_id FROM bookings WHERE id = ?", bookingID).Scan(&guestID).Error
	if err != nil {
		return nil, err
	}
	if guestID == 0 {
		return nil, nil
	}
	return &guestID, nil
}
