package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/smallbiznis/innkeep/internal/booking/domain"
	"github.com/smallbiznis/innkeep/internal/invoice/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

// MarkAsPaid settles an invoice manually, for payments taken outside the
// payment system (cash at the front desk). The paid amount is set to the
// full total and the balance drops to zero.
func (s *service) MarkAsPaid(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	var inv domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		switch inv.PaymentStatus {
		case domain.StatusPaid:
			return domain.ErrAlreadyPaid
		case domain.StatusCancelled:
			return domain.ErrInvoiceCancelled
		}

		inv.PaymentStatus = domain.StatusPaid
		inv.PaidAmount = inv.TotalAmount
		inv.Balance = money.Zero()
		return s.persist(tx, &inv)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("invoice marked paid", zap.String("invoice_id", id))
	return inv, nil
}

// Cancel voids an unpaid invoice. Paid invoices cannot be cancelled; they
// go through the refund policy flow instead.
func (s *service) Cancel(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	var inv domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		if inv.PaymentStatus == domain.StatusPaid {
			return domain.ErrAlreadyPaid
		}
		if inv.PaymentStatus == domain.StatusCancelled {
			return nil
		}

		inv.PaymentStatus = domain.StatusCancelled
		return s.persist(tx, &inv)
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

// UpdateStatus is the admin override: it sets any known status without
// lifecycle guards and leaves the money fields untouched.
func (s *service) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) (domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if !status.Valid() {
		return domain.Invoice{}, domain.ErrInvalidStatus
	}

	var inv domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		inv.PaymentStatus = status
		return s.persist(tx, &inv)
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

// SyncPayments re-aggregates the paid amount from the payment records and
// re-derives the payment status. Payments are external facts; the engine
// never creates them, it only folds them in.
func (s *service) SyncPayments(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	var inv domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}

		var payments []bookingdomain.Payment
		if err := tx.Where("invoice_id = ?", invoiceID).Find(&payments).Error; err != nil {
			return err
		}
		paid := money.Zero()
		for _, p := range payments {
			paid = paid.Add(p.Amount)
		}

		inv.PaidAmount = paid
		inv.Balance = inv.TotalAmount.Sub(inv.PaidAmount).Sub(inv.RefundAmount).ClampNonNegative()

		// Cancelled invoices keep their status; everything else is
		// re-derived from how much of the payable amount is covered.
		if inv.PaymentStatus != domain.StatusCancelled {
			payable := inv.TotalAmount.Sub(inv.RefundAmount).ClampNonNegative()
			switch {
			case paid.IsPositive() && !paid.LessThan(payable):
				inv.PaymentStatus = domain.StatusPaid
			case paid.IsPositive():
				inv.PaymentStatus = domain.StatusPartiallyPaid
			case inv.PaymentStatus == domain.StatusPartiallyPaid || inv.PaymentStatus == domain.StatusPaid:
				inv.PaymentStatus = domain.StatusPending
			}
		}
		return s.persist(tx, &inv)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("payments synced",
		zap.String("invoice_id", id),
		zap.String("paid", inv.PaidAmount.String()),
		zap.String("status", string(inv.PaymentStatus)),
	)
	return inv, nil
}

// SweepOverdue flips pending invoices whose due date plus the configured
// grace period has passed to overdue, and reports how many rows changed.
func (s *service) SweepOverdue(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	cutoff := now.AddDate(0, 0, -s.billing.Get().OverdueGraceDays)

	res := s.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("payment_status = ? AND due_date < ?", domain.StatusPending, cutoff).
		Updates(map[string]any{
			"payment_status": domain.StatusOverdue,
			"updated_at":     now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Info("overdue sweep", zap.Int64("flipped", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
