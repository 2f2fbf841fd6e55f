package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/innkeep/internal/invoice/domain"
	refunddomain "github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
)

// ApplyRefundPolicy computes the refund a cancellation policy grants and
// records it on the invoice: refund = total x refund% minus the penalty
// share, clamped to [0, total]. Re-applying a policy replaces the prior
// refund rather than stacking on top of it.
func (s *service) ApplyRefundPolicy(ctx context.Context, invoiceIDRaw, policyIDRaw string) (domain.Invoice, error) {
	invoiceID, err := parseID(invoiceIDRaw)
	if err != nil {
		return domain.Invoice{}, err
	}
	policyID, err := parseID(policyIDRaw)
	if err != nil {
		return domain.Invoice{}, err
	}

	var inv domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err = s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}

		var policy refunddomain.RefundPolicy
		if err := tx.First(&policy, "id = ?", policyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRefundPolicyNotFound
			}
			return err
		}
		if !policy.IsActive {
			return domain.ErrRefundPolicyInactive
		}

		refund := inv.TotalAmount.PercentOf(policy.RefundPercent)
		if policy.PenaltyPercent.IsPositive() {
			refund = refund.Sub(refund.PercentOf(policy.PenaltyPercent))
		}
		refund = refund.ClampNonNegative().Min(inv.TotalAmount)

		now := s.clock.Now()
		inv.RefundAmount = refund
		inv.RefundPolicyID = &policy.ID
		inv.RefundDate = &now
		inv.Balance = inv.TotalAmount.Sub(inv.PaidAmount).Sub(inv.RefundAmount).ClampNonNegative()
		return s.persist(tx, &inv)
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.log.Info("refund policy applied",
		zap.String("invoice_id", invoiceIDRaw),
		zap.String("policy_id", policyIDRaw),
		zap.String("refund", inv.RefundAmount.String()),
	)
	return inv, nil
}
