// Package service implements invoice generation and the financial
// operations that mutate an invoice after it exists.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/smallbiznis/innkeep/internal/booking/domain"
	catalogdomain "github.com/smallbiznis/innkeep/internal/catalog/domain"
	"github.com/smallbiznis/innkeep/internal/clock"
	"github.com/smallbiznis/innkeep/internal/config"
	"github.com/smallbiznis/innkeep/internal/invoice/domain"
	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	"github.com/smallbiznis/innkeep/pkg/db"
	"github.com/smallbiznis/innkeep/pkg/money"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Billing   *config.BillingConfigHolder
	Promotion promotiondomain.Service
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	billing   *config.BillingConfigHolder
	promotion promotiondomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		billing:   p.Billing,
		promotion: p.Promotion,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, domain.ErrInvalidInvoiceID
	}
	return snowflake.ID(n), nil
}

// List returns invoices, newest first, optionally filtered by status or
// booking.
func (s *service) List(ctx context.Context, req domain.ListInvoicesRequest) (domain.ListInvoicesResponse, error) {
	q := s.db.WithContext(ctx).Model(&domain.Invoice{})
	if req.Status != nil {
		if !req.Status.Valid() {
			return domain.ListInvoicesResponse{}, domain.ErrInvalidStatus
		}
		q = q.Where("payment_status = ?", *req.Status)
	}
	if req.BookingID != nil {
		bookingID, err := parseID(*req.BookingID)
		if err != nil {
			return domain.ListInvoicesResponse{}, err
		}
		q = q.Where("booking_id = ?", bookingID)
	}

	var invoices []domain.Invoice
	if err := q.Order("created_at DESC").Find(&invoices).Error; err != nil {
		return domain.ListInvoicesResponse{}, err
	}
	return domain.ListInvoicesResponse{Invoices: invoices}, nil
}

func (s *service) GetByID(ctx context.Context, id string) (domain.InvoiceDetail, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	return s.loadDetail(s.db.WithContext(ctx), invoiceID)
}

func (s *service) loadDetail(tx *gorm.DB, invoiceID snowflake.ID) (domain.InvoiceDetail, error) {
	var inv domain.Invoice
	if err := tx.First(&inv, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.InvoiceDetail{}, domain.ErrInvoiceNotFound
		}
		return domain.InvoiceDetail{}, err
	}

	items, err := s.loadItems(tx, invoiceID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	discounts, err := s.loadDiscounts(tx, invoiceID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	return domain.InvoiceDetail{Invoice: inv, Items: items, Discounts: discounts}, nil
}

func (s *service) loadItems(tx *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := tx.Where("invoice_id = ?", invoiceID).Order("id ASC").Find(&items).Error
	return items, err
}

func (s *service) loadDiscounts(tx *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceDiscount, error) {
	var discounts []domain.InvoiceDiscount
	err := tx.Where("invoice_id = ?", invoiceID).Order("id ASC").Find(&discounts).Error
	return discounts, err
}

// lockInvoice loads an invoice for update inside tx.
func (s *service) lockInvoice(tx *gorm.DB, invoiceID snowflake.ID) (domain.Invoice, error) {
	var inv domain.Invoice
	if err := db.ForUpdate(tx).First(&inv, "id = ?", invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invoice{}, domain.ErrInvoiceNotFound
		}
		return domain.Invoice{}, err
	}
	return inv, nil
}

// recompute rebuilds every aggregate money field of inv from its item and
// discount rows. It is the only place totals are derived, so every
// mutation path preserves:
//
//	total   = subtotal - discount + tax
//	balance = max(0, total - paid - refund)
func (s *service) recompute(tx *gorm.DB, inv *domain.Invoice) error {
	items, err := s.loadItems(tx, inv.ID)
	if err != nil {
		return err
	}
	discounts, err := s.loadDiscounts(tx, inv.ID)
	if err != nil {
		return err
	}

	subtotal, tax := money.Zero(), money.Zero()
	for _, it := range items {
		subtotal = subtotal.Add(it.Amount)
		tax = tax.Add(it.TaxAmount)
	}
	discount := money.Zero()
	for _, d := range discounts {
		discount = discount.Add(d.DiscountAmount)
	}

	inv.Subtotal = subtotal
	inv.DiscountAmount = discount
	inv.TaxAmount = tax
	inv.TotalAmount = subtotal.Sub(discount).Add(tax)
	inv.Balance = inv.TotalAmount.Sub(inv.PaidAmount).Sub(inv.RefundAmount).ClampNonNegative()
	return nil
}

func (s *service) persist(tx *gorm.DB, inv *domain.Invoice) error {
	inv.UpdatedAt = s.clock.Now()
	return tx.Save(inv).Error
}

// CreateFromBooking builds the automatic invoice for a booking: one room
// charge per stay segment and one service charge per booked service, at
// the rates captured when the guest booked. A booking gets at most one
// automatic invoice; the booking row is locked so concurrent calls
// serialize on the existence check.
func (s *service) CreateFromBooking(ctx context.Context, req domain.CreateFromBookingRequest) (domain.InvoiceDetail, error) {
	bookingID, err := parseID(req.BookingID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}

	var detail domain.InvoiceDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking bookingdomain.Booking
		if err := db.ForUpdate(tx).First(&booking, "id = ?", bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookingNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&domain.Invoice{}).
			Where("booking_id = ? AND calculation_method = ?", bookingID, domain.CalculationAutomatic).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return domain.ErrInvoiceAlreadyExists
		}

		var stays []bookingdomain.BookingStay
		if err := tx.Where("booking_id = ?", bookingID).
			Order("check_in_date ASC").Find(&stays).Error; err != nil {
			return err
		}
		if len(stays) == 0 {
			return domain.ErrInvalidBooking
		}

		var booked []bookingdomain.BookingService
		if err := tx.Where("booking_id = ?", bookingID).Find(&booked).Error; err != nil {
			return err
		}

		now := s.clock.Now()
		billing := s.billing.Get()
		taxRate := billing.DefaultTaxRate()

		inv := domain.Invoice{
			ID:                s.genID.Generate(),
			BookingID:         &booking.ID,
			PropertyID:        booking.PropertyID,
			IssueDate:         now,
			DueDate:           now.AddDate(0, 0, billing.DueInDays),
			PaymentStatus:     domain.StatusPending,
			CalculationMethod: domain.CalculationAutomatic,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		items, err := s.buildStayItems(tx, inv.ID, stays, taxRate)
		if err != nil {
			return err
		}
		serviceItems, err := s.buildServiceItems(tx, inv.ID, booked, taxRate)
		if err != nil {
			return err
		}
		items = append(items, serviceItems...)

		if err := tx.Create(&inv).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrInvoiceAlreadyExists
			}
			return err
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		if err := s.recompute(tx, &inv); err != nil {
			return err
		}
		if err := s.persist(tx, &inv); err != nil {
			return err
		}

		detail = domain.InvoiceDetail{Invoice: inv, Items: items}
		return nil
	})
	if err != nil {
		return domain.InvoiceDetail{}, err
	}

	s.log.Info("invoice generated",
		zap.String("invoice_id", detail.Invoice.ID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.String("total", detail.Invoice.TotalAmount.String()),
	)
	return detail, nil
}

// buildStayItems turns stay segments into room charge lines. The nightly
// rate captured on the stay wins; a stay without one falls back to the
// room's current rate.
func (s *service) buildStayItems(tx *gorm.DB, invoiceID snowflake.ID, stays []bookingdomain.BookingStay, taxRate decimal.Decimal) ([]domain.InvoiceItem, error) {
	roomIDs := make([]snowflake.ID, 0, len(stays))
	for _, stay := range stays {
		roomIDs = append(roomIDs, stay.RoomID)
	}
	var rooms []catalogdomain.Room
	if err := tx.Where("id IN ?", roomIDs).Find(&rooms).Error; err != nil {
		return nil, err
	}
	roomByID := make(map[snowflake.ID]catalogdomain.Room, len(rooms))
	for _, r := range rooms {
		roomByID[r.ID] = r
	}

	items := make([]domain.InvoiceItem, 0, len(stays))
	for _, stay := range stays {
		room, ok := roomByID[stay.RoomID]
		if !ok {
			return nil, domain.ErrInvalidBooking
		}
		rate := room.NightlyRate
		if stay.NightlyRate != nil {
			rate = *stay.NightlyRate
		}

		nights := nightsBetween(stay.CheckInDate, stay.CheckOutDate)
		stayID := stay.ID
		roomID := stay.RoomID
		items = append(items, s.newItem(invoiceID, domain.InvoiceItem{
			ItemType:      domain.ItemRoomCharge,
			Description:   fmt.Sprintf("Room %s, %d night(s)", room.Name, nights),
			Quantity:      nights,
			UnitPrice:     rate,
			RoomID:        &roomID,
			BookingStayID: &stayID,
		}, taxRate))
	}
	return items, nil
}

func (s *service) buildServiceItems(tx *gorm.DB, invoiceID snowflake.ID, booked []bookingdomain.BookingService, taxRate decimal.Decimal) ([]domain.InvoiceItem, error) {
	if len(booked) == 0 {
		return nil, nil
	}
	serviceIDs := make([]snowflake.ID, 0, len(booked))
	for _, b := range booked {
		serviceIDs = append(serviceIDs, b.ServiceID)
	}
	var services []catalogdomain.Service
	if err := tx.Where("id IN ?", serviceIDs).Find(&services).Error; err != nil {
		return nil, err
	}
	serviceByID := make(map[snowflake.ID]catalogdomain.Service, len(services))
	for _, svc := range services {
		serviceByID[svc.ID] = svc
	}

	items := make([]domain.InvoiceItem, 0, len(booked))
	for _, b := range booked {
		svc, ok := serviceByID[b.ServiceID]
		if !ok {
			return nil, domain.ErrInvalidBooking
		}
		price := svc.UnitPrice
		if b.UnitPrice != nil {
			price = *b.UnitPrice
		}
		qty := b.Quantity
		if qty < 1 {
			qty = 1
		}
		serviceID := b.ServiceID
		items = append(items, s.newItem(invoiceID, domain.InvoiceItem{
			ItemType:    domain.ItemServiceCharge,
			Description: svc.Name,
			Quantity:    qty,
			UnitPrice:   price,
			ServiceID:   &serviceID,
		}, taxRate))
	}
	return items, nil
}

// newItem fills the derived fields of a line: amount = qty x unit price,
// tax rounded once off that amount, total = amount + tax.
func (s *service) newItem(invoiceID snowflake.ID, item domain.InvoiceItem, taxRate decimal.Decimal) domain.InvoiceItem {
	item.ID = s.genID.Generate()
	item.InvoiceID = invoiceID
	item.Amount = item.UnitPrice.MulInt(item.Quantity)
	item.TaxRate = money.FromDecimal(taxRate)
	item.TaxAmount = item.Amount.PercentOf(taxRate)
	item.Total = item.Amount.Add(item.TaxAmount)
	item.CreatedAt = s.clock.Now()
	return item
}

// nightsBetween counts calendar nights between check-in and check-out,
// ignoring the time of day, with a floor of one so same-day stays still
// bill a night.
func nightsBetween(checkIn, checkOut time.Time) int64 {
	in := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)
	out := time.Date(checkOut.Year(), checkOut.Month(), checkOut.Day(), 0, 0, 0, 0, time.UTC)
	nights := int64(out.Sub(in).Hours() / 24)
	if nights < 1 {
		return 1
	}
	return nights
}

// CreateManual creates a hand-entered invoice from ad-hoc lines, for
// charges with no backing booking (walk-ins, damage after checkout).
func (s *service) CreateManual(ctx context.Context, req domain.CreateManualRequest) (domain.InvoiceDetail, error) {
	propertyID, err := parseID(req.PropertyID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if len(req.Items) == 0 {
		return domain.InvoiceDetail{}, domain.ErrNoItemsSelected
	}
	for _, in := range req.Items {
		if in.Quantity < 1 || in.UnitPrice.IsNegative() {
			return domain.InvoiceDetail{}, domain.ErrInvalidBooking
		}
	}

	var detail domain.InvoiceDetail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		billing := s.billing.Get()
		taxRate := billing.DefaultTaxRate()

		inv := domain.Invoice{
			ID:                s.genID.Generate(),
			PropertyID:        propertyID,
			IssueDate:         now,
			DueDate:           now.AddDate(0, 0, billing.DueInDays),
			PaymentStatus:     domain.StatusPending,
			CalculationMethod: domain.CalculationManual,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		items := make([]domain.InvoiceItem, 0, len(req.Items))
		for _, in := range req.Items {
			itemType := in.ItemType
			if itemType == "" {
				itemType = domain.ItemOther
			}
			items = append(items, s.newItem(inv.ID, domain.InvoiceItem{
				ItemType:    itemType,
				Description: in.Description,
				Quantity:    in.Quantity,
				UnitPrice:   in.UnitPrice,
			}, taxRate))
		}

		if err := tx.Create(&inv).Error; err != nil {
			return err
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		if err := s.recompute(tx, &inv); err != nil {
			return err
		}
		if err := s.persist(tx, &inv); err != nil {
			return err
		}

		detail = domain.InvoiceDetail{Invoice: inv, Items: items}
		return nil
	})
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	return detail, nil
}

// Delete destroys a pending or cancelled invoice together with its child
// rows. Discounts go first, then items, then the invoice itself, so a
// failure mid-way never leaves orphaned children.
func (s *service) Delete(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(tx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.PaymentStatus.Deletable() {
			return domain.ErrInvoiceNotDeletable
		}

		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&domain.InvoiceDiscount{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&domain.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Invoice{}, "id = ?", invoiceID).Error
	})
}
