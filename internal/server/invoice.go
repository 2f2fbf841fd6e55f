package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/smallbiznis/innkeep/internal/invoice/domain"
	"github.com/smallbiznis/innkeep/internal/providers/pdf"
	"github.com/smallbiznis/innkeep/pkg/money"
)

type createInvoiceRequest struct {
	BookingID  string                          `json:"booking_id"`
	PropertyID string                          `json:"property_id"`
	Items      []invoicedomain.ManualItemInput `json:"items"`
}

// CreateInvoice creates either an automatic invoice from a booking or a
// manual one from explicit line items, depending on which fields the
// caller sends.
func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}

	ctx := c.Request.Context()

	if strings.TrimSpace(req.BookingID) != "" {
		detail, err := s.invoiceSvc.CreateFromBooking(ctx, invoicedomain.CreateFromBookingRequest{
			BookingID: req.BookingID,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": detail})
		return
	}

	detail, err := s.invoiceSvc.CreateManual(ctx, invoicedomain.CreateManualRequest{
		PropertyID: req.PropertyID,
		Items:      req.Items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": detail})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoicesRequest

	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := invoicedomain.PaymentStatus(v)
		req.Status = &status
	}
	if v := strings.TrimSpace(c.Query("booking_id")); v != "" {
		req.BookingID = &v
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp.Invoices})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	detail, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": detail})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type applyDiscountRequest struct {
	Type   invoicedomain.DiscountType `json:"type"`
	Value  money.Money                `json:"value"`
	Reason string                     `json:"reason"`
}

func (s *Server) ApplyDiscount(c *gin.Context) {
	var req applyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}

	discount, err := s.invoiceSvc.ApplyDiscount(c.Request.Context(), invoicedomain.ApplyDiscountRequest{
		InvoiceID: c.Param("id"),
		Type:      req.Type,
		Value:     req.Value,
		Reason:    req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": discount})
}

func (s *Server) RemoveDiscount(c *gin.Context) {
	err := s.invoiceSvc.RemoveDiscount(c.Request.Context(), c.Param("id"), c.Param("discountId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type applyPromotionRequest struct {
	Code    string  `json:"code"`
	GuestID *string `json:"guest_id"`
}

func (s *Server) ApplyPromotion(c *gin.Context) {
	var req applyPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		AbortWithError(c, newValidationError("code", "required", "promotion code is required"))
		return
	}

	discount, err := s.invoiceSvc.ApplyPromotion(c.Request.Context(), invoicedomain.ApplyPromotionRequest{
		InvoiceID: c.Param("id"),
		Code:      req.Code,
		GuestID:   req.GuestID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": discount})
}

type applyRefundPolicyRequest struct {
	PolicyID string `json:"policy_id"`
}

func (s *Server) ApplyRefundPolicy(c *gin.Context) {
	var req applyRefundPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}
	if strings.TrimSpace(req.PolicyID) == "" {
		AbortWithError(c, newValidationError("policy_id", "required", "refund policy id is required"))
		return
	}

	inv, err := s.invoiceSvc.ApplyRefundPolicy(c.Request.Context(), c.Param("id"), req.PolicyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": inv})
}

type splitInvoiceRequest struct {
	ItemIDs []string `json:"item_ids"`
}

func (s *Server) SplitInvoice(c *gin.Context) {
	var req splitInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}

	result, err := s.invoiceSvc.Split(c.Request.Context(), invoicedomain.SplitRequest{
		InvoiceID: c.Param("id"),
		ItemIDs:   req.ItemIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": result})
}

type mergeInvoicesRequest struct {
	TargetID   string   `json:"target_id"`
	InvoiceIDs []string `json:"invoice_ids"`
}

func (s *Server) MergeInvoices(c *gin.Context) {
	var req mergeInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}
	if strings.TrimSpace(req.TargetID) == "" {
		AbortWithError(c, newValidationError("target_id", "required", "merge target id is required"))
		return
	}

	inv, err := s.invoiceSvc.Merge(c.Request.Context(), invoicedomain.MergeRequest{
		TargetID:   req.TargetID,
		InvoiceIDs: req.InvoiceIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": inv})
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	inv, err := s.invoiceSvc.MarkAsPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": inv})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": inv})
}

type updateStatusRequest struct {
	Status invoicedomain.PaymentStatus `json:"status"`
}

// UpdateInvoiceStatus is the administrative override; it skips transition
// rules and only rejects unknown statuses.
func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}

	inv, err := s.invoiceSvc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": inv})
}

func (s *Server) SyncInvoicePayments(c *gin.Context) {
	inv, err := s.invoiceSvc.SyncPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": inv})
}

func (s *Server) SweepOverdueInvoices(c *gin.Context) {
	flipped, err := s.invoiceSvc.SweepOverdue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"updated": flipped}})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	ctx := c.Request.Context()

	detail, err := s.invoiceSvc.GetByID(ctx, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateInvoice(ctx, buildInvoicePDFData(detail))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoice-`+detail.Invoice.ID.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", raw)
}

const dateLayout = "2 Jan 2006"

func buildInvoicePDFData(detail invoicedomain.InvoiceDetail) pdf.InvoiceData {
	inv := detail.Invoice

	bookingRef := "-"
	if inv.BookingID != nil {
		bookingRef = inv.BookingID.String()
	}

	items := make([]pdf.LineItem, 0, len(detail.Items))
	for _, item := range detail.Items {
		items = append(items, pdf.LineItem{
			Description: item.Description,
			Qty:         item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
			Amount:      item.Total.String(),
		})
	}

	discounts := make([]pdf.DiscountLine, 0, len(detail.Discounts))
	for _, d := range detail.Discounts {
		reason := d.Reason
		if reason == "" {
			reason = "Discount"
		}
		discounts = append(discounts, pdf.DiscountLine{
			Reason: reason,
			Amount: d.DiscountAmount.String(),
		})
	}

	return pdf.InvoiceData{
		PropertyName:  "Property " + inv.PropertyID.String(),
		InvoiceNumber: "INV-" + inv.ID.String(),
		BookingRef:    bookingRef,
		IssueDate:     inv.IssueDate.Format(dateLayout),
		DueDate:       inv.DueDate.Format(dateLayout),
		Status:        string(inv.PaymentStatus),
		Items:         items,
		Discounts:     discounts,
		Subtotal:      inv.Subtotal.String(),
		TaxAmount:     inv.TaxAmount.String(),
		Discount:      inv.DiscountAmount.String(),
		RefundAmount:  inv.RefundAmount.String(),
		Total:         inv.TotalAmount.String(),
		PaidAmount:    inv.PaidAmount.String(),
		Balance:       inv.Balance.String(),
	}
}
