package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	invoicedomain "github.com/smallbiznis/innkeep/internal/invoice/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

type fakeInvoiceService struct {
	detail invoicedomain.InvoiceDetail
	err    error

	createFromBookingCalls int
	lastBookingID          string
	applyDiscountCalls     int
	lastDiscountReq        invoicedomain.ApplyDiscountRequest
	mergeCalls             int
}

func (f *fakeInvoiceService) List(ctx context.Context, req invoicedomain.ListInvoicesRequest) (invoicedomain.ListInvoicesResponse, error) {
	return invoicedomain.ListInvoicesResponse{}, f.err
}

func (f *fakeInvoiceService) GetByID(ctx context.Context, id string) (invoicedomain.InvoiceDetail, error) {
	return f.detail, f.err
}

func (f *fakeInvoiceService) CreateFromBooking(ctx context.Context, req invoicedomain.CreateFromBookingRequest) (invoicedomain.InvoiceDetail, error) {
	f.createFromBookingCalls++
	f.lastBookingID = req.BookingID
	return f.detail, f.err
}

func (f *fakeInvoiceService) CreateManual(ctx context.Context, req invoicedomain.CreateManualRequest) (invoicedomain.InvoiceDetail, error) {
	return f.detail, f.err
}

func (f *fakeInvoiceService) Delete(ctx context.Context, id string) error {
	return f.err
}

func (f *fakeInvoiceService) ApplyDiscount(ctx context.Context, req invoicedomain.ApplyDiscountRequest) (invoicedomain.InvoiceDiscount, error) {
	f.applyDiscountCalls++
	f.lastDiscountReq = req
	return invoicedomain.InvoiceDiscount{}, f.err
}

func (f *fakeInvoiceService) RemoveDiscount(ctx context.Context, invoiceID, discountID string) error {
	return f.err
}

func (f *fakeInvoiceService) ApplyPromotion(ctx context.Context, req invoicedomain.ApplyPromotionRequest) (invoicedomain.InvoiceDiscount, error) {
	return invoicedomain.InvoiceDiscount{}, f.err
}

func (f *fakeInvoiceService) ApplyRefundPolicy(ctx context.Context, invoiceID, policyID string) (invoicedomain.Invoice, error) {
	return f.detail.Invoice, f.err
}

func (f *fakeInvoiceService) MarkAsPaid(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return f.detail.Invoice, f.err
}

func (f *fakeInvoiceService) Cancel(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return f.detail.Invoice, f.err
}

func (f *fakeInvoiceService) UpdateStatus(ctx context.Context, id string, status invoicedomain.PaymentStatus) (invoicedomain.Invoice, error) {
	return f.detail.Invoice, f.err
}

func (f *fakeInvoiceService) SyncPayments(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	return f.detail.Invoice, f.err
}

func (f *fakeInvoiceService) SweepOverdue(ctx context.Context) (int64, error) {
	return 0, f.err
}

func (f *fakeInvoiceService) Split(ctx context.Context, req invoicedomain.SplitRequest) (invoicedomain.SplitResult, error) {
	return invoicedomain.SplitResult{}, f.err
}

func (f *fakeInvoiceService) Merge(ctx context.Context, req invoicedomain.MergeRequest) (invoicedomain.Invoice, error) {
	f.mergeCalls++
	return f.detail.Invoice, f.err
}

func newInvoiceTestRouter(svc invoicedomain.Service) (*gin.Engine, *Server) {
	gin.SetMode(gin.TestMode)

	srv := &Server{invoiceSvc: svc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/invoices", srv.CreateInvoice)
	router.POST("/api/invoices/merge", srv.MergeInvoices)
	router.POST("/api/invoices/:id/discounts", srv.ApplyDiscount)
	return router, srv
}

func TestCreateInvoiceFromBookingReturns201(t *testing.T) {
	svc := &fakeInvoiceService{
		detail: invoicedomain.InvoiceDetail{
			Invoice: invoicedomain.Invoice{
				ID:          snowflake.ID(42),
				TotalAmount: money.MustParse("1700000.00"),
			},
		},
	}
	router, _ := newInvoiceTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", bytes.NewBufferString(`{"booking_id":"9001"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.createFromBookingCalls != 1 {
		t.Fatalf("expected one CreateFromBooking call, got %d", svc.createFromBookingCalls)
	}
	if svc.lastBookingID != "9001" {
		t.Fatalf("expected booking id 9001, got %q", svc.lastBookingID)
	}

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success {
		t.Fatal("expected success envelope")
	}
}

func TestCreateInvoiceBookingNotFoundMaps404(t *testing.T) {
	svc := &fakeInvoiceService{err: invoicedomain.ErrBookingNotFound}
	router, _ := newInvoiceTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", bytes.NewBufferString(`{"booking_id":"9001"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", resp.Code, resp.Body.String())
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Success {
		t.Fatal("expected failure envelope")
	}
	if body.Message != "booking_not_found" {
		t.Fatalf("expected booking_not_found message, got %q", body.Message)
	}
}

func TestApplyDiscountOnPaidInvoiceMaps400(t *testing.T) {
	svc := &fakeInvoiceService{err: invoicedomain.ErrAlreadyPaid}
	router, _ := newInvoiceTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/42/discounts", bytes.NewBufferString(`{"type":"percentage","value":"10"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastDiscountReq.InvoiceID != "42" {
		t.Fatalf("expected invoice id from path, got %q", svc.lastDiscountReq.InvoiceID)
	}
}

func TestApplyDiscountInvalidValueMaps422(t *testing.T) {
	svc := &fakeInvoiceService{err: invoicedomain.ErrInvalidDiscountValue}
	router, _ := newInvoiceTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/42/discounts", bytes.NewBufferString(`{"type":"percentage","value":"150"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", resp.Code, resp.Body.String())
	}

	var body errorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Errors) == 0 {
		t.Fatal("expected validation errors in envelope")
	}
}

func TestMergeRequiresTargetID(t *testing.T) {
	svc := &fakeInvoiceService{}
	router, _ := newInvoiceTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/merge", bytes.NewBufferString(`{"invoice_ids":["1","2"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.mergeCalls != 0 {
		t.Fatal("expected merge service not to be called")
	}
}
