package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	"github.com/smallbiznis/innkeep/pkg/money"
)

type fakePromotionService struct {
	result promotiondomain.ValidateResult
	err    error

	validateCalls int
	lastCode      string
}

func (f *fakePromotionService) List(ctx context.Context, req promotiondomain.ListPromotionsRequest) (promotiondomain.ListPromotionsResponse, error) {
	return promotiondomain.ListPromotionsResponse{}, f.err
}

func (f *fakePromotionService) GetByID(ctx context.Context, id string) (promotiondomain.Promotion, error) {
	return promotiondomain.Promotion{}, f.err
}

func (f *fakePromotionService) Create(ctx context.Context, req promotiondomain.CreatePromotionRequest) (promotiondomain.Promotion, error) {
	return req.Promotion, f.err
}

func (f *fakePromotionService) Validate(ctx context.Context, req promotiondomain.ValidateRequest) (promotiondomain.ValidateResult, error) {
	f.validateCalls++
	f.lastCode = req.Code
	return f.result, f.err
}

func (f *fakePromotionService) RedeemInTx(ctx context.Context, tx *gorm.DB, req promotiondomain.RedeemRequest) error {
	return f.err
}

func newPromotionTestRouter(svc promotiondomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	// No limiter configured; the middleware must pass everything through.
	srv := &Server{promotionSvc: svc}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/promotions/validate", srv.rateLimitValidate, srv.ValidatePromotion)
	return router
}

func TestValidatePromotionReturnsDiscount(t *testing.T) {
	svc := &fakePromotionService{
		result: promotiondomain.ValidateResult{
			DiscountAmount: money.MustParse("200000.00"),
			FinalAmount:    money.MustParse("800000.00"),
		},
	}
	router := newPromotionTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/promotions/validate", bytes.NewBufferString(`{"code":"SUMMER20","total_amount":"1000000.00"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.validateCalls != 1 {
		t.Fatalf("expected one Validate call, got %d", svc.validateCalls)
	}
	if svc.lastCode != "SUMMER20" {
		t.Fatalf("expected code SUMMER20, got %q", svc.lastCode)
	}

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			DiscountAmount string `json:"discount_amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success {
		t.Fatal("expected success envelope")
	}
	if body.Data.DiscountAmount != "200000.00" {
		t.Fatalf("expected discount 200000.00, got %q", body.Data.DiscountAmount)
	}
}

func TestValidatePromotionRequiresCode(t *testing.T) {
	svc := &fakePromotionService{}
	router := newPromotionTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/promotions/validate", bytes.NewBufferString(`{"total_amount":"1000000.00"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.validateCalls != 0 {
		t.Fatal("expected Validate not to be called")
	}
}

func TestValidatePromotionMinimumNotMetMaps400(t *testing.T) {
	svc := &fakePromotionService{err: promotiondomain.ErrMinimumNotMet}
	router := newPromotionTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/promotions/validate", bytes.NewBufferString(`{"code":"SUMMER20","total_amount":"1.00"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
}
