package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	"github.com/smallbiznis/innkeep/internal/ratelimit"
	"github.com/smallbiznis/innkeep/pkg/money"
)

func (s *Server) ListPromotions(c *gin.Context) {
	req := promotiondomain.ListPromotionsRequest{
		ActiveOnly: c.Query("active") == "true",
	}

	resp, err := s.promotionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp.Promotions})
}

func (s *Server) GetPromotionByID(c *gin.Context) {
	promo, err := s.promotionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": promo})
}

type createPromotionRequest struct {
	PropertyID        *string                       `json:"property_id"`
	Code              string                        `json:"code"`
	Description       string                        `json:"description"`
	DiscountType      promotiondomain.DiscountType  `json:"discount_type"`
	DiscountValue     money.Money                   `json:"discount_value"`
	MaxDiscountAmount *money.Money                  `json:"max_discount_amount"`
	MinPurchaseAmount *money.Money                  `json:"min_purchase_amount"`
	MaxUsageLimit     int64                         `json:"max_usage_limit"`
	MaxUsagePerUser   int64                         `json:"max_usage_per_user"`
	StartDate         time.Time                     `json:"start_date"`
	EndDate           time.Time                     `json:"end_date"`
	IsActive          *bool                         `json:"is_active"`
	ApplicableTo      promotiondomain.Applicability `json:"applicable_to"`
	RoomIDs           []string                      `json:"room_ids"`
	RoomTypeIDs       []string                      `json:"room_type_ids"`
}

func (s *Server) CreatePromotion(c *gin.Context) {
	var req createPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}

	promo := promotiondomain.Promotion{
		Code:              req.Code,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinPurchaseAmount: req.MinPurchaseAmount,
		MaxUsageLimit:     req.MaxUsageLimit,
		MaxUsagePerUser:   req.MaxUsagePerUser,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		IsActive:          true,
		ApplicableTo:      req.ApplicableTo,
	}
	if req.IsActive != nil {
		promo.IsActive = *req.IsActive
	}

	if req.PropertyID != nil {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.PropertyID))
		if err != nil {
			AbortWithError(c, newValidationError("property_id", "invalid_id", "invalid property id"))
			return
		}
		promo.PropertyID = &id
	}

	roomIDs, err := parseSnowflakeList(req.RoomIDs)
	if err != nil {
		AbortWithError(c, newValidationError("room_ids", "invalid_id", "invalid room id"))
		return
	}
	promo.RoomIDs = roomIDs

	roomTypeIDs, err := parseSnowflakeList(req.RoomTypeIDs)
	if err != nil {
		AbortWithError(c, newValidationError("room_type_ids", "invalid_id", "invalid room type id"))
		return
	}
	promo.RoomTypeIDs = roomTypeIDs

	created, err := s.promotionSvc.Create(c.Request.Context(), promotiondomain.CreatePromotionRequest{
		Promotion: promo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": created})
}

type validatePromotionRequest struct {
	Code        string      `json:"code"`
	TotalAmount money.Money `json:"total_amount"`
	PropertyID  *string     `json:"property_id"`
	RoomIDs     []string    `json:"room_ids"`
}

// ValidatePromotion is the public dry-run endpoint; it never consumes a
// use.
func (s *Server) ValidatePromotion(c *gin.Context) {
	var req validatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		AbortWithError(c, newValidationError("code", "required", "promotion code is required"))
		return
	}

	vreq := promotiondomain.ValidateRequest{
		Code:        req.Code,
		TotalAmount: req.TotalAmount,
	}

	if req.PropertyID != nil {
		id, err := snowflake.ParseString(strings.TrimSpace(*req.PropertyID))
		if err != nil {
			AbortWithError(c, newValidationError("property_id", "invalid_id", "invalid property id"))
			return
		}
		vreq.PropertyID = &id
	}

	roomIDs, err := parseSnowflakeList(req.RoomIDs)
	if err != nil {
		AbortWithError(c, newValidationError("room_ids", "invalid_id", "invalid room id"))
		return
	}
	vreq.RoomIDs = roomIDs

	result, err := s.promotionSvc.Validate(c.Request.Context(), vreq)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// rateLimitValidate throttles the public validation endpoint per client
// address before the handler runs.
func (s *Server) rateLimitValidate(c *gin.Context) {
	res, err := s.validateLimiter.Allow(c.Request.Context(), c.ClientIP())
	if err != nil {
		// Redis trouble should not take down the endpoint.
		c.Next()
		return
	}

	if !res.Allowed {
		c.Header("Retry-After", strconv.Itoa(ratelimit.RetryAfterSeconds(res.RetryAfter)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
			Message: "too many requests",
		})
		return
	}

	c.Next()
}

func parseSnowflakeList(raw []string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, v := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
