package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	refunddomain "github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
)

func (s *Server) ListRefundPolicies(c *gin.Context) {
	resp, err := s.refundPolicySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp.Policies})
}

func (s *Server) GetRefundPolicyByID(c *gin.Context) {
	policy, err := s.refundPolicySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": policy})
}

type createRefundPolicyRequest struct {
	Name              string          `json:"name"`
	RefundPercent     decimal.Decimal `json:"refund_percent"`
	DaysBeforeCheckin int             `json:"days_before_checkin"`
	PenaltyPercent    decimal.Decimal `json:"penalty_percent"`
	IsActive          *bool           `json:"is_active"`
}

func (s *Server) CreateRefundPolicy(c *gin.Context) {
	var req createRefundPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", err.Error()))
		return
	}

	policy := refunddomain.RefundPolicy{
		Name:              req.Name,
		RefundPercent:     req.RefundPercent,
		DaysBeforeCheckin: req.DaysBeforeCheckin,
		PenaltyPercent:    req.PenaltyPercent,
		IsActive:          true,
	}
	if req.IsActive != nil {
		policy.IsActive = *req.IsActive
	}

	created, err := s.refundPolicySvc.Create(c.Request.Context(), policy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": created})
}
