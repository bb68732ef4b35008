package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentloop/internal/plan"
)

type entitlementResponse struct {
	Email         string        `json:"email"`
	PlanTier      plan.Tier     `json:"plan_tier"`
	PlanStartAt   *time.Time    `json:"plan_start_at,omitempty"`
	PlanEndAt     *time.Time    `json:"plan_end_at,omitempty"`
	Featured      bool          `json:"featured"`
	FeaturedUntil *time.Time    `json:"featured_until,omitempty"`
	Features      plan.Features `json:"features"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (s *Server) GetEntitlement(c *gin.Context) {
	record, err := s.entitlementSvc.Get(c.Request.Context(), c.Param("email"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entitlementResponse{
		Email:         record.Email,
		PlanTier:      record.PlanTier,
		PlanStartAt:   record.PlanStartAt,
		PlanEndAt:     record.PlanEndAt,
		Featured:      record.Featured,
		FeaturedUntil: record.FeaturedUntil,
		Features:      record.Features(),
		UpdatedAt:     record.UpdatedAt,
	}})
}
