package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/referra/internal/commission/domain"
)

func (s *Server) ListCommissions(c *gin.Context) {
	var query struct {
		AffiliateID string `form:"affiliate_id"`
		ProgramID   string `form:"program_id"`
		Status      string `form:"status"`
		Limit       int    `form:"limit"`
		Offset      int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.commissionSvc.List(c.Request.Context(), commissiondomain.ListRequest{
		AffiliateID: strings.TrimSpace(query.AffiliateID),
		ProgramID:   strings.TrimSpace(query.ProgramID),
		Status:      strings.TrimSpace(query.Status),
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCurrentAffiliateCommissions(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	aff, err := s.callerAffiliate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.commissionSvc.List(c.Request.Context(), commissiondomain.ListRequest{
		AffiliateID: aff.ID.String(),
		Status:      strings.TrimSpace(query.Status),
		Limit:       query.Limit,
		Offset:      query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCommissionByID(c *gin.Context) {
	resp, err := s.commissionSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveCommission(c *gin.Context) {
	resp, err := s.commissionSvc.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id")), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectCommission(c *gin.Context) {
	resp, err := s.commissionSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCurrentAffiliateEarnings(c *gin.Context) {
	aff, err := s.callerAffiliate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.commissionSvc.Earnings(c.Request.Context(), aff.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAffiliateEarnings(c *gin.Context) {
	resp, err := s.commissionSvc.Earnings(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
