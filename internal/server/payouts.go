package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	payoutdomain "github.com/smallbiznis/referra/internal/payout/domain"
)

func (s *Server) GeneratePayout(c *gin.Context) {
	var req payoutdomain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.AffiliateID = strings.TrimSpace(req.AffiliateID)

	resp, err := s.payoutSvc.Generate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GenerateMonthlyPayouts(c *gin.Context) {
	var req payoutdomain.GenerateMonthlyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payoutSvc.GenerateMonthly(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPayouts(c *gin.Context) {
	var query struct {
		AffiliateID string `form:"affiliate_id"`
		Status      string `form:"status"`
		Limit       int    `form:"limit"`
		Offset      int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payoutSvc.List(c.Request.Context(), payoutdomain.ListRequest{
		AffiliateID: strings.TrimSpace(query.AffiliateID),
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

func (s *Server) ListCurrentAffiliatePayouts(c *gin.Context) {
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

	resp, err := s.payoutSvc.List(c.Request.Context(), payoutdomain.ListRequest{
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

func (s *Server) GetPayoutByID(c *gin.Context) {
	resp, err := s.payoutSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ProcessPayout(c *gin.Context) {
	var req payoutdomain.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.payoutSvc.Process(c.Request.Context(), strings.TrimSpace(c.Param("id")), payoutdomain.ProcessRequest{
		ProcessedBy:      currentUserID(c),
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		PaymentReference: strings.TrimSpace(req.PaymentReference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompletePayout(c *gin.Context) {
	resp, err := s.payoutSvc.Complete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelPayout(c *gin.Context) {
	resp, err := s.payoutSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FailPayout(c *gin.Context) {
	resp, err := s.payoutSvc.Fail(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPayoutStats(c *gin.Context) {
	resp, err := s.payoutSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
