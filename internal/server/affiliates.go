package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/smallbiznis/referra/internal/affiliate/domain"
)

// callerAffiliate resolves the affiliate profile behind the
// authenticated user.
func (s *Server) callerAffiliate(c *gin.Context) (affiliatedomain.Affiliate, error) {
	return s.affiliateSvc.GetByUserID(c.Request.Context(), currentUserID(c))
}

func (s *Server) ApplyAffiliate(c *gin.Context) {
	var req affiliatedomain.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.UserID = currentUserID(c)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.Website = strings.TrimSpace(req.Website)
	req.PaymentEmail = strings.TrimSpace(req.PaymentEmail)

	resp, err := s.affiliateSvc.Apply(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetCurrentAffiliate(c *gin.Context) {
	resp, err := s.callerAffiliate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCurrentAffiliate(c *gin.Context) {
	var req affiliatedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliateSvc.UpdateByUserID(c.Request.Context(), currentUserID(c), affiliatedomain.UpdateRequest{
		CompanyName:  trimStringPtr(req.CompanyName),
		Website:      trimStringPtr(req.Website),
		PaymentEmail: trimStringPtr(req.PaymentEmail),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAffiliates(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliateSvc.List(c.Request.Context(), affiliatedomain.ListRequest{
		Status: strings.TrimSpace(query.Status),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAffiliateByID(c *gin.Context) {
	resp, err := s.affiliateSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveAffiliate(c *gin.Context) {
	var req affiliatedomain.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.affiliateSvc.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectAffiliate(c *gin.Context) {
	var req affiliatedomain.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliateSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")), affiliatedomain.RejectRequest{
		Reason: strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTiers(c *gin.Context) {
	resp, err := s.affiliateSvc.ListTiers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTierByID(c *gin.Context) {
	resp, err := s.affiliateSvc.GetTier(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
