package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	conversiondomain "github.com/smallbiznis/referra/internal/conversion/domain"
)

func (s *Server) CreateConversion(c *gin.Context) {
	var req conversiondomain.CreateConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.LinkCode = strings.TrimSpace(req.LinkCode)
	req.LinkID = strings.TrimSpace(req.LinkID)
	req.ExternalID = strings.TrimSpace(req.ExternalID)
	req.Type = strings.TrimSpace(req.Type)

	// Only admins may short-circuit review.
	if req.AutoValidate && !s.adminFromBearer(c) {
		req.AutoValidate = false
	}

	resp, err := s.conversionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListConversions(c *gin.Context) {
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

	resp, err := s.conversionSvc.List(c.Request.Context(), conversiondomain.ListConversionRequest{
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

func (s *Server) GetConversionByID(c *gin.Context) {
	resp, err := s.conversionSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ValidateConversion(c *gin.Context) {
	resp, err := s.conversionSvc.Validate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RejectConversion(c *gin.Context) {
	resp, err := s.conversionSvc.Reject(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReverseConversion(c *gin.Context) {
	resp, err := s.conversionSvc.Reverse(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
