package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
)

func (s *Server) CreateProgram(c *gin.Context) {
	var req programdomain.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.ProgramType = strings.TrimSpace(req.ProgramType)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))

	resp, err := s.programSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPrograms(c *gin.Context) {
	var query struct {
		Status string `form:"status"`
		Type   string `form:"type"`
		Limit  int    `form:"limit"`
		Offset int    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.programSvc.List(c.Request.Context(), programdomain.ListProgramRequest{
		Status: strings.TrimSpace(query.Status),
		Type:   strings.TrimSpace(query.Type),
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProgramByID(c *gin.Context) {
	resp, err := s.programSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateProgram(c *gin.Context) {
	var req programdomain.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.programSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), programdomain.UpdateProgramRequest{
		Name:             trimStringPtr(req.Name),
		Description:      trimStringPtr(req.Description),
		Status:           trimStringPtr(req.Status),
		CommissionConfig: req.CommissionConfig,
		CookieWindowDays: req.CookieWindowDays,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) EnrollInProgram(c *gin.Context) {
	var req programdomain.EnrollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	// Affiliates enroll themselves; admins may enroll on behalf of an
	// affiliate by naming one in the body.
	if req.AffiliateID == 0 || !isAdmin(c) {
		aff, err := s.callerAffiliate(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.AffiliateID = aff.ID
	}

	resp, err := s.programSvc.Enroll(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProgramEnrollments(c *gin.Context) {
	resp, err := s.programSvc.ListEnrollments(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCurrentAffiliateEnrollments(c *gin.Context) {
	aff, err := s.callerAffiliate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.programSvc.ListAffiliateEnrollments(c.Request.Context(), aff.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateEnrollment(c *gin.Context) {
	var req programdomain.UpdateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.programSvc.UpdateEnrollment(c.Request.Context(), strings.TrimSpace(c.Param("id")), programdomain.UpdateEnrollmentRequest{
		Status:                 trimStringPtr(req.Status),
		CustomCommissionConfig: req.CustomCommissionConfig,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
