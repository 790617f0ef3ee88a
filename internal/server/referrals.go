package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
	"github.com/smallbiznis/referra/pkg/db/pagination"
)

const (
	visitorCookieName   = "ref_visitor"
	visitorCookieMaxAge = 60 * 60 * 24 * 30
)

func (s *Server) CreateLink(c *gin.Context) {
	var req referraldomain.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	aff, err := s.callerAffiliate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req.AffiliateID = aff.ID
	req.ProgramID = strings.TrimSpace(req.ProgramID)
	req.TargetURL = strings.TrimSpace(req.TargetURL)

	resp, err := s.referralSvc.CreateLink(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListLinks(c *gin.Context) {
	aff, err := s.callerAffiliate(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.referralSvc.ListLinks(c.Request.Context(), aff.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ownedLink loads a link and hides it from non-admin callers who do
// not own it.
func (s *Server) ownedLink(c *gin.Context, id string) (referraldomain.LinkInfo, error) {
	link, err := s.referralSvc.GetLink(c.Request.Context(), id)
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}
	if isAdmin(c) {
		return link, nil
	}

	aff, err := s.callerAffiliate(c)
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}
	if link.AffiliateID != aff.ID {
		return referraldomain.LinkInfo{}, referraldomain.ErrLinkNotFound
	}
	return link, nil
}

func (s *Server) GetLinkByID(c *gin.Context) {
	resp, err := s.ownedLink(c, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateLink(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.ownedLink(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	var req referraldomain.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.referralSvc.UpdateLink(c.Request.Context(), id, referraldomain.UpdateLinkRequest{
		TargetURL:   trimStringPtr(req.TargetURL),
		UTMSource:   trimStringPtr(req.UTMSource),
		UTMMedium:   trimStringPtr(req.UTMMedium),
		UTMCampaign: trimStringPtr(req.UTMCampaign),
		IsActive:    req.IsActive,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteLink(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.ownedLink(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.referralSvc.DeleteLink(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) GetLinkStats(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.ownedLink(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.referralSvc.Stats(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListLinkClicks(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := s.ownedLink(c, id); err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.referralSvc.ListClicks(c.Request.Context(), id, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Clicks, "page_info": resp.PageInfo})
}

func (s *Server) VerifyReferralCode(c *gin.Context) {
	link, err := s.referralSvc.Verify(c.Request.Context(), strings.TrimSpace(c.Param("code")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"valid":      true,
		"code":       link.Code,
		"program_id": link.ProgramID.String(),
	}})
}

func (s *Server) TrackClick(c *gin.Context) {
	ctx := c.Request.Context()

	if s.trackLimiter != nil {
		res, err := s.trackLimiter.AllowClick(ctx, c.ClientIP())
		if err == nil && res != nil && !res.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(ctx)
			}
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
	}

	visitorID, _ := c.Cookie(visitorCookieName)

	result, err := s.referralSvc.Track(ctx, strings.TrimSpace(c.Param("code")), referraldomain.ClickInfo{
		VisitorID: visitorID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.SetCookie(visitorCookieName, result.VisitorID, visitorCookieMaxAge, "/", "", s.cfg.IsProduction(), true)
	c.Redirect(http.StatusFound, result.RedirectURL)
}
