package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/referra/internal/clock"
	"github.com/smallbiznis/referra/internal/config"
	"github.com/smallbiznis/referra/internal/observability/metrics"
	programdomain "github.com/smallbiznis/referra/internal/program/domain"
	referraldomain "github.com/smallbiznis/referra/internal/referral/domain"
	"github.com/smallbiznis/referra/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	clock       clock.Clock
	metrics     *metrics.Metrics
	baseURL     string
	repo        referraldomain.Repository
	clicks      referraldomain.ClickRepository
	enrollments programdomain.EnrollmentRepository
}

type ServiceParam struct {
	fx.In

	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Metrics     *metrics.Metrics `optional:"true"`
	Repo        referraldomain.Repository
	Clicks      referraldomain.ClickRepository
	Enrollments programdomain.EnrollmentRepository
}

func NewService(p ServiceParam) referraldomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("referral.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		metrics:     p.Metrics,
		baseURL:     strings.TrimRight(p.Cfg.BaseURL, "/"),
		repo:        p.Repo,
		clicks:      p.Clicks,
		enrollments: p.Enrollments,
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, referraldomain.ErrInvalidLinkID
	}
	return snowflake.ID(id), nil
}

func (s *Service) trackingURL(code string) string {
	return fmt.Sprintf("%s/track/%s", s.baseURL, code)
}

func (s *Service) linkInfo(link referraldomain.ReferralLink) referraldomain.LinkInfo {
	return referraldomain.LinkInfo{
		ReferralLink: link,
		TrackingURL:  s.trackingURL(link.Code),
	}
}

func (s *Service) CreateLink(ctx context.Context, req referraldomain.CreateLinkRequest) (referraldomain.LinkInfo, error) {
	programID, err := parseID(req.ProgramID)
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}

	target, err := url.Parse(req.TargetURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return referraldomain.LinkInfo{}, referraldomain.ErrInvalidTarget
	}

	now := s.clock.Now().UTC()
	var link referraldomain.ReferralLink
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment, err := s.enrollments.Find(ctx, tx, programID, req.AffiliateID)
		if err != nil {
			return err
		}
		if enrollment == nil || enrollment.Status != programdomain.EnrollmentStatusActive {
			return programdomain.ErrEnrollmentNotFound
		}

		code, err := s.uniqueCode(ctx, tx)
		if err != nil {
			return err
		}

		link = referraldomain.ReferralLink{
			ID:          s.genID.Generate(),
			AffiliateID: req.AffiliateID,
			ProgramID:   programID,
			Code:        code,
			TargetURL:   req.TargetURL,
			UTMSource:   req.UTMSource,
			UTMMedium:   req.UTMMedium,
			UTMCampaign: req.UTMCampaign,
			IsActive:    true,
			ExpiresAt:   req.ExpiresAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.Insert(ctx, tx, &link)
	})
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}

	s.log.Info("referral link created",
		zap.String("link_id", link.ID.String()),
		zap.String("code", link.Code),
	)
	return s.linkInfo(link), nil
}

func (s *Service) uniqueCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		length := codeLength
		if attempt == codeMaxAttempts-1 {
			length = codeRetryLength
		}
		code, err := randomCode(length)
		if err != nil {
			return "", err
		}

		existing, err := s.repo.FindByCode(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("referral code space exhausted")
}

func (s *Service) GetLink(ctx context.Context, rawID string) (referraldomain.LinkInfo, error) {
	id, err := parseID(rawID)
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}
	link, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}
	if link == nil {
		return referraldomain.LinkInfo{}, referraldomain.ErrLinkNotFound
	}
	return s.linkInfo(*link), nil
}

func (s *Service) ListLinks(ctx context.Context, affiliateID snowflake.ID) ([]referraldomain.LinkInfo, error) {
	links, err := s.repo.ListByAffiliate(ctx, s.db, affiliateID)
	if err != nil {
		return nil, err
	}
	infos := make([]referraldomain.LinkInfo, 0, len(links))
	for _, link := range links {
		infos = append(infos, s.linkInfo(link))
	}
	return infos, nil
}

func (s *Service) UpdateLink(ctx context.Context, rawID string, req referraldomain.UpdateLinkRequest) (referraldomain.LinkInfo, error) {
	id, err := parseID(rawID)
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}

	var updated referraldomain.ReferralLink
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if link == nil {
			return referraldomain.ErrLinkNotFound
		}

		if req.TargetURL != nil {
			target, err := url.Parse(*req.TargetURL)
			if err != nil || target.Scheme == "" || target.Host == "" {
				return referraldomain.ErrInvalidTarget
			}
			link.TargetURL = *req.TargetURL
		}
		if req.UTMSource != nil {
			link.UTMSource = *req.UTMSource
		}
		if req.UTMMedium != nil {
			link.UTMMedium = *req.UTMMedium
		}
		if req.UTMCampaign != nil {
			link.UTMCampaign = *req.UTMCampaign
		}
		if req.IsActive != nil {
			link.IsActive = *req.IsActive
		}
		if req.ExpiresAt != nil {
			link.ExpiresAt = req.ExpiresAt
		}
		link.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, link); err != nil {
			return err
		}
		updated = *link
		return nil
	})
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}
	return s.linkInfo(updated), nil
}

func (s *Service) DeleteLink(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	link, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if link == nil {
		return referraldomain.ErrLinkNotFound
	}
	return s.repo.Delete(ctx, s.db, id)
}

func (s *Service) Stats(ctx context.Context, rawID string) (referraldomain.LinkStats, error) {
	id, err := parseID(rawID)
	if err != nil {
		return referraldomain.LinkStats{}, err
	}
	link, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return referraldomain.LinkStats{}, err
	}
	if link == nil {
		return referraldomain.LinkStats{}, referraldomain.ErrLinkNotFound
	}

	stats := referraldomain.LinkStats{
		LinkID:      link.ID.String(),
		Clicks:      link.ClicksCount,
		Conversions: link.ConversionsCount,
	}
	if link.ClicksCount > 0 {
		stats.ConversionRate = float64(link.ConversionsCount) / float64(link.ClicksCount)
	}
	return stats, nil
}

func (s *Service) ListClicks(ctx context.Context, rawID string, page pagination.Pagination) (referraldomain.ClickPage, error) {
	id, err := parseID(rawID)
	if err != nil {
		return referraldomain.ClickPage{}, err
	}
	link, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return referraldomain.ClickPage{}, err
	}
	if link == nil {
		return referraldomain.ClickPage{}, referraldomain.ErrLinkNotFound
	}

	var before *pagination.Cursor
	if page.PageToken != "" {
		before, err = pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return referraldomain.ClickPage{}, referraldomain.ErrInvalidPageToken
		}
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 25
	}

	// Fetch one extra row to learn whether a next page exists.
	clicks, err := s.clicks.ListByLink(ctx, s.db, id, before, limit+1)
	if err != nil {
		return referraldomain.ClickPage{}, err
	}

	pageInfo, clicks := pagination.BuildCursorPageInfo(clicks, limit, func(c *referraldomain.ReferralClick) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        c.ID.String(),
			CreatedAt: c.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	return referraldomain.ClickPage{Clicks: clicks, PageInfo: pageInfo}, nil
}

func (s *Service) Verify(ctx context.Context, code string) (referraldomain.LinkInfo, error) {
	link, err := s.activeLink(ctx, code)
	if err != nil {
		return referraldomain.LinkInfo{}, err
	}
	return s.linkInfo(*link), nil
}

func (s *Service) activeLink(ctx context.Context, code string) (*referraldomain.ReferralLink, error) {
	link, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, referraldomain.ErrLinkNotFound
	}
	if !link.IsActive {
		return nil, referraldomain.ErrLinkInactive
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(s.clock.Now()) {
		return nil, referraldomain.ErrLinkExpired
	}
	return link, nil
}

func (s *Service) Track(ctx context.Context, code string, info referraldomain.ClickInfo) (referraldomain.TrackResult, error) {
	link, err := s.activeLink(ctx, code)
	if err != nil {
		return referraldomain.TrackResult{}, err
	}

	visitorID := info.VisitorID
	if visitorID == "" {
		visitorID = uuid.NewString()
	}

	now := s.clock.Now().UTC()
	click := referraldomain.ReferralClick{
		ID:        s.genID.Generate(),
		LinkID:    link.ID,
		VisitorID: visitorID,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Referer:   info.Referer,
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.clicks.Insert(ctx, tx, &click); err != nil {
			return err
		}
		return s.repo.IncrementClicks(ctx, tx, link.ID, now)
	})
	if err != nil {
		return referraldomain.TrackResult{}, err
	}

	s.metrics.RecordClick(ctx, link.Code)
	return referraldomain.TrackResult{
		RedirectURL: redirectURL(*link),
		VisitorID:   visitorID,
		LinkID:      link.ID,
	}, nil
}

// redirectURL appends the link's UTM parameters to its target.
func redirectURL(link referraldomain.ReferralLink) string {
	target, err := url.Parse(link.TargetURL)
	if err != nil {
		return link.TargetURL
	}

	query := target.Query()
	if link.UTMSource != "" {
		query.Set("utm_source", link.UTMSource)
	}
	if link.UTMMedium != "" {
		query.Set("utm_medium", link.UTMMedium)
	}
	if link.UTMCampaign != "" {
		query.Set("utm_campaign", link.UTMCampaign)
	}
	query.Set("ref", link.Code)
	target.RawQuery = query.Encode()
	return target.String()
}
