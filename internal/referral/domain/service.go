package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/referra/pkg/db/pagination"
)

type CreateLinkRequest struct {
	AffiliateID snowflake.ID `json:"-"`
	ProgramID   string       `json:"program_id"`
	TargetURL   string       `json:"target_url"`
	UTMSource   string       `json:"utm_source,omitempty"`
	UTMMedium   string       `json:"utm_medium,omitempty"`
	UTMCampaign string       `json:"utm_campaign,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
}

type UpdateLinkRequest struct {
	TargetURL   *string    `json:"target_url,omitempty"`
	UTMSource   *string    `json:"utm_source,omitempty"`
	UTMMedium   *string    `json:"utm_medium,omitempty"`
	UTMCampaign *string    `json:"utm_campaign,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ClickInfo carries what the tracking endpoint knows about a visit.
type ClickInfo struct {
	VisitorID string
	IPAddress string
	UserAgent string
	Referer   string
}

// TrackResult tells the handler where to redirect and which visitor
// session the click was attributed to.
type TrackResult struct {
	RedirectURL string
	VisitorID   string
	LinkID      snowflake.ID
}

// LinkStats summarizes a link's performance.
type LinkStats struct {
	LinkID         string  `json:"link_id"`
	Clicks         int64   `json:"clicks"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
}

// ClickPage is one cursor-delimited slice of a link's click log,
// newest first.
type ClickPage struct {
	Clicks   []*ReferralClick     `json:"clicks"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// LinkInfo decorates a link with its public tracking URL.
type LinkInfo struct {
	ReferralLink
	TrackingURL string `json:"tracking_url"`
}

type Service interface {
	CreateLink(ctx context.Context, req CreateLinkRequest) (LinkInfo, error)
	GetLink(ctx context.Context, id string) (LinkInfo, error)
	ListLinks(ctx context.Context, affiliateID snowflake.ID) ([]LinkInfo, error)
	UpdateLink(ctx context.Context, id string, req UpdateLinkRequest) (LinkInfo, error)
	DeleteLink(ctx context.Context, id string) error
	Stats(ctx context.Context, id string) (LinkStats, error)
	ListClicks(ctx context.Context, id string, page pagination.Pagination) (ClickPage, error)

	// Verify reports whether a code resolves to an active, unexpired link.
	Verify(ctx context.Context, code string) (LinkInfo, error)

	// Track records a click and returns the redirect target with UTM
	// parameters appended.
	Track(ctx context.Context, code string, info ClickInfo) (TrackResult, error)
}

var (
	ErrLinkNotFound     = errors.New("link_not_found")
	ErrLinkInactive     = errors.New("link_inactive")
	ErrLinkExpired      = errors.New("link_expired")
	ErrInvalidLinkID    = errors.New("invalid_link_id")
	ErrInvalidTarget    = errors.New("invalid_target_url")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
