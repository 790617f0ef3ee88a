package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	clicksTracked      metric.Int64Counter
	conversionsCreated metric.Int64Counter
	commissionsCreated metric.Int64Counter
	payoutsGenerated   metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "referra"
	}
	meter := provider.Meter(name)

	clicksTracked, err := meter.Int64Counter("referra_clicks_tracked_total")
	if err != nil {
		return nil, err
	}
	conversionsCreated, err := meter.Int64Counter("referra_conversions_created_total")
	if err != nil {
		return nil, err
	}
	commissionsCreated, err := meter.Int64Counter("referra_commissions_created_total")
	if err != nil {
		return nil, err
	}
	payoutsGenerated, err := meter.Int64Counter("referra_payouts_generated_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("referra_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		clicksTracked:      clicksTracked,
		conversionsCreated: conversionsCreated,
		commissionsCreated: commissionsCreated,
		payoutsGenerated:   payoutsGenerated,
		rateLimitDenied:    rateLimitDenied,
	}, nil
}

// RecordClick increments tracked referral clicks.
func (m *Metrics) RecordClick(ctx context.Context, linkCode string) {
	if m == nil {
		return
	}
	m.clicksTracked.Add(ctx, 1, metric.WithAttributes(attribute.String("link_code", strings.TrimSpace(linkCode))))
}

// RecordConversion increments created conversions by type.
func (m *Metrics) RecordConversion(ctx context.Context, conversionType string) {
	if m == nil {
		return
	}
	m.conversionsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("type", conversionType)))
}

// RecordCommission increments created commissions by rule kind.
func (m *Metrics) RecordCommission(ctx context.Context, ruleKind string) {
	if m == nil {
		return
	}
	m.commissionsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("rule_kind", ruleKind)))
}

// RecordPayout increments generated payouts.
func (m *Metrics) RecordPayout(ctx context.Context) {
	if m == nil {
		return
	}
	m.payoutsGenerated.Add(ctx, 1)
}

// RecordRateLimitDenied increments denied click-tracking requests.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1)
}
