package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RuleKind selects how the base commission is computed.
type RuleKind string

const (
	RuleKindPercentage RuleKind = "percentage"
	RuleKindFixed      RuleKind = "fixed"
	RuleKindTiered     RuleKind = "tiered"
)

// RuleTier is one band of a tiered rule. A nil Max means the band is
// unbounded above. Bounds are inclusive.
type RuleTier struct {
	Min  decimal.Decimal  `json:"min"`
	Max  *decimal.Decimal `json:"max,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// RuleConfig is the commission rule stored on programs, enrollment
// overrides and commission snapshots.
type RuleConfig struct {
	Type   RuleKind        `json:"type"`
	Value  decimal.Decimal `json:"value,omitempty"`
	Amount decimal.Decimal `json:"amount,omitempty"`
	Tiers  []RuleTier      `json:"tiers,omitempty"`
}

var ErrEmptyRuleConfig = errors.New("empty commission rule config")

// ParseRuleConfig decodes and validates a rule config document.
func ParseRuleConfig(raw []byte) (RuleConfig, error) {
	if len(raw) == 0 {
		return RuleConfig{}, ErrEmptyRuleConfig
	}

	var cfg RuleConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return RuleConfig{}, fmt.Errorf("decode commission rule config: %w", err)
	}

	switch cfg.Type {
	case RuleKindPercentage, RuleKindFixed:
	case RuleKindTiered:
		if len(cfg.Tiers) == 0 {
			return RuleConfig{}, errors.New("tiered rule config has no tiers")
		}
	default:
		return RuleConfig{}, fmt.Errorf("unknown commission rule type %q", cfg.Type)
	}
	return cfg, nil
}

// DecodeRuleConfig decodes a stored config leniently. Snapshots that no
// longer parse evaluate to zero instead of failing the conversion.
func DecodeRuleConfig(raw []byte) RuleConfig {
	var cfg RuleConfig
	_ = json.Unmarshal(raw, &cfg)
	return cfg
}

var hundred = decimal.NewFromInt(100)

// EvaluateBase computes the base commission for an order amount.
// Unknown kinds and amounts outside every tiered band yield zero
// rather than an error, matching how stored configs are applied.
func (c RuleConfig) EvaluateBase(orderAmount decimal.Decimal) decimal.Decimal {
	switch c.Type {
	case RuleKindPercentage:
		return orderAmount.Mul(c.Value).Div(hundred)
	case RuleKindFixed:
		return c.Amount
	case RuleKindTiered:
		for _, tier := range c.Tiers {
			if orderAmount.LessThan(tier.Min) {
				continue
			}
			if tier.Max != nil && orderAmount.GreaterThan(*tier.Max) {
				continue
			}
			return orderAmount.Mul(tier.Rate).Div(hundred)
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}
