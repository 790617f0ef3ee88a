package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleConfig_Percentage(t *testing.T) {
	cfg, err := ParseRuleConfig([]byte(`{"type":"percentage","value":10}`))
	require.NoError(t, err)
	assert.Equal(t, RuleKindPercentage, cfg.Type)
	assert.True(t, cfg.Value.Equal(decimal.NewFromInt(10)))
}

func TestParseRuleConfig_Empty(t *testing.T) {
	_, err := ParseRuleConfig(nil)
	assert.ErrorIs(t, err, ErrEmptyRuleConfig)

	_, err = ParseRuleConfig([]byte(""))
	assert.ErrorIs(t, err, ErrEmptyRuleConfig)
}

func TestParseRuleConfig_UnknownType(t *testing.T) {
	_, err := ParseRuleConfig([]byte(`{"type":"revenue_share","value":10}`))
	assert.Error(t, err)
}

func TestParseRuleConfig_TieredRequiresTiers(t *testing.T) {
	_, err := ParseRuleConfig([]byte(`{"type":"tiered"}`))
	assert.Error(t, err)

	_, err = ParseRuleConfig([]byte(`{"type":"tiered","tiers":[{"min":0,"rate":5}]}`))
	assert.NoError(t, err)
}

func TestEvaluateBase_Percentage(t *testing.T) {
	cfg := DecodeRuleConfig([]byte(`{"type":"percentage","value":10}`))

	got := cfg.EvaluateBase(decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(20)), "got %s", got)
}

func TestEvaluateBase_Fixed(t *testing.T) {
	cfg := DecodeRuleConfig([]byte(`{"type":"fixed","amount":25.50}`))

	got := cfg.EvaluateBase(decimal.NewFromInt(9999))
	assert.True(t, got.Equal(decimal.RequireFromString("25.50")), "got %s", got)
}

func TestEvaluateBase_TieredBands(t *testing.T) {
	cfg := DecodeRuleConfig([]byte(`{
		"type": "tiered",
		"tiers": [
			{"min": 0, "max": 100, "rate": 5},
			{"min": 100, "max": 1000, "rate": 10},
			{"min": 1000, "rate": 15}
		]
	}`))

	cases := []struct {
		amount string
		want   string
	}{
		{"50", "2.5"},
		{"100", "5"},    // boundary lands in the first inclusive band
		{"500", "50"},
		{"1000", "100"}, // still the second band, max is inclusive
		{"2000", "300"}, // open-ended top band
	}
	for _, tc := range cases {
		got := cfg.EvaluateBase(decimal.RequireFromString(tc.amount))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"amount %s: want %s got %s", tc.amount, tc.want, got)
	}
}

func TestEvaluateBase_TieredNoMatchingBand(t *testing.T) {
	cfg := DecodeRuleConfig([]byte(`{
		"type": "tiered",
		"tiers": [{"min": 100, "max": 200, "rate": 10}]
	}`))

	got := cfg.EvaluateBase(decimal.NewFromInt(50))
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestEvaluateBase_UnknownTypeIsZero(t *testing.T) {
	cfg := DecodeRuleConfig([]byte(`{"type":"mystery","value":10}`))

	got := cfg.EvaluateBase(decimal.NewFromInt(100))
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestDecodeRuleConfig_LenientOnGarbage(t *testing.T) {
	cfg := DecodeRuleConfig([]byte(`not json`))
	assert.True(t, cfg.EvaluateBase(decimal.NewFromInt(100)).IsZero())
}
