package llm

import (
	"math"
	"strings"
)

// Price is the USD cost per 1000 tokens.
type Price struct {
	Input  float64
	Output float64
}

// PricingPer1K lists known OpenAI model prices. Validation rejects models
// missing from this table.
var PricingPer1K = map[string]Price{
	"gpt-5.2":                      {0.00175, 0.014},
	"gpt-5.1":                      {0.00125, 0.01},
	"gpt-5":                        {0.00125, 0.01},
	"gpt-5-mini":                   {0.00025, 0.002},
	"gpt-5-nano":                   {0.00005, 0.0004},
	"gpt-5.2-chat-latest":          {0.00175, 0.014},
	"gpt-5.1-chat-latest":          {0.00125, 0.01},
	"gpt-5-chat-latest":            {0.00125, 0.01},
	"gpt-5.1-codex-max":            {0.00125, 0.01},
	"gpt-5.1-codex":                {0.00125, 0.01},
	"gpt-5-codex":                  {0.00125, 0.01},
	"gpt-5.2-pro":                  {0.021, 0.168},
	"gpt-5-pro":                    {0.015, 0.12},
	"gpt-4.1":                      {0.002, 0.008},
	"gpt-4.1-mini":                 {0.0004, 0.0016},
	"gpt-4.1-nano":                 {0.0001, 0.0004},
	"gpt-4o":                       {0.0025, 0.01},
	"gpt-4o-2024-05-13":            {0.005, 0.015},
	"gpt-4o-mini":                  {0.00015, 0.0006},
	"gpt-realtime":                 {0.004, 0.016},
	"gpt-realtime-mini":            {0.0006, 0.0024},
	"gpt-4o-realtime-preview":      {0.005, 0.02},
	"gpt-4o-mini-realtime-preview": {0.0006, 0.0024},
	"gpt-audio":                    {0.0025, 0.01},
	"gpt-audio-mini":               {0.0006, 0.0024},
	"gpt-4o-audio-preview":         {0.0025, 0.01},
	"gpt-4o-mini-audio-preview":    {0.00015, 0.0006},
	"o1":                           {0.015, 0.06},
	"o1-pro":                       {0.15, 0.6},
	"o3-pro":                       {0.02, 0.08},
	"o3":                           {0.002, 0.008},
	"o3-deep-research":             {0.01, 0.04},
	"o4-mini":                      {0.0011, 0.0044},
	"o4-mini-deep-research":        {0.002, 0.008},
	"o3-mini":                      {0.0011, 0.0044},
	"o1-mini":                      {0.0011, 0.0044},
	"gpt-5.1-codex-mini":           {0.00025, 0.002},
	"codex-mini-latest":            {0.0015, 0.006},
	"gpt-5-search-api":             {0.00125, 0.01},
}

// PriceFor looks up a model case-insensitively.
func PriceFor(model string) (Price, bool) {
	p, ok := PricingPer1K[strings.ToLower(strings.TrimSpace(model))]
	return p, ok
}

// EstimateCost returns the USD cost of a call rounded to six decimals. It
// reports false for unknown models or missing usage.
func EstimateCost(model string, usage *Usage) (float64, bool) {
	if usage == nil {
		return 0, false
	}
	p, ok := PriceFor(model)
	if !ok {
		return 0, false
	}
	cost := float64(usage.InputTokens)/1000*p.Input + float64(usage.OutputTokens)/1000*p.Output
	return math.Round(cost*1e6) / 1e6, true
}
