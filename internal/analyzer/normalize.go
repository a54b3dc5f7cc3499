package analyzer

import (
	"encoding/json"
	"strings"
	"time"

	"chartlens/internal/domain"
)

// Normalize parses the model's JSON reply and coerces every field to its
// expected shape. It never fails: unparseable content yields an error result
// so downstream formatting never branches on missing fields.
func Normalize(content string, usage *domain.TokenUsage, now time.Time) *domain.AnalysisResult {
	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return ErrorResult("Invalid JSON response: "+err.Error(), 0, now)
	}

	result := &domain.AnalysisResult{
		Trend:             enumField(data, "trend", domain.IsValidTrend, domain.TrendSideways),
		Confidence:        confidenceField(data),
		MarketBias:        enumField(data, "market_bias", domain.IsValidBias, domain.BiasNeutral),
		RiskLevel:         enumField(data, "risk_level", domain.IsValidRisk, domain.RiskMedium),
		SupportLevels:     levelsField(data, "support_levels"),
		ResistanceLevels:  levelsField(data, "resistance_levels"),
		PriceTargets:      levelsField(data, "price_targets"),
		Patterns:          patternsField(data),
		VolumeAnalysis:    stringPtrField(data, "volume_analysis"),
		Indicators:        stringPtrField(data, "indicators"),
		KeyInsights:       stringField(data, "key_insights", "Analysis completed."),
		TimeframeDetected: stringPtrField(data, "timeframe_detected"),
		StopLossLevel:     floatPtrField(data, "stop_loss_level"),
		Summary:           stringField(data, "summary", "Chart analysis completed."),
		Success:           true,
		Usage:             usage,
		GeneratedAt:       now,
	}
	return result
}

// ErrorResult is the standardized failure payload: success=false but every
// field still populated with safe defaults.
func ErrorResult(message string, processingTime float64, now time.Time) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Success:          false,
		Error:            message,
		Trend:            domain.TrendSideways,
		Confidence:       0.0,
		MarketBias:       domain.BiasNeutral,
		RiskLevel:        domain.RiskMedium,
		SupportLevels:    []float64{},
		ResistanceLevels: []float64{},
		PriceTargets:     []float64{},
		Patterns:         []string{},
		KeyInsights:      "Unable to analyze chart due to technical issues.",
		Summary:          "Analysis could not be completed.",
		ProcessingTime:   processingTime,
		GeneratedAt:      now,
	}
}

// DemoResult is returned when no model credentials are configured, before
// any network call is attempted.
func DemoResult(now time.Time) *domain.AnalysisResult {
	volume := "Volume data not available in demo mode"
	indicators := "Technical indicators show bullish momentum"
	timeframe := "1h"
	stopLoss := 41500.0
	return &domain.AnalysisResult{
		Success:           false,
		Error:             "OpenAI API key not configured",
		Trend:             domain.TrendUptrend,
		Confidence:        0.75,
		MarketBias:        domain.BiasBullish,
		RiskLevel:         domain.RiskMedium,
		SupportLevels:     []float64{42150.0, 41800.0},
		ResistanceLevels:  []float64{43500.0, 44200.0},
		PriceTargets:      []float64{44800.0, 45500.0},
		Patterns:          []string{"ascending triangle"},
		VolumeAnalysis:    &volume,
		Indicators:        &indicators,
		KeyInsights:       "Demo analysis - configure OpenAI API key for real analysis.",
		TimeframeDetected: &timeframe,
		StopLossLevel:     &stopLoss,
		Summary:           "Demo analysis showing bullish trend. Configure OpenAI API key for real analysis.",
		ProcessingTime:    1.5,
		GeneratedAt:       now,
	}
}

func enumField(data map[string]any, key string, valid func(string) bool, fallback string) string {
	s, ok := data[key].(string)
	if !ok {
		return fallback
	}
	s = strings.ToLower(s)
	if !valid(s) {
		return fallback
	}
	return s
}

// confidenceField replaces out-of-range values with the default rather than
// clamping them.
func confidenceField(data map[string]any) float64 {
	v, ok := data["confidence"].(float64)
	if !ok || v < 0 || v > 1 {
		return 0.5
	}
	return v
}

func levelsField(data map[string]any, key string) []float64 {
	out := []float64{}
	items, ok := data[key].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if v, ok := item.(float64); ok {
			out = append(out, v)
		}
	}
	return out
}

func patternsField(data map[string]any) []string {
	out := []string{}
	items, ok := data["patterns"].([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringField(data map[string]any, key, fallback string) string {
	if s, ok := data[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func stringPtrField(data map[string]any, key string) *string {
	if s, ok := data[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func floatPtrField(data map[string]any, key string) *float64 {
	if v, ok := data[key].(float64); ok {
		return &v
	}
	return nil
}
