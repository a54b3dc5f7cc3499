package domain

import (
	"fmt"
	"time"
)

// SupportedTimeframes lists the candle intervals a chart filename may carry,
// longest token first so suffix matching never confuses 15m with 5m.
var SupportedTimeframes = []string{"15m", "30m", "1m", "5m", "1h", "4h", "1d", "1w"}

// FinnhubResolution maps a timeframe code to Finnhub's resolution parameter.
var FinnhubResolution = map[string]string{
	"1m":  "1",
	"5m":  "5",
	"15m": "15",
	"30m": "30",
	"1h":  "60",
	"4h":  "240",
	"1d":  "D",
	"1w":  "W",
}

func IsSupportedTimeframe(tf string) bool {
	_, ok := FinnhubResolution[tf]
	return ok
}

type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// StoredImage is one user-submitted chart persisted to the upload directory.
// Width and Height reflect the file as it will be analyzed, after any downsize.
type StoredImage struct {
	ID        string
	Path      string
	SizeBytes int64
	Width     int
	Height    int
	Ext       string
}

// MarketSnapshot is the best-effort live-data context attached to a prompt.
// A nil *MarketSnapshot is the explicit absence value.
type MarketSnapshot struct {
	Symbol    string
	Timeframe string
	Text      string
}

type IntakeErrorKind string

const (
	IntakeDownloadFailed     IntakeErrorKind = "download_failed"
	IntakeNotFound           IntakeErrorKind = "not_found"
	IntakeTooLarge           IntakeErrorKind = "too_large"
	IntakeTooSmall           IntakeErrorKind = "too_small"
	IntakeUnsupportedFormat  IntakeErrorKind = "unsupported_format"
	IntakeCorruptImage       IntakeErrorKind = "corrupt_image"
	IntakeDimensionsTooSmall IntakeErrorKind = "dimensions_too_small"
)

// IntakeError is a user-correctable download or validation failure.
type IntakeError struct {
	Kind    IntakeErrorKind
	Message string
}

func (e *IntakeError) Error() string {
	return fmt.Sprintf("intake %s: %s", e.Kind, e.Message)
}

func NewIntakeError(kind IntakeErrorKind, format string, args ...any) *IntakeError {
	return &IntakeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AnalysisError reports a vision model invocation that failed after all
// retry attempts were exhausted.
type AnalysisError struct {
	Attempts int
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

const (
	TrendUptrend   = "uptrend"
	TrendDowntrend = "downtrend"
	TrendSideways  = "sideways"
)

const (
	BiasBullish = "bullish"
	BiasBearish = "bearish"
	BiasNeutral = "neutral"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

func IsValidTrend(s string) bool {
	return s == TrendUptrend || s == TrendDowntrend || s == TrendSideways
}

func IsValidBias(s string) bool {
	return s == BiasBullish || s == BiasBearish || s == BiasNeutral
}

func IsValidRisk(s string) bool {
	return s == RiskLow || s == RiskMedium || s == RiskHigh
}

type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// AnalysisResult is the normalized outcome of one chart analysis. Every field
// is populated even when Success is false, so rendering never branches on
// missing keys. Pointer fields carry the explicit absence value as nil.
type AnalysisResult struct {
	Trend             string      `json:"trend"`
	Confidence        float64     `json:"confidence"`
	MarketBias        string      `json:"market_bias"`
	RiskLevel         string      `json:"risk_level"`
	SupportLevels     []float64   `json:"support_levels"`
	ResistanceLevels  []float64   `json:"resistance_levels"`
	PriceTargets      []float64   `json:"price_targets"`
	Patterns          []string    `json:"patterns"`
	VolumeAnalysis    *string     `json:"volume_analysis"`
	Indicators        *string     `json:"indicators"`
	KeyInsights       string      `json:"key_insights"`
	TimeframeDetected *string     `json:"timeframe_detected"`
	StopLossLevel     *float64    `json:"stop_loss_level"`
	Summary           string      `json:"summary"`
	Success           bool        `json:"success"`
	Error             string      `json:"error,omitempty"`
	Usage             *TokenUsage `json:"api_usage,omitempty"`
	ProcessingTime    float64     `json:"processing_time"`
	GeneratedAt       time.Time   `json:"generated_at"`
}
