package analyzer

import (
	"encoding/base64"
	"fmt"
	"os"

	"chartlens/internal/domain"
)

const chartAnalysisPrompt = `
You are an expert technical analyst with years of experience in financial markets.
Analyze this trading chart image and provide a comprehensive technical analysis.

Look for and analyze:
1. TREND DIRECTION: Identify the overall trend (uptrend, downtrend, or sideways)
2. SUPPORT & RESISTANCE: Identify key price levels where price has bounced or been rejected
3. CHART PATTERNS: Look for classic patterns like triangles, flags, head & shoulders, double tops/bottoms, etc.
4. VOLUME ANALYSIS: If volume is visible, analyze volume patterns and confirmations
5. INDICATORS: If technical indicators are visible, interpret their signals
6. KEY INSIGHTS: Identify the most important observations about this chart

Provide specific price levels when they are clearly visible on the chart.
Be objective and base your analysis only on what you can see in the chart.
Consider the timeframe if it's visible.

Format your response as a JSON object with this exact structure:
{
  "trend": "uptrend/downtrend/sideways",
  "confidence": 0.85,
  "support_levels": [1234.56, 1220.30],
  "resistance_levels": [1250.00, 1275.80],
  "patterns": ["ascending triangle", "bullish flag"],
  "volume_analysis": "Volume analysis description or null if not visible",
  "indicators": "Technical indicators analysis or null if not visible",
  "key_insights": "Most important observations about this chart",
  "risk_level": "low/medium/high",
  "timeframe_detected": "1m/5m/15m/1h/4h/1d/1w/1M or null if not visible",
  "market_bias": "bullish/bearish/neutral",
  "price_targets": [1300.00, 1350.00],
  "stop_loss_level": 1200.00,
  "summary": "2-3 sentence summary suitable for sharing"
}

Only include price levels that are clearly visible on the chart.
If certain information is not visible or unclear, use null for those fields.
Be conservative in your confidence score - only use high confidence (0.8+) when patterns are very clear.
`

// Request is the assembled payload for one vision-model call.
type Request struct {
	Prompt       string
	ImageDataURL string
	Model        string
	MaxTokens    int64
	Temperature  float64
}

// BuildRequest combines the instruction template, the optional market
// snapshot and the base64-encoded image into a single request. The live-data
// section is always present so the model never sees an ambiguous context:
// either the snapshot under a heading naming symbol and timeframe, or an
// explicit no-data placeholder.
func BuildRequest(stored *domain.StoredImage, snapshot *domain.MarketSnapshot, model string, maxTokens int64, temperature float64) (*Request, error) {
	raw, err := os.ReadFile(stored.Path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", stored.Path, err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	prompt := chartAnalysisPrompt + "\n" + liveDataSection(snapshot)

	return &Request{
		Prompt:       prompt,
		ImageDataURL: "data:image/jpeg;base64," + encoded,
		Model:        model,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	}, nil
}

func liveDataSection(snapshot *domain.MarketSnapshot) string {
	if snapshot == nil {
		return "--- Live market data snapshot ---\nNo live market data available for this chart."
	}
	return fmt.Sprintf("--- Live market data snapshot (%s, %s) ---\n%s",
		snapshot.Symbol, snapshot.Timeframe, snapshot.Text)
}
