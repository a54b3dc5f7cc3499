package analyzer

import (
	"fmt"
	"strings"

	"chartlens/internal/domain"
)

var trendEmoji = map[string]string{
	domain.TrendUptrend:   "📈",
	domain.TrendDowntrend: "📉",
	domain.TrendSideways:  "📊",
}

var biasEmoji = map[string]string{
	domain.BiasBullish: "🐂",
	domain.BiasBearish: "🐻",
	domain.BiasNeutral: "⚖️",
}

var riskEmoji = map[string]string{
	domain.RiskLow:    "🟢",
	domain.RiskMedium: "🟡",
	domain.RiskHigh:   "🔴",
}

// FormatMessage renders a normalized result as the Markdown reply sent back
// to the user.
func FormatMessage(a *domain.AnalysisResult) string {
	if !a.Success {
		errMsg := a.Error
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		return fmt.Sprintf("❌ **Analysis Failed**\n\n%s\n\nPlease try again with a different image.", errMsg)
	}

	var b strings.Builder
	b.WriteString("📊 **Chart Analysis Results**\n\n")

	fmt.Fprintf(&b, "%s **Trend:** %s\n", trendEmoji[a.Trend], titleCase(a.Trend))
	fmt.Fprintf(&b, "%s **Market Bias:** %s\n", biasEmoji[a.MarketBias], titleCase(a.MarketBias))
	fmt.Fprintf(&b, "🎯 **Confidence:** %.0f%%\n", a.Confidence*100)
	fmt.Fprintf(&b, "%s **Risk Level:** %s\n\n", riskEmoji[a.RiskLevel], titleCase(a.RiskLevel))

	if len(a.SupportLevels) > 0 {
		fmt.Fprintf(&b, "🟢 **Support:** %s\n", priceList(a.SupportLevels, 3))
	}
	if len(a.ResistanceLevels) > 0 {
		fmt.Fprintf(&b, "🔴 **Resistance:** %s\n", priceList(a.ResistanceLevels, 3))
	}
	if len(a.Patterns) > 0 {
		patterns := a.Patterns
		if len(patterns) > 3 {
			patterns = patterns[:3]
		}
		fmt.Fprintf(&b, "📐 **Patterns:** %s\n", strings.Join(patterns, ", "))
	}
	if len(a.PriceTargets) > 0 {
		fmt.Fprintf(&b, "🎯 **Targets:** %s\n", priceList(a.PriceTargets, 2))
	}
	if a.StopLossLevel != nil && *a.StopLossLevel != 0 {
		fmt.Fprintf(&b, "🛑 **Stop Loss:** %s\n", formatUSD(*a.StopLossLevel))
	}
	if a.TimeframeDetected != nil && *a.TimeframeDetected != "" {
		fmt.Fprintf(&b, "⏱️ **Timeframe:** %s\n", strings.ToUpper(*a.TimeframeDetected))
	}
	b.WriteString("\n")

	if a.KeyInsights != "" {
		fmt.Fprintf(&b, "💡 **Key Insights:**\n%s\n\n", a.KeyInsights)
	}
	fmt.Fprintf(&b, "📝 **Summary:**\n%s\n\n", a.Summary)

	if a.ProcessingTime > 0 {
		fmt.Fprintf(&b, "⚡ *Analysis completed in %.1fs*\n", a.ProcessingTime)
	}
	if strings.Contains(strings.ToLower(a.KeyInsights), "demo") {
		b.WriteString("\n🔧 *Add OpenAI API key for real analysis*\n")
	}
	b.WriteString("\n⚠️ *This analysis is for educational purposes only.*")

	return b.String()
}

func priceList(levels []float64, max int) string {
	if len(levels) > max {
		levels = levels[:max]
	}
	parts := make([]string, len(levels))
	for i, v := range levels {
		parts[i] = formatUSD(v)
	}
	return strings.Join(parts, ", ")
}

// formatUSD renders "$42,150.00" with thousands grouping.
func formatUSD(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	var grouped strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		grouped.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if grouped.Len() > 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteString(intPart[i : i+3])
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return sign + "$" + grouped.String() + frac
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
