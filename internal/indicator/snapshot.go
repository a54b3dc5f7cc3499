// Package indicator computes the short technical snapshot appended to the
// analysis prompt: RSI, MACD histogram, Bollinger band position and a
// 200-SMA trend call over the fetched candle history.
package indicator

import (
	"fmt"
	"math"
	"strings"

	"chartlens/internal/domain"
)

// MinBars is the minimum history length for a meaningful snapshot.
const MinBars = 120

// BuildSnapshot renders a bullet-point indicator summary from candles in
// chronological order (oldest first). It returns false when the history is
// too short for the indicator set.
func BuildSnapshot(candles []*domain.Candle) (string, bool) {
	if len(candles) < MinBars {
		return "", false
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	rsi := rsiSeries(closes, 14)
	hist := macdHistogram(closes, 12, 26, 9)
	bbp := bollingerPercent(closes, 20, 2.0)

	lines := []string{
		fmt.Sprintf("• **RSI (14)**: %.2f", rsi[len(rsi)-1]),
		fmt.Sprintf("• **MACD hist.**: %.2f", hist[len(hist)-1]),
		fmt.Sprintf("• **BB%% (20-2σ)**: %.2f %%", bbp),
	}

	trend := "↓ Downtrend"
	if closes[len(closes)-1] > smaLast(closes, 200) {
		trend = "↑ Uptrend"
	}
	lines = append(lines, fmt.Sprintf("• **Trend (200-SMA)**: %s", trend))

	return strings.Join(lines, "\n"), true
}

// rsiSeries computes the relative strength index with Wilder smoothing.
// Entries before the warm-up period are 50.
func rsiSeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = 50
	}
	if len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// emaSeries computes an exponential moving average seeded with the first
// value, alpha = 2/(period+1).
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// macdHistogram returns the MACD histogram series: (fastEMA - slowEMA)
// minus its signal EMA.
func macdHistogram(closes []float64, fast, slow, signal int) []float64 {
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalEMA := emaSeries(macd, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - signalEMA[i]
	}
	return hist
}

// bollingerPercent returns the latest close's position inside the Bollinger
// band as a percentage: 0 at the lower band, 100 at the upper.
func bollingerPercent(closes []float64, period int, width float64) float64 {
	window := closes[len(closes)-period:]
	mean, std := meanStd(window)
	lower := mean - width*std
	upper := mean + width*std
	if upper == lower {
		return 50
	}
	return (closes[len(closes)-1] - lower) / (upper - lower) * 100
}

// smaLast averages the last period closes, or all of them when the history
// is shorter.
func smaLast(closes []float64, period int) float64 {
	if len(closes) < period {
		period = len(closes)
	}
	window := closes[len(closes)-period:]
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(period)
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
