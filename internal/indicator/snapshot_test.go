package indicator

import (
	"math"
	"strings"
	"testing"
	"time"

	"chartlens/internal/domain"
)

func makeCandles(closes []float64) []*domain.Candle {
	candles := make([]*domain.Candle, len(closes))
	base := time.Unix(1700000000, 0)
	for i, c := range closes {
		candles[i] = &domain.Candle{
			Symbol:    "BINANCE:BTCUSDT",
			Timeframe: "1h",
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return candles
}

func TestBuildSnapshotInsufficientHistory(t *testing.T) {
	candles := makeCandles(make([]float64, MinBars-1))
	if _, ok := BuildSnapshot(candles); ok {
		t.Fatal("expected no snapshot below the minimum bar count")
	}
}

func TestBuildSnapshotRisingSeries(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	text, ok := BuildSnapshot(makeCandles(closes))
	if !ok {
		t.Fatal("expected a snapshot")
	}
	for _, want := range []string{"RSI (14)", "MACD hist.", "BB% (20-2σ)", "Trend (200-SMA)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("snapshot missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(text, "↑ Uptrend") {
		t.Fatalf("expected uptrend call for a rising series:\n%s", text)
	}
}

func TestBuildSnapshotFallingSeries(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 1000 - float64(i)
	}
	text, ok := BuildSnapshot(makeCandles(closes))
	if !ok {
		t.Fatal("expected a snapshot")
	}
	if !strings.Contains(text, "↓ Downtrend") {
		t.Fatalf("expected downtrend call for a falling series:\n%s", text)
	}
}

func TestRSIBounds(t *testing.T) {
	closes := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10,
		45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03,
		46.41, 46.22, 45.64}
	rsi := rsiSeries(closes, 14)
	last := rsi[len(rsi)-1]
	if last <= 0 || last >= 100 {
		t.Fatalf("RSI out of bounds: %f", last)
	}
	// Mostly rising series should sit above the midline.
	if last < 50 {
		t.Fatalf("expected RSI above 50 for a rising series, got %f", last)
	}
}

func TestRSIAllGainsSaturates(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(i)
	}
	rsi := rsiSeries(closes, 14)
	if rsi[len(rsi)-1] != 100 {
		t.Fatalf("expected RSI 100 with no losses, got %f", rsi[len(rsi)-1])
	}
}

func TestMACDHistogramFlatSeries(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 42
	}
	hist := macdHistogram(closes, 12, 26, 9)
	if hist[len(hist)-1] != 0 {
		t.Fatalf("expected zero histogram on a flat series, got %f", hist[len(hist)-1])
	}
}

func TestBollingerPercentFlatSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 10
	}
	if got := bollingerPercent(closes, 20, 2.0); got != 50 {
		t.Fatalf("expected midline 50 for a flat series, got %f", got)
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}
	if math.Abs(std-2) > 1e-9 {
		t.Fatalf("expected std 2, got %f", std)
	}
}
