package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"chartlens/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubProvider fetches crypto OHLCV candles from Finnhub's REST API.
type FinnhubProvider struct {
	tracer     trace.Tracer
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewFinnhubProvider(tracer trace.Tracer, apiKey string) *FinnhubProvider {
	return &FinnhubProvider{
		tracer:  tracer,
		apiKey:  apiKey,
		baseURL: defaultFinnhubBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type candleResponse struct {
	Status  string    `json:"s"`
	Times   []int64   `json:"t"`
	Opens   []float64 `json:"o"`
	Highs   []float64 `json:"h"`
	Lows    []float64 `json:"l"`
	Closes  []float64 `json:"c"`
	Volumes []float64 `json:"v"`
}

// FetchOHLCV returns candles for symbol/timeframe covering the lookback
// window, chronologically ordered oldest first.
func (p *FinnhubProvider) FetchOHLCV(ctx context.Context, symbol, timeframe string, lookbackDays int) ([]*domain.Candle, error) {
	ctx, span := p.tracer.Start(ctx, "finnhub.fetch-ohlcv")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", symbol),
		attribute.String("timeframe", timeframe),
	)

	resolution, ok := domain.FinnhubResolution[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe: %s", timeframe)
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("finnhub api key not configured")
	}

	now := time.Now().UTC()
	from := now.Add(-time.Duration(lookbackDays) * 24 * time.Hour)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("resolution", resolution)
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(now.Unix(), 10))
	q.Set("token", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/crypto/candle?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("finnhub status %d: %s", resp.StatusCode, string(body))
	}

	var payload candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("finnhub decode: %w", err)
	}

	log.Printf("finnhub call: symbol=%s tf=%s lookback=%dd status=%s rows=%d",
		symbol, timeframe, lookbackDays, payload.Status, len(payload.Times))

	if payload.Status != "ok" {
		return nil, fmt.Errorf("finnhub error status: %s", payload.Status)
	}

	n := len(payload.Times)
	if len(payload.Opens) != n || len(payload.Highs) != n || len(payload.Lows) != n ||
		len(payload.Closes) != n || len(payload.Volumes) != n {
		return nil, fmt.Errorf("finnhub response arrays are uneven")
	}

	candles := make([]*domain.Candle, 0, n)
	for i := 0; i < n; i++ {
		candles = append(candles, &domain.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  time.Unix(payload.Times[i], 0).UTC(),
			Open:      payload.Opens[i],
			High:      payload.Highs[i],
			Low:       payload.Lows[i],
			Close:     payload.Closes[i],
			Volume:    payload.Volumes[i],
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	return candles, nil
}
