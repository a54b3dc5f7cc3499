// Package market derives symbol/timeframe hints from upload filenames and
// turns recent OHLCV history into a prompt-ready indicator snapshot.
package market

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"chartlens/internal/domain"
	"chartlens/internal/indicator"
)

const (
	defaultExchange  = "BINANCE"
	snapshotCacheTTL = 5 * time.Minute
	mirrorReadLimit  = 1000
)

// Provider fetches candle history from the market-data source.
type Provider interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe string, lookbackDays int) ([]*domain.Candle, error)
}

// CandleMirror is the optional local copy of fetched bars.
type CandleMirror interface {
	UpsertCandles(ctx context.Context, candles []*domain.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error)
}

// Enricher produces the best-effort market context for an analysis request.
// Every failure path returns an absent snapshot rather than an error.
type Enricher struct {
	tracer       trace.Tracer
	provider     Provider
	mirror       CandleMirror
	cache        *redis.Client
	lookbackDays int
}

// NewEnricher wires the enricher. mirror and cache may be nil.
func NewEnricher(tracer trace.Tracer, provider Provider, mirror CandleMirror, cache *redis.Client, lookbackDays int) *Enricher {
	return &Enricher{
		tracer:       tracer,
		provider:     provider,
		mirror:       mirror,
		cache:        cache,
		lookbackDays: lookbackDays,
	}
}

// InferSymbolTimeframe guesses the trading pair and timeframe from an
// uploaded file's name, e.g. "BTCUSDT_1h.png" -> ("BINANCE:BTCUSDT", "1h").
// Most uploads carry no such suffix, so a miss is the common case.
func InferSymbolTimeframe(filename string) (string, string, bool) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	for _, tf := range domain.SupportedTimeframes {
		if !strings.HasSuffix(stem, tf) {
			continue
		}
		rest := stem[:len(stem)-len(tf)]
		if len(rest) < 2 {
			return "", "", false
		}
		sep := rest[len(rest)-1]
		if sep != '_' && sep != '-' {
			return "", "", false
		}
		symbol := strings.ToUpper(rest[:len(rest)-1])
		return defaultExchange + ":" + symbol, tf, true
	}
	return "", "", false
}

// Enrich builds a market snapshot for the given upload filename. It returns
// nil when no symbol/timeframe can be inferred, when history is unavailable
// or too short, or when any backend fails.
func (e *Enricher) Enrich(ctx context.Context, filename string) *domain.MarketSnapshot {
	ctx, span := e.tracer.Start(ctx, "market.Enrich")
	defer span.End()

	symbol, timeframe, ok := InferSymbolTimeframe(filename)
	if !ok {
		return nil
	}

	if text, ok := e.cachedSnapshot(ctx, symbol, timeframe); ok {
		return &domain.MarketSnapshot{Symbol: symbol, Timeframe: timeframe, Text: text}
	}

	candles := e.loadCandles(ctx, symbol, timeframe)
	if candles == nil {
		return nil
	}

	text, ok := indicator.BuildSnapshot(candles)
	if !ok {
		log.Printf("not enough history for indicators: %s %s rows=%d", symbol, timeframe, len(candles))
		return nil
	}
	e.storeSnapshot(ctx, symbol, timeframe, text)
	return &domain.MarketSnapshot{Symbol: symbol, Timeframe: timeframe, Text: text}
}

// loadCandles fetches from the provider and mirrors the result, falling
// back to the mirror when the provider fails.
func (e *Enricher) loadCandles(ctx context.Context, symbol, timeframe string) []*domain.Candle {
	candles, err := e.provider.FetchOHLCV(ctx, symbol, timeframe, e.lookbackDays)
	if err == nil {
		if e.mirror != nil {
			if merr := e.mirror.UpsertCandles(ctx, candles); merr != nil {
				log.Printf("mirror candles %s %s: %v", symbol, timeframe, merr)
			}
		}
		return candles
	}
	log.Printf("fetch candles %s %s: %v", symbol, timeframe, err)

	if e.mirror == nil {
		return nil
	}
	candles, merr := e.mirror.GetCandles(ctx, symbol, timeframe, mirrorReadLimit)
	if merr != nil {
		log.Printf("mirror read %s %s: %v", symbol, timeframe, merr)
		return nil
	}
	if len(candles) == 0 {
		return nil
	}
	log.Printf("serving %d mirrored candles for %s %s", len(candles), symbol, timeframe)
	return candles
}

func snapshotKey(symbol, timeframe string) string {
	return "snapshot:" + symbol + ":" + timeframe
}

func (e *Enricher) cachedSnapshot(ctx context.Context, symbol, timeframe string) (string, bool) {
	if e.cache == nil {
		return "", false
	}
	text, err := e.cache.Get(ctx, snapshotKey(symbol, timeframe)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("snapshot cache get: %v", err)
		}
		return "", false
	}
	return text, true
}

func (e *Enricher) storeSnapshot(ctx context.Context, symbol, timeframe, text string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, snapshotKey(symbol, timeframe), text, snapshotCacheTTL).Err(); err != nil {
		log.Printf("snapshot cache set: %v", err)
	}
}
