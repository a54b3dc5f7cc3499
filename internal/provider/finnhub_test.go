package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *FinnhubProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewFinnhubProvider(trace.NewNoopTracerProvider().Tracer("test"), "test-key")
	p.baseURL = srv.URL
	return p
}

func TestFetchOHLCVReturnsAscendingCandles(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BINANCE:BTCUSDT" {
			t.Errorf("unexpected symbol: %s", got)
		}
		if got := r.URL.Query().Get("resolution"); got != "60" {
			t.Errorf("unexpected resolution: %s", got)
		}
		w.Write([]byte(`{"s":"ok","t":[200,100],"o":[2,1],"h":[2.5,1.5],"l":[1.9,0.9],"c":[2.2,1.2],"v":[20,10]}`))
	})

	candles, err := p.FetchOHLCV(context.Background(), "BINANCE:BTCUSDT", "1h", 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if !candles[0].OpenTime.Before(candles[1].OpenTime) {
		t.Fatal("expected candles ordered oldest first")
	}
	if candles[0].Close != 1.2 || candles[1].Close != 2.2 {
		t.Fatalf("unexpected closes: %f %f", candles[0].Close, candles[1].Close)
	}
}

func TestFetchOHLCVNoDataStatus(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"s":"no_data"}`))
	})

	if _, err := p.FetchOHLCV(context.Background(), "BINANCE:BTCUSDT", "1h", 180); err == nil {
		t.Fatal("expected provider error for non-ok status")
	}
}

func TestFetchOHLCVHTTPError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit exceeded", http.StatusTooManyRequests)
	})

	if _, err := p.FetchOHLCV(context.Background(), "BINANCE:BTCUSDT", "1h", 180); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchOHLCVRejectsUnknownTimeframe(t *testing.T) {
	p := NewFinnhubProvider(trace.NewNoopTracerProvider().Tracer("test"), "k")
	if _, err := p.FetchOHLCV(context.Background(), "BINANCE:BTCUSDT", "2h", 180); err == nil {
		t.Fatal("expected error for unsupported timeframe")
	}
}

func TestFetchOHLCVUnevenArrays(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"s":"ok","t":[1,2],"o":[1],"h":[1,2],"l":[1,2],"c":[1,2],"v":[1,2]}`))
	})

	if _, err := p.FetchOHLCV(context.Background(), "BINANCE:BTCUSDT", "1h", 180); err == nil {
		t.Fatal("expected error for uneven arrays")
	}
}
