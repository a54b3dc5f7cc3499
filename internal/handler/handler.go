package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"chartlens/internal/config"
	"chartlens/internal/domain"
)

// CandleReader serves mirrored candle history.
type CandleReader interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]*domain.Candle, error)
}

type Handler struct {
	tracer  trace.Tracer
	cfg     *config.Config
	candles CandleReader
	started time.Time
}

func New(tracer trace.Tracer, cfg *config.Config, candles CandleReader) *Handler {
	return &Handler{
		tracer:  tracer,
		cfg:     cfg,
		candles: candles,
		started: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/status", h.Status)
	r.GET("/api/candles/:symbol", h.GetCandles)
}
