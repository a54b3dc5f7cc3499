package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"chartlens/internal/domain"
)

// GetCandles godoc
// @Summary      Get mirrored candle history
// @Description  Returns locally mirrored OHLCV bars for a symbol/timeframe, oldest first
// @Tags         candles
// @Produce      json
// @Param        symbol     path   string  true   "Namespaced symbol (e.g., BINANCE:BTCUSDT)"
// @Param        timeframe  query  string  true   "Timeframe code (1m,5m,15m,30m,1h,4h,1d,1w)"
// @Param        limit      query  int     false  "Number of bars (default 200, max 1000)"  default(200)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/candles/{symbol} [get]
func (h *Handler) GetCandles(c *gin.Context) {
	if h.candles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "candle mirror unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	timeframe := strings.TrimSpace(c.Query("timeframe"))
	if !domain.IsSupportedTimeframe(timeframe) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                "unsupported timeframe: " + timeframe,
			"supported_timeframes": domain.SupportedTimeframes,
		})
		return
	}

	limit := 200
	if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	candles, err := h.candles.GetCandles(ctx, symbol, timeframe, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   candles,
	})
}
