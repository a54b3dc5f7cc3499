package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"chartlens/internal/cache"
	"chartlens/internal/db"
)

const serviceVersion = "1.0.0"

// Health godoc
// @Summary      Service health
// @Description  Liveness plus presence flags for each optional backend
// @Tags         status
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.health")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "chartlens",
		"backends": gin.H{
			"postgres": db.Pool != nil,
			"redis":    cache.Client != nil,
			"telegram": h.cfg.TelegramBotToken != "",
			"openai":   h.cfg.OpenAIAPIKey != "",
			"finnhub":  h.cfg.FinnhubAPIKey != "",
		},
	})
}

// Status godoc
// @Summary      Service status
// @Description  Version, model configuration, uptime and upload-directory stats
// @Tags         status
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/status [get]
func (h *Handler) Status(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.status")
	defer span.End()

	files, bytes := uploadStats(h.cfg.UploadDir)

	c.JSON(http.StatusOK, gin.H{
		"version":        serviceVersion,
		"model":          h.cfg.OpenAIModel,
		"demo_mode":      h.cfg.OpenAIAPIKey == "",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"uploads": gin.H{
			"dir":         h.cfg.UploadDir,
			"files":       files,
			"total_bytes": bytes,
		},
	})
}

func uploadStats(dir string) (int, int64) {
	matches, err := filepath.Glob(filepath.Join(dir, "chart_*"))
	if err != nil {
		return 0, 0
	}
	count := 0
	var total int64
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		count++
		total += info.Size()
	}
	return count, total
}
