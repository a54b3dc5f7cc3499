package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	HTTPPort         int

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	FinnhubAPIKey      string
	MarketLookbackDays int

	UploadDir          string
	MaxFileSize        int64
	ImageRetentionSecs int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		FinnhubAPIKey:    os.Getenv("FINNHUB_API_KEY"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, Telegram bot will not start")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, candle mirror disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, snapshot cache disabled")
	}
	if cfg.OpenAIAPIKey == "" || !strings.HasPrefix(cfg.OpenAIAPIKey, "sk-") {
		log.Println("Warning: no valid OPENAI_API_KEY, analyses will return demo data")
		cfg.OpenAIAPIKey = ""
	}
	if cfg.FinnhubAPIKey == "" {
		log.Println("Warning: FINNHUB_API_KEY not set, market enrichment disabled")
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o"
	}

	cfg.OpenAIMaxTokens = 1000
	if v := strings.TrimSpace(os.Getenv("OPENAI_MAX_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.OpenAIMaxTokens = n
		}
	}

	cfg.OpenAITemperature = 0.1
	if v := strings.TrimSpace(os.Getenv("OPENAI_TEMPERATURE")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n >= 0 && n <= 2 {
			cfg.OpenAITemperature = n
		}
	}

	cfg.MarketLookbackDays = 180
	if v := strings.TrimSpace(os.Getenv("MARKET_LOOKBACK_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MarketLookbackDays = n
		}
	}

	cfg.UploadDir = strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}

	cfg.MaxFileSize = 5 * 1024 * 1024
	if v := strings.TrimSpace(os.Getenv("MAX_FILE_SIZE")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxFileSize = n
		}
	}

	cfg.ImageRetentionSecs = 60
	if v := strings.TrimSpace(os.Getenv("IMAGE_RETENTION_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ImageRetentionSecs = n
		}
	}

	return cfg
}
