package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"chartlens/internal/analyzer"
	"chartlens/internal/domain"
	"chartlens/internal/intake"
)

// ImageIngestor persists and validates an uploaded chart image.
type ImageIngestor interface {
	Ingest(ctx context.Context, remote intake.RemoteFile, ext string) (*domain.StoredImage, error)
}

// ChartAnalyzer runs the analysis pipeline for a stored image.
type ChartAnalyzer interface {
	AnalyzeChart(ctx context.Context, stored *domain.StoredImage, filename string) *domain.AnalysisResult
}

const startMessage = "🎯 **Welcome to the Chart Analyzer, %s!**\n\n" +
	"I'm your AI-powered technical analysis assistant.\n\n" +
	"**How to use:**\n" +
	"1️⃣ Send me any trading chart image\n" +
	"2️⃣ I'll analyze it with AI\n" +
	"3️⃣ Get detailed technical analysis\n\n" +
	"**Commands:**\n" +
	"• /start - This message\n" +
	"• /analyze - Instructions for analysis\n" +
	"• /help - Get help\n\n" +
	"📊 Just send me a chart image to start!"

const analyzeMessage = "📊 **How to Analyze Charts**\n\n" +
	"Simply send me a chart image and I'll analyze it!\n\n" +
	"**Supported formats:** PNG, JPG, JPEG\n" +
	"**Max size:** 5MB\n\n" +
	"**What I analyze:**\n" +
	"• 📈 Trend direction\n" +
	"• 🎯 Support/Resistance levels\n" +
	"• 📐 Chart patterns\n" +
	"• 📊 Volume (if visible)\n" +
	"• 🎪 Price targets\n" +
	"• ⚠️ Risk assessment\n\n" +
	"Send me a chart image now!"

const helpMessage = "📚 **Chart Analyzer Help**\n\n" +
	"**Available Commands:**\n" +
	"• /start - Welcome message\n" +
	"• /analyze - How to analyze charts\n" +
	"• /help - Show this help\n\n" +
	"**To analyze a chart:**\n" +
	"Just send me any trading chart image!\n\n" +
	"**Supported formats:** PNG, JPG, JPEG (max 5MB)\n\n" +
	"⚠️ *Analysis is for educational purposes only*"

const processingMessage = "📊 **Image received!**\n\n" +
	"🤖 AI is analyzing your chart…\n" +
	"⏱️ Usually takes 10-30 seconds."

// StartTelegramBot wires the bot handlers and begins long polling. It
// returns nil without error when no token is configured.
func StartTelegramBot(ingestor ImageIngestor, chartAnalyzer ChartAnalyzer) *tele.Bot {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/start", func(c tele.Context) error {
		name := "trader"
		if sender := c.Sender(); sender != nil && sender.FirstName != "" {
			name = sender.FirstName
		}
		log.Printf("user %d started the bot", c.Sender().ID)
		return c.Send(fmt.Sprintf(startMessage, name), tele.ModeMarkdown)
	})

	b.Handle("/analyze", func(c tele.Context) error {
		return c.Send(analyzeMessage, tele.ModeMarkdown)
	})

	b.Handle("/help", func(c tele.Context) error {
		return c.Send(helpMessage, tele.ModeMarkdown)
	})

	b.Handle(tele.OnPhoto, func(c tele.Context) error {
		photo := c.Message().Photo
		if photo == nil {
			return nil
		}
		return handleImage(b, c, ingestor, chartAnalyzer, photo.File, "jpg", "")
	})

	b.Handle(tele.OnDocument, func(c tele.Context) error {
		doc := c.Message().Document
		if doc == nil || !strings.HasPrefix(doc.MIME, "image/") {
			return c.Send("❌ **No image found**\n\n"+
				"Please send a chart screenshot as a photo or attach it as an image file.",
				tele.ModeMarkdown)
		}
		return handleImage(b, c, ingestor, chartAnalyzer, doc.File, extFromName(doc.FileName), doc.FileName)
	})

	log.Println("Telegram bot started")
	go b.Start()
	return b
}

func handleImage(b *tele.Bot, c tele.Context, ingestor ImageIngestor, chartAnalyzer ChartAnalyzer, file tele.File, ext, filename string) error {
	processing, err := b.Send(c.Recipient(), processingMessage, tele.ModeMarkdown)
	if err != nil {
		return err
	}

	ctx := context.Background()
	stored, err := ingestor.Ingest(ctx, &telegramFile{bot: b, file: file}, ext)
	if err != nil {
		log.Printf("image intake for user %d: %v", c.Sender().ID, err)
		_, err = b.Edit(processing, intakeReply(err), tele.ModeMarkdown)
		return err
	}

	result := chartAnalyzer.AnalyzeChart(ctx, stored, filename)
	log.Printf("chart analysis completed for user %d, success=%v", c.Sender().ID, result.Success)
	_, err = b.Edit(processing, analyzer.FormatMessage(result), tele.ModeMarkdown)
	return err
}

// telegramFile adapts a telebot file to the intake download contract.
type telegramFile struct {
	bot  *tele.Bot
	file tele.File
}

func (f *telegramFile) SizeBytes() int64 { return f.file.FileSize }

func (f *telegramFile) Open(ctx context.Context) (io.ReadCloser, error) {
	return f.bot.File(&f.file)
}

// extFromName guesses the stored extension from an original filename,
// defaulting to jpg.
func extFromName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "jpg"
	}
	return ext
}

// intakeReply turns an intake failure into an actionable user message.
func intakeReply(err error) string {
	var ie *domain.IntakeError
	if !errors.As(err, &ie) {
		return "❌ **Unexpected error**\n\nCould not process your image. Please try again."
	}
	switch ie.Kind {
	case domain.IntakeDownloadFailed, domain.IntakeNotFound:
		return "❌ **Download failed**\n\nCould not retrieve your image. Please try again."
	case domain.IntakeTooLarge:
		return fmt.Sprintf("❌ **Image too large!**\n\n%s", ie.Message)
	default:
		return fmt.Sprintf("❌ **Invalid image**\n\n%s\n\n"+
			"Please send a clear chart screenshot (PNG/JPG, ≤ 5 MB).", ie.Message)
	}
}
