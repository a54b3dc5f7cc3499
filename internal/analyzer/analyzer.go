// Package analyzer runs the chart-analysis pipeline: market-context
// enrichment, prompt construction, the vision-model call with retry, and
// normalization of the structured reply.
package analyzer

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"chartlens/internal/domain"
)

// ContextEnricher supplies the optional market snapshot for an upload.
type ContextEnricher interface {
	Enrich(ctx context.Context, filename string) *domain.MarketSnapshot
}

// Analyzer orchestrates one analysis per stored image. enricher and
// completer may be nil: no enricher means no market context, no completer
// means demo mode.
type Analyzer struct {
	tracer      trace.Tracer
	enricher    ContextEnricher
	completer   VisionCompleter
	model       string
	maxTokens   int64
	temperature float64

	sleep func(time.Duration)
	now   func() time.Time
}

func New(tracer trace.Tracer, enricher ContextEnricher, completer VisionCompleter, model string, maxTokens int64, temperature float64) *Analyzer {
	return &Analyzer{
		tracer:      tracer,
		enricher:    enricher,
		completer:   completer,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// AnalyzeChart runs the full pipeline for a stored image. filename is the
// platform-reported original name, empty when the platform supplied none.
// It never returns an error: every failure becomes a success=false result.
func (a *Analyzer) AnalyzeChart(ctx context.Context, stored *domain.StoredImage, filename string) *domain.AnalysisResult {
	ctx, span := a.tracer.Start(ctx, "analyzer.AnalyzeChart")
	defer span.End()

	start := a.now()

	if a.completer == nil {
		log.Println("no model credentials configured, returning demo analysis")
		return DemoResult(a.now())
	}

	var snapshot *domain.MarketSnapshot
	if a.enricher != nil {
		snapshot = a.enricher.Enrich(ctx, filename)
	}

	req, err := BuildRequest(stored, snapshot, a.model, a.maxTokens, a.temperature)
	if err != nil {
		log.Printf("prepare analysis request: %v", err)
		return ErrorResult("Failed to prepare image", a.now().Sub(start).Seconds(), a.now())
	}

	raw, err := invokeWithRetry(ctx, a.completer, req, a.sleep)
	if err != nil {
		log.Printf("chart analysis failed: %v", err)
		return ErrorResult(err.Error(), a.now().Sub(start).Seconds(), a.now())
	}

	result := Normalize(raw.Content, raw.Usage, a.now())
	result.ProcessingTime = a.now().Sub(start).Seconds()
	log.Printf("chart analysis completed in %.2fs", result.ProcessingTime)
	return result
}
