package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel/trace"

	"chartlens/internal/domain"
)

const (
	maxAttempts    = 3
	attemptTimeout = 30 * time.Second
)

// RawResponse carries the model's unparsed reply plus usage metadata.
type RawResponse struct {
	Content string
	Usage   *domain.TokenUsage
}

// VisionCompleter invokes the vision model once; retries live in the caller.
type VisionCompleter interface {
	Complete(ctx context.Context, req *Request) (*RawResponse, error)
}

// OpenAIClient implements VisionCompleter against the OpenAI chat API.
type OpenAIClient struct {
	client openai.Client
	tracer trace.Tracer
}

func NewOpenAIClient(tracer trace.Tracer, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		tracer: tracer,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*RawResponse, error) {
	ctx, span := c.tracer.Start(ctx, "analyzer.Complete")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		MaxTokens:   openai.Int(req.MaxTokens),
		Temperature: openai.Float(req.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(req.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL:    req.ImageDataURL,
					Detail: "high",
				}),
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return &RawResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: &domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// invokeWithRetry calls the completer with exponential back-off. The final
// attempt's error propagates wrapped in *domain.AnalysisError.
func invokeWithRetry(ctx context.Context, completer VisionCompleter, req *Request, sleep func(time.Duration)) (*RawResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		log.Printf("calling vision model (attempt %d)", attempt+1)
		resp, err := completer.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Printf("vision model attempt %d failed: %v", attempt+1, err)
		if attempt < maxAttempts-1 {
			sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return nil, &domain.AnalysisError{Attempts: maxAttempts, Err: lastErr}
}
