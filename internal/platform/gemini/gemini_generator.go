package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/remvault/remvault/internal/config"
	"github.com/remvault/remvault/internal/domain"
	"github.com/remvault/remvault/internal/generation"
	"google.golang.org/genai"
)

//go:embed prompt.tmpl
var promptTemplateText string

// baseRetryDelay is the backoff base for transient API failures.
const baseRetryDelay = 2 * time.Second

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API to distill rem drafts from chat transcripts.
type GeminiGenerator struct {
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// promptTemplate wraps transcripts in the distillation prompt
	promptTemplate *template.Template

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// Verify interface compliance at compile time
var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a new GeminiGenerator with the provided
// configuration. Returns an error if the configuration is invalid or the
// Gemini client cannot be initialized.
func NewGeminiGenerator(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.LLMConfig,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	promptTemplate, err := template.New("distillation").Parse(promptTemplateText)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &GeminiGenerator{
		logger:         logger.With("component", "gemini_generator"),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// DistillRems extracts rem drafts from the given chat transcript.
func (g *GeminiGenerator) DistillRems(
	ctx context.Context,
	transcript string,
	userID uuid.UUID,
) ([]*domain.Rem, error) {
	if userID == uuid.Nil {
		return nil, errors.New("user ID cannot be empty")
	}

	prompt, err := g.buildPrompt(ctx, transcript)
	if err != nil {
		return nil, err
	}

	response, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return g.remsFromResponse(ctx, response, userID)
}

// buildPrompt wraps the transcript in the distillation prompt template.
func (g *GeminiGenerator) buildPrompt(ctx context.Context, transcript string) (string, error) {
	if transcript == "" {
		return "", ErrEmptyTranscript
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, promptData{Transcript: transcript}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	g.logger.DebugContext(ctx, "distillation prompt built",
		"transcript_length", len(transcript),
		"prompt_length", buf.Len())

	return buf.String(), nil
}

// callGeminiWithRetry calls the Gemini API with exponential backoff for
// transient failures. Permanent errors, such as content blocked by safety
// filters or a reply that is not valid JSON, are returned without retrying.
func (g *GeminiGenerator) callGeminiWithRetry(
	ctx context.Context,
	prompt string,
) (*distillationResponse, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	generateConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"model", g.model)

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), generateConfig)
		if err == nil {
			response, parseErr := parseResponse(resp)
			if parseErr == nil {
				g.logger.InfoContext(ctx, "Gemini API call successful",
					"attempt", attempt+1,
					"rem_count", len(response.Rems))
				return response, nil
			}
			// Parse failures are permanent: retrying the same prompt
			// against a model that already answered is wasted quota.
			g.logger.ErrorContext(ctx, "Gemini response rejected",
				"error", parseErr,
				"attempt", attempt+1)
			return nil, parseErr
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"error", err,
			"attempt", attempt+1)

		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		// delay = base * 2^attempt * jitter in [0.5, 1.0)
		backoff := float64(baseRetryDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5))

		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attempt+1,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// parseResponse validates the raw API response and decodes its JSON body.
func parseResponse(resp *genai.GenerateContentResponse) (*distillationResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: transcript rejected by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	var response distillationResponse
	if err := json.Unmarshal([]byte(text), &response); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	return &response, nil
}

// remsFromResponse converts decoded rem drafts into domain objects. Drafts
// the model got wrong, such as malformed slugs, are skipped rather than
// failing the batch; the caller records partial results as
// completed_with_errors. An empty batch is a valid outcome: some transcripts
// hold no durable knowledge.
func (g *GeminiGenerator) remsFromResponse(
	ctx context.Context,
	response *distillationResponse,
	userID uuid.UUID,
) ([]*domain.Rem, error) {
	if response == nil {
		return nil, fmt.Errorf("%w: response is nil", generation.ErrInvalidResponse)
	}

	rems := make([]*domain.Rem, 0, len(response.Rems))
	skipped := 0
	for i, draft := range response.Rems {
		rem, err := domain.NewRem(userID, draft.Slug, draft.Title, draft.Body)
		if err != nil {
			g.logger.WarnContext(ctx, "skipping invalid rem draft",
				"error", err,
				"index", i,
				"slug", draft.Slug)
			skipped++
			continue
		}

		rem.Tags = draft.Tags
		rem.Related = draft.Related
		rem.Source = "chat"
		rems = append(rems, rem)
	}

	if len(rems) == 0 && skipped > 0 {
		return nil, fmt.Errorf("%w: all %d rem drafts were invalid",
			generation.ErrInvalidResponse, skipped)
	}

	g.logger.InfoContext(ctx, "distilled rems from transcript",
		"user_id", userID,
		"created", len(rems),
		"skipped", skipped)

	return rems, nil
}
