package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Provider for the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. baseURL overrides the API
// endpoint and is only used against test servers.
func NewGeminiProvider(ctx context.Context, apiKey, baseURL string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Generate sends a generateContent request.
func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (resp *Response, err error) {
	model := req.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	ctx, span := tracer.Start(ctx, "gen_ai.generate",
		trace.WithAttributes(honeypototel.LLMRequestAttributes("gemini", model, req.Temperature, req.MaxTokens)...))
	defer span.End()

	start := time.Now()
	defer func() { RecordCallMetrics(ctx, "gemini", model, time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, TimeoutLLMCall)
	defer cancel()

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.TopP > 0 {
		config.TopP = genai.Ptr(float32(req.TopP))
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	out, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("gemini api call: %w", err)
	}
	text := out.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini api call: %w", ErrEmptyResponse)
	}

	r := &Response{Content: text, Model: model}
	if len(out.Candidates) > 0 {
		r.FinishReason = string(out.Candidates[0].FinishReason)
	}
	if u := out.UsageMetadata; u != nil {
		r.InputTokens = int(u.PromptTokenCount)
		r.OutputTokens = int(u.CandidatesTokenCount)
		span.SetAttributes(honeypototel.LLMUsageAttributes(r.InputTokens, r.OutputTokens)...)
	}
	return r, nil
}
