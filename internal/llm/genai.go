package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// GenAIClient talks to Gemini through the official Google Gen AI SDK.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient builds an SDK-backed client for the Gemini API backend.
// An empty baseURL keeps the SDK default.
func NewGenAIClient(ctx context.Context, apiKey, model, baseURL string) (*GenAIClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenAIClient{client: client, model: model}, nil
}

// Complete sends the transcript through Models.GenerateContent.
func (g *GenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role != RoleUser {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	res, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, g.mapError(err)
	}

	out := &CompletionResponse{
		Content:  res.Text(),
		Model:    model,
		Duration: time.Since(start),
	}
	if len(res.Candidates) > 0 && res.Candidates[0] != nil {
		out.StopReason = string(res.Candidates[0].FinishReason)
	}
	if res.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(res.UsageMetadata.PromptTokenCount),
			OutputTokens: int(res.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// Name returns the provider name.
func (g *GenAIClient) Name() string {
	return "genai"
}

func (g *GenAIClient) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{Provider: g.Name(), Status: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &UpstreamError{Provider: g.Name(), Status: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return transportFailure(g.Name(), "generate content", err)
}
