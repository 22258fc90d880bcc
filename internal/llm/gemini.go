package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider backs one Provider entry in the fallback chain with
// Google's Gemini API, usable as one interchangeable provider among
// several rather than a single hardwired client.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini-backed provider. model defaults to
// "gemini-2.5-flash-lite" when empty.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini:" + p.model }

func (p *GeminiProvider) extractSystemInstruction(messages []Message) (string, []Message) {
	var systemInstruction string
	var remaining []Message
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemInstruction != "" {
				systemInstruction += "\n\n"
			}
			systemInstruction += msg.Content
		} else {
			remaining = append(remaining, msg)
		}
	}
	return systemInstruction, remaining
}

func (p *GeminiProvider) convertMessages(messages []Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}
	return contents
}

func (p *GeminiProvider) buildConfig(systemInstruction string, opts CompletionOptions) *genai.GenerateContentConfig {
	if systemInstruction == "" && opts.MaxOutputTokens == 0 && opts.Temperature == 0 {
		return nil
	}
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(systemInstruction)},
		}
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		cfg.Temperature = &t
	}
	return cfg
}

func (p *GeminiProvider) completeRaw(ctx context.Context, messages []Message, opts CompletionOptions) (Completion, error) {
	systemInstruction, conversation := p.extractSystemInstruction(messages)
	contents := p.convertMessages(conversation)
	config := p.buildConfig(systemInstruction, opts)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return Completion{}, classifyProviderErr(p.Name(), fmt.Errorf("gemini (model: %s) request failed: %w", p.model, err))
	}

	c := Completion{Text: resp.Text(), StopReason: StopNormal}
	if len(resp.Candidates) > 0 && string(resp.Candidates[0].FinishReason) == "SAFETY" {
		c.StopReason = StopSafety
	}
	if refusal := DetectRefusal(p.Name(), c); refusal != nil {
		return c, refusal
	}
	return c, nil
}

func (p *GeminiProvider) Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	c, err := p.completeRaw(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	return p.Chat(ctx, []Message{{Role: "user", Content: prompt}}, opts)
}

func (p *GeminiProvider) Stream(ctx context.Context, prompt string, opts CompletionOptions, cb StreamCallback) (string, error) {
	systemInstruction, conversation := p.extractSystemInstruction([]Message{{Role: "user", Content: prompt}})
	contents := p.convertMessages(conversation)
	config := p.buildConfig(systemInstruction, opts)

	var full string
	for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
		if err != nil {
			if full != "" {
				return full, fmt.Errorf("streaming interrupted: %w", err)
			}
			return "", classifyProviderErr(p.Name(), fmt.Errorf("gemini streaming failed: %w", err))
		}
		chunk := resp.Text()
		if chunk != "" {
			full += chunk
			if cb != nil {
				cb(chunk)
			}
		}
	}
	return full, nil
}
