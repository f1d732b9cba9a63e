package naming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client *genai.Client
	usage  Usage
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *GeminiProvider) SuggestLabel(ctx context.Context, coverJPEG []byte, faceCount int) (*Suggestion, error) {
	const maxRetries = 3

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(faceCount) + "\n\nLabel this person."},
				{InlineData: &genai.Blob{Data: coverJPEG, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		if result.UsageMetadata != nil {
			p.usage.InputTokens += int(result.UsageMetadata.PromptTokenCount)
			p.usage.OutputTokens += int(result.UsageMetadata.CandidatesTokenCount)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		var suggestion Suggestion
		if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", err)}},
				},
			)
			continue
		}

		return &suggestion, nil
	}

	return nil, fmt.Errorf("failed to parse suggestion JSON after %d attempts: %w (last response: %s)",
		maxRetries, lastError, lastResponse)
}
