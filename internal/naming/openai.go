package naming

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatModel = openai.ChatModelGPT4_1Mini

type OpenAIProvider struct {
	client *openai.Client
	usage  Usage
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

func (p *OpenAIProvider) Name() string {
	return chatModel
}

func (p *OpenAIProvider) GetUsage() *Usage {
	return &p.usage
}

func (p *OpenAIProvider) SuggestLabel(ctx context.Context, coverJPEG []byte, faceCount int) (*Suggestion, error) {
	const maxRetries = 3

	systemPrompt := buildPrompt(faceCount)
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(coverJPEG)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(systemPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart("Label this person."),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    chatModel,
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(200),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		p.usage.InputTokens += int(resp.Usage.PromptTokens)
		p.usage.OutputTokens += int(resp.Usage.CompletionTokens)

		content := resp.Choices[0].Message.Content
		lastResponse = content

		var suggestion Suggestion
		if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
			lastError = err
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", err)),
						},
					},
				},
			)
			continue
		}

		return &suggestion, nil
	}

	return nil, fmt.Errorf("failed to parse suggestion JSON after %d attempts: %w (last response: %s)",
		maxRetries, lastError, lastResponse)
}
