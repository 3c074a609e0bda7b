package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

const SystemPrompt = `You are a waste segregation assistant for a municipal corporation.
Look at the image and classify the main item of waste.

RESPONSE FORMAT:
You must respond with a valid JSON object in this exact format:
{
  "category": "organic | recyclable | solid | unknown",
  "sub_types": ["short item names, most prominent first"],
  "confidence": 0.0
}

RULES:
1. organic is food, garden or other biodegradable waste
2. recyclable is clean plastic, paper, cardboard, glass or metal
3. solid is other non-biodegradable waste
4. Use unknown when the image does not show waste
5. confidence is a number between 0 and 1`

const userPrompt = "Classify the waste in this image."

// chatCompleter is the subset of the OpenAI chat completions service we use
type chatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIClassifier classifies images with a vision-capable chat model
type OpenAIClassifier struct {
	completions chatCompleter
	model       string
}

func NewOpenAIClassifier(apiKey, model string) *OpenAIClassifier {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClassifier{
		completions: &client.Chat.Completions,
		model:       model,
	}
}

func (o *OpenAIClassifier) Classify(ctx context.Context, image models.Image) (*models.WasteAnalysisResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(userPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(image),
				}),
			}),
		},
		Temperature: openai.Float(0),
	}

	resp, err := o.completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai classify request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrInvalidResult)
	}

	return parseResult(resp.Choices[0].Message.Content)
}

func dataURL(image models.Image) string {
	return "data:" + image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)
}
