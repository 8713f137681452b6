package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Image es el adjunto opcional de una generacion multimodal.
type Image struct {
	MIMEType string
	Data     []byte
}

// LLMClient define la interfaz para generar respuestas con un LLM (texto y, opcionalmente, una imagen).
type LLMClient interface {
	Generate(ctx context.Context, prompt string, image *Image) (string, error)
}

var ErrEmptyResponse = errors.New("llm empty response")

type logger interface {
	Printf(format string, v ...interface{})
}

// OpenAIClient implementa LLMClient contra cualquier API compatible con chat completions
// (OpenAI, Gemini via su endpoint OpenAI, Ollama, OpenRouter).
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  logger
}

// NewOpenAIClient construye el cliente. baseURL vacio usa el default de OpenAI.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration, log any) *OpenAIClient {
	l, _ := log.(logger)
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		logger:  l,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, image *Image) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessage{buildUserMessage(prompt, image)},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && c.logger != nil {
			c.logger.Printf("llm error status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func buildUserMessage(prompt string, image *Image) openai.ChatCompletionMessage {
	if image == nil || len(image.Data) == 0 {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}
	}

	mimeType := image.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image.Data)),
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	}
}
