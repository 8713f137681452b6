package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber convierte audio hablado en texto.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

var ErrEmptyAudio = errors.New("empty audio payload")

// WhisperClient usa el endpoint /audio/transcriptions de una API compatible con OpenAI.
type WhisperClient struct {
	client   *openai.Client
	model    string
	language string
	timeout  time.Duration
}

func NewWhisperClient(baseURL, apiKey, model, language string, timeout time.Duration) *WhisperClient {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
		timeout:  timeout,
	}
}

func (c *WhisperClient) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if strings.TrimSpace(filename) == "" {
		filename = "audio.wav"
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: c.language,
	})
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
