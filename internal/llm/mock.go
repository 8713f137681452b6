package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Err      error

	Calls      int
	LastPrompt string
	LastImage  *Image
}

func (m *MockClient) Generate(ctx context.Context, prompt string, image *Image) (string, error) {
	m.Calls++
	m.LastPrompt = prompt
	m.LastImage = image
	return m.Response, m.Err
}
