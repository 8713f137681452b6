package speech

import "context"

// MockTranscriber devuelve un texto fijo; util para tests del pipeline.
type MockTranscriber struct {
	Text string
	Err  error

	Calls        int
	LastFilename string
	LastAudio    []byte
}

func (m *MockTranscriber) Transcribe(_ context.Context, filename string, audio []byte) (string, error) {
	m.Calls++
	m.LastFilename = filename
	m.LastAudio = audio
	return m.Text, m.Err
}
