package domain

import "time"

// Interaction es un intercambio completo: lo que el usuario envio y lo que respondio el modelo.
// Se crea una vez por request y nunca se actualiza.
type Interaction struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	UserInput     string    `json:"user_input"`
	Question      string    `json:"question,omitempty"`
	Transcription string    `json:"audio_transcription,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	ImageKey      string    `json:"image_key,omitempty"`
	AudioURL      string    `json:"audio_url,omitempty"`
	AudioKey      string    `json:"audio_key,omitempty"`
	Answer        string    `json:"ai_response"`
	UserAgent     string    `json:"user_agent,omitempty"`
	ClientIP      string    `json:"client_ip,omitempty"`
	CreatedAt     time.Time `json:"timestamp"`
}

func (i Interaction) HasImage() bool {
	return i.ImageURL != "" || i.ImageKey != ""
}

func (i Interaction) HasAudio() bool {
	return i.AudioURL != "" || i.AudioKey != "" || i.Transcription != ""
}
