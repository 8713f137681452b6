package domain

import "strings"

// Upload es un archivo recibido en el form, ya leido a memoria.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) Present() bool {
	return u != nil && len(u.Data) > 0
}

// Extension devuelve la extension del nombre original en minusculas, sin el punto.
func (u *Upload) Extension() string {
	if u == nil {
		return ""
	}
	idx := strings.LastIndexByte(u.Filename, '.')
	if idx < 0 || idx == len(u.Filename)-1 {
		return ""
	}
	return strings.ToLower(u.Filename[idx+1:])
}

// AskInput es lo que llega a POST /que: cualquier subconjunto de imagen, audio y texto.
type AskInput struct {
	SessionID string
	Question  string
	Image     *Upload
	Audio     *Upload
	UserAgent string
	ClientIP  string
}

// InputKind resume que combinacion de entradas trae el request (para logs y metricas).
func (in AskInput) InputKind() string {
	var parts []string
	if in.Image.Present() {
		parts = append(parts, "image")
	}
	if in.Audio.Present() {
		parts = append(parts, "audio")
	}
	if strings.TrimSpace(in.Question) != "" {
		parts = append(parts, "text")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// AskResult es la salida del pipeline, antes de convertirse en el envelope JSON.
type AskResult struct {
	Interaction   Interaction
	Transcription string
	Persisted     bool
}
