package http

import (
	"errors"
	"net/http"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"spendview/internal/service"
)

var errInvalidForm = errors.New("invalid form data")

// queResponse es el envelope JSON de POST /que.
type queResponse struct {
	Success       bool       `json:"success"`
	Answer        string     `json:"answer,omitempty"`
	Error         string     `json:"error,omitempty"`
	Transcription string     `json:"transcription,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	AudioURL      string     `json:"audio_url,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	SessionID     string     `json:"session_id,omitempty"`
}

type errorKind struct {
	err    error
	status int
	label  string
}

// errorKinds mapea cada error del pipeline a su status HTTP y a la etiqueta de metricas.
var errorKinds = []errorKind{
	{service.ErrMissingInput, http.StatusBadRequest, "missing_input"},
	{service.ErrInvalidImage, http.StatusBadRequest, "invalid_image"},
	{service.ErrEmptyTranscription, http.StatusBadRequest, "empty_transcription"},
	{service.ErrMissingSession, http.StatusBadRequest, "missing_session"},
	{errInvalidForm, http.StatusBadRequest, "invalid_form"},
	{service.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "too_large"},
	{service.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{service.ErrTranscription, http.StatusBadGateway, "transcription_failed"},
	{service.ErrGeneration, http.StatusBadGateway, "generation_failed"},
	{service.ErrTranscriptionDisabled, http.StatusServiceUnavailable, "transcription_disabled"},
	{service.ErrHistoryDisabled, http.StatusServiceUnavailable, "history_disabled"},
	{service.ErrStorage, http.StatusInternalServerError, "storage_failed"},
	{service.ErrPersistence, http.StatusInternalServerError, "persistence_failed"},
}

// classifyError devuelve status, mensaje publico y etiqueta. El detalle interno nunca sale en el mensaje.
func classifyError(err error) (int, string, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, publicMessage(k.err), k.label
		}
	}
	return http.StatusInternalServerError, "Internal server error", "internal_error"
}

func publicMessage(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

func respondError(c *gin.Context, err error) {
	status, msg, _ := classifyError(err)
	c.JSON(status, queResponse{Success: false, Error: msg})
}
