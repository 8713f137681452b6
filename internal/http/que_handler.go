package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendview/internal/domain"
	"spendview/internal/metrics"
	"spendview/internal/service"
)

const (
	imageField    = "bill"
	audioField    = "audio"
	questionField = "question"

	multipartMemory = 8 << 20
)

// QueHandler atiende POST /que.
type QueHandler struct {
	logger         *zap.Logger
	interactions   *service.InteractionService
	limiter        service.RateLimiter
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

func NewQueHandler(
	logger *zap.Logger,
	interactions *service.InteractionService,
	limiter service.RateLimiter,
	m *metrics.Metrics,
	maxUploadBytes int64,
) *QueHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &QueHandler{
		logger:         logger,
		interactions:   interactions,
		limiter:        limiter,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
	}
}

// Ask maneja POST /que.
func (h *QueHandler) Ask(c *gin.Context) {
	session, _ := GetSession(c)
	if h.limiter != nil && !h.limiter.Allow(c.Request.Context(), session.ID) {
		h.metrics.ObserveRateLimited()
		h.logger.Warn("rate limited", zap.String("session_id", session.ID))
		respondError(c, service.ErrRateLimited)
		return
	}

	input, err := h.readInput(c)
	if err != nil {
		h.logger.Warn("invalid que request", zap.Error(err))
		_, _, label := classifyError(err)
		h.metrics.ObserveInteraction("none", label)
		respondError(c, err)
		return
	}
	input.SessionID = session.ID
	input.UserAgent = c.Request.UserAgent()
	input.ClientIP = c.ClientIP()
	kind := input.InputKind()

	result, err := h.interactions.Ask(c.Request.Context(), input)
	if err != nil {
		status, _, label := classifyError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("que failed", zap.String("input_kind", kind), zap.Int("status", status), zap.Error(err))
		} else {
			h.logger.Info("que rejected", zap.String("input_kind", kind), zap.Int("status", status), zap.Error(err))
		}
		h.metrics.ObserveInteraction(kind, label)
		respondError(c, err)
		return
	}
	h.metrics.ObserveInteraction(kind, "ok")

	ts := result.Interaction.CreatedAt
	c.JSON(http.StatusOK, queResponse{
		Success:       true,
		Answer:        result.Interaction.Answer,
		Transcription: result.Transcription,
		ImageURL:      result.Interaction.ImageURL,
		AudioURL:      result.Interaction.AudioURL,
		Timestamp:     &ts,
		SessionID:     result.Interaction.SessionID,
	})
}

// readInput parsea el form (multipart o urlencoded) con el limite de tamano aplicado al body completo.
func (h *QueHandler) readInput(c *gin.Context) (domain.AskInput, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return domain.AskInput{}, formError(err)
		}
		if err := c.Request.ParseForm(); err != nil {
			return domain.AskInput{}, formError(err)
		}
	}
	if form := c.Request.MultipartForm; form != nil {
		defer func() { _ = form.RemoveAll() }()
	}

	image, err := readUpload(c.Request.MultipartForm, imageField)
	if err != nil {
		return domain.AskInput{}, formError(err)
	}
	audio, err := readUpload(c.Request.MultipartForm, audioField)
	if err != nil {
		return domain.AskInput{}, formError(err)
	}
	return domain.AskInput{
		Question: c.Request.PostFormValue(questionField),
		Image:    image,
		Audio:    audio,
	}, nil
}

func readUpload(form *multipart.Form, field string) (*domain.Upload, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, nil
	}
	fh := form.File[field][0]
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &domain.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return fmt.Errorf("%w: %v", service.ErrPayloadTooLarge, err)
	}
	return fmt.Errorf("%w: %v", errInvalidForm, err)
}
