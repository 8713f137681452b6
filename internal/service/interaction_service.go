package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spendview/internal/domain"
	"spendview/internal/llm"
	"spendview/internal/media"
	"spendview/internal/repository"
	"spendview/internal/speech"
	"spendview/internal/storage"
)

var (
	ErrInteractionServiceNotConfigured = errors.New("interaction service not configured")

	ErrMissingInput          = errors.New("missing input - please provide text, audio, or image")
	ErrInvalidImage          = errors.New("failed to process image")
	ErrPayloadTooLarge       = errors.New("request payload too large")
	ErrTranscriptionDisabled = errors.New("audio transcription not configured")
	ErrTranscription         = errors.New("audio transcription failed")
	ErrEmptyTranscription    = errors.New("no speech detected in audio")
	ErrGeneration            = errors.New("could not generate an answer")
	ErrStorage               = errors.New("file upload failed")
	ErrPersistence           = errors.New("could not save interaction")
)

const cleanupTimeout = 5 * time.Second

// InteractionDeps agrupa los colaboradores del pipeline. Transcriber, Blobs, Repo y Transcoder
// son opcionales: nil desactiva la etapa correspondiente.
type InteractionDeps struct {
	Logger      *zap.Logger
	LLM         llm.LLMClient
	Transcriber speech.Transcriber
	Transcoder  media.AudioTranscoder
	Images      *media.ImageNormalizer
	Blobs       storage.BlobStore
	Repo        repository.InteractionRepository
}

// InteractionService ejecuta el flujo de POST /que: valida, normaliza, transcribe, sube archivos,
// consulta al modelo y persiste la interaccion.
type InteractionService struct {
	logger      *zap.Logger
	llm         llm.LLMClient
	transcriber speech.Transcriber
	transcoder  media.AudioTranscoder
	images      *media.ImageNormalizer
	blobs       storage.BlobStore
	repo        repository.InteractionRepository
	prompts     SpendViewPromptBuilder
	now         func() time.Time
}

func NewInteractionService(deps InteractionDeps) *InteractionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	images := deps.Images
	if images == nil {
		images = media.NewImageNormalizer(0, 0)
	}
	return &InteractionService{
		logger:      logger,
		llm:         deps.LLM,
		transcriber: deps.Transcriber,
		transcoder:  deps.Transcoder,
		images:      images,
		blobs:       deps.Blobs,
		repo:        deps.Repo,
		now:         time.Now,
	}
}

func (s *InteractionService) TranscriptionEnabled() bool { return s != nil && s.transcriber != nil }
func (s *InteractionService) StorageEnabled() bool       { return s != nil && s.blobs != nil }
func (s *InteractionService) PersistenceEnabled() bool   { return s != nil && s.repo != nil }

// Ask procesa una pregunta multimodal. Si falla despues de subir archivos, los borra (best effort).
func (s *InteractionService) Ask(ctx context.Context, in domain.AskInput) (domain.AskResult, error) {
	if s == nil || s.llm == nil {
		return domain.AskResult{}, ErrInteractionServiceNotConfigured
	}

	question := strings.TrimSpace(in.Question)
	hasImage := in.Image.Present()
	hasAudio := in.Audio.Present()
	if question == "" && !hasImage && !hasAudio {
		return domain.AskResult{}, ErrMissingInput
	}
	if hasAudio && s.transcriber == nil {
		return domain.AskResult{}, ErrTranscriptionDisabled
	}

	// La imagen se normaliza antes de cualquier efecto secundario.
	var img *media.NormalizedImage
	if hasImage {
		normalized, err := s.images.Normalize(in.Image.Data)
		if err != nil {
			s.logger.Warn("image normalization failed", zap.String("filename", in.Image.Filename), zap.Error(err))
			return domain.AskResult{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		img = &normalized
	}

	interaction := domain.Interaction{
		ID:        uuid.NewString(),
		SessionID: strings.TrimSpace(in.SessionID),
		Question:  question,
		UserAgent: in.UserAgent,
		ClientIP:  in.ClientIP,
	}

	var uploaded []string
	fail := func(err error) (domain.AskResult, error) {
		s.cleanup(ctx, uploaded)
		return domain.AskResult{}, err
	}

	var userInput string
	if hasAudio {
		ref, err := s.store(ctx, domain.BlobKindAudio, audioExtension(in.Audio), in.Audio.Data, audioContentType(in.Audio))
		if err != nil {
			return fail(err)
		}
		if ref.Key != "" {
			uploaded = append(uploaded, ref.Key)
			interaction.AudioKey = ref.Key
			interaction.AudioURL = ref.URL
		}

		transcript, err := s.transcribe(ctx, in.Audio)
		if err != nil {
			return fail(err)
		}
		interaction.Transcription = transcript
		userInput = transcript
	}

	userInput = combineInput(userInput, question)
	if userInput == "" && img == nil {
		return fail(ErrEmptyTranscription)
	}
	interaction.UserInput = userInput

	var attachment *llm.Image
	if img != nil {
		ref, err := s.store(ctx, domain.BlobKindImage, "jpg", img.Data, img.ContentType())
		if err != nil {
			return fail(err)
		}
		if ref.Key != "" {
			uploaded = append(uploaded, ref.Key)
			interaction.ImageKey = ref.Key
			interaction.ImageURL = ref.URL
		}
		attachment = &llm.Image{MIMEType: img.ContentType(), Data: img.Data}
	}

	prompt := s.prompts.BuildPrompt(userInput, img != nil)
	raw, err := s.llm.Generate(ctx, prompt, attachment)
	if err != nil {
		s.logger.Error("llm generate failed", zap.String("session_id", interaction.SessionID), zap.Error(err))
		return fail(fmt.Errorf("%w: %v", ErrGeneration, err))
	}
	answer := cleanAnswer(raw)
	if answer == "" {
		s.logger.Warn("llm returned empty answer", zap.String("session_id", interaction.SessionID))
		return fail(fmt.Errorf("%w: empty answer", ErrGeneration))
	}
	interaction.Answer = answer
	interaction.CreatedAt = s.now().UTC()

	persisted := false
	if s.repo != nil {
		if err := s.repo.Create(ctx, interaction); err != nil {
			s.logger.Error("persist interaction failed", zap.String("interaction_id", interaction.ID), zap.Error(err))
			return fail(fmt.Errorf("%w: %v", ErrPersistence, err))
		}
		persisted = true
	}

	s.logger.Info("interaction completed",
		zap.String("interaction_id", interaction.ID),
		zap.String("session_id", interaction.SessionID),
		zap.String("input_kind", in.InputKind()),
		zap.Bool("persisted", persisted),
	)
	return domain.AskResult{
		Interaction:   interaction,
		Transcription: interaction.Transcription,
		Persisted:     persisted,
	}, nil
}

// store sube el archivo si hay blob store; sin store devuelve un BlobRef vacio.
func (s *InteractionService) store(ctx context.Context, kind domain.BlobKind, ext string, data []byte, contentType string) (domain.BlobRef, error) {
	if s.blobs == nil {
		return domain.BlobRef{}, nil
	}
	key := storage.NewKey(kind, ext)
	ref, err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		s.logger.Error("blob upload failed", zap.String("key", key), zap.Error(err))
		return domain.BlobRef{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return ref, nil
}

func (s *InteractionService) transcribe(ctx context.Context, audio *domain.Upload) (string, error) {
	data := audio.Data
	filename := "audio." + audioExtension(audio)
	if s.transcoder != nil {
		wav, err := s.transcoder.Transcode(ctx, data, audioExtension(audio))
		if err != nil {
			s.logger.Error("audio transcode failed", zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrTranscription, err)
		}
		data = wav
		filename = "audio.wav"
	}

	text, err := s.transcriber.Transcribe(ctx, filename, data)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyAudio) {
			return "", ErrEmptyTranscription
		}
		s.logger.Error("transcription failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	return strings.TrimSpace(text), nil
}

func (s *InteractionService) cleanup(ctx context.Context, keys []string) {
	if s.blobs == nil || len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("blob cleanup failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// combineInput une transcript y texto escrito como "<transcript>. <question>".
func combineInput(transcript, question string) string {
	transcript = strings.TrimSpace(transcript)
	switch {
	case transcript == "":
		return question
	case question == "":
		return transcript
	default:
		return strings.TrimRight(transcript, ". ") + ". " + question
	}
}

func audioExtension(audio *domain.Upload) string {
	if ext := audio.Extension(); ext != "" {
		return ext
	}
	if audio != nil && audio.ContentType != "" {
		if exts, _ := mime.ExtensionsByType(audio.ContentType); len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}
	return "webm"
}

func audioContentType(audio *domain.Upload) string {
	if audio != nil && audio.ContentType != "" && audio.ContentType != "application/octet-stream" {
		return audio.ContentType
	}
	if ct := mime.TypeByExtension("." + audioExtension(audio)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
