package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"

	"spendview/internal/domain"
	"spendview/internal/llm"
	"spendview/internal/media"
	"spendview/internal/speech"
)

type fakeBlobStore struct {
	puts    []string
	types   map[string]string
	deleted []string
	putErr  error
}

func (f *fakeBlobStore) Put(_ context.Context, key string, reader io.Reader, size int64, contentType string) (domain.BlobRef, error) {
	if f.putErr != nil {
		return domain.BlobRef{}, f.putErr
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return domain.BlobRef{}, err
	}
	if f.types == nil {
		f.types = map[string]string{}
	}
	f.puts = append(f.puts, key)
	f.types[key] = contentType
	return domain.BlobRef{Key: key, URL: f.URL(key), ContentType: contentType, Size: size}, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobStore) URL(key string) string { return "https://files.test/" + key }

type fakeInteractionRepo struct {
	created   []domain.Interaction
	createErr error
	listErr   error
	lastLimit int
}

func (f *fakeInteractionRepo) Create(_ context.Context, interaction domain.Interaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, interaction)
	return nil
}

func (f *fakeInteractionRepo) ListRecentBySession(_ context.Context, sessionID string, limit int) ([]domain.Interaction, error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Interaction
	for i := len(f.created) - 1; i >= 0 && len(out) < limit; i-- {
		if f.created[i].SessionID == sessionID {
			out = append(out, f.created[i])
		}
	}
	return out, nil
}

type fakeTranscoder struct {
	calls int
	err   error
}

func (f *fakeTranscoder) Transcode(_ context.Context, data []byte, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("RIFF"), data...), nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 128})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestInteractionService(gen *llm.MockClient, stt *speech.MockTranscriber, blobs *fakeBlobStore, repo *fakeInteractionRepo) *InteractionService {
	deps := InteractionDeps{
		Logger: zap.NewNop(),
		LLM:    gen,
		Images: media.NewImageNormalizer(64, 85),
	}
	if stt != nil {
		deps.Transcriber = stt
	}
	if blobs != nil {
		deps.Blobs = blobs
	}
	if repo != nil {
		deps.Repo = repo
	}
	return NewInteractionService(deps)
}

func TestInteractionServiceAsk_TextOnly(t *testing.T) {
	gen := &llm.MockClient{Response: "  You spent $12.  "}
	repo := &fakeInteractionRepo{}
	svc := newTestInteractionService(gen, nil, nil, repo)

	res, err := svc.Ask(context.Background(), domain.AskInput{SessionID: " s1 ", Question: "  hello  "})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Interaction.Answer != "You spent $12." {
		t.Fatalf("unexpected answer %q", res.Interaction.Answer)
	}
	if res.Interaction.UserInput != "hello" || res.Interaction.SessionID != "s1" {
		t.Fatalf("expected trimmed input and session, got %+v", res.Interaction)
	}
	if gen.LastImage != nil {
		t.Fatalf("expected no image sent to llm")
	}
	if !strings.Contains(gen.LastPrompt, "hello") {
		t.Fatalf("expected prompt to embed question, got %q", gen.LastPrompt)
	}
	if !res.Persisted || len(repo.created) != 1 {
		t.Fatalf("expected interaction persisted")
	}
	if res.Interaction.CreatedAt.IsZero() || res.Interaction.ID == "" {
		t.Fatalf("expected id and timestamp")
	}
}

func TestInteractionServiceAsk_MissingInputHasNoSideEffects(t *testing.T) {
	gen := &llm.MockClient{Response: "x"}
	stt := &speech.MockTranscriber{Text: "x"}
	blobs := &fakeBlobStore{}
	repo := &fakeInteractionRepo{}
	svc := newTestInteractionService(gen, stt, blobs, repo)

	_, err := svc.Ask(context.Background(), domain.AskInput{
		Question: "   ",
		Image:    &domain.Upload{Filename: "a.png"},
		Audio:    &domain.Upload{Filename: "a.webm", Data: []byte{}},
	})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if gen.Calls != 0 || stt.Calls != 0 || len(blobs.puts) != 0 || len(repo.created) != 0 {
		t.Fatalf("expected no collaborator calls")
	}
}

func TestInteractionServiceAsk_AudioOnly(t *testing.T) {
	gen := &llm.MockClient{Response: "answer"}
	stt := &speech.MockTranscriber{Text: " how much did I spend on food? "}
	blobs := &fakeBlobStore{}
	svc := newTestInteractionService(gen, stt, blobs, nil)

	res, err := svc.Ask(context.Background(), domain.AskInput{
		Audio: &domain.Upload{Filename: "clip.WEBM", ContentType: "audio/webm", Data: []byte("fake-audio")},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Transcription != "how much did I spend on food?" {
		t.Fatalf("unexpected transcription %q", res.Transcription)
	}
	if !strings.Contains(gen.LastPrompt, "how much did I spend on food?") {
		t.Fatalf("expected transcript in prompt")
	}
	if stt.LastFilename != "audio.webm" {
		t.Fatalf("unexpected filename sent to transcriber %q", stt.LastFilename)
	}
	if len(blobs.puts) != 1 || !strings.HasPrefix(blobs.puts[0], "uploads/audio/") || !strings.HasSuffix(blobs.puts[0], ".webm") {
		t.Fatalf("unexpected audio upload %+v", blobs.puts)
	}
	if res.Interaction.AudioURL == "" {
		t.Fatalf("expected audio url")
	}
	if res.Persisted {
		t.Fatalf("expected no persistence without repo")
	}
}

func TestInteractionServiceAsk_AudioAndQuestionCombined(t *testing.T) {
	gen := &llm.MockClient{Response: "answer"}
	stt := &speech.MockTranscriber{Text: "I bought coffee."}
	svc := newTestInteractionService(gen, stt, nil, nil)

	res, err := svc.Ask(context.Background(), domain.AskInput{
		Question: "is that a lot?",
		Audio:    &domain.Upload{Filename: "a.mp3", Data: []byte("x")},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Interaction.UserInput != "I bought coffee. is that a lot?" {
		t.Fatalf("unexpected combined input %q", res.Interaction.UserInput)
	}
}

func TestInteractionServiceAsk_AudioTranscoded(t *testing.T) {
	gen := &llm.MockClient{Response: "answer"}
	stt := &speech.MockTranscriber{Text: "hi"}
	tc := &fakeTranscoder{}
	svc := NewInteractionService(InteractionDeps{LLM: gen, Transcriber: stt, Transcoder: tc})

	if _, err := svc.Ask(context.Background(), domain.AskInput{Audio: &domain.Upload{Filename: "a.ogg", Data: []byte("x")}}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tc.calls != 1 || stt.LastFilename != "audio.wav" || !bytes.HasPrefix(stt.LastAudio, []byte("RIFF")) {
		t.Fatalf("expected transcoded wav to reach transcriber, got %q", stt.LastFilename)
	}
}

func TestInteractionServiceAsk_AudioWithoutTranscriber(t *testing.T) {
	gen := &llm.MockClient{Response: "answer"}
	svc := newTestInteractionService(gen, nil, nil, nil)

	_, err := svc.Ask(context.Background(), domain.AskInput{Audio: &domain.Upload{Filename: "a.webm", Data: []byte("x")}})
	if !errors.Is(err, ErrTranscriptionDisabled) {
		t.Fatalf("expected ErrTranscriptionDisabled, got %v", err)
	}
	if gen.Calls != 0 {
		t.Fatalf("expected llm not called")
	}
}

func TestInteractionServiceAsk_EmptyTranscript(t *testing.T) {
	gen := &llm.MockClient{Response: "answer"}
	stt := &speech.MockTranscriber{Text: "   "}
	blobs := &fakeBlobStore{}
	svc := newTestInteractionService(gen, stt, blobs, nil)

	_, err := svc.Ask(context.Background(), domain.AskInput{Audio: &domain.Upload{Filename: "a.webm", Data: []byte("x")}})
	if !errors.Is(err, ErrEmptyTranscription) {
		t.Fatalf("expected ErrEmptyTranscription, got %v", err)
	}
	if len(blobs.deleted) != 1 {
		t.Fatalf("expected uploaded audio to be cleaned up, got %+v", blobs.deleted)
	}
}

func TestInteractionServiceAsk_TranscriptionError(t *testing.T) {
	gen := &llm.MockClient{Response: "answer"}
	stt := &speech.MockTranscriber{Err: errors.New("whisper down")}
	svc := newTestInteractionService(gen, stt, nil, nil)

	_, err := svc.Ask(context.Background(), domain.AskInput{Audio: &domain.Upload{Filename: "a.webm", Data: []byte("x")}})
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestInteractionServiceAsk_ImageOnly(t *testing.T) {
	gen := &llm.MockClient{Response: "Total: $42"}
	blobs := &fakeBlobStore{}
	svc := newTestInteractionService(gen, nil, blobs, nil)

	res, err := svc.Ask(context.Background(), domain.AskInput{
		Image: &domain.Upload{Filename: "bill.png", ContentType: "image/png", Data: pngBytes(t, 100, 50)},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gen.LastImage == nil || gen.LastImage.MIMEType != "image/jpeg" {
		t.Fatalf("expected jpeg sent to llm, got %+v", gen.LastImage)
	}
	if !bytes.HasPrefix(gen.LastImage.Data, []byte{0xFF, 0xD8}) {
		t.Fatalf("expected jpeg magic bytes")
	}
	if !strings.Contains(gen.LastPrompt, imageOnlyFallback) {
		t.Fatalf("expected fallback prompt, got %q", gen.LastPrompt)
	}
	if len(blobs.puts) != 1 || !strings.HasSuffix(blobs.puts[0], ".jpg") || blobs.types[blobs.puts[0]] != "image/jpeg" {
		t.Fatalf("unexpected image upload %+v", blobs.puts)
	}
	if res.Interaction.ImageURL != blobs.URL(blobs.puts[0]) {
		t.Fatalf("unexpected image url %q", res.Interaction.ImageURL)
	}
}

func TestInteractionServiceAsk_MalformedImage(t *testing.T) {
	gen := &llm.MockClient{Response: "x"}
	blobs := &fakeBlobStore{}
	svc := newTestInteractionService(gen, nil, blobs, nil)

	_, err := svc.Ask(context.Background(), domain.AskInput{
		Question: "what is this",
		Image:    &domain.Upload{Filename: "bill.jpg", Data: []byte("not an image")},
	})
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
	if gen.Calls != 0 || len(blobs.puts) != 0 {
		t.Fatalf("expected no side effects")
	}
}

func TestInteractionServiceAsk_GenerationFailureCleansUploads(t *testing.T) {
	gen := &llm.MockClient{Err: errors.New("quota exceeded")}
	stt := &speech.MockTranscriber{Text: "hi"}
	blobs := &fakeBlobStore{}
	repo := &fakeInteractionRepo{}
	svc := newTestInteractionService(gen, stt, blobs, repo)

	_, err := svc.Ask(context.Background(), domain.AskInput{
		Audio: &domain.Upload{Filename: "a.webm", Data: []byte("x")},
		Image: &domain.Upload{Filename: "bill.png", Data: pngBytes(t, 10, 10)},
	})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if len(blobs.puts) != 2 || len(blobs.deleted) != 2 {
		t.Fatalf("expected both uploads deleted, puts=%v deleted=%v", blobs.puts, blobs.deleted)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestInteractionServiceAsk_EmptyAnswer(t *testing.T) {
	gen := &llm.MockClient{Response: "```\n\n```"}
	svc := newTestInteractionService(gen, nil, nil, nil)

	_, err := svc.Ask(context.Background(), domain.AskInput{Question: "hi"})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestInteractionServiceAsk_StorageFailure(t *testing.T) {
	gen := &llm.MockClient{Response: "x"}
	blobs := &fakeBlobStore{putErr: errors.New("disk full")}
	svc := newTestInteractionService(gen, nil, blobs, nil)

	_, err := svc.Ask(context.Background(), domain.AskInput{Image: &domain.Upload{Filename: "a.png", Data: pngBytes(t, 4, 4)}})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if gen.Calls != 0 {
		t.Fatalf("expected llm not called")
	}
}

func TestInteractionServiceAsk_PersistenceFailure(t *testing.T) {
	gen := &llm.MockClient{Response: "x"}
	blobs := &fakeBlobStore{}
	repo := &fakeInteractionRepo{createErr: errors.New("db down")}
	svc := newTestInteractionService(gen, nil, blobs, repo)

	_, err := svc.Ask(context.Background(), domain.AskInput{Image: &domain.Upload{Filename: "a.png", Data: pngBytes(t, 4, 4)}})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(blobs.deleted) != 1 {
		t.Fatalf("expected image cleanup, got %v", blobs.deleted)
	}
}

func TestInteractionServiceAsk_NotConfigured(t *testing.T) {
	var svc *InteractionService
	if _, err := svc.Ask(context.Background(), domain.AskInput{Question: "x"}); !errors.Is(err, ErrInteractionServiceNotConfigured) {
		t.Fatalf("expected ErrInteractionServiceNotConfigured, got %v", err)
	}
}

func TestCombineInput(t *testing.T) {
	cases := map[string][3]string{
		"both":            {"I paid 10", "why?", "I paid 10. why?"},
		"trailing period": {"I paid 10.", "why?", "I paid 10. why?"},
		"only transcript": {"I paid 10", "", "I paid 10"},
		"only question":   {"", "why?", "why?"},
	}
	for name, c := range cases {
		if got := combineInput(c[0], c[1]); got != c[2] {
			t.Fatalf("%s: got %q, want %q", name, got, c[2])
		}
	}
}
