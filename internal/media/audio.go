package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioTranscoder convierte un clip a un formato que el modelo de transcripcion acepta.
type AudioTranscoder interface {
	Transcode(ctx context.Context, data []byte, ext string) ([]byte, error)
}

// FFmpegTranscoder pasa el audio a WAV mono 16 kHz usando el binario ffmpeg.
type FFmpegTranscoder struct {
	tmpDir     string
	sampleRate int
}

func NewFFmpegTranscoder(tmpDir string) *FFmpegTranscoder {
	return &FFmpegTranscoder{tmpDir: tmpDir, sampleRate: 16000}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, data []byte, ext string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "bin"
	}

	workDir, err := os.MkdirTemp(t.tmpDir, "audio-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "input."+ext)
	outPath := filepath.Join(workDir, "output.wav")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write temp audio: %w", err)
	}

	err = ffmpeg.Input(inPath).
		Output(outPath, ffmpeg.KwArgs{
			"ac": 1,
			"ar": t.sampleRate,
			"f":  "wav",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg transcode: %w", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read transcoded audio: %w", err)
	}
	return out, nil
}
