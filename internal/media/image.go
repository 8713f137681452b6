package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxDimension = 2048
	defaultJPEGQuality  = 85
	// Limite de pixeles antes de decodificar, evita imagenes "bomba".
	maxSourcePixels = 50_000_000
)

var (
	ErrEmptyImage       = errors.New("empty image payload")
	ErrUndecodableImage = errors.New("image could not be decoded")
	ErrImageTooLarge    = errors.New("image dimensions too large")
)

// NormalizedImage es la imagen lista para el modelo y el blob store.
type NormalizedImage struct {
	Data         []byte
	Width        int
	Height       int
	SourceFormat string
}

func (NormalizedImage) ContentType() string {
	return "image/jpeg"
}

// ImageNormalizer decodifica cualquier formato soportado y lo re-codifica como JPEG RGB.
type ImageNormalizer struct {
	maxDimension int
	quality      int
}

func NewImageNormalizer(maxDimension, quality int) *ImageNormalizer {
	if maxDimension <= 0 {
		maxDimension = defaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}
	return &ImageNormalizer{maxDimension: maxDimension, quality: quality}
}

func (n *ImageNormalizer) Normalize(raw []byte) (NormalizedImage, error) {
	if len(raw) == 0 {
		return NormalizedImage{}, ErrEmptyImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return NormalizedImage{}, ErrUndecodableImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return NormalizedImage{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	width, height := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), n.maxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// Fondo blanco: el JPEG no tiene canal alfa.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if width == src.Bounds().Dx() && height == src.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: n.quality}); err != nil {
		return NormalizedImage{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return NormalizedImage{
		Data:         buf.Bytes(),
		Width:        width,
		Height:       height,
		SourceFormat: format,
	}, nil
}

// fitWithin escala manteniendo proporcion para que el lado mayor no supere max.
func fitWithin(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}
	if width >= height {
		h := height * max / width
		if h < 1 {
			h = 1
		}
		return max, h
	}
	w := width * max / height
	if w < 1 {
		w = 1
	}
	return w, max
}
