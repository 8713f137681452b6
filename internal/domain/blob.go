package domain

// BlobKind clasifica los archivos subidos; se usa como prefijo de la key.
type BlobKind string

const (
	BlobKindImage BlobKind = "image"
	BlobKindAudio BlobKind = "audio"
)

// BlobRef describe un archivo ya guardado en el blob store.
type BlobRef struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
