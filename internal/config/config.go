package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string   `env:"HTTP_PORT" envDefault:"6069"`
	Mode           string   `env:"APP_MODE" envDefault:"release"`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
	CORSOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string   `env:"LOG_FILE"`

	LLMAPIKey  string        `env:"LLM_API_KEY,required,notEmpty"`
	LLMBaseURL string        `env:"LLM_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai"`
	LLMModel   string        `env:"LLM_MODEL" envDefault:"gemini-2.5-flash"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`

	// Whisper sobre API OpenAI-compatible. Sin API key el audio queda deshabilitado.
	STTAPIKey      string `env:"STT_API_KEY"`
	STTBaseURL     string `env:"STT_BASE_URL" envDefault:"https://api.openai.com/v1"`
	STTModel       string `env:"STT_MODEL" envDefault:"whisper-1"`
	STTLanguage    string `env:"STT_LANGUAGE"`
	AudioTranscode bool   `env:"AUDIO_TRANSCODE" envDefault:"false"`

	ImageMaxDimension int `env:"IMAGE_MAX_DIMENSION" envDefault:"2048"`
	ImageJPEGQuality  int `env:"IMAGE_JPEG_QUALITY" envDefault:"85"`

	// STORE_BACKEND: postgres | firestore | none
	StoreBackend        string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL         string `env:"DATABASE_URL"`
	FirestoreProject    string `env:"FIRESTORE_PROJECT_ID"`
	FirestoreCreds      string `env:"FIREBASE_CREDENTIALS_PATH"`
	FirestoreCollection string `env:"FIRESTORE_COLLECTION" envDefault:"chat_logs"`
	HistoryLimit        int    `env:"HISTORY_LIMIT" envDefault:"20"`

	// STORAGE_TYPE: local | minio | none
	StorageType      string `env:"STORAGE_TYPE" envDefault:"local"`
	StorageLocalPath string `env:"STORAGE_LOCAL_PATH" envDefault:"./uploads"`
	StoragePublicURL string `env:"STORAGE_PUBLIC_URL"`
	MinioEndpoint    string `env:"MINIO_ENDPOINT"`
	MinioAccessKey   string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey   string `env:"MINIO_SECRET_KEY"`
	MinioBucket      string `env:"MINIO_BUCKET" envDefault:"spendview"`
	MinioUseSSL      bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	SessionSecret string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"30"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TranscriptionEnabled indica si hay credenciales para speech-to-text.
func (c *Config) TranscriptionEnabled() bool {
	return c.STTAPIKey != ""
}
