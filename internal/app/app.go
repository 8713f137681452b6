package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"spendview/internal/config"
	"spendview/internal/db"
	apihttp "spendview/internal/http"
	"spendview/internal/llm"
	"spendview/internal/media"
	"spendview/internal/metrics"
	"spendview/internal/repository"
	"spendview/internal/service"
	"spendview/internal/speech"
	"spendview/internal/storage"
	"spendview/web"
)

// App mantiene los colaboradores de larga vida construidos a partir de la configuracion.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Interactions *service.InteractionService
	History      *service.HistoryService
	Sessions     *service.SessionService
	Limiter      service.RateLimiter
	Metrics      *metrics.Metrics

	filesRoot string
	services  map[string]bool
	closers   []func()
}

// New construye el grafo de dependencias. Los backends opcionales que no estan configurados
// quedan deshabilitados; un backend configurado que falla al iniciar es un error.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics.New(),
		Sessions: service.NewSessionService(cfg.SessionSecret, cfg.SessionTTL),
		services: map[string]bool{},
	}

	llmClient := llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, zap.NewStdLog(logger))
	a.services["llm"] = true

	var transcriber speech.Transcriber
	var transcoder media.AudioTranscoder
	if cfg.TranscriptionEnabled() {
		transcriber = speech.NewWhisperClient(cfg.STTBaseURL, cfg.STTAPIKey, cfg.STTModel, cfg.STTLanguage, cfg.LLMTimeout)
		if cfg.AudioTranscode {
			transcoder = media.NewFFmpegTranscoder(os.TempDir())
		}
	} else {
		logger.Warn("speech-to-text not configured, audio input disabled")
	}
	a.services["transcription"] = transcriber != nil

	blobs, err := a.initStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.services["storage"] = blobs != nil

	repo, err := a.initStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.services["store"] = repo != nil

	a.Interactions = service.NewInteractionService(service.InteractionDeps{
		Logger:      logger,
		LLM:         llmClient,
		Transcriber: transcriber,
		Transcoder:  transcoder,
		Images:      media.NewImageNormalizer(cfg.ImageMaxDimension, cfg.ImageJPEGQuality),
		Blobs:       blobs,
		Repo:        repo,
	})
	a.History = service.NewHistoryService(repo, cfg.HistoryLimit)

	a.Limiter = a.initRateLimiter(ctx)
	return a, nil
}

func (a *App) initStorage(ctx context.Context) (storage.BlobStore, error) {
	cfg := a.Config
	switch strings.ToLower(strings.TrimSpace(cfg.StorageType)) {
	case "local", "":
		publicURL := cfg.StoragePublicURL
		if publicURL == "" {
			publicURL = apihttp.FilesPrefix
		}
		store, err := storage.NewLocalStore(cfg.StorageLocalPath, publicURL)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		a.filesRoot = store.Root()
		a.Logger.Info("local storage ready", zap.String("path", store.Root()))
		return store, nil
	case "minio":
		store, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.StoragePublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio storage: %w", err)
		}
		a.Logger.Info("minio storage ready", zap.String("endpoint", cfg.MinioEndpoint), zap.String("bucket", cfg.MinioBucket))
		return store, nil
	case "none":
		a.Logger.Warn("blob storage disabled, uploads will not be kept")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_TYPE %q", cfg.StorageType)
	}
}

func (a *App) initStore(ctx context.Context) (repository.InteractionRepository, error) {
	cfg := a.Config
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "postgres", "":
		if cfg.DatabaseURL == "" {
			a.Logger.Warn("DATABASE_URL not set, interaction history disabled")
			return nil, nil
		}
		version, err := db.Migrate(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.Ping(pingCtx, pool); err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}
		a.Logger.Info("postgres store ready", zap.Uint("migration_version", version))
		return repository.NewPgInteractionRepository(pool), nil
	case "firestore":
		client, err := repository.NewFirestoreClient(ctx, cfg.FirestoreProject, cfg.FirestoreCreds)
		if err != nil {
			return nil, fmt.Errorf("firestore connect: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.Logger.Info("firestore store ready", zap.String("project", cfg.FirestoreProject), zap.String("collection", cfg.FirestoreCollection))
		return repository.NewFirestoreInteractionRepository(client, cfg.FirestoreCollection), nil
	case "none":
		a.Logger.Warn("interaction store disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// initRateLimiter usa redis si responde; si no, un limiter en memoria.
func (a *App) initRateLimiter(ctx context.Context) service.RateLimiter {
	cfg := a.Config
	a.services["redis"] = false
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			a.Logger.Warn("redis ping failed, using in-memory rate limiter", zap.Error(err))
			_ = redisClient.Close()
		} else {
			a.closers = append(a.closers, func() { _ = redisClient.Close() })
			a.services["redis"] = true
			return service.NewRedisRateLimiter(redisClient, cfg.RateLimitWindow, cfg.RateLimitMax)
		}
	}
	return service.NewMemoryRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
}

// Router arma el router HTTP con los handlers del servicio.
func (a *App) Router() (*gin.Engine, error) {
	indexH, err := apihttp.NewIndexHandler(web.Assets)
	if err != nil {
		return nil, err
	}
	return apihttp.NewRouter(
		apihttp.RouterOptions{
			Logger:      a.Logger,
			Metrics:     a.Metrics,
			Sessions:    a.Sessions,
			CORSOrigins: a.Config.CORSOrigins,
			Assets:      web.Assets,
			FilesRoot:   a.filesRoot,
		},
		indexH,
		apihttp.NewQueHandler(a.Logger, a.Interactions, a.Limiter, a.Metrics, a.Config.MaxUploadBytes),
		apihttp.NewHistoryHandler(a.Logger, a.History),
		apihttp.NewHealthHandler(a.services),
	)
}

// Services devuelve el estado configurado de cada colaborador (lo mismo que expone /health).
func (a *App) Services() map[string]bool {
	out := make(map[string]bool, len(a.services))
	for k, v := range a.services {
		out[k] = v
	}
	return out
}

// Close libera conexiones en orden inverso al de creacion.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
