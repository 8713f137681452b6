package http

import (
	"embed"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendview/internal/metrics"
	"spendview/internal/service"
)

// FilesPrefix es la ruta bajo la que se sirven los archivos del almacenamiento local.
const FilesPrefix = "/files"

// RouterOptions agrupa lo que el router necesita ademas de los handlers.
type RouterOptions struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Sessions    *service.SessionService
	CORSOrigins []string
	Assets      embed.FS
	// FilesRoot es el directorio del LocalStore; vacio si no se sirven archivos locales.
	FilesRoot string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	opts RouterOptions,
	indexH *IndexHandler,
	queH *QueHandler,
	historyH *HistoryHandler,
	healthH *HealthHandler,
) (*gin.Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()

	// Middlewares basicos: logging, recovery, CORS y metricas.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(opts.CORSOrigins))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", opts.Metrics.Handler())
	}

	assets, err := staticAssetsMiddleware(opts.Assets)
	if err != nil {
		return nil, err
	}
	r.Use(assets)
	if opts.FilesRoot != "" {
		r.Static(FilesPrefix, opts.FilesRoot)
	}

	r.GET("/", SessionMiddleware(opts.Sessions, true), indexH.Index)

	api := r.Group("", jsonContentTypeMiddleware())
	api.POST("/que", SessionMiddleware(opts.Sessions, true), queH.Ask)
	api.GET("/chat-history", SessionMiddleware(opts.Sessions, false), historyH.List)
	api.GET("/health", healthH.Health)

	return r, nil
}

// staticAssetsMiddleware sirve los archivos embebidos bajo /static/. El resto de las rutas
// (incluida "/") pasa a los handlers.
func staticAssetsMiddleware(assets embed.FS) (gin.HandlerFunc, error) {
	root, err := static.EmbedFolder(assets, ".")
	if err != nil {
		return nil, err
	}
	serve := static.Serve("/", root)
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/static/") || strings.HasSuffix(path, "/") {
			c.Next()
			return
		}
		serve(c)
	}, nil
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
// Solo se aplica al grupo de la API: la pagina principal es HTML.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// corsMiddleware permite credenciales; con "*" refleja el origen del request.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if allowAnyOrigin(origins) {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func allowAnyOrigin(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
