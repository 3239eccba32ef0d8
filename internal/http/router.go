package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/docfill-backend/internal/http/handlers"
	httpMW "github.com/yungbote/docfill-backend/internal/http/middleware"
	"github.com/yungbote/docfill-backend/internal/observability"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	CORSOrigins []string
	Log         *logger.Logger
	Metrics     *observability.Metrics

	FulfillmentHandler *httpH.FulfillmentHandler
	HealthHandler      *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Fulfillment
		if h := cfg.FulfillmentHandler; h != nil {
			api.POST("/sessions", h.CreateSession)
			api.GET("/sessions/:id", h.GetSession)
			api.GET("/sessions/:id/next", h.NextQuestion)
			api.POST("/sessions/:id/placeholders/:placeholder_id/answer", h.SubmitAnswer)
			api.GET("/sessions/:id/progress", h.Progress)
			api.POST("/sessions/:id/finalize", h.Finalize)
			api.GET("/sessions/:id/placeholders", h.ListPlaceholders)
			api.GET("/sessions/:id/actions", h.ListActions)
		}
	}

	return r
}
