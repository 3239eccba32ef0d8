package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/docfill-backend/internal/http"
	httpH "github.com/yungbote/docfill-backend/internal/http/handlers"
	"github.com/yungbote/docfill-backend/internal/observability"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

const serviceName = "docfill-backend"

type Handlers struct {
	Health      *httpH.HealthHandler
	Fulfillment *httpH.FulfillmentHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Fulfillment: httpH.NewFulfillmentHandler(services.Fulfillment),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return http.NewRouter(http.RouterConfig{
		ServiceName:        serviceName,
		CORSOrigins:        cfg.CORSOrigins,
		Log:                log,
		Metrics:            metrics,
		FulfillmentHandler: handlers.Fulfillment,
		HealthHandler:      handlers.Health,
	})
}
