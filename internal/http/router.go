package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/churnhealth/backend/internal/config"
	"github.com/churnhealth/backend/internal/delivery"
	"github.com/churnhealth/backend/internal/http/handlers"
	"github.com/churnhealth/backend/internal/http/middleware"
	"github.com/churnhealth/backend/internal/scoring"
	"github.com/churnhealth/backend/internal/service"
	"github.com/churnhealth/backend/internal/session"

	_ "github.com/churnhealth/backend/docs"
)

func Router(cfg config.Config, sessions *session.Store, scorer *scoring.Scorer, outreachSvc *service.OutreachService, webhook *delivery.WebhookDispatcher, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxUploadSizeMB << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Sessions:  sessions,
		Scorer:    scorer,
		Outreach:  outreachSvc,
		Webhook:   webhook,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
		TopN:      cfg.TopN,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/batches/:id", h.BatchDetails)
		api.GET("/batches/:id/top", h.BatchTop)
		api.GET("/batches/:id/export", h.BatchExport)
		api.GET("/batches/:id/report", h.BatchReport)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/upload", h.Upload)
		admin.POST("/batches/:id/outreach/generate", h.OutreachGenerate)
		admin.POST("/batches/:id/outreach/dispatch", h.OutreachDispatch)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
