package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/churnhealth/backend/internal/classifier"
	"github.com/churnhealth/backend/internal/config"
	"github.com/churnhealth/backend/internal/delivery"
	httpapi "github.com/churnhealth/backend/internal/http"
	"github.com/churnhealth/backend/internal/outreach"
	"github.com/churnhealth/backend/internal/scoring"
	"github.com/churnhealth/backend/internal/service"
	"github.com/churnhealth/backend/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "churn-health-backend").Logger()

	encoder, err := classifier.LoadLabelEncoder(cfg.EncoderPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.EncoderPath).Msg("label encoder unavailable, using empty encoder")
		encoder = classifier.NewLabelEncoder()
	}

	var model classifier.Classifier
	if cfg.ModelPath == "" {
		model = classifier.MockClassifier{ModelVersion: "mock-v1"}
		logger.Info().Msg("using mock classifier")
	} else {
		model, err = classifier.LoadLogisticModel(cfg.ModelPath, encoder)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.ModelPath).Msg("failed to load churn model")
		}
	}

	scorer := &scoring.Scorer{
		Classifier: model,
		Thresholds: scoring.Thresholds{HighMax: cfg.RiskHighMax, MediumMax: cfg.RiskMediumMax},
	}

	var composer outreach.Composer
	assistant := outreach.OpenAICompatComposer{
		BaseURL: cfg.AssistantBaseURL,
		Model:   cfg.AssistantModel,
		APIKey:  cfg.AssistantAPIKey,
	}
	if assistant.Configured() {
		composer = assistant
	} else {
		logger.Warn().Msg("ASSISTANT_BASE_URL or ASSISTANT_MODEL not set, email generation disabled")
	}

	var (
		dispatcher delivery.Dispatcher
		webhook    *delivery.WebhookDispatcher
	)
	switch cfg.DeliveryMode {
	case delivery.ModeSMTP:
		mail := &delivery.MailDispatcher{
			Composer:  composer,
			FromEmail: cfg.SMTPFromEmail,
			Server:    cfg.SMTPServer,
			Port:      cfg.SMTPPort,
			User:      cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			Logger:    logger,
		}
		if !mail.Configured() {
			logger.Warn().Msg("SMTP settings incomplete, mail sends will be recorded as failures")
		}
		dispatcher = mail
	case delivery.ModeWebhook:
		webhook = &delivery.WebhookDispatcher{
			URL:     cfg.WebhookURL,
			Timeout: cfg.WebhookTimeout,
			Logger:  logger,
		}
		dispatcher = webhook
	default:
		logger.Fatal().Str("mode", cfg.DeliveryMode).Msg("unknown DELIVERY_MODE, expected smtp or webhook")
	}

	sessions := session.NewStore()
	outreachSvc := &service.OutreachService{
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Composer:   composer,
		Logger:     logger,
	}

	router := httpapi.Router(cfg, sessions, scorer, outreachSvc, webhook, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
