package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`

	ModelPath   string `mapstructure:"MODEL_PATH"`
	EncoderPath string `mapstructure:"ENCODER_PATH"`

	AssistantBaseURL string `mapstructure:"ASSISTANT_BASE_URL"`
	AssistantModel   string `mapstructure:"ASSISTANT_MODEL"`
	AssistantAPIKey  string `mapstructure:"ASSISTANT_API_KEY"`

	DeliveryMode string `mapstructure:"DELIVERY_MODE"`

	SMTPFromEmail string `mapstructure:"SMTP_FROM_EMAIL"`
	SMTPServer    string `mapstructure:"SMTP_SERVER"`
	SMTPPort      int    `mapstructure:"SMTP_PORT"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPassword  string `mapstructure:"SMTP_PASSWORD"`

	WebhookURL     string        `mapstructure:"WEBHOOK_URL"`
	WebhookTimeout time.Duration `mapstructure:"WEBHOOK_TIMEOUT"`

	TopN          int     `mapstructure:"TOP_N"`
	RiskHighMax   float64 `mapstructure:"RISK_HIGH_MAX"`
	RiskMediumMax float64 `mapstructure:"RISK_MEDIUM_MAX"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("MODEL_PATH", "")
	v.SetDefault("ENCODER_PATH", "label_encoder.json")
	v.SetDefault("DELIVERY_MODE", "smtp")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("WEBHOOK_TIMEOUT", "10s")
	v.SetDefault("TOP_N", 5)
	v.SetDefault("RISK_HIGH_MAX", 0.3)
	v.SetDefault("RISK_MEDIUM_MAX", 0.7)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
