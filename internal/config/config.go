package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// AnonymousUserID is the user every request acts as when JWT auth is disabled.
const AnonymousUserID = "local"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	// Optional HS256 secret. When empty, auth is disabled and every request
	// belongs to AnonymousUserID.
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Course slot settings
	SlotDriver string `envconfig:"SLOT_DRIVER" default:"sqlite"`
	SlotDSN    string `envconfig:"SLOT_DSN"`
	SlotKey    string `envconfig:"SLOT_KEY" default:"psu-courses"`

	// S3-compatible slot backend
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// Gemini assistant settings
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY"`
	GeminiAPIKeySecret string `envconfig:"GEMINI_API_KEY_SECRET"`
	GeminiBaseURL      string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/"`
	GeminiChatModel    string `envconfig:"GEMINI_CHAT_MODEL" default:"gemini-3-pro-preview"`
	GeminiTTSModel     string `envconfig:"GEMINI_TTS_MODEL" default:"gemini-2.5-flash-preview-tts"`
	GeminiVoice        string `envconfig:"GEMINI_VOICE" default:"Kore"`
	GeminiTimeoutSec   int    `envconfig:"GEMINI_TIMEOUT_SEC" default:"60"`

	// Google Cloud settings
	GCPProjectID      string `envconfig:"GCP_PROJECT_ID"`
	PubSubGradesTopic string `envconfig:"PUBSUB_GRADES_TOPIC"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AuthEnabled reports whether requests must carry a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// GradeEventsEnabled reports whether grade events should be published to Pub/Sub.
func (c *Config) GradeEventsEnabled() bool {
	return c.GCPProjectID != "" && c.PubSubGradesTopic != ""
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
