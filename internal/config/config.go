package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config stores runtime configuration loaded from an optional healthgenie.toml
// file and environment variables. Environment variables win.
type Config struct {
	Port          string
	DatabaseURL   string
	SQLitePath    string
	LocalTimezone *time.Location

	LogLevel  string
	LogFormat string

	LLMProvider  string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	TwilioWebhookURL     string
	ReminderCron         string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	HistoryLimit  int
	HistoryTTL    time.Duration

	MaxUploadBytes int64
	DocumentStore  string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	S3Bucket       string

	EventSink    string
	KafkaBrokers []string
	KafkaTopic   string
	SQSQueueName string
}

// TwilioEnabled reports whether enough Twilio settings exist to send messages.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppNumber != ""
}

// Load reads configuration values and prepares defaults where applicable.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("healthgenie")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warnf("config: unable to read healthgenie.toml: %v", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("SQLITE_PATH", "healthgenie.db")
	v.SetDefault("LOCAL_TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("REMINDER_CRON", "0 8 * * *")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("HISTORY_LIMIT", 50)
	v.SetDefault("HISTORY_TTL", "24h")
	v.SetDefault("MAX_UPLOAD_BYTES", 1<<20)
	v.SetDefault("DOCUMENT_STORE", "none")
	v.SetDefault("MINIO_BUCKET", "health-documents")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("EVENT_SINK", "none")
	v.SetDefault("KAFKA_TOPIC", "healthgenie-events")
	v.SetDefault("SQS_QUEUE_NAME", "healthgenie-events")
}

func fromViper(v *viper.Viper) *Config {
	timezoneName := v.GetString("LOCAL_TIMEZONE")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Warnf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	historyLimit := v.GetInt("HISTORY_LIMIT")
	if historyLimit <= 0 {
		log.Warnf("config: HISTORY_LIMIT=%d is not positive, using 50", historyLimit)
		historyLimit = 50
	}
	maxUpload := v.GetInt64("MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		log.Warnf("config: MAX_UPLOAD_BYTES=%d is not positive, using 1MiB", maxUpload)
		maxUpload = 1 << 20
	}

	return &Config{
		Port:          v.GetString("PORT"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		SQLitePath:    v.GetString("SQLITE_PATH"),
		LocalTimezone: location,

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),

		LLMProvider:  strings.ToLower(v.GetString("LLM_PROVIDER")),
		OpenAIAPIKey: v.GetString("OPENAI_API_KEY"),
		OpenAIModel:  v.GetString("OPENAI_MODEL"),
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),
		GeminiModel:  v.GetString("GEMINI_MODEL"),

		SessionSecret: v.GetString("SESSION_SECRET"),
		SessionTTL:    durationOrDefault(v, "SESSION_TTL", 720*time.Hour),
		CookieSecure:  v.GetBool("COOKIE_SECURE"),

		TwilioAccountSID:     v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: v.GetString("TWILIO_WHATSAPP_NUMBER"),
		TwilioWebhookURL:     v.GetString("TWILIO_WEBHOOK_URL"),
		ReminderCron:         v.GetString("REMINDER_CRON"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		HistoryLimit:  historyLimit,
		HistoryTTL:    durationOrDefault(v, "HISTORY_TTL", 24*time.Hour),

		MaxUploadBytes: maxUpload,
		DocumentStore:  strings.ToLower(v.GetString("DOCUMENT_STORE")),
		MinIOEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinIOAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinIOSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinIOBucket:    v.GetString("MINIO_BUCKET"),
		MinIOUseSSL:    v.GetBool("MINIO_USE_SSL"),
		S3Bucket:       v.GetString("S3_BUCKET"),

		EventSink:    strings.ToLower(v.GetString("EVENT_SINK")),
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),
		SQSQueueName: v.GetString("SQS_QUEUE_NAME"),
	}
}

func durationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		log.Warnf("config: unable to parse %s=%q as duration, using %s", key, raw, def)
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
