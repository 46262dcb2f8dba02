package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	MigrationsPath string

	// Admin API
	JWTSecret          string
	JWTExpiryDuration  time.Duration
	JWTIssuer          string
	AdminUsername      string
	AdminPasswordHash  string
	CORSAllowedOrigins []string

	// Chat transport and participants
	TelegramBotToken       string
	ParticipantATelegramID int64
	ParticipantAName       string
	ParticipantBTelegramID int64
	ParticipantBName       string
	ReportChatID           int64

	// Ledger
	Currency          string
	DefaultSplitA     float64
	SplitCacheTTL     time.Duration
	PhotoDebounce     time.Duration
	PendingReceiptTTL time.Duration

	// Extraction and archive
	GeminiAPIKey          string
	GeminiModel           string
	GCSReceiptBucket      string
	GoogleCredentialsFile string
	MaxImageDimension     int

	// Scheduler
	RecurringCheckInterval time.Duration
	BalanceReportInterval  time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "shared-expense-bot")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_PASSWORD_HASH", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("PARTICIPANT_A_TELEGRAM_ID", 0)
	viper.SetDefault("PARTICIPANT_A_NAME", "")
	viper.SetDefault("PARTICIPANT_B_TELEGRAM_ID", 0)
	viper.SetDefault("PARTICIPANT_B_NAME", "")
	viper.SetDefault("REPORT_CHAT_ID", 0)
	viper.SetDefault("CURRENCY", "EUR")
	viper.SetDefault("DEFAULT_SPLIT_A", 0.5)
	viper.SetDefault("SPLIT_CACHE_TTL", "60s")
	viper.SetDefault("PHOTO_DEBOUNCE", "10s")
	viper.SetDefault("PENDING_RECEIPT_TTL", "1h")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	viper.SetDefault("GCS_RECEIPT_BUCKET", "")
	viper.SetDefault("GOOGLE_CREDENTIALS_FILE", "")
	viper.SetDefault("MAX_IMAGE_DIMENSION", 1600)
	viper.SetDefault("RECURRING_CHECK_INTERVAL", "1h")
	viper.SetDefault("BALANCE_REPORT_INTERVAL", "0s")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTExpiryDuration = durationOrDefault("JWT_EXPIRY_DURATION", time.Hour)
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.AdminUsername = viper.GetString("ADMIN_USERNAME")
	cfg.AdminPasswordHash = viper.GetString("ADMIN_PASSWORD_HASH")
	if cfg.AdminPasswordHash == "" {
		log.Println("Warning: ADMIN_PASSWORD_HASH not set. Admin login is disabled.")
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	cfg.TelegramBotToken = viper.GetString("TELEGRAM_BOT_TOKEN")
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set. The chat interface will not start.")
	}
	cfg.ParticipantATelegramID = viper.GetInt64("PARTICIPANT_A_TELEGRAM_ID")
	cfg.ParticipantAName = viper.GetString("PARTICIPANT_A_NAME")
	cfg.ParticipantBTelegramID = viper.GetInt64("PARTICIPANT_B_TELEGRAM_ID")
	cfg.ParticipantBName = viper.GetString("PARTICIPANT_B_NAME")
	cfg.ReportChatID = viper.GetInt64("REPORT_CHAT_ID")

	cfg.Currency = strings.ToUpper(viper.GetString("CURRENCY"))
	cfg.DefaultSplitA = viper.GetFloat64("DEFAULT_SPLIT_A")
	if cfg.DefaultSplitA < 0 || cfg.DefaultSplitA > 1 {
		log.Printf("Warning: Invalid value for DEFAULT_SPLIT_A (%v). Defaulting to 0.5.\n", cfg.DefaultSplitA)
		cfg.DefaultSplitA = 0.5
	}
	cfg.SplitCacheTTL = durationOrDefault("SPLIT_CACHE_TTL", 60*time.Second)
	cfg.PhotoDebounce = durationOrDefault("PHOTO_DEBOUNCE", 10*time.Second)
	cfg.PendingReceiptTTL = durationOrDefault("PENDING_RECEIPT_TTL", time.Hour)

	cfg.GeminiAPIKey = viper.GetString("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set. Receipt extraction will not function.")
	}
	cfg.GeminiModel = viper.GetString("GEMINI_MODEL")
	cfg.GCSReceiptBucket = viper.GetString("GCS_RECEIPT_BUCKET")
	cfg.GoogleCredentialsFile = viper.GetString("GOOGLE_CREDENTIALS_FILE")
	cfg.MaxImageDimension = viper.GetInt("MAX_IMAGE_DIMENSION")
	if cfg.MaxImageDimension <= 0 {
		cfg.MaxImageDimension = 1600
	}

	cfg.RecurringCheckInterval = durationOrDefault("RECURRING_CHECK_INTERVAL", time.Hour)
	cfg.BalanceReportInterval = durationOrDefault("BALANCE_REPORT_INTERVAL", 0)

	return cfg, nil
}

// durationOrDefault parses key as a duration, logging and falling back on invalid values.
func durationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.String())
		}
		return fallback
	}
	return d
}
