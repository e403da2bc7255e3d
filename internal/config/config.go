package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	PublicBaseURL    string
	AuthCookieSecure bool
	AuthCookieName   string
	AuthJWTSecret    string
	AuthTokenTTL     time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBSQLitePath      string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBLogLevel        string
	DBSlowQueryMs     int

	Bootstrap  BootstrapConfig
	Raffle     RaffleConfig
	Payment    PaymentConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Email      EmailConfig
	Telegram   TelegramConfig
	Scheduler  SchedulerConfig
	Promotions string
}

// BootstrapConfig controls the admin account seeded at startup.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// RaffleConfig holds storefront rules.
type RaffleConfig struct {
	ReservationWindow time.Duration
	SelectionMax      int
	RandomPickMax     int
	Currency          string
	DrawTimezone      string
	WhatsAppNumber    string
}

// PaymentConfig holds MercadoPago and checkout settings.
type PaymentConfig struct {
	MercadoPagoAccessToken   string
	MercadoPagoBaseURL       string
	MercadoPagoWebhookSecret string
	Sandbox                  bool
	PreferenceURL            string
	NotificationURL          string
	StatementDescriptor      string
	DispatchTimeout          time.Duration
	ProviderTimeout          time.Duration
	LookupTimeout            time.Duration
	MaxAttempts              int
	WebhookAckAlways200      bool
}

type RateLimitConfig struct {
	Enabled          bool
	ReservationRate  float64
	ReservationBurst int
	CheckoutRate     float64
	CheckoutBurst    int
	LoginRate        float64
	LoginBurst       int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

type SchedulerConfig struct {
	Enabled     bool
	RunInterval time.Duration
	EnabledJobs []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	publicBaseURL := strings.TrimRight(strings.TrimSpace(getenv("PUBLIC_BASE_URL", "http://localhost:8080")), "/")

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "sorteos"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL:    publicBaseURL,
		AuthCookieSecure: authCookieSecure,
		AuthCookieName:   strings.TrimSpace(getenv("AUTH_COOKIE_NAME", "_sid")),
		AuthJWTSecret:    strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:     getenvDuration("AUTH_TOKEN_TTL", 12*time.Hour),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "sorteos"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:      getenv("DATABASE_SQLITE_PATH", "sorteos.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBLogLevel:        getenv("DATABASE_LOG_LEVEL", "warn"),
		DBSlowQueryMs:     getenvInt("DATABASE_SLOW_QUERY_MS", 200),

		Bootstrap: BootstrapConfig{
			AdminEmail:    strings.ToLower(strings.TrimSpace(getenv("ADMIN_EMAIL", ""))),
			AdminPassword: getenv("ADMIN_PASSWORD", ""),
		},
		Raffle: RaffleConfig{
			ReservationWindow: getenvDuration("RESERVATION_WINDOW", 180*time.Minute),
			SelectionMax:      getenvInt("SELECTION_MAX", 50),
			RandomPickMax:     getenvInt("RANDOM_PICK_MAX", 100),
			Currency:          strings.ToUpper(getenv("RAFFLE_CURRENCY", "MXN")),
			DrawTimezone:      getenv("DRAW_TIMEZONE", "America/Mazatlan"),
			WhatsAppNumber:    getenv("WHATSAPP_NUMBER", "526686889571"),
		},
		Payment: PaymentConfig{
			MercadoPagoAccessToken:   strings.TrimSpace(getenv("MERCADOPAGO_ACCESS_TOKEN", "")),
			MercadoPagoBaseURL:       strings.TrimRight(getenv("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com"), "/"),
			MercadoPagoWebhookSecret: strings.TrimSpace(getenv("MERCADOPAGO_WEBHOOK_SECRET", "")),
			Sandbox:                  getenvBool("MERCADOPAGO_SANDBOX", false),
			PreferenceURL:            strings.TrimSpace(getenv("PAYMENT_PREFERENCE_URL", publicBaseURL+"/api/payments/preferences")),
			NotificationURL:          strings.TrimSpace(getenv("PAYMENT_NOTIFICATION_URL", publicBaseURL+"/api/payments/webhooks/mercadopago")),
			StatementDescriptor:      getenv("STATEMENT_DESCRIPTOR", "SORTEOS TERRAPESCA"),
			DispatchTimeout:          getenvDuration("PAYMENT_DISPATCH_TIMEOUT", 60*time.Second),
			ProviderTimeout:          getenvDuration("PAYMENT_PROVIDER_TIMEOUT", 45*time.Second),
			LookupTimeout:            getenvDuration("PAYMENT_LOOKUP_TIMEOUT", 30*time.Second),
			MaxAttempts:              getenvInt("PAYMENT_MAX_ATTEMPTS", 3),
			WebhookAckAlways200:      getenvBool("WEBHOOK_ACK_ALWAYS_200", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getenvBool("RATE_LIMIT_ENABLED", false),
			ReservationRate:  getenvFloat("RATE_LIMIT_RESERVATION_RATE", 0.5),
			ReservationBurst: getenvInt("RATE_LIMIT_RESERVATION_BURST", 5),
			CheckoutRate:     getenvFloat("RATE_LIMIT_CHECKOUT_RATE", 0.5),
			CheckoutBurst:    getenvInt("RATE_LIMIT_CHECKOUT_BURST", 5),
			LoginRate:        getenvFloat("RATE_LIMIT_LOGIN_RATE", 0.1),
			LoginBurst:       getenvInt("RATE_LIMIT_LOGIN_BURST", 5),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@sorteos.local"),
		},
		Telegram: TelegramConfig{
			BotToken: strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
			ChatID:   getenvInt64("TELEGRAM_CHAT_ID", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getenvBool("SCHEDULER_ENABLED", true),
			RunInterval: getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
			EnabledJobs: parseList(getenv("SCHEDULER_ENABLED_JOBS", "")),
		},
		Promotions: strings.TrimSpace(getenv("PROMOTIONS_CONFIG_PATH", "")),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// RedisEnabled reports whether a redis address is configured.
func (c Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// getenvDuration accepts Go duration strings ("90s", "3h") or plain seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
