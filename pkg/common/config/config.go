package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Per-service ports
	AdherenceServicePort    string
	ContactServicePort      string
	AlertServicePort        string
	NotificationServicePort string
	GatewayPort             string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	AdherenceEventTopic string
	AlertEventTopic     string

	// Missed-dose detection
	MissedDoseThreshold time.Duration
	ScanInterval        time.Duration
	DoseWindowDays      int

	// SMS delivery
	SMSProvider        string // simulation, twilio, msg91
	SMSFromNumber      string
	TwilioAccountSID   string
	TwilioAuthToken    string
	MSG91AuthKey       string
	MSG91SenderID      string
	AlertTemplatesPath string

	// Notification feed
	BadgeCacheTTL time.Duration

	// Gateway
	JWTSecret             string
	JWTIssuer             string
	JWTAudience           string
	JWTTTL                time.Duration
	OIDCIssuer            string
	OIDCClientID          string
	OIDCClientSecret      string
	AdherenceBaseURL      string
	ContactBaseURL        string
	AlertBaseURL          string
	NotificationBaseURL   string
	GatewayRequestTimeout time.Duration
	GatewayRateLimitRPS   int
	GatewayRateLimitBurst int
}

func Load() *Config {
	return &Config{
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		AdherenceServicePort:    getEnv("ADHERENCE_SERVICE_PORT", "8081"),
		ContactServicePort:      getEnv("CONTACT_SERVICE_PORT", "8082"),
		AlertServicePort:        getEnv("ALERT_SERVICE_PORT", "8083"),
		NotificationServicePort: getEnv("NOTIFICATION_SERVICE_PORT", "8084"),
		GatewayPort:             getEnv("GATEWAY_PORT", "8080"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carepulse"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carepulse123"),
		PostgresDB:       getEnv("POSTGRES_DB", "carepulse"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "carepulse-platform"),
		AdherenceEventTopic: getEnv("ADHERENCE_EVENT_TOPIC", "adherence-events"),
		AlertEventTopic:     getEnv("ALERT_EVENT_TOPIC", "adherence-alerts"),

		MissedDoseThreshold: getDuration("MISSED_DOSE_THRESHOLD", 30*time.Minute),
		ScanInterval:        getDuration("SCAN_INTERVAL", 60*time.Second),
		DoseWindowDays:      getIntEnv("DOSE_WINDOW_DAYS", 30),

		SMSProvider:        getEnv("SMS_PROVIDER", "simulation"),
		SMSFromNumber:      getEnv("SMS_FROM_NUMBER", ""),
		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		MSG91AuthKey:       getEnv("MSG91_AUTH_KEY", ""),
		MSG91SenderID:      getEnv("MSG91_SENDER_ID", "CAREPL"),
		AlertTemplatesPath: getEnv("ALERT_TEMPLATES_PATH", ""),

		BadgeCacheTTL: getDuration("BADGE_CACHE_TTL", 5*time.Minute),

		JWTSecret:             getEnv("JWT_SECRET", "carepulse-dev-secret-key"),
		JWTIssuer:             getEnv("JWT_ISSUER", "carepulse"),
		JWTAudience:           getEnv("JWT_AUDIENCE", "carepulse-dashboard"),
		JWTTTL:                getDuration("JWT_TTL", time.Hour),
		OIDCIssuer:            getEnv("OIDC_ISSUER", ""),
		OIDCClientID:          getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret:      getEnv("OIDC_CLIENT_SECRET", ""),
		AdherenceBaseURL:      getEnv("ADHERENCE_BASE_URL", "http://localhost:8081"),
		ContactBaseURL:        getEnv("CONTACT_BASE_URL", "http://localhost:8082"),
		AlertBaseURL:          getEnv("ALERT_BASE_URL", "http://localhost:8083"),
		NotificationBaseURL:   getEnv("NOTIFICATION_BASE_URL", "http://localhost:8084"),
		GatewayRequestTimeout: getDuration("GATEWAY_REQUEST_TIMEOUT", 10*time.Second),
		GatewayRateLimitRPS:   getIntEnv("GATEWAY_RATE_LIMIT_RPS", 50),
		GatewayRateLimitBurst: getIntEnv("GATEWAY_RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
