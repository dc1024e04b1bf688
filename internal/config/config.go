package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	S3BucketName       string
	S3DefaultAvatarKey string // bucket object copied as each new user's profile image

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	RefreshTokenExpiry time.Duration

	OTPTTL         time.Duration
	OTPMaxAttempts int
	BcryptCost     int

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion      string
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string
	Sessions string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:    getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions: getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
		},

		S3BucketName:       getEnv("S3_BUCKET_NAME", "barter-assets"),
		S3DefaultAvatarKey: getEnv("S3_DEFAULT_AVATAR_KEY", "assets/default_profile.jpg"),

		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:          time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 1)) * 24 * time.Hour,
		RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		OTPTTL:         time.Duration(getEnvInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		BcryptCost:     getEnvInt("BCRYPT_COST", 12),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:      getEnv("SNS_REGION", "us-east-1"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
