package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings read from the environment.
type Config struct {
	Port    string
	GinMode string

	JWTSecret           string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	AdminEmails         []string
	CORSOrigins         []string
	TaxRate             float64
	Currency            string
	MinWithdrawal       float64
	PlanFile            string
	MaxNetworkDepth     int
	DefaultNetworkDepth int

	Maintenance MaintenanceConfig
	PayFast     PayFastConfig
	Storage     StorageConfig
	Notify      NotifyConfig
}

// MaintenanceConfig controls the housekeeping run by the server and the maintenance job.
type MaintenanceConfig struct {
	Interval         time.Duration // zero disables the in-process loop
	AbandonedCartAge time.Duration
	PendingOrderTTL  time.Duration
}

// PayFastConfig holds merchant credentials and callback URLs.
type PayFastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
}

// StorageConfig selects the object store for uploaded images.
type StorageConfig struct {
	Bucket        string
	Region        string
	PublicBaseURL string
	LocalDir      string
	LocalBaseURL  string
}

// NotifyConfig enables outbound email and SMS.
type NotifyConfig struct {
	SESRegion  string
	FromEmail  string
	SNSRegion  string
	SNSEnabled bool
}

// Load reads the configuration from environment variables, applying defaults.
func Load() Config {
	region := GetEnv("AWS_REGION", GetEnv("AWS_DEFAULT_REGION", "af-south-1"))
	port := GetEnv("PORT", "8080")

	cfg := Config{
		Port:                port,
		GinMode:             os.Getenv("GIN_MODE"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		AccessTokenTTL:      time.Duration(GetEnvInt("JWT_EXPIRATION_MINUTES", 60)) * time.Minute,
		RefreshTokenTTL:     time.Duration(GetEnvInt("REFRESH_TOKEN_TTL_DAYS", 30)) * 24 * time.Hour,
		AdminEmails:         SplitList(os.Getenv("ADMIN_EMAILS")),
		CORSOrigins:         SplitList(os.Getenv("CORS_ORIGINS")),
		TaxRate:             GetEnvFloat("TAX_RATE", 0.15),
		Currency:            GetEnv("CURRENCY", "ZAR"),
		MinWithdrawal:       GetEnvFloat("MIN_WITHDRAWAL", 100),
		PlanFile:            GetEnv("PLAN_FILE", "configs/plan.yaml"),
		MaxNetworkDepth:     GetEnvInt("MAX_NETWORK_DEPTH", 10),
		DefaultNetworkDepth: GetEnvInt("DEFAULT_NETWORK_DEPTH", 3),
		Maintenance:         LoadMaintenance(),
		PayFast: PayFastConfig{
			MerchantID:  os.Getenv("PAYFAST_MERCHANT_ID"),
			MerchantKey: os.Getenv("PAYFAST_MERCHANT_KEY"),
			Passphrase:  os.Getenv("PAYFAST_PASSPHRASE"),
			Sandbox:     GetEnvBool("PAYFAST_SANDBOX", true),
			ReturnURL:   os.Getenv("PAYFAST_RETURN_URL"),
			CancelURL:   os.Getenv("PAYFAST_CANCEL_URL"),
			NotifyURL:   os.Getenv("PAYFAST_NOTIFY_URL"),
		},
		Storage: StorageConfig{
			Bucket:        os.Getenv("S3_BUCKET"),
			Region:        GetEnv("S3_REGION", region),
			PublicBaseURL: strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"),
			LocalDir:      GetEnv("UPLOAD_DIR", "./uploads"),
			LocalBaseURL:  strings.TrimRight(GetEnv("SERVICE_BASE_URL", "http://localhost:"+port), "/"),
		},
		Notify: NotifyConfig{
			SESRegion:  GetEnv("SES_AWS_REGION", region),
			FromEmail:  os.Getenv("SES_FROM_EMAIL"),
			SNSRegion:  GetEnv("SNS_AWS_REGION", region),
			SNSEnabled: GetEnvBool("SNS_ENABLED", false),
		},
	}

	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		log.Printf("[CONFIG] TAX_RATE %v out of range, using 0.15", cfg.TaxRate)
		cfg.TaxRate = 0.15
	}
	if cfg.MaxNetworkDepth < 1 {
		cfg.MaxNetworkDepth = 10
	}
	if cfg.DefaultNetworkDepth < 1 || cfg.DefaultNetworkDepth > cfg.MaxNetworkDepth {
		cfg.DefaultNetworkDepth = min(3, cfg.MaxNetworkDepth)
	}
	return cfg
}

// LoadMaintenance reads the housekeeping settings. The maintenance job uses it without the rest of Config.
func LoadMaintenance() MaintenanceConfig {
	return MaintenanceConfig{
		Interval:         time.Duration(GetEnvInt("MAINTENANCE_INTERVAL_MINUTES", 0)) * time.Minute,
		AbandonedCartAge: time.Duration(GetEnvInt("ABANDONED_CART_DAYS", 30)) * 24 * time.Hour,
		PendingOrderTTL:  time.Duration(GetEnvInt("PENDING_ORDER_HOURS", 48)) * time.Hour,
	}
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt parses an integer environment variable, falling back on parse errors.
func GetEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[CONFIG] Invalid %s value: %s, using default %d", key, v, defaultValue)
		return defaultValue
	}
	return n
}

// GetEnvFloat parses a float environment variable, falling back on parse errors.
func GetEnvFloat(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[CONFIG] Invalid %s value: %s, using default %v", key, v, defaultValue)
		return defaultValue
	}
	return f
}

// GetEnvBool parses a boolean environment variable.
func GetEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
