package config

import (
	"fmt"
	"strings"
	"time"

	"nochex-be/internal/payment"
	"nochex-be/internal/transport"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv  string
	AppPort string

	// peers allowed to set X-Forwarded-For / X-Real-IP
	TrustedProxies []string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DedupTTL      time.Duration

	StorefrontJWTSecret   string
	StorefrontThankYouURL string
	StorefrontCancelURL   string
	PublicAPIURL          string

	Nochex    NochexConfig
	Retention RetentionConfig
}

type NochexConfig struct {
	Settings      payment.Settings
	Endpoints     payment.Endpoints
	VerifyTimeout time.Duration
	VerifyRetries int
}

type RetentionConfig struct {
	Schedule string
	MaxAge   time.Duration
}

// LoadConfig reads .env and the process environment. Missing optional values
// fall back to defaults; the result is validated before it is returned.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		AppEnv:  v.GetString("APP_ENV"),
		AppPort: v.GetString("APP_PORT"),

		TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),

		DBHost:     v.GetString("DB_HOST"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBPort:     v.GetString("DB_PORT"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		DedupTTL:      v.GetDuration("DEDUP_TTL"),

		StorefrontJWTSecret:   v.GetString("STOREFRONT_JWT_SECRET"),
		StorefrontThankYouURL: v.GetString("STOREFRONT_THANKYOU_URL"),
		StorefrontCancelURL:   v.GetString("STOREFRONT_CANCEL_URL"),
		PublicAPIURL:          v.GetString("PUBLIC_API_URL"),

		Nochex: NochexConfig{
			Settings: payment.Settings{
				Enabled:              v.GetBool("NOCHEX_ENABLED"),
				Title:                v.GetString("NOCHEX_TITLE"),
				Description:          v.GetString("NOCHEX_DESCRIPTION"),
				MerchantID:           v.GetString("NOCHEX_MERCHANT_ID"),
				TestMode:             v.GetBool("NOCHEX_TEST_MODE"),
				HideBillingDetails:   v.GetBool("NOCHEX_HIDE_BILLING"),
				SendItemizedDetails:  v.GetBool("NOCHEX_ITEMIZED"),
				SeparateShippingLine: v.GetBool("NOCHEX_SEPARATE_SHIPPING"),
				CallbackMode:         v.GetBool("NOCHEX_CALLBACK_MODE"),
				DebugMode:            v.GetBool("NOCHEX_DEBUG"),
			},
			Endpoints: payment.Endpoints{
				Payment:  v.GetString("NOCHEX_PAYMENT_URL"),
				APC:      v.GetString("NOCHEX_APC_URL"),
				Callback: v.GetString("NOCHEX_CALLBACK_URL"),
			},
			VerifyTimeout: v.GetDuration("NOCHEX_VERIFY_TIMEOUT"),
			VerifyRetries: v.GetInt("NOCHEX_VERIFY_RETRIES"),
		},
		Retention: RetentionConfig{
			Schedule: v.GetString("NOTIFICATION_PURGE_SCHEDULE"),
			MaxAge:   v.GetDuration("NOTIFICATION_RETENTION"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// splitList reads a comma separated env value; viper only splits on spaces.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEDUP_TTL", "2m")
	v.SetDefault("PUBLIC_API_URL", "http://localhost:8080")
	v.SetDefault("STOREFRONT_THANKYOU_URL", "http://localhost:3000/checkout/order-received/{order_id}")
	v.SetDefault("STOREFRONT_CANCEL_URL", "http://localhost:3000/cart")
	v.SetDefault("NOCHEX_ENABLED", true)
	v.SetDefault("NOCHEX_TITLE", "Nochex")
	v.SetDefault("NOCHEX_DESCRIPTION", "Pay with your credit or debit card via Nochex.")
	v.SetDefault("NOCHEX_PAYMENT_URL", payment.DefaultPaymentURL)
	v.SetDefault("NOCHEX_APC_URL", payment.DefaultAPCURL)
	v.SetDefault("NOCHEX_CALLBACK_URL", payment.DefaultCallbackURL)
	v.SetDefault("NOCHEX_VERIFY_TIMEOUT", payment.DefaultVerifyTimeout.String())
	v.SetDefault("NOCHEX_VERIFY_RETRIES", 0)
	v.SetDefault("NOTIFICATION_RETENTION", "2160h")
	v.SetDefault("NOTIFICATION_PURGE_SCHEDULE", "@daily")
}

func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.AppPort, validation.Required),
		validation.Field(&c.TrustedProxies, validation.Each(validation.By(validProxy))),
		validation.Field(&c.DBHost, validation.Required),
		validation.Field(&c.DBName, validation.Required),
		validation.Field(&c.StorefrontJWTSecret, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.StorefrontThankYouURL, validation.Required),
		validation.Field(&c.StorefrontCancelURL, validation.Required),
		validation.Field(&c.PublicAPIURL, validation.Required, is.URL),
		validation.Field(&c.DedupTTL, validation.Min(time.Second)),
		validation.Field(&c.Retention),
	)
	if err != nil {
		return err
	}

	if err := c.Nochex.Settings.Validate(); err != nil {
		return fmt.Errorf("nochex settings: %w", err)
	}
	if err := c.Nochex.Endpoints.Validate(); err != nil {
		return fmt.Errorf("nochex endpoints: %w", err)
	}
	return validation.ValidateStruct(&c.Nochex,
		validation.Field(&c.Nochex.VerifyTimeout, validation.Min(time.Second)),
		validation.Field(&c.Nochex.VerifyRetries, validation.Min(0), validation.Max(5)),
	)
}

func validProxy(value interface{}) error {
	entry, _ := value.(string)
	_, err := transport.ParseProxies([]string{entry})
	return err
}

func (r RetentionConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Schedule, validation.Required),
		validation.Field(&r.MaxAge, validation.Min(time.Hour)),
	)
}
