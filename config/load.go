package config

import (
	"log/slog"
	"os"
	"time"
)

func Load() App {
	cfg := App{
		Port:             getenv("APP_PORT", "8080"),
		DatabaseURL:      must("DATABASE_URL"),
		JWTSecret:        getenv("JWT_SECRET", "local_dev_secret"),
		StripeAPIKey:     must("STRIPE_API_KEY"),
		StripeSuccessURL: getenv("STRIPE_SUCCESS_LINK", "http://localhost:8080/v1/payments/success"),
		StripeCancelURL:  getenv("STRIPE_CANCEL_LINK", "http://localhost:8080/v1/payments/cancel"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OverdueSweep:     durenv("OVERDUE_SWEEP_INTERVAL", 24*time.Hour),
		SessionSweep:     durenv("SESSION_SWEEP_INTERVAL", time.Minute),
		Env:              getenv("APP_ENV", "dev"),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}

func durenv(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Error("invalid duration env, using default", "key", k, "value", v, "err", err)
		return def
	}
	return d
}
