package config

import "time"

type App struct {
	Port             string        `env:"APP_PORT" default:"8080"`
	DatabaseURL      string        `env:"DATABASE_URL,required"`
	JWTSecret        string        `env:"JWT_SECRET,required"`
	StripeAPIKey     string        `env:"STRIPE_API_KEY,required"`
	StripeSuccessURL string        `env:"STRIPE_SUCCESS_LINK"`
	StripeCancelURL  string        `env:"STRIPE_CANCEL_LINK"`
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	OverdueSweep     time.Duration `env:"OVERDUE_SWEEP_INTERVAL" default:"24h"`
	SessionSweep     time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"1m"`
	Env              string        `env:"APP_ENV" default:"dev"`
}
