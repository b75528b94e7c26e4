package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration. Business settings live in
// config.json so the operator can edit them; provider secrets come from the
// environment (.env or exported vars).
type Config struct {
	Name            string  `json:"name"`
	Version         string  `json:"version"`
	Country         string  `json:"country"`
	Currency        string  `json:"currency"`
	MonthlyPriceNGN int     `json:"monthly_price_ngn"`
	MonthlyPriceUSD float64 `json:"monthly_price_usd"`
	CheckInterval   int     `json:"check_interval"` // seconds between subscription sweeps

	// Provider secrets (env only, never persisted)
	TwilioSID       string `json:"-"`
	TwilioToken     string `json:"-"`
	OneSignalAppID  string `json:"-"`
	OneSignalAPIKey string `json:"-"`
	TelegramToken   string `json:"-"`
	TelegramChatID  int64  `json:"-"`
	Port            string `json:"-"`
}

func defaults() *Config {
	return &Config{
		Name:            "TradeL",
		Version:         "1.0.0",
		Country:         "NG",
		Currency:        "NGN",
		MonthlyPriceNGN: 5000,
		MonthlyPriceUSD: 19.99,
		CheckInterval:   60,
	}
}

// Load reads .env, then config.json at path (writing defaults if the file is
// missing), then overlays the provider secrets from the environment.
func Load(path string) *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️  Warning: .env file not found. Relying on system environment variables.")
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			log.Fatalf("❌ %s is malformed: %v", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := cfg.save(path); err != nil {
			log.Printf("⚠️  Could not write default %s: %v", path, err)
		} else {
			log.Printf("💾 Wrote default config to %s", path)
		}
	} else {
		log.Fatalf("❌ Could not read %s: %v", path, err)
	}

	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 60
	}

	cfg.TwilioSID = os.Getenv("TWILIO_SID")
	cfg.TwilioToken = os.Getenv("TWILIO_TOKEN")
	cfg.OneSignalAppID = os.Getenv("ONESIGNAL_APP_ID")
	cfg.OneSignalAPIKey = os.Getenv("ONESIGNAL_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	if idStr := os.Getenv("TELEGRAM_CHAT_ID"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "5000"
	}

	return cfg
}

func (c *Config) save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
