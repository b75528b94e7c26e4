package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"tradel-bot/config"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Println("🚀 TradeL Bot Starting...")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	for _, dir := range []string{"data", "logs", "signals"} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("❌ Could not create %s/: %v", dir, err)
		}
	}

	// Mirror logs to logs/tradel.log
	if logFile, err := os.OpenFile(filepath.Join("logs", "tradel.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	} else {
		log.Printf("⚠️  Could not open log file: %v", err)
	}

	cfg := config.Load("config.json")

	store := NewUserStore(filepath.Join("data", "users.json"))
	signals := NewSignalLog("signals")

	whatsapp := NewWhatsAppService(cfg.TwilioSID, cfg.TwilioToken)
	push := NewPushService(cfg.OneSignalAppID, cfg.OneSignalAPIKey)
	notifier := NewNotifier(cfg.TelegramToken, cfg.TelegramChatID)

	payments := NewPaymentSystem("data", BankDetails{
		Bank:    envOr("BANK_NAME", "GTBank"),
		Name:    envOr("BANK_ACCOUNT_NAME", "YOUR FULL NAME"),
		Account: envOr("BANK_ACCOUNT_NUMBER", "0123456789"),
	}, cfg.MonthlyPriceNGN)

	alerts := NewAlertSystem(whatsapp, push, store)
	hub := NewHub()

	sweeper := NewSweeper(store, notifier, time.Duration(cfg.CheckInterval)*time.Second)
	go sweeper.Run(context.Background())

	notifier.Notify("🚀 *TradeL BOT RESTARTED*\nSignal relay active.")

	server := NewServer(cfg, store, signals, alerts, payments, whatsapp, notifier, hub)

	addr := ":" + cfg.Port
	log.Printf("✅ TradeL Bot is running on %s", addr)
	log.Printf("🌐 Webhook URL: http://YOUR_SERVER_IP%s/webhook/whatsapp", addr)
	if err := http.ListenAndServe(addr, server.Routes()); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}
