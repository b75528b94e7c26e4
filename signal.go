package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Signal is one trading call extracted from a group message. Immutable once
// created; appended to the daily signal log and fanned out to subscribers.
type Signal struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Pair      string    `json:"pair"`
	Action    string    `json:"action"` // "BUY", "SELL" or "" when unclear
	Entry     string    `json:"entry"`
	TP        string    `json:"tp"`
	SL        string    `json:"sl"`
	Message   string    `json:"message"`
	Priority  string    `json:"priority"` // "high" when an action was found, else "medium"
}

const fieldMissing = "N/A"

var signalKeywords = []string{"BUY", "SELL", "LONG", "SHORT", "TP:", "SL:", "ENTRY", "SIGNAL"}

// tradingPairs is scanned in this order; the first token present in the text
// wins, regardless of where it appears.
var tradingPairs = []string{"BTC", "ETH", "XRP", "SOL", "ADA", "BNB",
	"USD", "EUR", "GBP", "JPY", "XAUUSD", "GOLD"}

var (
	numberPattern = regexp.MustCompile(`\d+\.?\d*`)
	entryPattern  = regexp.MustCompile(`ENTRY[:\s]+([0-9]+\.?[0-9]*)`)
	tpPattern     = regexp.MustCompile(`TP[:\s]+([0-9]+\.?[0-9]*)`)
	slPattern     = regexp.MustCompile(`SL[:\s]+([0-9]+\.?[0-9]*)`)
)

// IsTradingSignal decides whether a raw group message looks like a trade call.
// A keyword alone is not enough; the text must also carry a known pair token or
// at least one number, otherwise chatter like "nice buy!" would slip through.
func IsTradingSignal(text string) bool {
	if text == "" {
		return false
	}
	upper := strings.ToUpper(text)

	hasKeyword := false
	for _, k := range signalKeywords {
		if strings.Contains(upper, k) {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return false
	}

	for _, p := range tradingPairs {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return numberPattern.MatchString(text)
}

// ExtractSignal pulls structured fields out of the raw message. Best effort:
// anything that cannot be parsed degrades to a sentinel, never an error.
func ExtractSignal(text string) Signal {
	upper := strings.ToUpper(text)

	action := ""
	if strings.Contains(upper, "BUY") || strings.Contains(upper, "LONG") {
		action = "BUY"
	} else if strings.Contains(upper, "SELL") || strings.Contains(upper, "SHORT") {
		action = "SELL"
	}

	pair := ""
	for _, p := range tradingPairs {
		if strings.Contains(upper, p) {
			pair = p
			break
		}
	}

	findValue := func(re *regexp.Regexp) string {
		if m := re.FindStringSubmatch(upper); m != nil {
			return m[1]
		}
		return fieldMissing
	}

	priority := "medium"
	if action != "" {
		priority = "high"
	}

	return Signal{
		Timestamp: time.Now(),
		Source:    "whatsapp",
		Pair:      pair,
		Action:    action,
		Entry:     findValue(entryPattern),
		TP:        findValue(tpPattern),
		SL:        findValue(slPattern),
		Message:   text,
		Priority:  priority,
	}
}

// NewSignalID returns a fresh time-derived signal identifier, e.g. SIG20260115093045.
func NewSignalID(t time.Time) string {
	return "SIG" + t.Format("20060102150405")
}

// Title builds the short push/feed headline for a signal.
func (s Signal) Title() string {
	if s.Action != "" && s.Pair != "" {
		return fmt.Sprintf("🚨 TradeL: %s %s", s.Action, s.Pair)
	}
	return "🚨 TradeL Alert"
}
