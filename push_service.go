package main

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

const onesignalAPIURL = "https://onesignal.com/api/v1/notifications"

// PushService rings a subscriber's phone through OneSignal. This channel is
// optional: without both ONESIGNAL_APP_ID and ONESIGNAL_API_KEY the service is
// nil and every send reports "not attempted" rather than a failure.
type PushService struct {
	appID  string
	apiKey string
	apiURL string
	client *http.Client
}

// PushResult is the per-send outcome. Attempted stays false when the channel
// is unconfigured or the user has no registered token.
type PushResult struct {
	Attempted bool
	Success   bool
	ID        string // provider notification id
	Err       string
}

func NewPushService(appID, apiKey string) *PushService {
	if appID == "" || apiKey == "" {
		log.Println("⚠️  OneSignal not configured. Push notifications disabled.")
		return nil
	}
	log.Println("✅ OneSignal Push Service Initialized")
	return &PushService{
		appID:  appID,
		apiKey: apiKey,
		apiURL: onesignalAPIURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// onesignalPayload carries the high-priority delivery hints that make the
// notification ring the phone even on silent.
type onesignalPayload struct {
	AppID             string            `json:"app_id"`
	IncludePlayerIDs  []string          `json:"include_player_ids"`
	Headings          map[string]string `json:"headings"`
	Contents          map[string]string `json:"contents"`
	Data              Signal            `json:"data"`
	Priority          int               `json:"priority"`
	IOSSound          string            `json:"ios_sound"`
	AndroidSound      string            `json:"android_sound"`
	AndroidChannelID  string            `json:"android_channel_id"`
	AndroidLEDColor   string            `json:"android_led_color"`
	AndroidVisibility int               `json:"android_visibility"`
}

// SendSignalPush pushes one signal to one device token.
func (ps *PushService) SendSignalPush(pushToken string, sig Signal) PushResult {
	if ps == nil || ps.client == nil || pushToken == "" {
		return PushResult{Attempted: false}
	}

	body := sig.Message
	if body == "" {
		body = "New trading signal detected!"
	}

	payload := onesignalPayload{
		AppID:             ps.appID,
		IncludePlayerIDs:  []string{pushToken},
		Headings:          map[string]string{"en": sig.Title()},
		Contents:          map[string]string{"en": truncateMessage(body, 200)},
		Data:              sig,
		Priority:          10,
		IOSSound:          "alarm.caf",
		AndroidSound:      "alarm",
		AndroidChannelID:  "trade_alerts",
		AndroidLEDColor:   "FFFF0000",
		AndroidVisibility: 1,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return PushResult{Attempted: true, Err: err.Error()}
	}

	req, err := http.NewRequest(http.MethodPost, ps.apiURL, bytes.NewReader(data))
	if err != nil {
		return PushResult{Attempted: true, Err: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+ps.apiKey)

	resp, err := ps.client.Do(req)
	if err != nil {
		// Covers timeouts too; the 10s client bound keeps a hung provider
		// from stalling the rest of the batch.
		log.Printf("❌ Push notification error: %v", err)
		return PushResult{Attempted: true, Err: err.Error()}
	}
	defer resp.Body.Close()

	var result struct {
		ID     string          `json:"id"`
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return PushResult{Attempted: true, Err: err.Error()}
	}

	if resp.StatusCode == http.StatusOK && result.ID != "" {
		log.Printf("🔔 Push sent | id: %s", result.ID)
		return PushResult{Attempted: true, Success: true, ID: result.ID}
	}

	reason := resp.Status
	if len(result.Errors) > 0 {
		reason = string(result.Errors)
	}
	log.Printf("⚠️  Push issue: %s", reason)
	return PushResult{Attempted: true, Err: reason}
}
