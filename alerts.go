package main

import (
	"log"
	"time"
)

// AlertSystem fans one signal out to every active subscriber over the
// WhatsApp and push channels. One user's channel failure never aborts the
// batch.
type AlertSystem struct {
	whatsapp *WhatsAppService
	push     *PushService
	store    *UserStore
}

// DispatchOutcome records what happened for one subscriber during a pass.
type DispatchOutcome struct {
	UserID      string
	Skipped     bool // no phone on file, nothing attempted
	WhatsAppOK  bool
	WhatsAppErr string
	Push        PushResult
}

func NewAlertSystem(wa *WhatsAppService, push *PushService, store *UserStore) *AlertSystem {
	return &AlertSystem{whatsapp: wa, push: push, store: store}
}

// Dispatch runs one pass over the given active users. Users without a phone
// are skipped outright. Every attempted user gets their alert counter bumped,
// whether or not either channel succeeded: the counter tracks dispatch
// attempts, not confirmed deliveries. The updated counters are persisted once
// at the end of the pass.
func (a *AlertSystem) Dispatch(sig Signal, activeUsers []User) []DispatchOutcome {
	log.Printf("📣 Sending alerts to %d active users", len(activeUsers))

	outcomes := make([]DispatchOutcome, 0, len(activeUsers))
	attempted := make([]string, 0, len(activeUsers))

	for _, user := range activeUsers {
		if user.Phone == "" {
			outcomes = append(outcomes, DispatchOutcome{UserID: user.ID, Skipped: true})
			continue
		}

		out := DispatchOutcome{UserID: user.ID}

		ok, result := a.whatsapp.SendAlert(user.Phone, sig)
		out.WhatsAppOK = ok
		if ok {
			log.Printf("  ✅ Alert sent to %s (%s)", user.Name, user.Phone)
		} else {
			out.WhatsAppErr = result
			log.Printf("  ❌ WhatsApp failed → %s: %s", user.Name, result)
		}

		// Push is a second, independent delivery: its outcome does not
		// depend on the WhatsApp result.
		if user.PushToken != "" {
			out.Push = a.push.SendSignalPush(user.PushToken, sig)
			if out.Push.Attempted && !out.Push.Success {
				log.Printf("  ❌ Push failed → %s: %s", user.Name, out.Push.Err)
			}
		}

		attempted = append(attempted, user.ID)
		outcomes = append(outcomes, out)
	}

	if err := a.store.IncrementAlerts(attempted); err != nil {
		log.Printf("❌ Could not persist alert counters: %v", err)
	}
	return outcomes
}

// SendRenewalReminders messages active users expiring within three days and
// returns how many were reminded. Per-user failures are logged and skipped.
func (a *AlertSystem) SendRenewalReminders(users []User) int {
	now := time.Now()
	reminded := 0
	for _, u := range users {
		if u.Status != StatusActive || u.Expiry == nil {
			continue
		}
		daysLeft := int(u.Expiry.Sub(now).Hours() / 24)
		if daysLeft < 0 || daysLeft > 3 {
			continue
		}
		if a.whatsapp.SendRenewalReminder(u, daysLeft) {
			reminded++
			log.Printf("⏰ Renewal reminder sent to %s (%dd left)", u.Name, daysLeft)
		}
	}
	log.Printf("📨 Sent %d renewal reminder(s)", reminded)
	return reminded
}
