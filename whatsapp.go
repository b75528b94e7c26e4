package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com"

// sandboxNumber is the Twilio WhatsApp sandbox sender, used until a dedicated
// number is provisioned.
const sandboxNumber = "whatsapp:+14155238886"

// WhatsAppService sends WhatsApp messages through the Twilio REST API. All
// transport errors are converted to a (false, reason) result; nothing escapes
// this boundary.
type WhatsAppService struct {
	sid    string
	token  string
	from   string
	apiURL string
	client *http.Client
}

// NewWhatsAppService returns nil when the Twilio credentials are not set, and
// the caller treats the channel as unavailable.
func NewWhatsAppService(sid, token string) *WhatsAppService {
	if sid == "" || token == "" {
		log.Println("⚠️  TWILIO_SID / TWILIO_TOKEN not set. WhatsApp channel disabled.")
		return nil
	}
	return &WhatsAppService{
		sid:    sid,
		token:  token,
		from:   sandboxNumber,
		apiURL: twilioAPIBase,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// normalizePhone accepts local and international formats and returns digits
// only, e.g. 08012345678 → 2348012345678, +2348012345678 → 2348012345678.
func normalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		phone = "234" + phone[1:]
	}
	return phone
}

// SendMessage delivers one WhatsApp message. Returns (true, message SID) or
// (false, error description).
func (w *WhatsAppService) SendMessage(toNumber, message string) (bool, string) {
	if w == nil {
		return false, "whatsapp channel not configured"
	}

	toWhatsApp := "whatsapp:+" + normalizePhone(toNumber)

	form := url.Values{}
	form.Set("From", w.from)
	form.Set("To", toWhatsApp)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", w.apiURL, w.sid)
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(w.sid, w.token)

	resp, err := w.client.Do(req)
	if err != nil {
		log.Printf("❌ Failed to send to %s: %v", toNumber, err)
		return false, err.Error()
	}
	defer resp.Body.Close()

	var body struct {
		SID     string `json:"sid"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode < 300 {
		return false, err.Error()
	}

	if resp.StatusCode >= 300 {
		reason := body.Message
		if reason == "" {
			reason = resp.Status
		}
		log.Printf("❌ Failed to send to %s: %s", toNumber, reason)
		return false, reason
	}

	log.Printf("📤 Message sent to %s | SID: %s", toWhatsApp, body.SID)
	return true, body.SID
}

// SendAlert sends the formatted trade alert for one signal.
func (w *WhatsAppService) SendAlert(toNumber string, sig Signal) (bool, string) {
	return w.SendMessage(toNumber, FormatAlertMessage(sig))
}

// FormatAlertMessage renders the trade-alert template.
func FormatAlertMessage(sig Signal) string {
	actionEmoji := "⚪"
	switch strings.ToUpper(sig.Action) {
	case "BUY":
		actionEmoji = "🟢"
	case "SELL":
		actionEmoji = "🔴"
	}

	pair := sig.Pair
	if pair == "" {
		pair = fieldMissing
	}
	action := sig.Action
	if action == "" {
		action = fieldMissing
	}

	return fmt.Sprintf(
		"🚨 *TradeL Alert* 🚨\n"+
			"──────────────────\n"+
			"*Pair:*   %s\n"+
			"*Action:* %s %s\n"+
			"*Entry:*  %s\n"+
			"*TP:*     %s\n"+
			"*SL:*     %s\n"+
			"──────────────────\n"+
			"%s\n"+
			"──────────────────\n"+
			"⏱ %s\n"+
			"_TradeL – Never miss a trade._",
		pair, actionEmoji, action, sig.Entry, sig.TP, sig.SL,
		sig.Message, sig.Timestamp.Format("2006-01-02 15:04"))
}

// SendWelcome greets a freshly activated subscriber.
func (w *WhatsAppService) SendWelcome(u User) bool {
	expiry := ""
	if u.Expiry != nil {
		expiry = u.Expiry.Format("2006-01-02")
	}
	message := fmt.Sprintf(
		"🌟 *Welcome to TradeL!* 🌟\n\n"+
			"Hello %s,\n\n"+
			"Your subscription is now *ACTIVE* ✅\n\n"+
			"*Plan:*    %s\n"+
			"*Started:* %s\n"+
			"*Expiry:*  %s\n\n"+
			"From now on, every trading signal from your group will:\n"+
			"• 📩 Be sent here instantly\n"+
			"• 📞 Ring your phone (if push enabled)\n\n"+
			"Reply *STOP* at any time to pause alerts.\n\n"+
			"Happy trading! 📈\n"+
			"*— The TradeL Team*",
		u.Name, titleCase(u.Plan), u.Joined.Format("2006-01-02"), expiry)
	ok, _ := w.SendMessage(u.Phone, message)
	return ok
}

// SendPaymentRequest sends bank-transfer instructions for a pending payment.
func (w *WhatsAppService) SendPaymentRequest(u User, p Payment) bool {
	amount := formatAmount(p.Amount)
	message := fmt.Sprintf(
		"💳 *TradeL Payment Request*\n\n"+
			"Hi %s,\n\n"+
			"*Reference:* `%s`\n"+
			"*Amount:*    ₦%s\n\n"+
			"*Bank Details:*\n"+
			"🏦 Bank:    %s\n"+
			"👤 Name:    %s\n"+
			"🔢 Account: %s\n\n"+
			"*Steps:*\n"+
			"1️⃣  Transfer ₦%s\n"+
			"2️⃣  Use `%s` as reference\n"+
			"3️⃣  Send screenshot here\n"+
			"4️⃣  Activation within 30 minutes ✅\n\n"+
			"Questions? Just reply here. 😊",
		u.Name, p.Reference, amount,
		p.BankDetails.Bank, p.BankDetails.Name, p.BankDetails.Account,
		amount, p.Reference)
	ok, _ := w.SendMessage(u.Phone, message)
	return ok
}

// SendRenewalReminder nudges a subscriber whose plan expires soon.
func (w *WhatsAppService) SendRenewalReminder(u User, daysLeft int) bool {
	message := fmt.Sprintf(
		"⏰ *TradeL Renewal Reminder*\n\n"+
			"Hi %s,\n\n"+
			"Your TradeL subscription expires in *%d day(s)*.\n\n"+
			"To keep receiving alerts, please renew before your expiry date.\n"+
			"Reply *RENEW* and we'll send payment details. 🙏\n\n"+
			"*— TradeL Team*",
		u.Name, daysLeft)
	ok, _ := w.SendMessage(u.Phone, message)
	return ok
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatAmount renders 5000 as "5,000".
func formatAmount(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
