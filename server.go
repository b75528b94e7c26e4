package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"tradel-bot/config"
)

// Server wires the HTTP surface to the bot's services. Everything it needs is
// passed in explicitly; there are no package-level singletons.
type Server struct {
	cfg      *config.Config
	store    *UserStore
	signals  *SignalLog
	alerts   *AlertSystem
	payments *PaymentSystem
	whatsapp *WhatsAppService
	notifier *Notifier
	hub      *Hub
}

func NewServer(cfg *config.Config, store *UserStore, signals *SignalLog, alerts *AlertSystem,
	payments *PaymentSystem, wa *WhatsAppService, notifier *Notifier, hub *Hub) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		signals:  signals,
		alerts:   alerts,
		payments: payments,
		whatsapp: wa,
		notifier: notifier,
		hub:      hub,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("POST /webhook/whatsapp", s.handleWebhook)
	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("POST /users/add", s.handleAddUser)
	mux.HandleFunc("POST /users/activate/{id}", s.handleActivateUser)
	mux.HandleFunc("POST /users/deactivate/{id}", s.handleDeactivateUser)
	mux.HandleFunc("POST /payments/request/{id}", s.handlePaymentRequest)
	mux.HandleFunc("POST /payments/confirm/{reference}", s.handlePaymentConfirm)
	mux.HandleFunc("GET /payments/pending", s.handlePaymentsPending)
	mux.HandleFunc("POST /reminders/send", s.handleSendReminders)
	mux.HandleFunc("POST /signal/test", s.handleTestSignal)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	active := 0
	for _, u := range users {
		if u.Status == StatusActive {
			active++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":         s.cfg.Name,
		"version":      s.cfg.Version,
		"total_users":  len(users),
		"active_users": active,
		"status":       "running",
		"time":         time.Now().Format(time.RFC3339),
	})
}

// handleWebhook receives the messaging provider's callback for each message
// seen in the monitored group. Twilio sends form data, not JSON.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body := r.FormValue("Body")
	sender := r.FormValue("From")
	log.Printf("📩 Incoming message from %s: %s", sender, truncateMessage(body, 80))

	if !IsTradingSignal(body) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_a_signal"})
		return
	}

	sig := ExtractSignal(body)
	signalID, err := s.processSignal(sig)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "signal_processed",
		"signal_id": signalID,
	})
}

// processSignal stamps an ID, persists the signal to the day log, and fans it
// out. Notification failures are fire-and-forget from the caller's view; only
// a storage failure surfaces as an error.
func (s *Server) processSignal(sig Signal) (string, error) {
	sig.ID = NewSignalID(sig.Timestamp)

	if err := s.signals.Append(sig); err != nil {
		return "", err
	}
	log.Printf("📈 Signal detected: %s | %s", sig.ID, truncateMessage(sig.Message, 60))

	activeUsers, err := s.store.Active()
	if err != nil {
		return "", err
	}
	s.alerts.Dispatch(sig, activeUsers)

	s.hub.BroadcastSignal(sig)
	s.notifier.NotifySignal(sig, len(activeUsers))
	return sig.ID, nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Country   string `json:"country"`
		Plan      string `json:"plan"`
		PushToken string `json:"push_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "phone is required"})
		return
	}

	userID, err := s.store.Add(User{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Country:   req.Country,
		Plan:      req.Plan,
		PushToken: req.PushToken,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added", "user_id": userID})
}

func (s *Server) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.Activate(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	// Welcome message is best-effort; activation stands either way.
	if !s.whatsapp.SendWelcome(*user) {
		log.Printf("⚠️  Could not send welcome message to %s", user.ID)
	}
	s.notifier.Notify("✅ Subscriber activated: *" + user.Name + "* (" + user.ID + ")")
	writeJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	ok, err := s.store.Deactivate(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// handlePaymentRequest creates a pending payment for a user and sends them
// the bank-transfer instructions.
func (s *Server) handlePaymentRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	users, err := s.store.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	var user *User
	for i := range users {
		if users[i].ID == id {
			user = &users[i]
			break
		}
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	payment, err := s.payments.CreatePayment(*user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !s.whatsapp.SendPaymentRequest(*user, payment) {
		log.Printf("⚠️  Could not send payment request to %s", user.ID)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "payment_requested",
		"reference": payment.Reference,
	})
}

func (s *Server) handlePaymentConfirm(w http.ResponseWriter, r *http.Request) {
	payment, err := s.payments.Confirm(r.PathValue("reference"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if payment == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reference not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "confirmed",
		"user_id": payment.UserID,
	})
}

func (s *Server) handlePaymentsPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.payments.Pending()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *Server) handleSendReminders(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	reminded := s.alerts.SendRenewalReminders(users)
	writeJSON(w, http.StatusOK, map[string]int{"reminded": reminded})
}

// handleTestSignal fans a canned alert out to all active users so the operator
// can verify the pipeline end to end.
func (s *Server) handleTestSignal(w http.ResponseWriter, r *http.Request) {
	sig := Signal{
		Timestamp: time.Now(),
		Source:    "test",
		Pair:      "BTCUSD",
		Action:    "BUY",
		Entry:     "50000",
		TP:        "51500",
		SL:        "49000",
		Message:   "🧪 This is a TEST alert from TradeL. Your alerts are working perfectly!",
		Priority:  "high",
	}
	signalID, err := s.processSignal(sig)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "test_sent", "signal_id": signalID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
