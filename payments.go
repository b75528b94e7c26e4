package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// BankDetails is the receiving account printed in payment requests.
type BankDetails struct {
	Bank    string `json:"bank"`
	Name    string `json:"name"`
	Account string `json:"account"`
}

// Payment is one manual bank-transfer record, pending until the operator
// confirms the transfer arrived.
type Payment struct {
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	Amount      int         `json:"amount"`
	Currency    string      `json:"currency"`
	Reference   string      `json:"reference"`
	Status      string      `json:"status"` // pending | confirmed
	CreatedAt   time.Time   `json:"created_at"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`
	BankDetails BankDetails `json:"bank_details"`
}

// PaymentSystem keeps pending and confirmed payments in two JSON files,
// serialized behind one mutex like the user store.
type PaymentSystem struct {
	mu            sync.Mutex
	pendingPath   string
	confirmedPath string
	bank          BankDetails
	priceNGN      int
}

func NewPaymentSystem(dataDir string, bank BankDetails, priceNGN int) *PaymentSystem {
	return &PaymentSystem{
		pendingPath:   filepath.Join(dataDir, "pending_payments.json"),
		confirmedPath: filepath.Join(dataDir, "confirmed_payments.json"),
		bank:          bank,
		priceNGN:      priceNGN,
	}
}

// PaymentReference builds a unique transfer reference,
// e.g. TRADEL031415028012345678 → TRADEL + mmddhhmm + last 4 phone digits.
func PaymentReference(phone string, t time.Time) string {
	trimmed := strings.TrimSpace(phone)
	last4 := trimmed
	if len(trimmed) > 4 {
		last4 = trimmed[len(trimmed)-4:]
	}
	return "TRADEL" + t.Format("01021504") + last4
}

func loadPayments(path string) ([]Payment, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []Payment{}, nil
	}
	if err != nil {
		return nil, err
	}
	var payments []Payment
	if err := json.Unmarshal(data, &payments); err != nil {
		return nil, fmt.Errorf("payment file %s is malformed: %w", path, err)
	}
	return payments, nil
}

func savePayments(path string, payments []Payment) error {
	data, err := json.MarshalIndent(payments, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CreatePayment records a pending payment for the user and returns it.
func (p *PaymentSystem) CreatePayment(u User) (Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payment := Payment{
		UserID:      u.ID,
		Name:        u.Name,
		Phone:       u.Phone,
		Amount:      p.priceNGN,
		Currency:    "NGN",
		Reference:   PaymentReference(u.Phone, time.Now()),
		Status:      "pending",
		CreatedAt:   time.Now(),
		BankDetails: p.bank,
	}

	pending, err := loadPayments(p.pendingPath)
	if err != nil {
		return Payment{}, err
	}
	pending = append(pending, payment)
	if err := savePayments(p.pendingPath, pending); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// Confirm moves a payment from pending to confirmed. Returns the confirmed
// record, or nil when the reference is unknown.
func (p *PaymentSystem) Confirm(reference string) (*Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, err := loadPayments(p.pendingPath)
	if err != nil {
		return nil, err
	}

	var found *Payment
	remaining := make([]Payment, 0, len(pending))
	for i := range pending {
		if pending[i].Reference == reference && found == nil {
			match := pending[i]
			found = &match
		} else {
			remaining = append(remaining, pending[i])
		}
	}
	if found == nil {
		log.Printf("⚠️  Reference %s not found in pending payments", reference)
		return nil, nil
	}

	now := time.Now()
	found.Status = "confirmed"
	found.ConfirmedAt = &now

	if err := savePayments(p.pendingPath, remaining); err != nil {
		return nil, err
	}

	confirmed, err := loadPayments(p.confirmedPath)
	if err != nil {
		return nil, err
	}
	confirmed = append(confirmed, *found)
	if err := savePayments(p.confirmedPath, confirmed); err != nil {
		return nil, err
	}

	log.Printf("✅ Payment confirmed: %s", reference)
	return found, nil
}

// Pending lists all unconfirmed payments.
func (p *PaymentSystem) Pending() ([]Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return loadPayments(p.pendingPath)
}
