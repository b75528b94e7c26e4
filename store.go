package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Subscription states
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const subscriptionWindow = 30 * 24 * time.Hour

// User is one subscriber record. Expiry is set when the user is activated and
// is nil until then. AlertsReceived counts dispatch attempts, not confirmed
// deliveries.
type User struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Country        string     `json:"country"`
	Plan           string     `json:"plan"`
	Status         string     `json:"status"`
	PushToken      string     `json:"push_token,omitempty"`
	Joined         time.Time  `json:"joined"`
	Expiry         *time.Time `json:"expiry"`
	AlertsReceived int        `json:"alerts_received"`
}

// UserStore owns data/users.json. Every operation is a full read-modify-write
// of the file, serialized behind one mutex so a dispatch pass and a sweep can
// never interleave and lose each other's update.
type UserStore struct {
	mu   sync.Mutex
	path string
}

func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

// load reads the whole collection. A missing file is an empty collection; a
// file that exists but does not parse is a hard error (silently treating it as
// empty would drop every subscriber on the next save).
func (s *UserStore) load() ([]User, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []User{}, nil
	}
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("users file %s is malformed: %w", s.path, err)
	}
	return users, nil
}

func (s *UserStore) save(users []User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0644)
}

// NewUserID returns a time-derived subscriber ID. The uuid fragment keeps two
// users created within the same second distinct.
func NewUserID(t time.Time) string {
	return "TR" + t.Format("20060102150405") + "-" + uuid.NewString()[:8]
}

// Add creates a pending subscriber and returns its generated ID.
func (s *UserStore) Add(u User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return "", err
	}

	now := time.Now()
	u.ID = NewUserID(now)
	if u.Name == "" {
		u.Name = "Trader"
	}
	if u.Country == "" {
		u.Country = "NG"
	}
	if u.Plan == "" {
		u.Plan = "basic"
	}
	u.Status = StatusPending
	u.Joined = now
	u.Expiry = nil
	u.AlertsReceived = 0

	users = append(users, u)
	if err := s.save(users); err != nil {
		return "", err
	}
	log.Printf("✅ Added user: %s (%s)", u.Name, u.ID)
	return u.ID, nil
}

// Activate flips a user to active and stamps a fresh 30-day expiry. Returns
// the updated record, or nil if the ID is unknown.
func (s *UserStore) Activate(id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			expiry := time.Now().Add(subscriptionWindow)
			users[i].Status = StatusActive
			users[i].Expiry = &expiry
			if err := s.save(users); err != nil {
				return nil, err
			}
			log.Printf("✅ Activated user: %s", id)
			u := users[i]
			return &u, nil
		}
	}
	log.Printf("⚠️  User not found: %s", id)
	return nil, nil
}

// Deactivate flips a user to inactive. Returns false if the ID is unknown.
func (s *UserStore) Deactivate(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return false, err
	}
	for i := range users {
		if users[i].ID == id {
			users[i].Status = StatusInactive
			if err := s.save(users); err != nil {
				return false, err
			}
			log.Printf("🔴 Deactivated user: %s", id)
			return true, nil
		}
	}
	return false, nil
}

// All returns the full collection.
func (s *UserStore) All() ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Active returns subscribers eligible for alerts.
func (s *UserStore) Active() ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	active := []User{}
	for _, u := range users {
		if u.Status == StatusActive {
			active = append(active, u)
		}
	}
	return active, nil
}

// IncrementAlerts bumps the alert counter for the given IDs in one write.
// Re-reading inside the lock (instead of writing back the dispatch pass's
// snapshot) means a sweep that ran mid-pass keeps its status flips.
func (s *UserStore) IncrementAlerts(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range users {
		if want[users[i].ID] {
			users[i].AlertsReceived++
		}
	}
	return s.save(users)
}

// ExpireOverdue transitions active users whose expiry has passed to inactive
// and returns them. A pass that changes nothing performs no write.
func (s *UserStore) ExpireOverdue(now time.Time) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	var expired []User
	for i := range users {
		if users[i].Status == StatusActive && users[i].Expiry != nil && now.After(*users[i].Expiry) {
			users[i].Status = StatusInactive
			expired = append(expired, users[i])
		}
	}
	if len(expired) == 0 {
		return nil, nil
	}
	if err := s.save(users); err != nil {
		return nil, err
	}
	return expired, nil
}

// SignalLog appends accepted signals to a per-day JSON file under dir.
// Signals are never mutated or deleted, but the day's array is still rewritten
// whole on each append.
type SignalLog struct {
	mu  sync.Mutex
	dir string
}

func NewSignalLog(dir string) *SignalLog {
	return &SignalLog{dir: dir}
}

func (l *SignalLog) Append(sig Signal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(l.dir, sig.Timestamp.Format("2006-01-02")+".json")

	signals := []Signal{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &signals); err != nil {
			return fmt.Errorf("signal log %s is malformed: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	signals = append(signals, sig)
	out, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

func truncateMessage(msg string, n int) string {
	r := []rune(msg)
	if len(r) <= n {
		return msg
	}
	return string(r[:n])
}
