package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempStore(t *testing.T) *UserStore {
	t.Helper()
	return NewUserStore(filepath.Join(t.TempDir(), "users.json"))
}

func TestMissingFileIsEmptyCollection(t *testing.T) {
	store := tempStore(t)
	users, err := store.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty collection, got %d users", len(users))
	}
}

func TestMalformedFileFailsLoudly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	store := NewUserStore(path)
	if _, err := store.All(); err == nil {
		t.Fatal("expected error for malformed users file")
	}
}

func TestAddUserDefaults(t *testing.T) {
	store := tempStore(t)
	id, err := store.Add(User{Phone: "08012345678"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !strings.HasPrefix(id, "TR") {
		t.Errorf("id = %q, want TR prefix", id)
	}

	users, _ := store.All()
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	u := users[0]
	if u.Status != StatusPending {
		t.Errorf("status = %q, want pending", u.Status)
	}
	if u.Name != "Trader" || u.Plan != "basic" || u.Country != "NG" {
		t.Errorf("defaults not applied: %+v", u)
	}
	if u.Expiry != nil {
		t.Error("expiry should be unset before activation")
	}
	if u.AlertsReceived != 0 {
		t.Errorf("alerts_received = %d, want 0", u.AlertsReceived)
	}
}

func TestUserIDsAreUniqueWithinOneSecond(t *testing.T) {
	store := tempStore(t)
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		id, err := store.Add(User{Phone: "08012345678"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestActivateSetsThirtyDayExpiry(t *testing.T) {
	store := tempStore(t)
	id, _ := store.Add(User{Phone: "08012345678"})

	before := time.Now()
	user, err := store.Activate(id)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if user == nil {
		t.Fatal("Activate returned nil for a known user")
	}
	if user.Status != StatusActive {
		t.Errorf("status = %q, want active", user.Status)
	}
	if user.Expiry == nil {
		t.Fatal("expiry not set on activation")
	}
	want := before.Add(subscriptionWindow)
	if diff := user.Expiry.Sub(want); diff < 0 || diff > time.Minute {
		t.Errorf("expiry = %v, want ~%v", user.Expiry, want)
	}
}

func TestActivateUnknownUser(t *testing.T) {
	store := tempStore(t)
	user, err := store.Activate("TRnope")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if user != nil {
		t.Fatal("expected nil for unknown user")
	}
}

func TestDeactivate(t *testing.T) {
	store := tempStore(t)
	id, _ := store.Add(User{Phone: "08012345678"})
	store.Activate(id)

	ok, err := store.Deactivate(id)
	if err != nil || !ok {
		t.Fatalf("Deactivate = %v, %v", ok, err)
	}
	users, _ := store.All()
	if users[0].Status != StatusInactive {
		t.Errorf("status = %q, want inactive", users[0].Status)
	}

	ok, _ = store.Deactivate("TRnope")
	if ok {
		t.Error("Deactivate should report false for unknown user")
	}
}

func TestActiveFiltersByStatus(t *testing.T) {
	store := tempStore(t)
	a, _ := store.Add(User{Name: "A", Phone: "0801"})
	store.Add(User{Name: "B", Phone: "0802"})
	store.Activate(a)

	active, err := store.Active()
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Name != "A" {
		t.Fatalf("active = %+v, want only A", active)
	}
}

func TestIncrementAlerts(t *testing.T) {
	store := tempStore(t)
	a, _ := store.Add(User{Name: "A", Phone: "0801"})
	b, _ := store.Add(User{Name: "B", Phone: "0802"})

	if err := store.IncrementAlerts([]string{a}); err != nil {
		t.Fatal(err)
	}
	if err := store.IncrementAlerts(nil); err != nil {
		t.Fatal(err)
	}

	users, _ := store.All()
	counts := map[string]int{}
	for _, u := range users {
		counts[u.ID] = u.AlertsReceived
	}
	if counts[a] != 1 || counts[b] != 0 {
		t.Errorf("counts = %v, want a:1 b:0", counts)
	}
}

func TestExpireOverdue(t *testing.T) {
	store := tempStore(t)
	expired, _ := store.Add(User{Name: "Old", Phone: "0801"})
	fresh, _ := store.Add(User{Name: "New", Phone: "0802"})
	store.Activate(expired)
	store.Activate(fresh)

	// Rewind the first user's expiry into the past.
	users, _ := store.All()
	for i := range users {
		if users[i].ID == expired {
			past := time.Now().Add(-24 * time.Hour)
			users[i].Expiry = &past
		}
	}
	if err := store.save(users); err != nil {
		t.Fatal(err)
	}

	flipped, err := store.ExpireOverdue(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(flipped) != 1 || flipped[0].ID != expired {
		t.Fatalf("flipped = %+v, want only %s", flipped, expired)
	}

	users, _ = store.All()
	for _, u := range users {
		switch u.ID {
		case expired:
			if u.Status != StatusInactive {
				t.Errorf("expired user status = %q, want inactive", u.Status)
			}
		case fresh:
			if u.Status != StatusActive {
				t.Errorf("fresh user status = %q, want active", u.Status)
			}
		}
	}
}

func TestExpireOverdueCleanPassWritesNothing(t *testing.T) {
	store := tempStore(t)
	id, _ := store.Add(User{Phone: "0801"})
	store.Activate(id)

	flipped, err := store.ExpireOverdue(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if flipped != nil {
		t.Fatalf("flipped = %+v, want none", flipped)
	}

	// A clean pass must not rewrite the file.
	before, _ := os.Stat(store.path)
	time.Sleep(10 * time.Millisecond)
	if _, err := store.ExpireOverdue(time.Now()); err != nil {
		t.Fatal(err)
	}
	after, _ := os.Stat(store.path)
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("clean sweep rewrote the users file")
	}
}

func TestExpireOverdueIsIdempotent(t *testing.T) {
	store := tempStore(t)
	id, _ := store.Add(User{Phone: "0801"})
	store.Activate(id)

	users, _ := store.All()
	past := time.Now().Add(-time.Hour)
	users[0].Expiry = &past
	if err := store.save(users); err != nil {
		t.Fatal(err)
	}

	first, _ := store.ExpireOverdue(time.Now())
	if len(first) != 1 {
		t.Fatalf("first sweep flipped %d users, want 1", len(first))
	}
	second, _ := store.ExpireOverdue(time.Now())
	if len(second) != 0 {
		t.Fatalf("second sweep flipped %d users, want 0", len(second))
	}
}

func TestSignalLogAppend(t *testing.T) {
	dir := t.TempDir()
	slog := NewSignalLog(dir)

	sig := ExtractSignal("BUY BTC at 50000")
	sig.ID = NewSignalID(sig.Timestamp)
	if err := slog.Append(sig); err != nil {
		t.Fatal(err)
	}
	sig2 := ExtractSignal("SELL ETH at 3000")
	sig2.ID = NewSignalID(sig2.Timestamp)
	if err := slog.Append(sig2); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, sig.Timestamp.Format("2006-01-02")+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("day file not written: %v", err)
	}
	var got []Signal
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("day log has %d signals, want 2", len(got))
	}
	if got[0].Message != "BUY BTC at 50000" {
		t.Errorf("first logged message = %q", got[0].Message)
	}
}
