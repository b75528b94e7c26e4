package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSweeperExpiresOverdueUsers(t *testing.T) {
	store := tempStore(t)
	id, _ := store.Add(User{Name: "Ada", Phone: "0801"})
	store.Activate(id)

	users, _ := store.All()
	past := time.Now().Add(-time.Minute)
	users[0].Expiry = &past
	if err := store.save(users); err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(store, nil, time.Hour)
	sweeper.tick()

	users, _ = store.All()
	if users[0].Status != StatusInactive {
		t.Errorf("status = %q, want inactive", users[0].Status)
	}
}

func TestSweeperTickSurvivesStorageFault(t *testing.T) {
	// Point the store at a directory so every load fails; the tick must log
	// and return, not panic.
	dir := t.TempDir()
	store := NewUserStore(dir)

	sweeper := NewSweeper(store, nil, time.Hour)
	sweeper.tick()
	sweeper.tick()
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	store := NewUserStore(filepath.Join(t.TempDir(), "users.json"))
	sweeper := NewSweeper(store, nil, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
