package main

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Sweeper flips expired active subscriptions to inactive on a fixed interval.
// The loop runs until the context is cancelled; a fault in one tick is logged
// and the next tick proceeds normally.
type Sweeper struct {
	store    *UserStore
	notifier *Notifier
	interval time.Duration
}

func NewSweeper(store *UserStore, notifier *Notifier, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, notifier: notifier, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("🔄 Subscription sweeper started (interval: %s)", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🔄 Subscription sweeper stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sweeper) tick() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Sweep panic: %v", r)
		}
	}()

	expired, err := s.store.ExpireOverdue(time.Now())
	if err != nil {
		log.Printf("❌ Sweep error: %v", err)
		return
	}
	for _, u := range expired {
		log.Printf("📅 Subscription expired: %s (%s)", u.ID, u.Name)
	}
	if len(expired) > 0 {
		s.notifier.Notify(fmt.Sprintf("📅 *Sweep*: %d subscription(s) expired.", len(expired)))
	}
}
