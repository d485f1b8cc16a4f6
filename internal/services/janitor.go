package services

import (
	"context"
	"log"
	"time"
)

// tokenStore is the slice of the token repository the janitor needs.
type tokenStore interface {
	DeleteStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TokenJanitor periodically drops OAuth tokens whose sessions have gone
// quiet. Session cookies expire after 30 days; tokens idle that long belong
// to cookies nobody holds anymore.
type TokenJanitor struct {
	tokens   tokenStore
	maxIdle  time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewTokenJanitor(tokens tokenStore) *TokenJanitor {
	return &TokenJanitor{
		tokens:   tokens,
		maxIdle:  30 * 24 * time.Hour,
		interval: time.Hour,
		stopChan: make(chan struct{}),
	}
}

func (j *TokenJanitor) Start() {
	go j.loop()
}

func (j *TokenJanitor) Stop() {
	close(j.stopChan)
}

func (j *TokenJanitor) loop() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *TokenJanitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := j.tokens.DeleteStale(ctx, j.maxIdle)
	if err != nil {
		log.Printf("Token janitor sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Token janitor removed %d stale OAuth tokens", deleted)
	}
}
