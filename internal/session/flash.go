package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookhub/oauthbind/internal/repository"
)

const flashKeyPrefix = "flash:"

type FlashCategory string

const (
	FlashSuccess FlashCategory = "success"
	FlashError   FlashCategory = "error"
	FlashInfo    FlashCategory = "info"
)

// Flash is a one-shot user-facing notification.
type Flash struct {
	Category FlashCategory `json:"category"`
	Message  string        `json:"message"`
}

// FlashStore queues flashes per session until they are popped.
type FlashStore struct {
	store repository.StateStore
	ttl   time.Duration
}

func NewFlashStore(store repository.StateStore, ttl time.Duration) *FlashStore {
	return &FlashStore{store: store, ttl: ttl}
}

func (s *FlashStore) Push(ctx context.Context, sessionID string, flash Flash) error {
	if sessionID == "" {
		return nil
	}
	flashes, err := s.read(ctx, s.store.Get, sessionID)
	if err != nil {
		return err
	}
	flashes = append(flashes, flash)

	data, err := json.Marshal(flashes)
	if err != nil {
		return fmt.Errorf("encode flashes: %w", err)
	}
	return s.store.Set(ctx, flashKeyPrefix+sessionID, data, s.ttl)
}

// Pop returns and removes every queued flash, oldest first.
func (s *FlashStore) Pop(ctx context.Context, sessionID string) ([]Flash, error) {
	if sessionID == "" {
		return []Flash{}, nil
	}
	return s.read(ctx, s.store.Take, sessionID)
}

func (s *FlashStore) read(
	ctx context.Context,
	get func(context.Context, string) ([]byte, error),
	sessionID string,
) ([]Flash, error) {
	data, err := get(ctx, flashKeyPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("load flashes: %w", err)
	}
	flashes := []Flash{}
	if data == nil {
		return flashes, nil
	}
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil, fmt.Errorf("decode flashes: %w", err)
	}
	return flashes, nil
}
