// Package session keeps transient, per-browser-session state: which
// providers the session authenticated through and the queued flash
// notifications. Nothing here is authoritative; the link store is.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookhub/oauthbind/internal/repository"
)

const markerKeyPrefix = "oauth_markers:"

// Marker records that the session completed a handshake with a provider.
// Provider tokens are kept only in the link store, where they may be sealed.
type Marker struct {
	ProviderUserID string `json:"provider_user_id"`
}

// Markers maps provider name to the session's marker for it.
type Markers map[string]Marker

// Pending returns provider -> provider_user_id for every marker with an id,
// in a form the claim step consumes.
func (m Markers) Pending() map[string]string {
	out := make(map[string]string, len(m))
	for provider, marker := range m {
		if marker.ProviderUserID != "" {
			out[provider] = marker.ProviderUserID
		}
	}
	return out
}

// MarkerStore persists Markers in the StateStore keyed by session id.
type MarkerStore struct {
	store repository.StateStore
	ttl   time.Duration
}

func NewMarkerStore(store repository.StateStore, ttl time.Duration) *MarkerStore {
	return &MarkerStore{store: store, ttl: ttl}
}

// Load returns the session's markers; an unknown session has none.
func (s *MarkerStore) Load(ctx context.Context, sessionID string) (Markers, error) {
	markers := Markers{}
	if sessionID == "" {
		return markers, nil
	}
	data, err := s.store.Get(ctx, markerKeyPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}
	if data == nil {
		return markers, nil
	}
	if err := json.Unmarshal(data, &markers); err != nil {
		return nil, fmt.Errorf("decode markers: %w", err)
	}
	return markers, nil
}

// Put sets the marker for provider, replacing any previous one.
func (s *MarkerStore) Put(ctx context.Context, sessionID, provider string, marker Marker) error {
	markers, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	markers[provider] = marker

	data, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}
	return s.store.Set(ctx, markerKeyPrefix+sessionID, data, s.ttl)
}

// Clear drops every marker of the session.
func (s *MarkerStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.Delete(ctx, markerKeyPrefix+sessionID)
}
