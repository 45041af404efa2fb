package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"bookhub/oauthbind/internal/model"
	"bookhub/oauthbind/internal/provider"
	"bookhub/oauthbind/internal/repository"
)

var errStoreDown = errors.New("store down")

// memLinkRepo is an in-memory LinkRepository. WithTx restores a snapshot when
// fn fails, so rollback behaviour can be asserted.
type memLinkRepo struct {
	mu    sync.Mutex
	links map[uuid.UUID]model.IdentityLink

	failUpsert error
	failClaim  error
	failDelete error
	failGet    error
	// beforeClaim runs inside Claim before the conditional update.
	beforeClaim func(r *memLinkRepo, id uuid.UUID)
}

func newMemLinkRepo() *memLinkRepo {
	return &memLinkRepo{links: make(map[uuid.UUID]model.IdentityLink)}
}

func (r *memLinkRepo) find(match func(model.IdentityLink) bool) (*model.IdentityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	for _, l := range r.links {
		if match(l) {
			cp := l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memLinkRepo) GetByProviderUserID(_ context.Context, p, id string) (*model.IdentityLink, error) {
	return r.find(func(l model.IdentityLink) bool { return l.Provider == p && l.ProviderUserID == id })
}

func (r *memLinkRepo) GetByUserAndProvider(_ context.Context, userID uuid.UUID, p string) (*model.IdentityLink, error) {
	return r.find(func(l model.IdentityLink) bool { return l.Provider == p && l.OwnedBy(userID) })
}

func (r *memLinkRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]model.IdentityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	var out []model.IdentityLink
	for _, l := range r.links {
		if l.OwnedBy(userID) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (r *memLinkRepo) UpsertToken(_ context.Context, link *model.IdentityLink) (*model.IdentityLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpsert != nil {
		return nil, r.failUpsert
	}
	for id, l := range r.links {
		if l.Provider == link.Provider && l.ProviderUserID == link.ProviderUserID {
			l.Token = link.Token
			r.links[id] = l
			cp := l
			return &cp, nil
		}
	}
	stored := *link
	stored.ID = uuid.New()
	r.links[stored.ID] = stored
	return &stored, nil
}

func (r *memLinkRepo) Claim(_ context.Context, id, userID uuid.UUID) (bool, error) {
	if r.beforeClaim != nil {
		r.beforeClaim(r, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failClaim != nil {
		return false, r.failClaim
	}
	l, ok := r.links[id]
	if !ok || l.UserID != nil {
		return false, nil
	}
	owner := userID
	l.UserID = &owner
	r.links[id] = l
	return true, nil
}

func (r *memLinkRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	delete(r.links, id)
	return nil
}

func (r *memLinkRepo) WithTx(_ context.Context, fn func(repository.LinkRepository) error) error {
	snapshot := r.snapshot()
	if err := fn(r); err != nil {
		r.mu.Lock()
		r.links = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memLinkRepo) snapshot() map[uuid.UUID]model.IdentityLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[uuid.UUID]model.IdentityLink, len(r.links))
	for id, l := range r.links {
		cp[id] = l
	}
	return cp
}

func (r *memLinkRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// seed stores a link directly, claimed by owner when owner is non-nil.
func (r *memLinkRepo) seed(p, providerUserID string, owner *uuid.UUID) model.IdentityLink {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := model.IdentityLink{
		ID:             uuid.New(),
		Provider:       p,
		ProviderUserID: providerUserID,
		Token:          model.TokenData{"access_token": "seed"},
		UserID:         owner,
	}
	r.links[l.ID] = l
	return l
}

var _ repository.LinkRepository = (*memLinkRepo)(nil)

// fakeProvider answers Exchange and FetchUserID from fixed tables.
type fakeProvider struct {
	name    string
	display string
	tokens  map[string]string // code -> access token
	users   map[string]string // access token -> provider user id
}

func (p *fakeProvider) Name() string        { return p.name }
func (p *fakeProvider) DisplayName() string { return p.display }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://" + p.name + ".example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	access, ok := p.tokens[code]
	if !ok {
		return nil, errors.New("invalid_grant")
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

func (p *fakeProvider) FetchUserID(_ context.Context, token *oauth2.Token) (string, error) {
	id, ok := p.users[token.AccessToken]
	if !ok {
		return "", provider.ErrRequestFailed
	}
	return id, nil
}

func newTestRegistry(t *testing.T) *provider.Registry {
	t.Helper()
	reg, err := provider.NewRegistry("github",
		&fakeProvider{
			name: "github", display: "GitHub",
			tokens: map[string]string{"gh-code": "gh-token", "gh-code-2": "gh-token-2"},
			users:  map[string]string{"gh-token": "42", "gh-token-2": "42"},
		},
		&fakeProvider{
			name: "google", display: "Google",
			tokens: map[string]string{"g-code": "g-token", "g-orphan": "g-orphan-token"},
			users:  map[string]string{"g-token": "99"},
		},
	)
	require.NoError(t, err)
	return reg
}
