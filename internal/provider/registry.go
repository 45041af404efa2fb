package provider

import (
	"fmt"
	"net/http"

	"bookhub/oauthbind/internal/config"
)

// Registry holds the providers enabled at startup. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	providers map[string]Provider
	names     []string
	primary   string
}

// NewRegistry registers providers in order. primary, when set, must name one
// of them.
func NewRegistry(primary string, list ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(list)), primary: primary}
	for _, p := range list {
		if _, dup := r.providers[p.Name()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name())
		}
		r.providers[p.Name()] = p
		r.names = append(r.names, p.Name())
	}
	if primary != "" {
		if _, ok := r.providers[primary]; !ok {
			return nil, fmt.Errorf("login provider %q is not enabled: %w", primary, ErrUnknownProvider)
		}
	}
	return r, nil
}

// FromConfig builds a registry with every enabled provider in cfg.
func FromConfig(cfg config.OAuth2Config, opts ...Option) (*Registry, error) {
	if cfg.HTTPTimeout > 0 {
		opts = append([]Option{WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout})}, opts...)
	}

	var list []Provider
	if cfg.GitHub.Enabled {
		p, err := NewGitHub(cfg.GitHub, opts...)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if cfg.Google.Enabled {
		p, err := NewGoogle(cfg.Google, opts...)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return NewRegistry(cfg.LoginProvider, list...)
}

// Get returns the provider by name or ErrUnknownProvider.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// DisplayName falls back to name for unregistered providers.
func (r *Registry) DisplayName(name string) string {
	if p, ok := r.providers[name]; ok {
		return p.DisplayName()
	}
	return name
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Primary is the login provider offered on the login page, or "".
func (r *Registry) Primary() string { return r.primary }
