package provider

import (
	"golang.org/x/oauth2/github"

	"bookhub/oauthbind/internal/config"
	"bookhub/oauthbind/internal/model"
)

const githubUserURL = "https://api.github.com/user"

// NewGitHub builds the GitHub provider. The "who am I" endpoint is /user.
func NewGitHub(cfg config.OAuth2ProviderConfig, opts ...Option) (Provider, error) {
	p, err := newOAuthProvider(
		model.ProviderGitHub, "GitHub", cfg,
		github.Endpoint, githubUserURL,
		[]string{"read:user"},
		opts,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
