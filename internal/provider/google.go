package provider

import (
	"golang.org/x/oauth2/google"

	"bookhub/oauthbind/internal/config"
	"bookhub/oauthbind/internal/model"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// NewGoogle builds the Google provider. The "who am I" endpoint is
// /oauth2/v2/userinfo.
func NewGoogle(cfg config.OAuth2ProviderConfig, opts ...Option) (Provider, error) {
	p, err := newOAuthProvider(
		model.ProviderGoogle, "Google", cfg,
		google.Endpoint, googleUserInfoURL,
		[]string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		opts,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
