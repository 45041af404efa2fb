package provider

import "errors"

var (
	ErrMissingClientID     = errors.New("oauth2: missing client ID")
	ErrMissingClientSecret = errors.New("oauth2: missing client secret")
	ErrUnknownProvider     = errors.New("oauth2: unknown provider")
	ErrDuplicateProvider   = errors.New("oauth2: provider registered twice")
	ErrFetchFailed         = errors.New("oauth2: failed to fetch from provider")
	ErrRequestFailed       = errors.New("oauth2: request returned non-OK status")
	ErrDecodeFailed        = errors.New("oauth2: failed to decode response")
	ErrMissingUserID       = errors.New("oauth2: profile has no id")
)
