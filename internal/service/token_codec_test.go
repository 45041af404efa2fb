package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"bookhub/oauthbind/internal/model"
	"bookhub/oauthbind/pkg/crypto"
)

func TestTokenCodec_Plain(t *testing.T) {
	codec := NewTokenCodec(nil)
	expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	data, err := codec.Encode(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer", Expiry: expiry})
	require.NoError(t, err)
	assert.Equal(t, "abc", data["access_token"])

	token, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "abc", token.AccessToken)
	assert.True(t, expiry.Equal(token.Expiry))
}

func TestTokenCodec_Sealed(t *testing.T) {
	sealer, err := crypto.NewSealer("secret")
	require.NoError(t, err)
	codec := NewTokenCodec(sealer)

	data, err := codec.Encode(&oauth2.Token{AccessToken: "abc", RefreshToken: "def"})
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.IsType(t, "", data["sealed"])

	token, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "abc", token.AccessToken)
	assert.Equal(t, "def", token.RefreshToken)

	_, err = NewTokenCodec(nil).Decode(data)
	require.Error(t, err)
}

func TestTokenCodec_Errors(t *testing.T) {
	sealer, err := crypto.NewSealer("secret")
	require.NoError(t, err)

	_, err = NewTokenCodec(nil).Encode(nil)
	require.Error(t, err)

	_, err = NewTokenCodec(sealer).Decode(model.TokenData{"sealed": "not-base64!"})
	require.ErrorIs(t, err, crypto.ErrSealedDataInvalid)
}
