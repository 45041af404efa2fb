package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"bookhub/oauthbind/internal/model"
	"bookhub/oauthbind/pkg/crypto"
)

const sealedTokenKey = "sealed"

// TokenCodec converts provider tokens to the stored TokenData form. With a
// sealer the payload is encrypted and kept under the "sealed" key.
type TokenCodec struct {
	sealer *crypto.Sealer
}

// NewTokenCodec returns a codec; a nil sealer stores tokens in clear.
func NewTokenCodec(sealer *crypto.Sealer) *TokenCodec {
	return &TokenCodec{sealer: sealer}
}

func (c *TokenCodec) Encode(token *oauth2.Token) (model.TokenData, error) {
	if token == nil {
		return nil, errors.New("encode token: nil token")
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}

	if c.sealer != nil {
		sealed, err := c.sealer.Seal(raw)
		if err != nil {
			return nil, fmt.Errorf("seal token: %w", err)
		}
		return model.TokenData{sealedTokenKey: sealed}, nil
	}

	var data model.TokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	return data, nil
}

func (c *TokenCodec) Decode(data model.TokenData) (*oauth2.Token, error) {
	var raw []byte
	if sealed, ok := data[sealedTokenKey].(string); ok {
		if c.sealer == nil {
			return nil, errors.New("decode token: token is sealed but no key is configured")
		}
		plain, err := c.sealer.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("open token: %w", err)
		}
		raw = plain
	} else {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("decode token: %w", err)
		}
		raw = b
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &token, nil
}
