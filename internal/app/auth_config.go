package app

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/insurai/portal/internal/auth"
	"github.com/insurai/portal/pkg/crypto"
)

const sealingKeyPurpose = "session-sealing"

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// SealingKey returns the 32 byte AES key for backend tokens at rest. A
// configured key of any other length is stretched with Argon2id.
func (c AuthConfig) SealingKey() ([]byte, error) {
	raw, err := decodeKey(c.Session.SealingKey)
	if err != nil {
		return nil, fmt.Errorf("auth.session.sealing_key: %w", err)
	}
	if len(raw) == 32 {
		return raw, nil
	}
	return crypto.DeriveSealingKey(raw, sealingKeyPurpose, crypto.DefaultArgon2Params())
}

// decodeKey accepts hex (what runtime defaults emit), then base64, then the
// literal bytes of the value.
func decodeKey(value string) ([]byte, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, fmt.Errorf("key value is empty")
	}
	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return decoded, nil
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(v); err == nil {
			return decoded, nil
		}
	}
	return []byte(v), nil
}
