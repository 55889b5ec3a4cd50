package app

import (
	"encoding/base64"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/insurai/portal/internal/auth"
)

func TestSealingKeyEncodings(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	cases := map[string]string{
		"hex":        hex.EncodeToString(raw),
		"base64":     base64.StdEncoding.EncodeToString(raw),
		"raw base64": base64.RawStdEncoding.EncodeToString(raw),
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := AuthConfig{Session: SessionSettings{SealingKey: "  " + encoded + "  "}}
			key, err := cfg.SealingKey()
			require.NoError(t, err)
			require.Equal(t, raw, key)
		})
	}
}

func TestSealingKeyStretchesShortSecrets(t *testing.T) {
	cfg := AuthConfig{Session: SessionSettings{SealingKey: "portal passphrase!"}}

	first, err := cfg.SealingKey()
	require.NoError(t, err)
	require.Len(t, first, 32)

	second, err := cfg.SealingKey()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestSealingKeyRequiresValue(t *testing.T) {
	_, err := AuthConfig{}.SealingKey()
	require.ErrorContains(t, err, "auth.session.sealing_key")
}

func TestJWTServiceConfigDefaultsTTL(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "s", Issuer: "insurai-portal"}}
	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.JWTServiceConfig().AccessTokenTTL)

	cfg.JWT.TTL = 2 * time.Hour
	require.Equal(t, 2*time.Hour, cfg.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, "insurai-portal", cfg.JWTServiceConfig().Issuer)
}
