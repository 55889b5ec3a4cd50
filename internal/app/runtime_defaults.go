package app

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/insurai/portal/pkg/crypto"
)

const (
	jwtSecretBytes  = 48
	sealingKeyBytes = 32

	// Keys reported by ApplyRuntimeDefaults.
	GeneratedJWTSecret  = "auth.jwt.secret"
	GeneratedSealingKey = "auth.session.sealing_key"
)

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated[GeneratedJWTSecret] = true
	}

	if strings.TrimSpace(cfg.Auth.Session.SealingKey) == "" {
		key, err := generateHexKey(sealingKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("generate session sealing key: %w", err)
		}
		cfg.Auth.Session.SealingKey = key
		generated[GeneratedSealingKey] = true
	}

	return generated, nil
}

func generateHexKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
