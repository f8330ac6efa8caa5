package crypto

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// credentialKeyInfo labels keys derived from the session secret.
const credentialKeyInfo = "bookcatalog credential encryption"

// KeyConfig lists the places an encryption key may come from, in priority order.
type KeyConfig struct {
	// EncodedKey is a base64 32-byte key (TOKEN_ENCRYPTION_KEY).
	EncodedKey string

	// Secret is the session secret; a key is derived from it with HKDF.
	Secret string

	// KeyFile is read if present, otherwise created with a fresh key.
	KeyFile string
}

// ResolveEncryptor builds an Encryptor from the first configured key source.
func ResolveEncryptor(cfg KeyConfig, logger *slog.Logger) (*Encryptor, error) {
	if cfg.EncodedKey != "" {
		return NewEncryptorFromBase64(cfg.EncodedKey)
	}

	if cfg.Secret != "" {
		key, err := DeriveKey(cfg.Secret, credentialKeyInfo)
		if err != nil {
			return nil, err
		}
		return NewEncryptor(key)
	}

	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("no encryption key, secret or key file configured")
	}

	if data, err := os.ReadFile(cfg.KeyFile); err == nil {
		return NewEncryptorFromBase64(strings.TrimSpace(string(data)))
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(cfg.KeyFile, []byte(key), 0o600); err != nil {
		return nil, fmt.Errorf("save encryption key to %s: %w", cfg.KeyFile, err)
	}
	if logger != nil {
		logger.Info("generated new credential encryption key", "path", cfg.KeyFile)
	}

	return NewEncryptorFromBase64(key)
}
