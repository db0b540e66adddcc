package cachemw

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/morabah/posalpro-app-sub013/pkg/ports"
)

// ErrDecrypt is returned when no configured key opens a stored value.
var ErrDecrypt = errors.New("decryption failed with all available keys")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new values. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried when the active key cannot decrypt a value,
	// which allows rotating keys without dropping cached records.
	FallbackKeys [][]byte
}

type encryption struct {
	next   ports.Cache
	active cipher.AEAD
	all    []cipher.AEAD
}

// NewEncryption creates a middleware that seals values with AES-GCM.
// The cache key is bound as additional data, so a value copied under another
// key fails to decrypt.
func NewEncryption(cfg EncryptionConfig) (Middleware, error) {
	if len(cfg.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(cfg.ActiveKey))
	}
	active, err := newGCM(cfg.ActiveKey)
	if err != nil {
		return nil, err
	}
	all := []cipher.AEAD{active}
	for i, k := range cfg.FallbackKeys {
		g, err := newGCM(k)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		all = append(all, g)
	}

	return func(next ports.Cache) ports.Cache {
		return &encryption{next: next, active: active, all: all}
	}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (m *encryption) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := m.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, g := range m.all {
		if len(sealed) < g.NonceSize() {
			continue
		}
		nonce, body := sealed[:g.NonceSize()], sealed[g.NonceSize():]
		if plain, err := g.Open(nil, nonce, body, []byte(key)); err == nil {
			return plain, nil
		}
	}
	return nil, ErrDecrypt
}

func (m *encryption) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	nonce := make([]byte, m.active.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to read nonce: %w", err)
	}
	sealed := m.active.Seal(nonce, nonce, value, []byte(key))
	return m.next.Set(ctx, key, sealed, ttl)
}

func (m *encryption) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

// ParseKey decodes a 32-byte key written as hex or standard base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, errors.New("key must be 32 bytes encoded as hex or base64")
}
