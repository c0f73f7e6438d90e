package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

// TokenPrefix tags every encrypted password token.
const TokenPrefix = "enc:v1:"

const (
	masterKeyName    = "master-key"
	saltSize         = 16
	secretSize       = 32
	nonceSize        = 24
	pbkdf2Iterations = 100_000
)

var (
	ErrNotEncrypted = errors.New("value is not an encrypted token")
	ErrDecrypt      = errors.New("token cannot be decrypted with this key")
)

// Cipher turns plaintext passwords into opaque tokens and back.
type Cipher struct {
	key [32]byte
}

// NewCipher derives the box key from a passphrase and salt.
func NewCipher(passphrase, salt []byte) *Cipher {
	c := &Cipher{}
	copy(c.key[:], pbkdf2.Key(passphrase, salt, pbkdf2Iterations, 32, sha256.New))
	return c
}

// LoadOrCreateCipher reads the master key material from store, creating and
// saving fresh random material on first use.
func LoadOrCreateCipher(store SecretStore) (*Cipher, error) {
	raw, err := store.Get(masterKeyName)
	if err != nil {
		return nil, fmt.Errorf("load master key: %w", err)
	}
	var material []byte
	if len(raw) > 0 {
		material, err = base64.StdEncoding.DecodeString(string(raw))
		if err != nil || len(material) != saltSize+secretSize {
			return nil, fmt.Errorf("master key is corrupt")
		}
	} else {
		material = make([]byte, saltSize+secretSize)
		if _, err := io.ReadFull(rand.Reader, material); err != nil {
			return nil, fmt.Errorf("generate master key: %w", err)
		}
		if err := store.Set(masterKeyName, []byte(base64.StdEncoding.EncodeToString(material))); err != nil {
			return nil, fmt.Errorf("save master key: %w", err)
		}
	}
	return NewCipher(material[saltSize:], material[:saltSize]), nil
}

// Encrypt returns a tagged token. Empty input stays empty (no password), and
// an existing token is returned unchanged.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || IsEncrypted(plaintext) {
		return plaintext, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. An empty token yields an empty password.
func (c *Cipher) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	sealed, ok := decodeToken(token)
	if !ok {
		return "", ErrNotEncrypted
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// IsEncrypted reports whether s is a well-formed token. The check is purely
// structural and never needs the key.
func IsEncrypted(s string) bool {
	_, ok := decodeToken(s)
	return ok
}

func decodeToken(s string) ([]byte, bool) {
	if !strings.HasPrefix(s, TokenPrefix) {
		return nil, false
	}
	sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(s, TokenPrefix))
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return nil, false
	}
	return sealed, true
}

var passwordPattern = regexp.MustCompile(`(?i)(password=)([^;&\s]+)`)

// MaskPassword hides password=... fragments in connection strings and
// user:pass@ userinfo in URLs and MySQL DSNs before they reach a log line.
func MaskPassword(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}***")

	start := 0
	if i := strings.Index(s, "://"); i >= 0 {
		start = i + 3
	}
	rest := s[start:]
	authority := rest
	if slash := strings.Index(rest, "/"); slash >= 0 {
		authority = rest[:slash]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return s
	}
	userinfo := authority[:at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 || strings.Contains(userinfo, "=") {
		return s
	}
	return s[:start] + userinfo[:colon] + ":***" + rest[at:]
}
