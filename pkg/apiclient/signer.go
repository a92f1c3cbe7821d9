package apiclient

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const rsaKeyBits = 2048

// Signer signs a JWT payload with the client's identity key. The signing
// capability is injected into pkg/apiclient rather than owned by it, so
// tests and alternate key stores can supply their own implementation.
type Signer interface {
	Sign(payload map[string]any) (string, error)
}

// PrivateKeySigner signs with an RSA private key using RS256, loaded from
// a PEM file (spec.md's privateKey.pem). Calling Sign before a key has
// been loaded or generated returns a KindNotReady *Error.
type PrivateKeySigner struct {
	mu  sync.RWMutex
	key *rsa.PrivateKey
}

// NewPrivateKeySigner returns an unready signer; call LoadPEM or Generate
// before use.
func NewPrivateKeySigner() *PrivateKeySigner {
	return &PrivateKeySigner{}
}

// LoadPEM parses a PKCS#1 or PKCS#8-encoded RSA private key in PEM form.
func (s *PrivateKeySigner) LoadPEM(data []byte) error {
	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("apiclient: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		generic, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err2 != nil {
			return fmt.Errorf("apiclient: parse private key: %w", err)
		}
		rsaKey, ok := generic.(*rsa.PrivateKey)
		if !ok {
			return fmt.Errorf("apiclient: private key is not RSA")
		}
		key = rsaKey
	}

	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}

// Generate creates a fresh RSA keypair, for first-run client registration
// when no privateKey.pem exists yet.
func (s *PrivateKeySigner) Generate() error {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("apiclient: generate private key: %w", err)
	}
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}

// EncodePEM returns the PKCS#1 PEM encoding of the current key, for
// persisting a freshly generated key to privateKey.pem.
func (s *PrivateKeySigner) EncodePEM() ([]byte, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return nil, notReady()
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return pem.EncodeToMemory(block), nil
}

// Sign builds a JWT with the given claim payload plus an issued-at claim,
// signed with RS256.
func (s *PrivateKeySigner) Sign(payload map[string]any) (string, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return "", notReady()
	}

	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	claims["iat"] = jwt.NewNumericDate(time.Now())

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("apiclient: sign jwt: %w", err)
	}
	return signed, nil
}
