// Package crypto provides request signing and credential management for the
// venue's private trading API.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Signer produces API-Sign values for venue private endpoints. The signature
// is HMAC-SHA512 over path + SHA256(nonce + urlencoded body), keyed with the
// base64-decoded API secret, encoded back to base64. Nonces are strictly
// increasing across the process lifetime.
type Signer struct {
	apiKey string
	secret []byte

	mu        sync.Mutex
	lastNonce int64
}

// NewSigner creates a Signer from the API key and the base64-encoded API
// secret. Both must be non-empty; callers that may run without credentials
// should construct the signer lazily and check HasCredentials first.
func NewSigner(apiKey, apiSecret string) (*Signer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("crypto: api key and secret are required")
	}
	secret, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode api secret: %w", err)
	}
	return &Signer{apiKey: apiKey, secret: secret}, nil
}

// Key returns the API key for the API-Key request header.
func (s *Signer) Key() string {
	return s.apiKey
}

// Nonce returns a strictly increasing nonce as a decimal string. Wall-clock
// milliseconds are used as the base so nonces stay monotonic across restarts
// too, as long as the clock does not step backwards.
func (s *Signer) Nonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := time.Now().UnixMilli()
	if n <= s.lastNonce {
		n = s.lastNonce + 1
	}
	s.lastNonce = n
	return strconv.FormatInt(n, 10)
}

// Sign computes the API-Sign value for a private request. values must
// already contain the nonce used in the body.
func (s *Signer) Sign(path, nonce string, values url.Values) string {
	body := values.Encode()

	inner := sha256.Sum256([]byte(nonce + body))

	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(path))
	mac.Write(inner[:])

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (s *Signer) String() string {
	key := s.apiKey
	if len(key) > 4 {
		key = key[:4] + "****"
	}
	return fmt.Sprintf("Signer{key=%s}", key)
}
