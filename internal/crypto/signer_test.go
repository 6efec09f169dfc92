package crypto

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignerRequiresCredentials(t *testing.T) {
	_, err := NewSigner("", "c2VjcmV0")
	assert.Error(t, err)

	_, err = NewSigner("key", "")
	assert.Error(t, err)

	_, err = NewSigner("key", "not)base64!")
	assert.Error(t, err)
}

func TestSignIsDeterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	s, err := NewSigner("api-key", secret)
	require.NoError(t, err)

	values := url.Values{}
	values.Set("nonce", "1616492376594")
	values.Set("pair", "XBTUSD")
	values.Set("type", "buy")

	first := s.Sign("/0/private/AddOrder", "1616492376594", values)
	second := s.Sign("/0/private/AddOrder", "1616492376594", values)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)

	// HMAC-SHA512 output is 64 bytes before base64.
	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 64)
}

func TestSignVariesWithInputs(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	s, err := NewSigner("api-key", secret)
	require.NoError(t, err)

	values := url.Values{}
	values.Set("nonce", "1000")

	base := s.Sign("/0/private/Balance", "1000", values)
	assert.NotEqual(t, base, s.Sign("/0/private/AddOrder", "1000", values))
	assert.NotEqual(t, base, s.Sign("/0/private/Balance", "1001", values))

	other, err := NewSigner("api-key", base64.StdEncoding.EncodeToString([]byte("another-key")))
	require.NoError(t, err)
	assert.NotEqual(t, base, other.Sign("/0/private/Balance", "1000", values))
}

func TestNonceStrictlyIncreasing(t *testing.T) {
	s, err := NewSigner("key", base64.StdEncoding.EncodeToString([]byte("k")))
	require.NoError(t, err)

	prev := int64(0)
	for i := 0; i < 100; i++ {
		n, err := strconv.ParseInt(s.Nonce(), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestNonceUniqueUnderConcurrency(t *testing.T) {
	s, err := NewSigner("key", base64.StdEncoding.EncodeToString([]byte("k")))
	require.NoError(t, err)

	const workers, perWorker = 8, 50

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				n := s.Nonce()
				mu.Lock()
				seen[n] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestSignerStringRedactsKey(t *testing.T) {
	s, err := NewSigner("abcdef123456", base64.StdEncoding.EncodeToString([]byte("k")))
	require.NoError(t, err)

	out := s.String()
	assert.Contains(t, out, "abcd****")
	assert.NotContains(t, out, "abcdef123456")
}
