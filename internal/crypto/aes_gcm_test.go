package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	s, err := NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	sealed, err := s.SealString("https://hooks.slack.com/services/T000/B000/XXXX")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "hooks.slack.com")

	opened, err := s.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.slack.com/services/T000/B000/XXXX", opened)
}

func TestSealerRejectsTampering(t *testing.T) {
	s, err := NewSealer(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = s.Open(sealed)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = s.Open([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestSealerEmptySecret(t *testing.T) {
	s, err := NewSealer(bytes.Repeat([]byte{1}, 16))
	require.NoError(t, err)

	sealed, err := s.SealString("")
	require.NoError(t, err)
	assert.Nil(t, sealed)

	opened, err := s.OpenString(nil)
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestNewSealerRejectsBadKey(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}
