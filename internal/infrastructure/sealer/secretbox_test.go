package sealer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBox(t *testing.T) *SecretBox {
	key, err := GenerateKey()
	require.NoError(t, err)
	box, err := NewSecretBox(key)
	require.NoError(t, err)
	return box
}

func TestNewSecretBox_RejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "not base64!", "c2hvcnQ="} {
		_, err := NewSecretBox(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestSecretBox_RoundTrip(t *testing.T) {
	box := newTestBox(t)

	sealed, err := box.Seal("cs_live_secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
	assert.NotContains(t, sealed, "cs_live_secret")

	again, err := box.Seal("cs_live_secret")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "cs_live_secret", plain)
}

func TestSecretBox_EmptyAndLegacyValues(t *testing.T) {
	box := newTestBox(t)

	sealed, err := box.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := box.Open("legacy-plaintext")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext", plain)
}

func TestSecretBox_WrongKeyFails(t *testing.T) {
	sealed, err := newTestBox(t).Seal("whsec")
	require.NoError(t, err)

	_, err = newTestBox(t).Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, err = newTestBox(t).Open(sealedPrefix + "AAAA")
	assert.ErrorIs(t, err, ErrSealedTooShort)
}
