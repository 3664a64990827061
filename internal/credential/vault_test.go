package credential_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintwithfriends/internal/credential"
)

func newVault() *credential.Vault {
	return credential.NewVault(keyring.NewArrayKeyring(nil))
}

func TestVaultRoundTrip(t *testing.T) {
	v := newVault()

	_, err := v.Get(credential.KeySession)
	require.ErrorIs(t, err, credential.ErrNotFound)

	require.NoError(t, v.Set(credential.KeySession, "tok"))
	got, err := v.Get(credential.KeySession)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	require.NoError(t, v.Delete(credential.KeySession))
	require.NoError(t, v.Delete(credential.KeySession), "deleting twice is fine")
	_, err = v.Get(credential.KeySession)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestAuthSecretIsStable(t *testing.T) {
	v := newVault()

	first, err := v.AuthSecret()
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := v.AuthSecret()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
