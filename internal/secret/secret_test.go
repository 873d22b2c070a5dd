package secret

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersExplicitValue(t *testing.T) {
	t.Setenv(EnvVar, "from-env")

	s, err := Resolve("from-flag")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", s)
}

func TestResolveFallsBackToEnv(t *testing.T) {
	t.Setenv(EnvVar, "from-env")

	s, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", s)
}

func TestResolveWithoutAnySource(t *testing.T) {
	if KeychainSupported() {
		t.Skip("keychain may hold a secret on this machine")
	}
	t.Setenv(EnvVar, "")

	_, err := Resolve("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	_, err = hex.DecodeString(a)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSetupUnsupported(t *testing.T) {
	if KeychainSupported() {
		t.Skip("would write to the real keychain")
	}
	_, err := Setup()
	assert.ErrorIs(t, err, ErrUnsupported)
}
