package awscloud

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portal = "https://example.awsapps.com/start"

func writeCacheFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0600))
}

func fixedCache(dir string) *SSOCache {
	c := NewSSOCache(dir)
	c.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestTokenFromLegacyFileName(t *testing.T) {
	dir := t.TempDir()
	sum := sha1.Sum([]byte(portal))
	writeCacheFile(t, dir, hex.EncodeToString(sum[:])+".json",
		`{"startUrl":"`+portal+`","region":"eu-west-1","accessToken":"legacy","expiresAt":"2026-10-16T20:00:00UTC"}`)

	tok, err := fixedCache(dir).Token(portal)
	require.NoError(t, err)
	assert.Equal(t, "legacy", tok.AccessToken)
	assert.Equal(t, "eu-west-1", tok.Region)
	assert.Equal(t, 20, tok.ExpiresAt.Hour())
}

func TestTokenPicksNewestMatchingFile(t *testing.T) {
	dir := t.TempDir()
	writeCacheFile(t, dir, "a.json", `{"startUrl":"`+portal+`","accessToken":"older","expiresAt":"2026-10-16T13:00:00Z"}`)
	writeCacheFile(t, dir, "b.json", `{"startUrl":"`+portal+`/","accessToken":"newer","expiresAt":"2026-10-16T18:00:00Z"}`)
	writeCacheFile(t, dir, "c.json", `{"startUrl":"https://other.awsapps.com/start","accessToken":"other","expiresAt":"2026-10-17T18:00:00Z"}`)
	writeCacheFile(t, dir, "d.json", `{"startUrl":"`+portal+`","accessToken":"expired","expiresAt":"2026-10-16T11:00:00Z"}`)
	writeCacheFile(t, dir, "botocore-client.json", `{"clientId":"x"}`)
	writeCacheFile(t, dir, "notes.txt", `ignored`)

	tok, err := fixedCache(dir).Token(portal)
	require.NoError(t, err)
	assert.Equal(t, "newer", tok.AccessToken)
}

func TestTokenMissing(t *testing.T) {
	_, err := fixedCache(filepath.Join(t.TempDir(), "absent")).Token(portal)
	assert.ErrorIs(t, err, ErrNoSSOToken)

	dir := t.TempDir()
	writeCacheFile(t, dir, "a.json", `{"startUrl":"`+portal+`","accessToken":"expired","expiresAt":"2026-10-16T11:00:00Z"}`)
	_, err = fixedCache(dir).Token(portal)
	assert.ErrorIs(t, err, ErrNoSSOToken)
}
