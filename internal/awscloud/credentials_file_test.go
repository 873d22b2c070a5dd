package awscloud

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func readProfile(t *testing.T, path, profile string) (Credentials, bool) {
	t.Helper()
	cfg, err := ini.Load(path)
	require.NoError(t, err)
	if !cfg.HasSection(profile) {
		return Credentials{}, false
	}
	section := cfg.Section(profile)
	return Credentials{
		AccessKeyID:     section.Key("aws_access_key_id").String(),
		SecretAccessKey: section.Key("aws_secret_access_key").String(),
		SessionToken:    section.Key("aws_session_token").String(),
	}, true
}

func TestWriteProfilePreservesOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".aws", "credentials")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte("[personal]\naws_access_key_id = AKIAPERSONAL\naws_secret_access_key = keep-me\n"), 0600))

	f := NewCredentialsFile(path)
	exp := time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC)
	require.NoError(t, f.WriteProfile("default", Credentials{
		AccessKeyID:     "ASIATEMP",
		SecretAccessKey: "secret",
		SessionToken:    "token",
		Expiration:      exp,
	}, "eu-west-1"))

	cfg, err := ini.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "keep-me", cfg.Section("personal").Key("aws_secret_access_key").String())

	def := cfg.Section("default")
	assert.Equal(t, "ASIATEMP", def.Key("aws_access_key_id").String())
	assert.Equal(t, "token", def.Key("aws_session_token").String())
	assert.Equal(t, "eu-west-1", def.Key("region").String())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Managed by sessionctl")
	assert.Contains(t, string(raw), "2026-10-16T13:00:00Z")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWriteProfileReplacesExistingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	f := NewCredentialsFile(path)

	require.NoError(t, f.WriteProfile("dev", Credentials{AccessKeyID: "A1", SecretAccessKey: "S1", SessionToken: "T1"}, "us-east-1"))
	require.NoError(t, f.WriteProfile("dev", Credentials{AccessKeyID: "A2", SecretAccessKey: "S2"}, ""))

	creds, ok := readProfile(t, path, "dev")
	require.True(t, ok)
	assert.Equal(t, "A2", creds.AccessKeyID)
	assert.Empty(t, creds.SessionToken, "stale session token must not survive")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "[dev]"))
	assert.NotContains(t, string(raw), "region")
}

func TestRemoveProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	f := NewCredentialsFile(path)

	// missing file is fine
	require.NoError(t, f.RemoveProfile("dev"))

	require.NoError(t, f.WriteProfile("dev", Credentials{AccessKeyID: "A", SecretAccessKey: "S"}, ""))
	require.NoError(t, f.WriteProfile("prod", Credentials{AccessKeyID: "B", SecretAccessKey: "S"}, ""))
	require.NoError(t, f.RemoveProfile("dev"))
	require.NoError(t, f.RemoveProfile("dev"))

	_, ok := readProfile(t, path, "dev")
	assert.False(t, ok)
	_, ok = readProfile(t, path, "prod")
	assert.True(t, ok)
}
