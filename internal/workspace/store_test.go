package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "1234567890ABCDEF1234567890ABCDEF"

// setupTestStore returns a store backed by a file in a temp directory.
func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".sessionctl", "workspace.enc")
	return NewStore(path, []byte(testSecret), opts...)
}

func federatedSession(id, region string) Session {
	return Session{
		ID:     id,
		Name:   "prod-admin",
		Type:   TypeAWSIAMRoleFederated,
		Status: StatusInactive,
		Region: region,
		Federated: &FederatedRole{
			RoleArn:  "arn:aws:iam::123456789012:role/Admin",
			IdpArn:   "arn:aws:iam::123456789012:saml-provider/Okta",
			IdpURLID: "idp-1",
		},
	}
}

func TestLoadCreatesWorkspaceWhenMissing(t *testing.T) {
	store := setupTestStore(t)

	ws, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, ws.Sessions)
	require.Len(t, ws.Profiles, 1)
	assert.Equal(t, DefaultProfileName, ws.Profiles[0].Name)
	assert.NotEmpty(t, ws.Profiles[0].ID)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadMissingWithoutAutoCreate(t *testing.T) {
	store := setupTestStore(t, WithAutoCreate(false))

	ws, err := store.Load()
	assert.ErrorIs(t, err, ErrStorageMissing)
	assert.Nil(t, ws)
	_, err = os.Stat(store.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadUnreadableFile(t *testing.T) {
	// A directory at the workspace path cannot be read as a file.
	store := NewStore(t.TempDir(), []byte(testSecret))

	ws, err := store.Load()
	assert.ErrorIs(t, err, ErrStorageRead)
	assert.NotErrorIs(t, err, ErrStorageMissing)
	assert.Nil(t, ws)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := setupTestStore(t)

	exp := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	ws := New()
	ws.Sessions = append(ws.Sessions, federatedSession("sess-1", "us-east-1"))
	ws.IdpURLs = append(ws.IdpURLs, IdpURL{ID: "idp-1", URL: "https://idp.example.com/saml"})
	ws.AWSSSO = AWSSSOConfiguration{Region: "eu-west-1", PortalURL: "https://example.awsapps.com/start", ExpirationTime: &exp}
	require.NoError(t, store.Save(ws))

	// a second store with the same secret sees the same document
	fresh := NewStore(store.Path(), []byte(testSecret))
	loaded, err := fresh.Load()
	require.NoError(t, err)
	assert.Equal(t, ws, loaded)
}

func TestFileIsNotPlaintext(t *testing.T) {
	store := setupTestStore(t)
	ws := New()
	ws.Sessions = append(ws.Sessions, federatedSession("sess-1", "us-east-1"))
	require.NoError(t, store.Save(ws))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "arn:aws:iam")
	assert.NotContains(t, string(raw), "sess-1")
}

func TestLoadCorruptCiphertext(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{ invalid json..."), 0600))

	ws, err := store.Load()
	assert.ErrorIs(t, err, ErrStorageCorrupt)
	assert.Nil(t, ws)
}

func TestLoadWithWrongSecret(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Save(New()))

	other := NewStore(store.Path(), []byte("TOTAL_DIFFERENT_KEY_1234567890AB"))
	ws, err := other.Load()
	assert.ErrorIs(t, err, ErrStorageCorrupt)
	assert.Nil(t, ws)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store := setupTestStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(New()))
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "workspace.enc", entries[0].Name())
}

func TestSaveToUnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store := NewStore(filepath.Join(blocker, "workspace.enc"), []byte(testSecret))
	err := store.Save(New())
	assert.ErrorIs(t, err, ErrStorageWrite)
}
