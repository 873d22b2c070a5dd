package session

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

const (
	testRoleArn = "arn:aws:iam::123456789012:role/Admin"
	testIdpArn  = "arn:aws:iam::123456789012:saml-provider/Okta"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// mockProvider is a testify mock of awscloud.Provider. The context is not
// part of the matched arguments.
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetSessionToken(_ context.Context, region string, base awscloud.Credentials, mfaSerial, tokenCode string) (awscloud.Credentials, error) {
	args := m.Called(region, base, mfaSerial, tokenCode)
	return args.Get(0).(awscloud.Credentials), args.Error(1)
}

func (m *mockProvider) AssumeRole(_ context.Context, region string, base awscloud.Credentials, roleArn, sessionName string) (awscloud.Credentials, error) {
	args := m.Called(region, base, roleArn, sessionName)
	return args.Get(0).(awscloud.Credentials), args.Error(1)
}

func (m *mockProvider) AssumeRoleWithSAML(_ context.Context, region, roleArn, principalArn, assertion string) (awscloud.Credentials, error) {
	args := m.Called(region, roleArn, principalArn, assertion)
	return args.Get(0).(awscloud.Credentials), args.Error(1)
}

func (m *mockProvider) GetRoleCredentials(_ context.Context, region, accessToken, accountID, roleName string) (awscloud.Credentials, error) {
	args := m.Called(region, accessToken, accountID, roleName)
	return args.Get(0).(awscloud.Credentials), args.Error(1)
}

// blockingProvider waits for the context on every call.
type blockingProvider struct{}

func (blockingProvider) GetSessionToken(ctx context.Context, _ string, _ awscloud.Credentials, _, _ string) (awscloud.Credentials, error) {
	<-ctx.Done()
	return awscloud.Credentials{}, ctx.Err()
}

func (blockingProvider) AssumeRole(ctx context.Context, _ string, _ awscloud.Credentials, _, _ string) (awscloud.Credentials, error) {
	<-ctx.Done()
	return awscloud.Credentials{}, ctx.Err()
}

func (blockingProvider) AssumeRoleWithSAML(ctx context.Context, _, _, _, _ string) (awscloud.Credentials, error) {
	<-ctx.Done()
	return awscloud.Credentials{}, ctx.Err()
}

func (blockingProvider) GetRoleCredentials(ctx context.Context, _, _, _, _ string) (awscloud.Credentials, error) {
	<-ctx.Done()
	return awscloud.Credentials{}, ctx.Err()
}

// gatedProvider holds every SAML call until gate is closed.
type gatedProvider struct {
	blockingProvider
	calls   atomic.Int32
	entered chan struct{}
	gate    chan struct{}
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{entered: make(chan struct{}, 16), gate: make(chan struct{})}
}

func (p *gatedProvider) AssumeRoleWithSAML(ctx context.Context, _, _, _, _ string) (awscloud.Credentials, error) {
	p.calls.Add(1)
	p.entered <- struct{}{}
	select {
	case <-p.gate:
		return tempCreds("ASIAGATED"), nil
	case <-ctx.Done():
		return awscloud.Credentials{}, ctx.Err()
	}
}

type profileWrite struct {
	creds  awscloud.Credentials
	region string
}

// memCredentials is an in-memory CredentialsWriter.
type memCredentials struct {
	mu       sync.Mutex
	profiles map[string]profileWrite
	removed  []string
	// removeErrs are returned by successive RemoveProfile calls.
	removeErrs []error
}

func newMemCredentials() *memCredentials {
	return &memCredentials{profiles: make(map[string]profileWrite)}
}

func (c *memCredentials) WriteProfile(profile string, creds awscloud.Credentials, region string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[profile] = profileWrite{creds: creds, region: region}
	return nil
}

func (c *memCredentials) RemoveProfile(profile string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.removeErrs) > 0 {
		err := c.removeErrs[0]
		c.removeErrs = c.removeErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(c.profiles, profile)
	c.removed = append(c.removed, profile)
	return nil
}

func (c *memCredentials) get(profile string) (profileWrite, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.profiles[profile]
	return w, ok
}

type staticSAML struct{ assertion string }

func (s staticSAML) Assertion(context.Context, workspace.Session, string) (string, error) {
	return s.assertion, nil
}

type staticMFA struct{ code string }

func (s staticMFA) MFACode(context.Context, workspace.Session) (string, error) {
	return s.code, nil
}

type staticSSOTokens struct{ token string }

func (s staticSSOTokens) Token(startURL string) (awscloud.SSOToken, error) {
	return awscloud.SSOToken{StartURL: startURL, AccessToken: s.token, ExpiresAt: testNow.Add(time.Hour)}, nil
}

// recordingPersister wraps a store and records every saved session list.
type recordingPersister struct {
	workspace.Persister
	mu    sync.Mutex
	saves [][]workspace.Session
}

func (r *recordingPersister) Save(ws *workspace.Workspace) error {
	if err := r.Persister.Save(ws); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, workspace.CloneSessions(ws.Sessions))
	return nil
}

func (r *recordingPersister) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

// statusHistory returns the status of id in every save, skipping repeats.
func (r *recordingPersister) statusHistory(id string) []workspace.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []workspace.Status
	for _, list := range r.saves {
		for _, s := range list {
			if s.ID == id && (len(out) == 0 || out[len(out)-1] != s.Status) {
				out = append(out, s.Status)
			}
		}
	}
	return out
}

type env struct {
	store    *workspace.Store
	rec      *recordingPersister
	state    *workspace.State
	provider *mockProvider
	files    *memCredentials
	deps     Deps
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func newEnv(t *testing.T, sessions ...workspace.Session) *env {
	t.Helper()
	store := workspace.NewStore(filepath.Join(t.TempDir(), "workspace.enc"), []byte("0123456789abcdef0123456789abcdef"))
	ws := workspace.New()
	ws.Sessions = sessions
	ws.IdpURLs = []workspace.IdpURL{{ID: "idp-1", URL: "https://idp.example.com/saml"}}
	require.NoError(t, store.Save(ws))

	rec := &recordingPersister{Persister: store}
	state, err := workspace.NewState(rec)
	require.NoError(t, err)

	e := &env{
		store:    store,
		rec:      rec,
		state:    state,
		provider: &mockProvider{},
		files:    newMemCredentials(),
	}
	e.deps = Deps{
		State:           state,
		AWS:             e.provider,
		CredentialsFile: e.files,
		SAML:            staticSAML{assertion: "PHNhbWw+"},
		Logger:          zap.NewNop(),
		Retry:           fastRetry(),
		Now:             func() time.Time { return testNow },
	}
	return e
}

func (e *env) registry() *Registry {
	return NewRegistry(e.deps)
}

func (e *env) session(t *testing.T, id string) workspace.Session {
	t.Helper()
	s, ok := e.state.Session(id)
	require.True(t, ok, "session %s not found", id)
	return s
}

func federated(id, name, region string) workspace.Session {
	return workspace.Session{
		ID:     id,
		Name:   name,
		Type:   workspace.TypeAWSIAMRoleFederated,
		Status: workspace.StatusInactive,
		Region: region,
		Federated: &workspace.FederatedRole{
			RoleArn:  testRoleArn,
			IdpArn:   testIdpArn,
			IdpURLID: "idp-1",
		},
	}
}

func iamUser(id, name, mfa string) workspace.Session {
	return workspace.Session{
		ID:     id,
		Name:   name,
		Type:   workspace.TypeAWSIAMUser,
		Status: workspace.StatusInactive,
		Region: "us-east-1",
		IAMUser: &workspace.IAMUser{
			AccessKeyID:     "AKIALONGTERM",
			SecretAccessKey: "long-secret",
			MFADevice:       mfa,
		},
	}
}

func chained(id, name, parent string) workspace.Session {
	return workspace.Session{
		ID:     id,
		Name:   name,
		Type:   workspace.TypeAWSIAMRoleChained,
		Status: workspace.StatusInactive,
		Region: "us-east-1",
		Chained: &workspace.ChainedRole{
			RoleArn:         "arn:aws:iam::210987654321:role/" + name,
			ParentSessionID: parent,
		},
	}
}

func azureSession(id, name string) workspace.Session {
	return workspace.Session{
		ID:     id,
		Name:   name,
		Type:   workspace.TypeAzure,
		Status: workspace.StatusInactive,
		Region: "westeurope",
		Azure:  &workspace.AzureSubscription{TenantID: "tenant-" + id, SubscriptionID: "sub-" + id},
	}
}

func tempCreds(key string) awscloud.Credentials {
	return awscloud.Credentials{
		AccessKeyID:     key,
		SecretAccessKey: key + "-secret",
		SessionToken:    key + "-token",
		Expiration:      testNow.Add(time.Hour),
	}
}

func names(list []workspace.Session) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}
