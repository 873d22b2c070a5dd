package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chukul/sessionctl/internal/workspace"
)

// recordingHandler stands in for a provider handler and logs every call.
type recordingHandler struct {
	state    *workspace.State
	calls    []string
	startErr error
}

func (h *recordingHandler) Start(_ context.Context, id string) error {
	h.calls = append(h.calls, "start")
	if h.startErr != nil {
		return h.startErr
	}
	_, err := h.state.UpdateSession(id, func(s *workspace.Session) error {
		s.Status = workspace.StatusActive
		return nil
	})
	return err
}

func (h *recordingHandler) Stop(_ context.Context, id string) error {
	h.calls = append(h.calls, "stop")
	_, err := h.state.UpdateSession(id, func(s *workspace.Session) error {
		markInactive(s)
		return nil
	})
	return err
}

func (h *recordingHandler) Update(id string, patch Patch) (workspace.Session, error) {
	s, err := h.state.UpdateSession(id, patch.apply)
	if err != nil {
		return s, err
	}
	h.calls = append(h.calls, fmt.Sprintf("persist(region=%s)", s.Region))
	return s, nil
}

func (h *recordingHandler) Delete(_ context.Context, id string) error {
	h.calls = append(h.calls, "delete")
	return h.state.RemoveSession(id)
}

func newTestManager(t *testing.T, e *env) (*Manager, *recordingHandler) {
	t.Helper()
	reg := e.registry()
	fake := &recordingHandler{state: e.state}
	reg.Register(workspace.TypeAWSIAMRoleFederated, fake)
	m := NewManager(e.state, reg, nil)
	m.now = func() time.Time { return testNow }
	return m, fake
}

func activate(t *testing.T, e *env, id string, expiration time.Time) {
	t.Helper()
	_, err := e.state.UpdateSession(id, func(s *workspace.Session) error {
		s.Status = workspace.StatusActive
		s.Expiration = &expiration
		return nil
	})
	require.NoError(t, err)
}

func TestChangeRegionInactiveSession(t *testing.T) {
	e := newEnv(t, federated("f1", "prod", "us-east-1"))
	m, fake := newTestManager(t, e)

	require.NoError(t, m.ChangeRegion(context.Background(), "f1", "eu-west-1"))

	assert.Equal(t, []string{"persist(region=eu-west-1)"}, fake.calls)
	s := e.session(t, "f1")
	assert.Equal(t, "eu-west-1", s.Region)
	assert.Equal(t, workspace.StatusInactive, s.Status)
}

func TestChangeRegionRestartsActiveSession(t *testing.T) {
	e := newEnv(t, federated("f1", "prod", "us-east-1"))
	m, fake := newTestManager(t, e)
	activate(t, e, "f1", testNow.Add(time.Hour))

	require.NoError(t, m.ChangeRegion(context.Background(), "f1", "eu-west-1"))

	assert.Equal(t, []string{"stop", "persist(region=eu-west-1)", "start"}, fake.calls)
	s := e.session(t, "f1")
	assert.Equal(t, "eu-west-1", s.Region)
	assert.Equal(t, workspace.StatusActive, s.Status)
}

func TestChangeRegionRestartFailureKeepsRegion(t *testing.T) {
	e := newEnv(t, federated("f1", "prod", "us-east-1"))
	m, fake := newTestManager(t, e)
	fake.startErr = fmt.Errorf("%w: denied", ErrCredentialAcquisition)
	activate(t, e, "f1", testNow.Add(time.Hour))

	err := m.ChangeRegion(context.Background(), "f1", "eu-west-1")

	var restartErr *RestartError
	require.ErrorAs(t, err, &restartErr)
	assert.Equal(t, "f1", restartErr.SessionID)
	assert.ErrorIs(t, err, ErrCredentialAcquisition)
	s := e.session(t, "f1")
	assert.Equal(t, "eu-west-1", s.Region)
	assert.Equal(t, workspace.StatusInactive, s.Status)
}

func TestChangeRegionRequiresValue(t *testing.T) {
	e := newEnv(t, federated("f1", "prod", "us-east-1"))
	m, fake := newTestManager(t, e)

	assert.ErrorIs(t, m.ChangeRegion(context.Background(), "f1", ""), ErrValidation)
	assert.Empty(t, fake.calls)
}

func TestChangeProfileCreatesProfile(t *testing.T) {
	e := newEnv(t, federated("f1", "prod", "us-east-1"))
	m, _ := newTestManager(t, e)

	require.NoError(t, m.ChangeProfile(context.Background(), "f1", "work"))

	ws, err := e.state.Workspace()
	require.NoError(t, err)
	p, ok := ws.FindProfileByName("work")
	require.True(t, ok)
	assert.Equal(t, p.ID, e.session(t, "f1").ProfileID)

	require.NoError(t, m.ChangeProfile(context.Background(), "f1", "work"))
	profiles, err := e.state.Profiles()
	require.NoError(t, err)
	assert.Len(t, profiles, 2, "existing profile is reused")
}

func TestChangeProfileRejectsAzure(t *testing.T) {
	e := newEnv(t, azureSession("az1", "tenant"))
	m, _ := newTestManager(t, e)

	assert.ErrorIs(t, m.ChangeProfile(context.Background(), "az1", "work"), ErrValidation)
}

func TestFind(t *testing.T) {
	e := newEnv(t, federated("f1", "prod", "us-east-1"), federated("f2", "dup", "us-east-1"), federated("f3", "dup", "us-east-1"))
	m, _ := newTestManager(t, e)

	s, err := m.Find("f2")
	require.NoError(t, err)
	assert.Equal(t, "dup", s.Name)

	s, err = m.Find("prod")
	require.NoError(t, err)
	assert.Equal(t, "f1", s.ID)

	_, err = m.Find("dup")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.Find("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	m, _ := newTestManager(t, e)

	in := federated("", "prod", "us-east-1")
	in.Status = workspace.StatusActive
	created, err := m.Create(in)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, workspace.StatusInactive, created.Status)
	assert.Equal(t, []workspace.Session{created}, e.state.Sessions())

	_, err = m.Create(federated("", "no-region", ""))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = m.Create(workspace.Session{Name: "bogus", Type: "gcp", Region: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestToggle(t *testing.T) {
	e := newEnv(t, federated("f1", "prod", "us-east-1"))
	m, fake := newTestManager(t, e)

	require.NoError(t, m.Toggle(context.Background(), "f1"))
	require.NoError(t, m.Toggle(context.Background(), "f1"))
	assert.Equal(t, []string{"start", "stop"}, fake.calls)
}

func TestDeletePlanListsTrusters(t *testing.T) {
	e := newEnv(t,
		iamUser("u1", "root", ""),
		chained("c1", "ops", "u1"),
		federated("f1", "other", "us-east-1"),
		chained("c2", "audit", "c1"),
	)
	m, _ := newTestManager(t, e)

	plan, err := m.DeletePlan("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops", "audit"}, plan.TrusterNames())
	assert.Contains(t, plan.Message, "ops, audit")

	plan, err = m.DeletePlan("f1")
	require.NoError(t, err)
	assert.Empty(t, plan.Trusters)
	assert.Equal(t, `Delete session "other"?`, plan.Message)

	_, err = m.DeletePlan("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, m.Delete(context.Background(), "u1"))
	assert.Equal(t, []string{"other"}, names(e.state.Sessions()))
}

func TestGenerateCredentialsUnsupportedForAzure(t *testing.T) {
	e := newEnv(t, azureSession("az1", "tenant"))
	m, _ := newTestManager(t, e)

	_, err := m.GenerateCredentials(context.Background(), "az1")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestGenerateCredentialsThroughManager(t *testing.T) {
	e := newEnv(t, iamUser("u1", "alice", ""))
	e.provider.On("GetSessionToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(tempCreds("ASIAUSER"), nil)
	m, _ := newTestManager(t, e)

	creds, err := m.GenerateCredentials(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ASIAUSER", creds.AccessKeyID)
}

func TestRotateExpiring(t *testing.T) {
	e := newEnv(t,
		federated("f1", "soon", "us-east-1"),
		federated("f2", "later", "us-east-1"),
		federated("f3", "idle", "us-east-1"),
	)
	m, fake := newTestManager(t, e)
	activate(t, e, "f1", testNow.Add(5*time.Minute))
	activate(t, e, "f2", testNow.Add(time.Hour))

	rotated, err := m.RotateExpiring(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, rotated)
	assert.Equal(t, []string{"stop", "start"}, fake.calls)
	assert.Equal(t, workspace.StatusActive, e.session(t, "f1").Status)
}

func TestRotateExpiringCollectsErrors(t *testing.T) {
	e := newEnv(t, federated("f1", "soon", "us-east-1"))
	m, fake := newTestManager(t, e)
	fake.startErr = errors.New("idp down")
	activate(t, e, "f1", testNow.Add(time.Minute))

	rotated, err := m.RotateExpiring(context.Background(), 10*time.Minute)
	assert.Empty(t, rotated)
	assert.ErrorContains(t, err, "soon: idp down")
}
