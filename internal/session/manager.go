package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

// Manager is the entry point used by commands and the daemon. It resolves
// sessions, dispatches to the registry and orchestrates multi-step changes.
type Manager struct {
	state    *workspace.State
	registry *Registry
	log      *zap.Logger
	now      func() time.Time
}

func NewManager(state *workspace.State, registry *Registry, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{state: state, registry: registry, log: log, now: time.Now}
}

// Find resolves a session by id, then by name.
func (m *Manager) Find(ref string) (workspace.Session, error) {
	if sess, ok := m.state.Session(ref); ok {
		return sess, nil
	}
	var matches []workspace.Session
	for _, s := range m.state.Sessions() {
		if s.Name == ref {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return workspace.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return workspace.Session{}, fmt.Errorf("%w: %d sessions are named %q, use the session id", ErrValidation, len(matches), ref)
}

func (m *Manager) handler(id string) (workspace.Session, Handler, error) {
	sess, ok := m.state.Session(id)
	if !ok {
		return workspace.Session{}, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	h, err := m.registry.Handler(sess.Type)
	if err != nil {
		return workspace.Session{}, nil, err
	}
	return sess, h, nil
}

// Create validates and stores a new inactive session. A missing id is
// generated.
func (m *Manager) Create(sess workspace.Session) (workspace.Session, error) {
	if sess.ID == "" {
		sess.ID = workspace.NewSessionID()
	}
	sess.Status = workspace.StatusInactive
	sess.StartTime = nil
	sess.Expiration = nil
	if _, err := m.registry.Handler(sess.Type); err != nil {
		return workspace.Session{}, err
	}
	if sess.Region == "" {
		return workspace.Session{}, fmt.Errorf("%w: region is required", ErrValidation)
	}
	if err := m.state.AddSession(sess); err != nil {
		return workspace.Session{}, err
	}
	m.log.Info("session created", sessionFields(sess)...)
	return sess, nil
}

func (m *Manager) Start(ctx context.Context, id string) error {
	_, h, err := m.handler(id)
	if err != nil {
		return err
	}
	return h.Start(ctx, id)
}

func (m *Manager) Stop(ctx context.Context, id string) error {
	_, h, err := m.handler(id)
	if err != nil {
		return err
	}
	return h.Stop(ctx, id)
}

// Toggle stops an active session and starts any other.
func (m *Manager) Toggle(ctx context.Context, id string) error {
	sess, h, err := m.handler(id)
	if err != nil {
		return err
	}
	if sess.Status == workspace.StatusActive {
		return h.Stop(ctx, id)
	}
	return h.Start(ctx, id)
}

func (m *Manager) Update(id string, patch Patch) (workspace.Session, error) {
	_, h, err := m.handler(id)
	if err != nil {
		return workspace.Session{}, err
	}
	return h.Update(id, patch)
}

// DeletePlan is what a user confirms before a delete.
type DeletePlan struct {
	Session  workspace.Session
	Trusters []workspace.Session
	Message  string
}

// TrusterNames lists the dependent session names in list order.
func (p DeletePlan) TrusterNames() []string {
	names := make([]string, len(p.Trusters))
	for i, t := range p.Trusters {
		names[i] = t.Name
	}
	return names
}

// DeletePlan describes what deleting id would remove.
func (m *Manager) DeletePlan(id string) (DeletePlan, error) {
	sess, ok := m.state.Session(id)
	if !ok {
		return DeletePlan{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	plan := DeletePlan{
		Session:  sess,
		Trusters: ListTruster(m.state.Sessions(), id),
	}
	if len(plan.Trusters) == 0 {
		plan.Message = fmt.Sprintf("Delete session %q?", sess.Name)
	} else {
		plan.Message = fmt.Sprintf("Session %q is trusted by %s. Deleting it also deletes those sessions.",
			sess.Name, strings.Join(plan.TrusterNames(), ", "))
	}
	return plan, nil
}

// Delete removes the session and its trusters.
func (m *Manager) Delete(ctx context.Context, id string) error {
	_, h, err := m.handler(id)
	if err != nil {
		return err
	}
	return h.Delete(ctx, id)
}

// ChangeRegion moves the session to region, restarting it when it was
// active.
func (m *Manager) ChangeRegion(ctx context.Context, id, region string) error {
	if region == "" {
		return fmt.Errorf("%w: region is required", ErrValidation)
	}
	return m.switchField(ctx, id, Patch{Region: &region})
}

// ChangeProfile binds an AWS session to the named profile, creating the
// profile when it does not exist yet.
func (m *Manager) ChangeProfile(ctx context.Context, id, profile string) error {
	if profile == "" {
		return fmt.Errorf("%w: profile is required", ErrValidation)
	}
	sess, ok := m.state.Session(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if !sess.Type.IsAWS() {
		return fmt.Errorf("%w: %s sessions have no profile", ErrValidation, sess.Type)
	}

	profileID, err := m.ensureProfile(profile)
	if err != nil {
		return err
	}
	return m.switchField(ctx, id, Patch{ProfileID: &profileID})
}

func (m *Manager) ensureProfile(name string) (string, error) {
	ws, err := m.state.Workspace()
	if err != nil {
		return "", err
	}
	if p, ok := ws.FindProfileByName(name); ok {
		return p.ID, nil
	}
	p := workspace.NewProfile(name)
	if err := m.state.AddProfile(p); err != nil {
		return "", err
	}
	m.log.Info("profile created", zap.String("profileId", p.ID), zap.String("profileName", p.Name))
	return p.ID, nil
}

// switchField stops an active session, persists the patch and starts the
// session again. A failed restart is reported as a *RestartError; the patch
// stays committed.
func (m *Manager) switchField(ctx context.Context, id string, patch Patch) error {
	sess, h, err := m.handler(id)
	if err != nil {
		return err
	}

	wasActive := sess.Status == workspace.StatusActive
	if wasActive {
		if err := h.Stop(ctx, id); err != nil {
			return err
		}
	}
	if _, err := h.Update(id, patch); err != nil {
		return err
	}
	if wasActive {
		if err := h.Start(ctx, id); err != nil {
			return &RestartError{SessionID: id, Err: err}
		}
	}
	return nil
}

// MFASource returns the session whose MFA code starting id needs, if any.
func (m *Manager) MFASource(id string) (workspace.Session, bool) {
	return MFASource(m.state.Sessions(), id)
}

// GenerateCredentials returns fresh credentials for an AWS session without
// changing its status.
func (m *Manager) GenerateCredentials(ctx context.Context, id string) (awscloud.Credentials, error) {
	sess, h, err := m.handler(id)
	if err != nil {
		return awscloud.Credentials{}, err
	}
	gen, ok := h.(CredentialGenerator)
	if !ok {
		return awscloud.Credentials{}, fmt.Errorf("%w: %s sessions do not generate credentials", ErrUnsupportedType, sess.Type)
	}
	return gen.GenerateCredentials(ctx, id)
}

// RotateExpiring restarts every active session whose credentials expire
// within window. It returns the ids that were rotated.
func (m *Manager) RotateExpiring(ctx context.Context, window time.Duration) ([]string, error) {
	deadline := m.now().Add(window)

	var rotated []string
	var errs []error
	for _, sess := range m.state.Sessions() {
		if sess.Status != workspace.StatusActive || sess.Expiration == nil || sess.Expiration.After(deadline) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rotated, err
		}

		m.log.Info("rotating credentials", sessionFields(sess, zap.Time("expiration", *sess.Expiration))...)
		if err := m.restart(ctx, sess.ID); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sess.Name, err))
			continue
		}
		rotated = append(rotated, sess.ID)
	}
	return rotated, errors.Join(errs...)
}

func (m *Manager) restart(ctx context.Context, id string) error {
	_, h, err := m.handler(id)
	if err != nil {
		return err
	}
	if err := h.Stop(ctx, id); err != nil {
		return err
	}
	return h.Start(ctx, id)
}
