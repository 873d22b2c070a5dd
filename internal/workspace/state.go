package workspace

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrValidation marks a rejected change; nothing was persisted.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a session id is unknown.
	ErrNotFound = errors.New("session not found")
)

// Persister is the durable side of the workspace. *Store implements it.
type Persister interface {
	Load() (*Workspace, error)
	Save(*Workspace) error
}

// State is the in-process source of truth for the session list. Every
// mutation loads the document, applies the change, persists it and only then
// replaces the in-memory list and notifies subscribers. A single mutex
// serializes those sequences so concurrent callers cannot lose updates.
type State struct {
	store Persister
	log   *zap.Logger

	mu       sync.Mutex
	sessions []Session

	subMu   sync.Mutex
	subs    map[int]*Subscription
	nextSub int
}

// StateOption configures a State.
type StateOption func(*State)

// WithStateLogger attaches a logger.
func WithStateLogger(log *zap.Logger) StateOption {
	return func(s *State) { s.log = log }
}

// NewState loads the workspace and reconciles sessions left pending by a
// previous process to inactive.
func NewState(store Persister, opts ...StateOption) (*State, error) {
	s := &State{
		store: store,
		log:   zap.NewNop(),
		subs:  make(map[int]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}

	ws, err := store.Load()
	if err != nil {
		return nil, err
	}

	reconciled := 0
	for i := range ws.Sessions {
		if ws.Sessions[i].Status == StatusPending {
			ws.Sessions[i].Status = StatusInactive
			ws.Sessions[i].StartTime = nil
			ws.Sessions[i].Expiration = nil
			reconciled++
		}
	}
	if reconciled > 0 {
		if err := store.Save(ws); err != nil {
			return nil, err
		}
		s.log.Warn("reconciled pending sessions", zap.Int("count", reconciled))
	}

	s.sessions = CloneSessions(ws.Sessions)
	return s, nil
}

// Sessions returns a snapshot of the current session list.
func (s *State) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneSessions(s.sessions)
}

// Session returns a copy of one session.
func (s *State) Session(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess.Clone(), true
		}
	}
	return Session{}, false
}

// Update runs fn against a freshly loaded document and persists the result.
// If fn fails or persisting fails, neither the file nor the in-memory list
// changes. Subscribers are notified only when the session list changed.
func (s *State) Update(fn func(ws *Workspace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.store.Load()
	if err != nil {
		return err
	}
	if err := fn(ws); err != nil {
		return err
	}
	if err := validateSessions(ws.Sessions); err != nil {
		return err
	}
	if err := s.store.Save(ws); err != nil {
		return err
	}
	s.replaceLocked(ws.Sessions)
	return nil
}

// Reload refreshes the in-memory list from disk, picking up changes written
// by another process.
func (s *State) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.store.Load()
	if err != nil {
		return err
	}
	s.replaceLocked(ws.Sessions)
	return nil
}

// Workspace returns a freshly loaded copy of the whole document.
func (s *State) Workspace() (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

func (s *State) replaceLocked(next []Session) {
	if reflect.DeepEqual(s.sessions, next) {
		return
	}
	s.sessions = CloneSessions(next)
	s.publish(s.sessions)
}

// SetSessions replaces the whole session list.
func (s *State) SetSessions(list []Session) error {
	return s.Update(func(ws *Workspace) error {
		ws.Sessions = CloneSessions(list)
		return nil
	})
}

// AddSession appends a session to the end of the list.
func (s *State) AddSession(sess Session) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return s.Update(func(ws *Workspace) error {
		if ws.indexOf(sess.ID) >= 0 {
			return fmt.Errorf("%w: duplicate session id %s", ErrValidation, sess.ID)
		}
		ws.Sessions = append(ws.Sessions, sess.Clone())
		return nil
	})
}

// RemoveSession deletes the session with the given id.
func (s *State) RemoveSession(id string) error {
	return s.Update(func(ws *Workspace) error {
		i := ws.indexOf(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		ws.Sessions = append(ws.Sessions[:i], ws.Sessions[i+1:]...)
		return nil
	})
}

// UpdateSession applies fn to one session and persists it.
func (s *State) UpdateSession(id string, fn func(sess *Session) error) (Session, error) {
	var updated Session
	err := s.Update(func(ws *Workspace) error {
		sess, ok := ws.FindSession(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := fn(sess); err != nil {
			return err
		}
		if sess.ID != id {
			return fmt.Errorf("%w: session id is immutable", ErrValidation)
		}
		updated = sess.Clone()
		return nil
	})
	return updated, err
}

// Profiles returns all profiles.
func (s *State) Profiles() ([]Profile, error) {
	ws, err := s.Workspace()
	if err != nil {
		return nil, err
	}
	return ws.Profiles, nil
}

// ProfileName resolves a profile id, falling back to the default name when
// the id is unknown.
func (s *State) ProfileName(id string) (string, error) {
	ws, err := s.Workspace()
	if err != nil {
		return "", err
	}
	if p, ok := ws.FindProfile(id); ok {
		return p.Name, nil
	}
	return DefaultProfileName, nil
}

// AddProfile stores a new profile. Ids and names must be unique.
func (s *State) AddProfile(p Profile) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("%w: profile id and name are required", ErrValidation)
	}
	return s.Update(func(ws *Workspace) error {
		for _, existing := range ws.Profiles {
			if existing.ID == p.ID || existing.Name == p.Name {
				return fmt.Errorf("%w: profile %q already exists", ErrValidation, p.Name)
			}
		}
		ws.Profiles = append(ws.Profiles, p)
		return nil
	})
}

// IdpURLs returns all identity provider URLs.
func (s *State) IdpURLs() ([]IdpURL, error) {
	ws, err := s.Workspace()
	if err != nil {
		return nil, err
	}
	return ws.IdpURLs, nil
}

// IdpURL resolves an idp URL id.
func (s *State) IdpURL(id string) (string, bool, error) {
	urls, err := s.IdpURLs()
	if err != nil {
		return "", false, err
	}
	for _, u := range urls {
		if u.ID == id {
			return u.URL, true, nil
		}
	}
	return "", false, nil
}

// AddIdpURL stores a new identity provider URL.
func (s *State) AddIdpURL(u IdpURL) error {
	if u.ID == "" || u.URL == "" {
		return fmt.Errorf("%w: idp url id and url are required", ErrValidation)
	}
	return s.Update(func(ws *Workspace) error {
		for _, existing := range ws.IdpURLs {
			if existing.ID == u.ID {
				return fmt.Errorf("%w: idp url %s already exists", ErrValidation, u.ID)
			}
		}
		ws.IdpURLs = append(ws.IdpURLs, u)
		return nil
	})
}

// AWSSSOConfiguration returns the stored SSO portal settings.
func (s *State) AWSSSOConfiguration() (AWSSSOConfiguration, error) {
	ws, err := s.Workspace()
	if err != nil {
		return AWSSSOConfiguration{}, err
	}
	return ws.AWSSSO, nil
}

// ConfigureAWSSSO replaces the SSO portal settings.
func (s *State) ConfigureAWSSSO(region, portalURL string, expiration *time.Time) error {
	if region == "" || portalURL == "" {
		return fmt.Errorf("%w: sso region and portal url are required", ErrValidation)
	}
	return s.Update(func(ws *Workspace) error {
		ws.AWSSSO = AWSSSOConfiguration{
			Region:         region,
			PortalURL:      portalURL,
			ExpirationTime: expiration,
		}
		return nil
	})
}

// ClearAWSSSOExpiration drops the SSO token expiry without touching the
// rest of the configuration (logout).
func (s *State) ClearAWSSSOExpiration() error {
	return s.Update(func(ws *Workspace) error {
		ws.AWSSSO.ExpirationTime = nil
		return nil
	})
}

func validateSessions(list []Session) error {
	seen := make(map[string]struct{}, len(list))
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		if _, dup := seen[list[i].ID]; dup {
			return fmt.Errorf("%w: duplicate session id %s", ErrValidation, list[i].ID)
		}
		seen[list[i].ID] = struct{}{}
	}
	return nil
}
