package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chukul/sessionctl/internal/workspace"
)

// activator is the provider specific half of a handler.
type activator interface {
	// activate acquires credentials and applies them locally. It returns
	// the credential expiry when the provider reports one.
	activate(ctx context.Context, sess workspace.Session) (*time.Time, error)
	deactivate(ctx context.Context, sess workspace.Session) error
	// conflicts reports whether other has to be marked inactive once
	// started is active, because both own the same local slot.
	conflicts(ws *workspace.Workspace, started, other *workspace.Session) bool
}

var errAlreadyActive = errors.New("session already active")

// lifecycle implements the state machine shared by all handlers:
//
//	inactive --start--> pending --success--> active
//	pending  --failure/cancel--> previous status
//	active   --stop--> inactive
type lifecycle struct {
	typ      workspace.SessionType
	state    *workspace.State
	registry *Registry
	log      *zap.Logger
	metrics  *Metrics
	retry    RetryConfig
	now      func() time.Time
	act      activator
}

func newLifecycle(typ workspace.SessionType, deps Deps, reg *Registry) *lifecycle {
	return &lifecycle{
		typ:      typ,
		state:    deps.State,
		registry: reg,
		log:      deps.Logger,
		metrics:  deps.Metrics,
		retry:    deps.Retry,
		now:      deps.Now,
	}
}

// withRetry runs one provider request with backoff on transient errors,
// counting and logging every retry.
func (l *lifecycle) withRetry(ctx context.Context, sess workspace.Session, op func(ctx context.Context) error) error {
	return retry(ctx, l.retry, op, func(attempt int, err error, delay time.Duration) {
		l.metrics.observeRetry(l.typ)
		l.log.Warn("retrying provider call", sessionFields(sess,
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("code", errorCode(err)),
			zap.Error(err),
		)...)
	})
}

func (l *lifecycle) timestamp() time.Time {
	return l.now().UTC().Round(0)
}

func (l *lifecycle) session(id string) (workspace.Session, error) {
	sess, ok := l.state.Session(id)
	if !ok {
		return workspace.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if sess.Type != l.typ {
		return workspace.Session{}, fmt.Errorf("%w: session %s is %s, not %s", ErrUnsupportedType, id, sess.Type, l.typ)
	}
	return sess, nil
}

// Start activates the session. On failure or cancellation the session goes
// back to the status it had before the call.
func (l *lifecycle) Start(ctx context.Context, id string) (err error) {
	if _, err := l.session(id); err != nil {
		return err
	}

	// The status check and the move to pending happen under one State
	// update, so concurrent starts of the same session cannot both proceed.
	var prev workspace.Status
	sess, err := l.state.UpdateSession(id, func(s *workspace.Session) error {
		switch s.Status {
		case workspace.StatusActive:
			return errAlreadyActive
		case workspace.StatusPending:
			return fmt.Errorf("%w: session %s is already starting", ErrValidation, s.Name)
		}
		if s.Region == "" {
			return fmt.Errorf("%w: session %s has no region", ErrValidation, s.Name)
		}
		prev = s.Status
		s.Status = workspace.StatusPending
		return nil
	})
	if errors.Is(err, errAlreadyActive) {
		return nil
	}
	if err != nil {
		return err
	}

	began := l.now()
	defer func() { l.metrics.observeTransition(l.typ, "start", err, l.now().Sub(began)) }()
	l.event(sess, "session pending")

	expiration, err := l.act.activate(ctx, sess)
	if err != nil {
		l.revert(sess, prev)
		err = classify(err)
		l.eventErr(sess, "session start failed", err)
		return err
	}

	started := l.timestamp()
	var replaced []workspace.Session
	err = l.state.Update(func(ws *workspace.Workspace) error {
		s, ok := ws.FindSession(id)
		if !ok {
			return fmt.Errorf("%w: %s was removed while starting", ErrSessionNotFound, id)
		}
		s.Status = workspace.StatusActive
		s.StartTime = &started
		s.Expiration = expiration

		for i := range ws.Sessions {
			other := &ws.Sessions[i]
			if other.ID == id || other.Status != workspace.StatusActive {
				continue
			}
			if l.act.conflicts(ws, s, other) {
				markInactive(other)
				replaced = append(replaced, other.Clone())
			}
		}
		return nil
	})
	if err != nil {
		if derr := l.act.deactivate(context.WithoutCancel(ctx), sess); derr != nil {
			l.eventErr(sess, "failed to undo activation", derr)
		}
		l.revert(sess, prev)
		l.eventErr(sess, "session start failed", err)
		return err
	}

	for _, r := range replaced {
		l.event(r, "session deactivated", zap.String("replacedBy", sess.ID))
	}
	extra := []zap.Field{zap.String("region", sess.Region)}
	if expiration != nil {
		extra = append(extra, zap.Time("expiration", *expiration))
	}
	l.event(sess, "session started", extra...)
	l.metrics.SetActive(l.state.Sessions())
	return nil
}

func (l *lifecycle) revert(sess workspace.Session, prev workspace.Status) {
	_, err := l.state.UpdateSession(sess.ID, func(s *workspace.Session) error {
		s.Status = prev
		if prev == workspace.StatusInactive {
			s.StartTime = nil
			s.Expiration = nil
		}
		return nil
	})
	if err != nil {
		l.eventErr(sess, "failed to restore session status", err)
	}
}

func markInactive(s *workspace.Session) {
	s.Status = workspace.StatusInactive
	s.StartTime = nil
	s.Expiration = nil
}

// Stop deactivates the session. An inactive session is left untouched and
// nothing is persisted or published.
func (l *lifecycle) Stop(ctx context.Context, id string) (err error) {
	sess, err := l.session(id)
	if err != nil {
		return err
	}
	if sess.Status == workspace.StatusInactive {
		return nil
	}

	defer func() { l.metrics.observeTransition(l.typ, "stop", err, 0) }()

	if err := l.act.deactivate(ctx, sess); err != nil {
		err = fmt.Errorf("failed to stop session %s: %w", sess.Name, err)
		l.eventErr(sess, "session stop failed", err)
		return err
	}
	if _, err := l.state.UpdateSession(id, func(s *workspace.Session) error {
		markInactive(s)
		return nil
	}); err != nil {
		return err
	}
	l.event(sess, "session stopped")
	l.metrics.SetActive(l.state.Sessions())
	return nil
}

// Update persists field changes. Callers restart active sessions whose
// credentials depend on the changed fields.
func (l *lifecycle) Update(id string, patch Patch) (workspace.Session, error) {
	if _, err := l.session(id); err != nil {
		return workspace.Session{}, err
	}
	updated, err := l.state.UpdateSession(id, patch.apply)
	if err != nil {
		return workspace.Session{}, err
	}
	l.event(updated, "session updated")
	return updated, nil
}

// Delete stops the session and every truster, then removes them all in a
// single persisted change. Every stop is attempted; if any fails the
// document is left unchanged apart from the sessions that did stop.
func (l *lifecycle) Delete(ctx context.Context, id string) (err error) {
	sess, err := l.session(id)
	if err != nil {
		return err
	}
	defer func() { l.metrics.observeTransition(l.typ, "delete", err, 0) }()

	victims := append(ListTruster(l.state.Sessions(), id), sess)
	var stopErrs []error
	for _, v := range victims {
		if v.Status == workspace.StatusInactive {
			continue
		}
		h, err := l.registry.Handler(v.Type)
		if err == nil {
			err = h.Stop(ctx, v.ID)
		}
		if err != nil {
			stopErrs = append(stopErrs, fmt.Errorf("failed to stop %s before delete: %w", v.Name, err))
		}
	}
	// Sessions that did stop stay stopped; nothing is removed.
	if len(stopErrs) > 0 {
		return errors.Join(stopErrs...)
	}

	remove := make(map[string]bool, len(victims))
	for _, v := range victims {
		remove[v.ID] = true
	}
	err = l.state.Update(func(ws *workspace.Workspace) error {
		kept := make([]workspace.Session, 0, len(ws.Sessions))
		for _, s := range ws.Sessions {
			if !remove[s.ID] {
				kept = append(kept, s)
			}
		}
		ws.Sessions = kept
		return nil
	})
	if err != nil {
		return err
	}

	for _, v := range victims {
		l.event(v, "session deleted")
	}
	l.metrics.SetActive(l.state.Sessions())
	return nil
}
