package session

import (
	"context"
	"fmt"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

// Handler drives the lifecycle of one session type.
type Handler interface {
	Start(ctx context.Context, id string) error
	// Stop is idempotent: stopping an inactive session changes nothing.
	Stop(ctx context.Context, id string) error
	Update(id string, patch Patch) (workspace.Session, error)
	// Delete stops and removes the session together with its trusters.
	Delete(ctx context.Context, id string) error
}

// CredentialGenerator is implemented by AWS handlers.
type CredentialGenerator interface {
	// GenerateCredentials returns a fresh credential bundle without
	// changing the session's status.
	GenerateCredentials(ctx context.Context, id string) (awscloud.Credentials, error)
	// ListTruster returns the sessions whose role chain leads back to id,
	// in session list order.
	ListTruster(id string) []workspace.Session
}

// credentialSource lets chained roles pull parent credentials through
// whichever handler owns the parent. chain holds the ids already visited.
type credentialSource interface {
	acquire(ctx context.Context, sess workspace.Session, chain []string) (awscloud.Credentials, error)
}

// Patch lists the editable fields of a session. Nil fields are left as is.
type Patch struct {
	Name      *string
	Region    *string
	ProfileID *string
	RoleArn   *string
}

func (p Patch) apply(s *workspace.Session) error {
	if p.Name != nil {
		if *p.Name == "" {
			return fmt.Errorf("%w: session name must not be empty", ErrValidation)
		}
		s.Name = *p.Name
	}
	if p.Region != nil {
		if *p.Region == "" {
			return fmt.Errorf("%w: region must not be empty", ErrValidation)
		}
		s.Region = *p.Region
	}
	if p.ProfileID != nil {
		if !s.Type.IsAWS() {
			return fmt.Errorf("%w: %s sessions have no profile", ErrValidation, s.Type)
		}
		s.ProfileID = *p.ProfileID
	}
	if p.RoleArn != nil {
		switch {
		case s.Federated != nil:
			s.Federated.RoleArn = *p.RoleArn
		case s.Chained != nil:
			s.Chained.RoleArn = *p.RoleArn
		default:
			return fmt.Errorf("%w: %s sessions have no role arn", ErrValidation, s.Type)
		}
	}
	return nil
}

// Registry maps each session type to its handler. It is built once at
// start-up.
type Registry struct {
	handlers map[workspace.SessionType]Handler
}

// NewRegistry builds a handler for every session type from deps.
func NewRegistry(deps Deps) *Registry {
	deps = deps.withDefaults()
	r := &Registry{handlers: make(map[workspace.SessionType]Handler)}
	r.Register(workspace.TypeAWSIAMUser, NewIAMUserHandler(deps, r))
	r.Register(workspace.TypeAWSIAMRoleFederated, NewFederatedHandler(deps, r))
	r.Register(workspace.TypeAWSIAMRoleChained, NewChainedHandler(deps, r))
	r.Register(workspace.TypeAWSSSORole, NewSSOHandler(deps, r))
	r.Register(workspace.TypeAzure, NewAzureHandler(deps, r))
	return r
}

// Register installs or replaces the handler for t.
func (r *Registry) Register(t workspace.SessionType, h Handler) {
	r.handlers[t] = h
}

// Handler resolves the handler for t.
func (r *Registry) Handler(t workspace.SessionType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	return h, nil
}

func (r *Registry) credentialSource(t workspace.SessionType) (credentialSource, error) {
	h, err := r.Handler(t)
	if err != nil {
		return nil, err
	}
	src, ok := h.(credentialSource)
	if !ok {
		return nil, fmt.Errorf("%w: %s sessions cannot provide parent credentials", ErrValidation, t)
	}
	return src, nil
}
