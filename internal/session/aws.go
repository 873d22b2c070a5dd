package session

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

// DefaultRoleSessionName is used for chained roles that do not set one.
const DefaultRoleSessionName = "sessionctl"

type acquireFunc func(ctx context.Context, sess workspace.Session, chain []string) (awscloud.Credentials, error)

// AWSHandler serves the AWS session types. The variants differ only in how
// credentials are obtained; activation writes them to the credentials file
// under the session's profile.
type AWSHandler struct {
	*lifecycle
	deps        Deps
	acquireCred acquireFunc
}

func newAWSHandler(typ workspace.SessionType, deps Deps, reg *Registry) *AWSHandler {
	h := &AWSHandler{
		lifecycle: newLifecycle(typ, deps, reg),
		deps:      deps,
	}
	h.lifecycle.act = h
	return h
}

// NewIAMUserHandler exchanges long-term keys for a session token, asking
// for an MFA code when the user has a device configured.
func NewIAMUserHandler(deps Deps, reg *Registry) *AWSHandler {
	h := newAWSHandler(workspace.TypeAWSIAMUser, deps, reg)
	h.acquireCred = func(ctx context.Context, sess workspace.Session, _ []string) (awscloud.Credentials, error) {
		user := sess.IAMUser
		var code string
		if user.MFADevice != "" {
			if deps.MFA == nil {
				return awscloud.Credentials{}, fmt.Errorf("%w: session %s needs an MFA code but no prompter is configured", ErrValidation, sess.Name)
			}
			c, err := deps.MFA.MFACode(ctx, sess)
			if err != nil {
				return awscloud.Credentials{}, fmt.Errorf("failed to read MFA code: %w", err)
			}
			code = c
		}
		base := awscloud.Credentials{AccessKeyID: user.AccessKeyID, SecretAccessKey: user.SecretAccessKey}
		return h.call(ctx, sess, func(ctx context.Context, aws awscloud.Provider) (awscloud.Credentials, error) {
			return aws.GetSessionToken(ctx, sess.Region, base, user.MFADevice, code)
		})
	}
	return h
}

// NewFederatedHandler assumes a role with a SAML assertion from the
// session's identity provider.
func NewFederatedHandler(deps Deps, reg *Registry) *AWSHandler {
	h := newAWSHandler(workspace.TypeAWSIAMRoleFederated, deps, reg)
	h.acquireCred = func(ctx context.Context, sess workspace.Session, _ []string) (awscloud.Credentials, error) {
		fed := sess.Federated
		idpURL, ok, err := deps.State.IdpURL(fed.IdpURLID)
		if err != nil {
			return awscloud.Credentials{}, err
		}
		if !ok {
			return awscloud.Credentials{}, fmt.Errorf("%w: session %s references unknown idp url %s", ErrValidation, sess.Name, fed.IdpURLID)
		}
		if deps.SAML == nil {
			return awscloud.Credentials{}, fmt.Errorf("%w: no SAML assertion source configured", ErrValidation)
		}
		assertion, err := deps.SAML.Assertion(ctx, sess, idpURL)
		if err != nil {
			return awscloud.Credentials{}, fmt.Errorf("failed to obtain SAML assertion: %w", err)
		}
		return h.call(ctx, sess, func(ctx context.Context, aws awscloud.Provider) (awscloud.Credentials, error) {
			return aws.AssumeRoleWithSAML(ctx, sess.Region, fed.RoleArn, fed.IdpArn, assertion)
		})
	}
	return h
}

// NewChainedHandler assumes a role with the credentials of the parent
// session. Parents may themselves be chained.
func NewChainedHandler(deps Deps, reg *Registry) *AWSHandler {
	h := newAWSHandler(workspace.TypeAWSIAMRoleChained, deps, reg)
	h.acquireCred = func(ctx context.Context, sess workspace.Session, chain []string) (awscloud.Credentials, error) {
		ch := sess.Chained
		if slices.Contains(chain, sess.ID) {
			return awscloud.Credentials{}, fmt.Errorf("%w: role chain of %s loops back to itself", ErrValidation, sess.Name)
		}
		parent, ok := deps.State.Session(ch.ParentSessionID)
		if !ok {
			return awscloud.Credentials{}, fmt.Errorf("%w: parent session %s of %s does not exist", ErrValidation, ch.ParentSessionID, sess.Name)
		}
		src, err := reg.credentialSource(parent.Type)
		if err != nil {
			return awscloud.Credentials{}, err
		}
		parentCreds, err := src.acquire(ctx, parent, append(slices.Clip(chain), sess.ID))
		if err != nil {
			return awscloud.Credentials{}, fmt.Errorf("parent %s: %w", parent.Name, err)
		}

		name := ch.RoleSessionName
		if name == "" {
			name = DefaultRoleSessionName
		}
		return h.call(ctx, sess, func(ctx context.Context, aws awscloud.Provider) (awscloud.Credentials, error) {
			return aws.AssumeRole(ctx, sess.Region, parentCreds, ch.RoleArn, name)
		})
	}
	return h
}

// NewSSOHandler fetches role credentials from IAM Identity Center using the
// portal token cached by `aws sso login`.
func NewSSOHandler(deps Deps, reg *Registry) *AWSHandler {
	h := newAWSHandler(workspace.TypeAWSSSORole, deps, reg)
	h.acquireCred = func(ctx context.Context, sess workspace.Session, _ []string) (awscloud.Credentials, error) {
		cfg, err := deps.State.AWSSSOConfiguration()
		if err != nil {
			return awscloud.Credentials{}, err
		}
		if cfg.PortalURL == "" || cfg.Region == "" {
			return awscloud.Credentials{}, fmt.Errorf("%w: AWS SSO is not configured", ErrValidation)
		}
		if cfg.ExpirationTime == nil || !cfg.ExpirationTime.After(deps.Now()) {
			return awscloud.Credentials{}, fmt.Errorf("%w: AWS SSO login has expired", ErrCredentialAcquisition)
		}
		if deps.SSOTokens == nil {
			return awscloud.Credentials{}, fmt.Errorf("%w: no SSO token source configured", ErrValidation)
		}
		tok, err := deps.SSOTokens.Token(cfg.PortalURL)
		if err != nil {
			return awscloud.Credentials{}, fmt.Errorf("%w: %w", ErrCredentialAcquisition, err)
		}
		role := sess.SSO
		return h.call(ctx, sess, func(ctx context.Context, aws awscloud.Provider) (awscloud.Credentials, error) {
			return aws.GetRoleCredentials(ctx, cfg.Region, tok.AccessToken, role.AccountID, role.RoleName)
		})
	}
	return h
}

// call runs one provider request with backoff on transient errors.
func (h *AWSHandler) call(ctx context.Context, sess workspace.Session, op func(ctx context.Context, aws awscloud.Provider) (awscloud.Credentials, error)) (awscloud.Credentials, error) {
	if h.deps.AWS == nil {
		return awscloud.Credentials{}, fmt.Errorf("%w: no AWS provider configured", ErrValidation)
	}
	var creds awscloud.Credentials
	err := h.withRetry(ctx, sess, func(ctx context.Context) error {
		c, err := op(ctx, h.deps.AWS)
		if err != nil {
			return err
		}
		creds = c
		return nil
	})
	return creds, err
}

func (h *AWSHandler) acquire(ctx context.Context, sess workspace.Session, chain []string) (awscloud.Credentials, error) {
	if sess.Region == "" {
		return awscloud.Credentials{}, fmt.Errorf("%w: session %s has no region", ErrValidation, sess.Name)
	}
	return h.acquireCred(ctx, sess, chain)
}

func (h *AWSHandler) activate(ctx context.Context, sess workspace.Session) (*time.Time, error) {
	if h.deps.CredentialsFile == nil {
		return nil, fmt.Errorf("%w: no credentials file configured", ErrValidation)
	}
	creds, err := h.acquire(ctx, sess, nil)
	if err != nil {
		return nil, err
	}
	profile, err := h.state.ProfileName(sess.ProfileID)
	if err != nil {
		return nil, err
	}
	if err := h.deps.CredentialsFile.WriteProfile(profile, creds, sess.Region); err != nil {
		return nil, fmt.Errorf("failed to write credentials for profile %s: %w", profile, err)
	}
	if creds.Expiration.IsZero() {
		return nil, nil
	}
	exp := creds.Expiration.UTC().Round(0)
	return &exp, nil
}

func (h *AWSHandler) deactivate(_ context.Context, sess workspace.Session) error {
	if h.deps.CredentialsFile == nil {
		return nil
	}
	profile, err := h.state.ProfileName(sess.ProfileID)
	if err != nil {
		return err
	}
	return h.deps.CredentialsFile.RemoveProfile(profile)
}

// conflicts: two AWS sessions writing to the same named profile cannot both
// be active.
func (h *AWSHandler) conflicts(ws *workspace.Workspace, started, other *workspace.Session) bool {
	return other.Type.IsAWS() && profileName(ws, other.ProfileID) == profileName(ws, started.ProfileID)
}

func profileName(ws *workspace.Workspace, id string) string {
	if p, ok := ws.FindProfile(id); ok {
		return p.Name
	}
	return workspace.DefaultProfileName
}

// GenerateCredentials returns fresh credentials without touching the
// session's status.
func (h *AWSHandler) GenerateCredentials(ctx context.Context, id string) (awscloud.Credentials, error) {
	sess, err := h.session(id)
	if err != nil {
		return awscloud.Credentials{}, err
	}
	creds, err := h.acquire(ctx, sess, nil)
	if err != nil {
		err = classify(err)
		h.eventErr(sess, "credential generation failed", err)
		return awscloud.Credentials{}, err
	}
	h.event(sess, "credentials generated")
	return creds, nil
}

func (h *AWSHandler) ListTruster(id string) []workspace.Session {
	return ListTruster(h.state.Sessions(), id)
}
