package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

// CredentialsWriter stores credentials under a named local profile.
// *awscloud.CredentialsFile implements it.
type CredentialsWriter interface {
	WriteProfile(profile string, creds awscloud.Credentials, region string) error
	RemoveProfile(profile string) error
}

// TokenPrompter supplies MFA codes for IAM user sessions.
type TokenPrompter interface {
	MFACode(ctx context.Context, sess workspace.Session) (string, error)
}

// SAMLAssertionSource supplies a base64 SAML response for a federated
// session. The identity provider exchange itself happens elsewhere.
type SAMLAssertionSource interface {
	Assertion(ctx context.Context, sess workspace.Session, idpURL string) (string, error)
}

// SSOTokenSource returns the portal access token for IAM Identity Center.
// *awscloud.SSOCache implements it.
type SSOTokenSource interface {
	Token(startURL string) (awscloud.SSOToken, error)
}

// AzureCLI is the subset of az used by Azure sessions. *azure.CLI
// implements it.
type AzureCLI interface {
	Login(ctx context.Context, tenantID string) error
	SetSubscription(ctx context.Context, subscriptionID string) error
	SetLocation(ctx context.Context, region string) error
	Clear(ctx context.Context) error
}

// Deps are the collaborators shared by every handler. Only State is
// required; a handler whose collaborator is missing fails its operations
// with ErrValidation.
type Deps struct {
	State           *workspace.State
	AWS             awscloud.Provider
	CredentialsFile CredentialsWriter
	MFA             TokenPrompter
	SAML            SAMLAssertionSource
	SSOTokens       SSOTokenSource
	Azure           AzureCLI

	Logger  *zap.Logger
	Metrics *Metrics
	Retry   RetryConfig
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Retry.MaxAttempts == 0 {
		d.Retry = DefaultRetryConfig()
	}
	return d
}
