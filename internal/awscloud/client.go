package awscloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
)

// Credentials is a temporary (or long-term, for IAM users) AWS key set.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Provider is the set of AWS calls the session handlers need.
type Provider interface {
	GetSessionToken(ctx context.Context, region string, base Credentials, mfaSerial, tokenCode string) (Credentials, error)
	AssumeRole(ctx context.Context, region string, base Credentials, roleArn, sessionName string) (Credentials, error)
	AssumeRoleWithSAML(ctx context.Context, region, roleArn, principalArn, assertion string) (Credentials, error)
	GetRoleCredentials(ctx context.Context, region, accessToken, accountID, roleName string) (Credentials, error)
}

// Client implements Provider with aws-sdk-go-v2. Every call builds a client
// bound to the caller's region and credentials, so nothing from the shared
// AWS config files leaks into a session.
type Client struct {
	duration    time.Duration
	endpoint    string
	maxAttempts int

	mu   sync.Mutex
	base *aws.Config
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSessionDuration sets the lifetime requested for temporary credentials.
func WithSessionDuration(d time.Duration) ClientOption {
	return func(c *Client) { c.duration = d }
}

// WithEndpoint points STS and SSO at a custom endpoint.
func WithEndpoint(url string) ClientOption {
	return func(c *Client) { c.endpoint = url }
}

// WithMaxAttempts caps the SDK's own retries. Handler level retries sit on top.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) { c.maxAttempts = n }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{duration: time.Hour}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) config(ctx context.Context) (aws.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.base != nil {
		return *c.base, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	c.base = &cfg
	return cfg, nil
}

func (c *Client) stsClient(ctx context.Context, region string, creds aws.CredentialsProvider) (*sts.Client, error) {
	cfg, err := c.config(ctx)
	if err != nil {
		return nil, err
	}
	return sts.NewFromConfig(cfg, func(o *sts.Options) {
		o.Region = region
		o.Credentials = creds
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
		if c.maxAttempts > 0 {
			o.RetryMaxAttempts = c.maxAttempts
		}
	}), nil
}

func (c *Client) ssoClient(ctx context.Context, region string) (*sso.Client, error) {
	cfg, err := c.config(ctx)
	if err != nil {
		return nil, err
	}
	return sso.NewFromConfig(cfg, func(o *sso.Options) {
		o.Region = region
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
		if c.maxAttempts > 0 {
			o.RetryMaxAttempts = c.maxAttempts
		}
	}), nil
}

func static(base Credentials) aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(base.AccessKeyID, base.SecretAccessKey, base.SessionToken)
}

func (c *Client) durationSeconds() *int32 {
	return aws.Int32(int32(c.duration / time.Second))
}

// GetSessionToken exchanges IAM user keys (and an optional MFA code) for
// temporary credentials.
func (c *Client) GetSessionToken(ctx context.Context, region string, base Credentials, mfaSerial, tokenCode string) (Credentials, error) {
	svc, err := c.stsClient(ctx, region, static(base))
	if err != nil {
		return Credentials{}, err
	}

	in := &sts.GetSessionTokenInput{DurationSeconds: c.durationSeconds()}
	if mfaSerial != "" {
		in.SerialNumber = aws.String(mfaSerial)
		in.TokenCode = aws.String(tokenCode)
	}
	out, err := svc.GetSessionToken(ctx, in)
	if err != nil {
		return Credentials{}, err
	}
	return fromSTS(out.Credentials)
}

// AssumeRole assumes roleArn with the given base credentials.
func (c *Client) AssumeRole(ctx context.Context, region string, base Credentials, roleArn, sessionName string) (Credentials, error) {
	svc, err := c.stsClient(ctx, region, static(base))
	if err != nil {
		return Credentials{}, err
	}

	out, err := svc.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(sessionName),
		DurationSeconds: c.durationSeconds(),
	})
	if err != nil {
		return Credentials{}, err
	}
	return fromSTS(out.Credentials)
}

// AssumeRoleWithSAML assumes roleArn using a base64 SAML assertion. The call
// is unsigned.
func (c *Client) AssumeRoleWithSAML(ctx context.Context, region, roleArn, principalArn, assertion string) (Credentials, error) {
	svc, err := c.stsClient(ctx, region, aws.AnonymousCredentials{})
	if err != nil {
		return Credentials{}, err
	}

	out, err := svc.AssumeRoleWithSAML(ctx, &sts.AssumeRoleWithSAMLInput{
		RoleArn:         aws.String(roleArn),
		PrincipalArn:    aws.String(principalArn),
		SAMLAssertion:   aws.String(assertion),
		DurationSeconds: c.durationSeconds(),
	})
	if err != nil {
		return Credentials{}, err
	}
	return fromSTS(out.Credentials)
}

// GetRoleCredentials fetches role credentials from IAM Identity Center with
// a portal access token.
func (c *Client) GetRoleCredentials(ctx context.Context, region, accessToken, accountID, roleName string) (Credentials, error) {
	svc, err := c.ssoClient(ctx, region)
	if err != nil {
		return Credentials{}, err
	}

	out, err := svc.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccessToken: aws.String(accessToken),
		AccountId:   aws.String(accountID),
		RoleName:    aws.String(roleName),
	})
	if err != nil {
		return Credentials{}, err
	}
	rc := out.RoleCredentials
	if rc == nil || rc.AccessKeyId == nil || rc.SecretAccessKey == nil {
		return Credentials{}, fmt.Errorf("sso returned no role credentials")
	}
	return Credentials{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		Expiration:      time.UnixMilli(rc.Expiration).UTC(),
	}, nil
}

func fromSTS(creds *ststypes.Credentials) (Credentials, error) {
	if creds == nil || creds.AccessKeyId == nil || creds.SecretAccessKey == nil {
		return Credentials{}, fmt.Errorf("sts returned no credentials")
	}
	return Credentials{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		Expiration:      aws.ToTime(creds.Expiration).UTC(),
	}, nil
}
