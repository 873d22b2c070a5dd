package awscloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultFederationURL = "https://signin.aws.amazon.com/federation"
	consoleIssuer        = "sessionctl"
)

// Console builds AWS management console sign-in URLs from temporary
// credentials through the federation endpoint.
type Console struct {
	http          *resty.Client
	federationURL string
}

func NewConsole(federationURL string) *Console {
	if federationURL == "" {
		federationURL = DefaultFederationURL
	}
	client := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", "sessionctl")
	return &Console{http: client, federationURL: federationURL}
}

// SigninURL exchanges creds for a sign-in token and returns the login URL
// landing in region's console home.
func (c *Console) SigninURL(ctx context.Context, creds Credentials, region string) (string, error) {
	if creds.SessionToken == "" {
		return "", fmt.Errorf("console access requires temporary role credentials")
	}

	session, err := json.Marshal(map[string]string{
		"sessionId":    creds.AccessKeyID,
		"sessionKey":   creds.SecretAccessKey,
		"sessionToken": creds.SessionToken,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"Action":  "getSigninToken",
			"Session": string(session),
		}).
		Get(c.federationURL)
	if err != nil {
		return "", fmt.Errorf("failed to get sign-in token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to get sign-in token: %s", resp.Status())
	}

	var token struct {
		SigninToken string `json:"SigninToken"`
	}
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if token.SigninToken == "" {
		return "", fmt.Errorf("federation endpoint returned no sign-in token")
	}

	destination := "https://console.aws.amazon.com/"
	if region != "" {
		destination = fmt.Sprintf("https://%s.console.aws.amazon.com/console/home?region=%s", region, region)
	}
	params := url.Values{}
	params.Set("Action", "login")
	params.Set("Issuer", consoleIssuer)
	params.Set("Destination", destination)
	params.Set("SigninToken", token.SigninToken)
	return c.federationURL + "?" + params.Encode(), nil
}
