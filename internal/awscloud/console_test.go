package awscloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigninURL(t *testing.T) {
	var session map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getSigninToken", r.URL.Query().Get("Action"))
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("Session")), &session))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"SigninToken":"signin-123"}`))
	}))
	defer srv.Close()

	c := NewConsole(srv.URL)
	link, err := c.SigninURL(context.Background(), Credentials{
		AccessKeyID: "ASIA", SecretAccessKey: "secret", SessionToken: "token",
	}, "eu-west-1")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"sessionId": "ASIA", "sessionKey": "secret", "sessionToken": "token"}, session)

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "login", q.Get("Action"))
	assert.Equal(t, "sessionctl", q.Get("Issuer"))
	assert.Equal(t, "signin-123", q.Get("SigninToken"))
	assert.Equal(t, "https://eu-west-1.console.aws.amazon.com/console/home?region=eu-west-1", q.Get("Destination"))
}

func TestSigninURLRequiresSessionToken(t *testing.T) {
	c := NewConsole("http://127.0.0.1:1")
	_, err := c.SigninURL(context.Background(), Credentials{AccessKeyID: "AKIA", SecretAccessKey: "s"}, "")
	assert.Error(t, err)
}

func TestSigninURLEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewConsole(srv.URL).SigninURL(context.Background(), Credentials{AccessKeyID: "A", SecretAccessKey: "s", SessionToken: "t"}, "")
	assert.ErrorContains(t, err, "no sign-in token")
}
