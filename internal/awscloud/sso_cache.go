package awscloud

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoSSOToken is returned when the AWS CLI cache holds no usable token
// for the portal.
var ErrNoSSOToken = errors.New("no valid sso token in cache")

// SSOToken is an IAM Identity Center access token as cached by the AWS CLI
// after `aws sso login`.
type SSOToken struct {
	StartURL    string
	Region      string
	AccessToken string
	ExpiresAt   time.Time
}

type cachedToken struct {
	StartURL    string `json:"startUrl"`
	Region      string `json:"region"`
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}

// SSOCache reads tokens from ~/.aws/sso/cache.
type SSOCache struct {
	dir string
	now func() time.Time
}

func NewSSOCache(dir string) *SSOCache {
	return &SSOCache{dir: dir, now: time.Now}
}

// Token returns the newest unexpired token for startURL. The legacy cache
// file named after sha1(startURL) is tried first, then every file in the
// directory.
func (c *SSOCache) Token(startURL string) (SSOToken, error) {
	sum := sha1.Sum([]byte(startURL))
	if tok, err := c.readFile(filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")); err == nil && c.usable(tok, startURL) {
		return tok, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return SSOToken{}, fmt.Errorf("%w for %s", ErrNoSSOToken, startURL)
		}
		return SSOToken{}, fmt.Errorf("failed to read sso cache: %w", err)
	}

	var best SSOToken
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		tok, err := c.readFile(filepath.Join(c.dir, e.Name()))
		if err != nil || !c.usable(tok, startURL) {
			continue
		}
		if tok.ExpiresAt.After(best.ExpiresAt) {
			best = tok
		}
	}
	if best.AccessToken == "" {
		return SSOToken{}, fmt.Errorf("%w for %s", ErrNoSSOToken, startURL)
	}
	return best, nil
}

func (c *SSOCache) usable(tok SSOToken, startURL string) bool {
	return tok.AccessToken != "" &&
		strings.TrimSuffix(tok.StartURL, "/") == strings.TrimSuffix(startURL, "/") &&
		tok.ExpiresAt.After(c.now())
}

func (c *SSOCache) readFile(path string) (SSOToken, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SSOToken{}, err
	}
	var ct cachedToken
	if err := json.Unmarshal(raw, &ct); err != nil {
		return SSOToken{}, err
	}
	exp, err := parseCacheTime(ct.ExpiresAt)
	if err != nil {
		return SSOToken{}, err
	}
	return SSOToken{
		StartURL:    ct.StartURL,
		Region:      ct.Region,
		AccessToken: ct.AccessToken,
		ExpiresAt:   exp,
	}, nil
}

// parseCacheTime accepts RFC 3339 and the older "...UTC" suffix written by
// AWS CLI v1.
func parseCacheTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05UTC", s)
}
