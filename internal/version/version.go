package version

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/mod/semver"
)

var (
	// Current is overwritten with -ldflags at build time.
	Current = "v0.1.0"
	// ReleasesURL points at the latest GitHub release.
	ReleasesURL = "https://api.github.com/repos/chukul/sessionctl/releases/latest"
)

const CheckInterval = 24 * time.Hour

type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

type lastCheck struct {
	LastChecked   time.Time `json:"last_checked"`
	LatestVersion string    `json:"latest_version"`
}

// Checker looks up the latest release and remembers when it last did so.
type Checker struct {
	client    *resty.Client
	url       string
	cachePath string
	now       func() time.Time
}

// NewChecker stores its timestamp in cachePath.
func NewChecker(url, cachePath string) *Checker {
	return &Checker{
		client:    resty.New().SetTimeout(3 * time.Second).SetHeader("Accept", "application/vnd.github+json"),
		url:       url,
		cachePath: cachePath,
		now:       time.Now,
	}
}

// DefaultCachePath is ~/.sessionctl/version_check.json.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sessionctl", "version_check.json")
}

func (c *Checker) Latest(ctx context.Context) (Release, error) {
	var rel Release
	resp, err := c.client.R().SetContext(ctx).SetResult(&rel).Get(c.url)
	if err != nil {
		return Release{}, err
	}
	if resp.IsError() {
		return Release{}, fmt.Errorf("release lookup returned status %d", resp.StatusCode())
	}
	if rel.TagName == "" {
		return Release{}, fmt.Errorf("release lookup returned no tag")
	}
	return rel, nil
}

// ShouldCheck reports whether the last check is older than CheckInterval.
func (c *Checker) ShouldCheck() bool {
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		return true
	}
	var check lastCheck
	if err := json.Unmarshal(data, &check); err != nil {
		return true
	}
	return c.now().Sub(check.LastChecked) > CheckInterval
}

// Remember records a completed check.
func (c *Checker) Remember(latest string) error {
	data, err := json.Marshal(lastCheck{LastChecked: c.now().UTC(), LatestVersion: latest})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.cachePath), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.cachePath, data, 0600)
}

// IsNewer compares two semantic versions; the "v" prefix is optional.
func IsNewer(latest, current string) bool {
	l, cur := canonical(latest), canonical(current)
	if !semver.IsValid(l) || !semver.IsValid(cur) {
		return false
	}
	return semver.Compare(l, cur) > 0
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
