package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrCLINotFound is returned when the az binary cannot be located.
	ErrCLINotFound = errors.New("azure cli not found")
	// ErrTransient marks az failures caused by throttling or the network.
	ErrTransient = errors.New("transient azure failure")
)

// transientMarkers are lowercase fragments of az error output that mean
// the request may succeed when repeated.
var transientMarkers = []string{
	"toomanyrequests",
	"429",
	"throttl",
	"serviceunavailable",
	"service unavailable",
	"503",
	"gateway timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"connectionerror",
	"failed to establish a new connection",
	"temporary failure in name resolution",
}

// IsTransient reports whether err is an az failure worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func transientOutput(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Runner executes the az binary.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs az as a child process.
type ExecRunner struct {
	Path string
}

func (r ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	path := r.Path
	if path == "" {
		path = "az"
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCLINotFound, path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("az %s: %w", args[0], err)
		}
		if transientOutput(msg) {
			return nil, fmt.Errorf("%w: az %s: %w: %s", ErrTransient, args[0], err, msg)
		}
		return nil, fmt.Errorf("az %s: %w: %s", args[0], err, msg)
	}
	return stdout.Bytes(), nil
}

// CLI drives tenant login and subscription selection through az.
type CLI struct {
	runner Runner
}

func NewCLI(runner Runner) *CLI {
	return &CLI{runner: runner}
}

// Login signs into tenant. az opens a browser when no cached token exists.
func (c *CLI) Login(ctx context.Context, tenantID string) error {
	_, err := c.runner.Run(ctx, "login", "--tenant", tenantID, "--output", "none")
	return err
}

func (c *CLI) SetSubscription(ctx context.Context, subscriptionID string) error {
	_, err := c.runner.Run(ctx, "account", "set", "--subscription", subscriptionID)
	return err
}

// SetLocation makes region the default location for subsequent commands.
func (c *CLI) SetLocation(ctx context.Context, region string) error {
	_, err := c.runner.Run(ctx, "configure", "--defaults", "location="+region)
	return err
}

// Clear drops every cached Azure account.
func (c *CLI) Clear(ctx context.Context) error {
	_, err := c.runner.Run(ctx, "account", "clear")
	return err
}
