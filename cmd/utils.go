package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/chukul/sessionctl/internal/ui"
	"github.com/chukul/sessionctl/internal/workspace"
)

// terminalPrompter reads MFA codes from the controlling terminal. Codes
// read ahead with Prompt are handed out once, without touching the terminal.
type terminalPrompter struct {
	mu    sync.Mutex
	codes map[string]string
}

func (p *terminalPrompter) MFACode(_ context.Context, sess workspace.Session) (string, error) {
	if code, ok := p.take(sess.ID); ok {
		return code, nil
	}
	return readMFACode(sess)
}

// Prompt reads the code for sess now and keeps it for the next MFACode.
func (p *terminalPrompter) Prompt(sess workspace.Session) error {
	code, err := readMFACode(sess)
	if err != nil {
		return err
	}
	p.preset(sess.ID, code)
	return nil
}

func (p *terminalPrompter) preset(id, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.codes == nil {
		p.codes = make(map[string]string)
	}
	p.codes[id] = code
}

func (p *terminalPrompter) take(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	code, ok := p.codes[id]
	delete(p.codes, id)
	return code, ok
}

func readMFACode(sess workspace.Session) (string, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("no terminal available for the MFA prompt: %w", err)
	}
	defer tty.Close()

	fmt.Fprintf(tty, "Enter MFA code for %s: ", sess.Name)
	return readMasked(tty)
}

// readMasked reads one line in raw mode, echoing '*' for every character.
func readMasked(tty *os.File) (string, error) {
	fd := int(tty.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("failed to set terminal mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	var code []byte
	buf := make([]byte, 1)
	for {
		if _, err := tty.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		switch c := buf[0]; {
		case c == 3: // Ctrl-C
			fmt.Fprint(tty, "\r\n")
			return "", ui.ErrCancelled
		case c == 13 || c == 10:
			fmt.Fprint(tty, "\r\n")
			return strings.TrimSpace(string(code)), nil
		case c == 127 || c == 8:
			if len(code) > 0 {
				code = code[:len(code)-1]
				fmt.Fprint(tty, "\b \b")
			}
		case c >= 32 && c <= 126:
			code = append(code, c)
			fmt.Fprint(tty, "*")
		}
	}
}

const (
	samlAssertionEnv     = "SESSIONCTL_SAML_ASSERTION"
	samlAssertionFileEnv = "SESSIONCTL_SAML_ASSERTION_FILE"
)

// envAssertionSource takes the base64 SAML response captured from the
// identity provider out of the environment or a file.
type envAssertionSource struct{}

func (envAssertionSource) Assertion(_ context.Context, sess workspace.Session, idpURL string) (string, error) {
	if v := strings.TrimSpace(os.Getenv(samlAssertionEnv)); v != "" {
		return v, nil
	}
	if path := os.Getenv(samlAssertionFileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read SAML assertion: %w", err)
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("sign in at %s and set %s or %s for session %s",
		idpURL, samlAssertionEnv, samlAssertionFileEnv, sess.Name)
}

func pickSession(title string, sessions []workspace.Session) (workspace.Session, error) {
	options := make([]string, len(sessions))
	for i, s := range sessions {
		options[i] = fmt.Sprintf("%-28s %-22s %s", s.Name, typeLabel(s.Type), s.Status)
	}
	i, err := ui.Select(title, options)
	if err != nil {
		return workspace.Session{}, err
	}
	return sessions[i], nil
}

func typeLabel(t workspace.SessionType) string {
	switch t {
	case workspace.TypeAWSIAMUser:
		return "aws iam user"
	case workspace.TypeAWSIAMRoleFederated:
		return "aws federated role"
	case workspace.TypeAWSIAMRoleChained:
		return "aws chained role"
	case workspace.TypeAWSSSORole:
		return "aws sso role"
	case workspace.TypeAzure:
		return "azure"
	}
	return string(t)
}

// remaining renders the time left until exp, e.g. "1h5m left".
func remaining(exp *time.Time, now time.Time) string {
	if exp == nil {
		return "-"
	}
	diff := exp.Sub(now)
	if diff <= 0 {
		return "expired"
	}
	h := int(diff.Hours())
	m := int(diff.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm left", h, m)
	}
	return fmt.Sprintf("%dm left", m)
}

func truncateText(text string, max int) string {
	if len(text) > max {
		return text[:max-3] + "..."
	}
	return text
}

func cancelled(err error) bool {
	return errors.Is(err, ui.ErrCancelled) || errors.Is(err, context.Canceled)
}
