package awscloud

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/ini.v1"
)

const managedComment = "; Managed by sessionctl"

// CredentialsFile edits profile sections of ~/.aws/credentials. Sections it
// does not manage are left untouched.
type CredentialsFile struct {
	path string
	mu   sync.Mutex
}

func NewCredentialsFile(path string) *CredentialsFile {
	return &CredentialsFile{path: path}
}

func (f *CredentialsFile) Path() string {
	return f.path
}

func (f *CredentialsFile) load() (*ini.File, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{Loose: true}, f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials file: %w", err)
	}
	return cfg, nil
}

func (f *CredentialsFile) save(cfg *ini.File) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	if err := cfg.SaveTo(f.path); err != nil {
		return fmt.Errorf("failed to save credentials file: %w", err)
	}
	return os.Chmod(f.path, 0600)
}

// WriteProfile replaces the profile section with creds.
func (f *CredentialsFile) WriteProfile(profile string, creds Credentials, region string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cfg, err := f.load()
	if err != nil {
		return err
	}
	cfg.DeleteSection(profile)
	section, err := cfg.NewSection(profile)
	if err != nil {
		return fmt.Errorf("failed to create profile section: %w", err)
	}

	comment := managedComment
	if !creds.Expiration.IsZero() {
		comment = fmt.Sprintf("%s - Expires: %s", managedComment, creds.Expiration.Format(time.RFC3339))
	}
	section.Comment = comment

	section.Key("aws_access_key_id").SetValue(creds.AccessKeyID)
	section.Key("aws_secret_access_key").SetValue(creds.SecretAccessKey)
	if creds.SessionToken != "" {
		section.Key("aws_session_token").SetValue(creds.SessionToken)
	}
	if region != "" {
		section.Key("region").SetValue(region)
	}
	return f.save(cfg)
}

// RemoveProfile deletes the profile section. A missing file or section is
// not an error.
func (f *CredentialsFile) RemoveProfile(profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return nil
	}
	cfg, err := f.load()
	if err != nil {
		return err
	}
	if _, err := cfg.GetSection(profile); err != nil {
		return nil
	}
	cfg.DeleteSection(profile)
	return f.save(cfg)
}
