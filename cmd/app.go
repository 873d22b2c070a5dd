package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/azure"
	"github.com/chukul/sessionctl/internal/config"
	"github.com/chukul/sessionctl/internal/logging"
	"github.com/chukul/sessionctl/internal/secret"
	"github.com/chukul/sessionctl/internal/session"
	"github.com/chukul/sessionctl/internal/workspace"
)

// app holds everything a command needs once the workspace is open.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *workspace.Store
	state    *workspace.State
	aws      *awscloud.Client
	creds    *awscloud.CredentialsFile
	sso      *awscloud.SSOCache
	prompter *terminalPrompter
	registry *prometheus.Registry
	metrics  *session.Metrics
	manager  *session.Manager
}

// skipWorkspace marks commands that run without decrypting the workspace.
const skipWorkspace = "skip-workspace"

var current *app

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openApp resolves the secret, opens the encrypted workspace and wires the
// session handlers. logCfg overrides the default stderr logger.
func openApp(logCfg *logging.Config) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	lc := logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development, OutputPaths: []string{"stderr"}}
	if logCfg != nil {
		lc = *logCfg
	}
	log, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	key, err := secret.Resolve(secretFlag)
	if err != nil {
		return nil, err
	}

	store := workspace.NewStore(cfg.Workspace.Path, []byte(key),
		workspace.WithAutoCreate(cfg.Workspace.AutoCreate),
		workspace.WithLogger(log),
	)
	state, err := workspace.NewState(store, workspace.WithStateLogger(log))
	if err != nil {
		if errors.Is(err, workspace.ErrStorageCorrupt) {
			return nil, fmt.Errorf("%w (wrong secret?)", err)
		}
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		state:    state,
		creds:    awscloud.NewCredentialsFile(cfg.AWS.CredentialsFile),
		sso:      awscloud.NewSSOCache(cfg.AWS.SSOCacheDir),
		prompter: &terminalPrompter{},
		registry: prometheus.NewRegistry(),
		// Retries are driven by the session handlers, not the SDK.
		aws: awscloud.NewClient(
			awscloud.WithSessionDuration(cfg.AWS.SessionDuration),
			awscloud.WithMaxAttempts(1),
		),
	}
	a.metrics = session.NewMetrics(a.registry)
	a.metrics.SetActive(state.Sessions())

	deps := session.Deps{
		State:           state,
		AWS:             a.aws,
		CredentialsFile: a.creds,
		MFA:             a.prompter,
		SAML:            envAssertionSource{},
		SSOTokens:       a.sso,
		Azure:           azure.NewCLI(azure.ExecRunner{Path: cfg.Azure.CLIPath}),
		Logger:          log,
		Metrics:         a.metrics,
		Retry: session.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
			Multiplier:   cfg.Retry.Multiplier,
		},
	}
	a.manager = session.NewManager(state, session.NewRegistry(deps), log)
	return a, nil
}

func (a *app) close() {
	if a == nil {
		return
	}
	_ = a.log.Sync()
}

// find resolves a session reference, or asks the user to pick one when ref
// is empty.
func (a *app) find(ref string, filter func(workspace.Session) bool) (workspace.Session, error) {
	if ref != "" {
		return a.manager.Find(ref)
	}

	var candidates []workspace.Session
	for _, s := range a.state.Sessions() {
		if filter == nil || filter(s) {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return workspace.Session{}, fmt.Errorf("no matching sessions, create one with 'sessionctl add'")
	}
	return pickSession("Select session", candidates)
}

func isAWS(s workspace.Session) bool { return s.Type.IsAWS() }

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
