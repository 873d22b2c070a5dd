package session

import (
	"context"
	"fmt"
	"time"

	"github.com/chukul/sessionctl/internal/workspace"
)

// AzureHandler logs into the session's tenant through the az CLI. az keeps
// a single login context, so at most one Azure session is active.
type AzureHandler struct {
	*lifecycle
	cli AzureCLI
}

func NewAzureHandler(deps Deps, reg *Registry) *AzureHandler {
	h := &AzureHandler{
		lifecycle: newLifecycle(workspace.TypeAzure, deps, reg),
		cli:       deps.Azure,
	}
	h.lifecycle.act = h
	return h
}

func (h *AzureHandler) activate(ctx context.Context, sess workspace.Session) (*time.Time, error) {
	if h.cli == nil {
		return nil, fmt.Errorf("%w: no Azure CLI configured", ErrValidation)
	}
	az := sess.Azure
	steps := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"az login", func(ctx context.Context) error { return h.cli.Login(ctx, az.TenantID) }},
		{"az account set", func(ctx context.Context) error { return h.cli.SetSubscription(ctx, az.SubscriptionID) }},
		{"az configure", func(ctx context.Context) error { return h.cli.SetLocation(ctx, sess.Region) }},
	}
	for _, step := range steps {
		if err := h.withRetry(ctx, sess, step.run); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil, nil
}

func (h *AzureHandler) deactivate(ctx context.Context, _ workspace.Session) error {
	if h.cli == nil {
		return nil
	}
	return h.cli.Clear(ctx)
}

func (h *AzureHandler) conflicts(_ *workspace.Workspace, _, other *workspace.Session) bool {
	return other.Type == workspace.TypeAzure
}
