package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chukul/sessionctl/internal/workspace"
)

func TestMetricsSetActive(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	active := federated("f1", "prod", "eu-west-1")
	active.Status = workspace.StatusActive
	m.SetActive([]workspace.Session{active, federated("f2", "dev", "eu-west-1"), azureSession("az1", "tenant")})

	expected := `
# HELP sessionctl_sessions_active Current number of active sessions
# TYPE sessionctl_sessions_active gauge
sessionctl_sessions_active{type="awsIamRoleChained"} 0
sessionctl_sessions_active{type="awsIamRoleFederated"} 1
sessionctl_sessions_active{type="awsIamUser"} 0
sessionctl_sessions_active{type="awsSsoRole"} 0
sessionctl_sessions_active{type="azure"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "sessionctl_sessions_active"))
}

func TestMetricsTransitionResults(t *testing.T) {
	m := NewMetrics(nil)
	typ := workspace.TypeAzure

	m.observeTransition(typ, "start", nil, 0)
	m.observeTransition(typ, "start", errors.New("boom"), 0)
	m.observeTransition(typ, "start", context.Canceled, 0)

	for _, res := range []string{"success", "error", "canceled"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues(string(typ), "start", res)), res)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(m.startDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeTransition(workspace.TypeAzure, "stop", nil, 0)
		m.observeRetry(workspace.TypeAzure)
		m.SetActive(nil)
	})
}
