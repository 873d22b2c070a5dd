package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/workspace"
)

func TestLifecycleEventsCarrySessionFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := newEnv(t, federated("f1", "prod-admin", "eu-west-1"))
	e.deps.Logger = zap.New(core)
	e.provider.On("AssumeRoleWithSAML", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(tempCreds("ASIAFED"), nil)

	h := startHandler(t, e, workspace.TypeAWSIAMRoleFederated)
	require.NoError(t, h.Start(context.Background(), "f1"))
	require.NoError(t, h.Stop(context.Background(), "f1"))

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{"session pending", "session started", "session stopped"}, messages)

	started := logs.FilterMessage("session started").All()[0].ContextMap()
	assert.Equal(t, "f1", started["sessionId"])
	assert.Equal(t, "prod-admin", started["sessionName"])
	assert.Equal(t, "awsIamRoleFederated", started["type"])
	assert.Equal(t, "eu-west-1", started["region"])
}

func TestFailedStartLogsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	e := newEnv(t, federated("f1", "prod-admin", "eu-west-1"))
	e.deps.Logger = zap.New(core)
	e.provider.On("AssumeRoleWithSAML", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(awscloud.Credentials{}, throttled())

	err := startHandler(t, e, workspace.TypeAWSIAMRoleFederated).Start(context.Background(), "f1")
	require.Error(t, err)

	assert.Equal(t, 2, logs.FilterMessage("retrying provider call").Len())
	failed := logs.FilterMessage("session start failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, "f1", failed[0].ContextMap()["sessionId"])
}
