package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chukul/sessionctl/internal/workspace"
)

func TestListTruster(t *testing.T) {
	list := []workspace.Session{
		chained("c3", "third", "c1"),
		iamUser("u1", "root", ""),
		chained("c1", "first", "u1"),
		federated("f1", "other", "eu-west-1"),
		chained("c2", "second", "u1"),
		chained("c4", "stray", "f1"),
	}

	assert.Equal(t, []string{"third", "first", "second"}, names(ListTruster(list, "u1")))
	assert.Equal(t, []string{"third"}, names(ListTruster(list, "c1")))
	assert.Equal(t, []string{"stray"}, names(ListTruster(list, "f1")))
	assert.Empty(t, ListTruster(list, "c2"))
	assert.Empty(t, ListTruster(list, "missing"))
}

func TestListTrusterStopsOnCycle(t *testing.T) {
	list := []workspace.Session{
		chained("c1", "left", "c2"),
		chained("c2", "right", "c1"),
		iamUser("u1", "root", ""),
	}

	assert.Empty(t, ListTruster(list, "u1"))
	assert.Equal(t, []string{"right"}, names(ListTruster(list, "c1")))
}

func TestMFASource(t *testing.T) {
	list := []workspace.Session{
		iamUser("u1", "alice", "arn:aws:iam::123456789012:mfa/alice"),
		iamUser("u2", "bob", ""),
		chained("c1", "ops", "u1"),
		chained("c2", "audit", "c1"),
		chained("c3", "bob-ops", "u2"),
		chained("c4", "fed-ops", "f1"),
		chained("c5", "orphan", "missing"),
		chained("loop-a", "loop-a", "loop-b"),
		chained("loop-b", "loop-b", "loop-a"),
		federated("f1", "fed", "eu-west-1"),
	}

	for _, id := range []string{"u1", "c1", "c2"} {
		src, ok := MFASource(list, id)
		require.True(t, ok, id)
		assert.Equal(t, "u1", src.ID, id)
	}
	for _, id := range []string{"u2", "c3", "c4", "c5", "loop-a", "f1", "missing"} {
		_, ok := MFASource(list, id)
		assert.False(t, ok, id)
	}
}
