package cmd

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

func TestSessionsShow(t *testing.T) {
	dir := testEnv(t)

	store, err := session.NewSQLiteStore(filepath.Join(dir, "sessions.db"))
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(context.Background(), "abc-123", session.Message{
		ID:        "m1",
		Sender:    session.SenderScammer,
		Text:      "Your account is blocked",
		Timestamp: 1_770_005_528_731,
	}))
	require.NoError(t, store.Close())

	out, err := execute(t, "sessions", "show", "abc-123")
	require.NoError(t, err)

	var got session.Session
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "abc-123", got.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Your account is blocked", got.Messages[0].Text)
}

func TestSessionsShowNotFound(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "sessions", "show", "nobody-here")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSessionsPurgeReplays(t *testing.T) {
	testEnv(t)
	out, err := execute(t, "sessions", "purge-replays", "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 0 replay record(s)")
}
