package session

import (
	"context"
	"time"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
)

// Store persists sessions. Implementations must make Commit atomic: either
// every write of the cycle lands or none does.
type Store interface {
	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// AppendMessage appends one message, creating the session if needed.
	AppendMessage(ctx context.Context, id string, msg Message) error
	// UpsertIntelligence unions in into the session's stored set.
	UpsertIntelligence(ctx context.Context, id string, in classifier.Intelligence) error
	// MarkReported sets the callback flag if it was unset and reports
	// whether this call flipped it.
	MarkReported(ctx context.Context, id string) (bool, error)
	// Commit writes a whole cycle in one transaction.
	Commit(ctx context.Context, c Cycle) (CommitResult, error)
	// Replay looks up the reply recorded for a delivery key.
	Replay(ctx context.Context, key string) (string, bool, error)
	// PurgeReplays drops replay entries created before the cutoff.
	PurgeReplays(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
