package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

// ErrStoreDown is returned by FailingStore.
var ErrStoreDown = errors.New("store unavailable")

// CountingStore wraps a session.Store and counts write calls.
type CountingStore struct {
	session.Store
	writes atomic.Int64
}

// Writes is the number of mutating calls made so far.
func (s *CountingStore) Writes() int { return int(s.writes.Load()) }

func (s *CountingStore) AppendMessage(ctx context.Context, id string, msg session.Message) error {
	s.writes.Add(1)
	return s.Store.AppendMessage(ctx, id, msg)
}

func (s *CountingStore) UpsertIntelligence(ctx context.Context, id string, in classifier.Intelligence) error {
	s.writes.Add(1)
	return s.Store.UpsertIntelligence(ctx, id, in)
}

func (s *CountingStore) MarkReported(ctx context.Context, id string) (bool, error) {
	s.writes.Add(1)
	return s.Store.MarkReported(ctx, id)
}

func (s *CountingStore) Commit(ctx context.Context, c session.Cycle) (session.CommitResult, error) {
	s.writes.Add(1)
	return s.Store.Commit(ctx, c)
}

func (s *CountingStore) PurgeReplays(ctx context.Context, before time.Time) (int64, error) {
	s.writes.Add(1)
	return s.Store.PurgeReplays(ctx, before)
}

// FailingStore wraps a session.Store and fails Commit with ErrStoreDown
// while Fail is set. Reads pass through.
type FailingStore struct {
	session.Store
	Fail atomic.Bool
}

func (s *FailingStore) Commit(ctx context.Context, c session.Cycle) (session.CommitResult, error) {
	if s.Fail.Load() {
		return session.CommitResult{}, ErrStoreDown
	}
	return s.Store.Commit(ctx, c)
}
