// Package convmemory implements the per-user conversation memory layer
// (spec §4.8): a bounded, TTL-purged L1 store of recent turns keyed by
// user, pivot detection when the user switches target language, and
// the single-pending-question invariant a routing traversal consults
// to resume mid-conversation instead of re-entering the classifier.
package convmemory

import (
	"context"
	"errors"
	"time"
)

// ErrPendingQuestionActive is returned by SetPending when the user
// already has an unexpired pending question from a different source,
// mirroring the teacher's single-active-chat-per-session guard.
var ErrPendingQuestionActive = errors.New("convmemory: pending question already active for user")

// Turn is a single stored conversation turn.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
	Summary   string
}

// PendingQuestion records an outstanding clarification request so a
// reply can resume the routing traversal at its source stage instead
// of re-entering the classifier. At most one may be active per user
// (spec §4.8 "at-most-one pending question per user").
type PendingQuestion struct {
	Source    string // worker|planner|supervisor
	Context   string
	ExpiresAt time.Time
}

// Expired reports whether the pending question is past its deadline.
func (p PendingQuestion) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// UserHistory is one user's bounded turn history plus pending-question
// state and last-activity bookkeeping for TTL/LRU eviction.
type UserHistory struct {
	Turns        []Turn
	LastLanguage string
	Pending      *PendingQuestion
	LastActive   time.Time
}

// Summarizer produces a compact note for an evicted pre-pivot era.
// An external collaborator (a small model) in production; a stub
// fallback is always available so pivot handling never blocks on it.
type Summarizer interface {
	SummarizePivot(ctx context.Context, history []Turn, lastLanguage, currentLanguage string) (string, error)
}

// Store is the per-user conversation memory contract. InMemoryStore
// backs a single coordinator; RedisStore shares state across a
// multi-coordinator deployment.
type Store interface {
	StoreTurn(ctx context.Context, userID string, turn Turn) error
	History(ctx context.Context, userID string, maxTurns int) ([]Turn, error)
	Summary(ctx context.Context, userID string) (string, error)
	SetPending(ctx context.Context, userID string, pq PendingQuestion) error
	ClearOrMatch(ctx context.Context, userID string, source string) (*PendingQuestion, error)
	ExpireStale(ctx context.Context, now time.Time) int
}
