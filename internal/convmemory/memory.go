package convmemory

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	maxTurnContentChars  = 4096
	maxHistoryLineChars  = 512
	defaultSummaryTurns  = 10
)

// InMemoryStore is a thread-safe, single-process conversation store:
// a bounded-per-user deque of turns, LRU eviction at the user level
// once MaxUsers is exceeded, and TTL purge of inactive users — ported
// from the teacher's mutex-guarded session.Manager map, generalized to
// the original's per-user deque/LRU/TTL shape.
type InMemoryStore struct {
	mu         sync.Mutex
	users      map[string]*list.Element // userID -> node in lru (front = most recent)
	lru        *list.List               // list of *userEntry
	maxTurns   int
	maxUsers   int
	ttl        time.Duration
	summarizer Summarizer
}

type userEntry struct {
	userID  string
	history *UserHistory
}

// NewInMemoryStore builds a store with the given per-user turn cap,
// user-count cap, and inactivity TTL. summarizer may be nil, in which
// case pivots fall back to a stub note.
func NewInMemoryStore(maxTurns, maxUsers int, ttl time.Duration, summarizer Summarizer) *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[string]*list.Element),
		lru:        list.New(),
		maxTurns:   maxTurns,
		maxUsers:   maxUsers,
		ttl:        ttl,
		summarizer: summarizer,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// StoreTurn appends a turn to the user's history, evicting the oldest
// turn once MaxTurns is reached (FIFO within a user) and the least
// recently active user once MaxUsers is exceeded (LRU across users).
func (m *InMemoryStore) StoreTurn(ctx context.Context, userID string, turn Turn) error {
	turn.Content = truncate(turn.Content, maxTurnContentChars)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpiredLocked(time.Now())

	el, ok := m.users[userID]
	var entry *userEntry
	if !ok {
		entry = &userEntry{userID: userID, history: &UserHistory{}}
		el = m.lru.PushFront(entry)
		m.users[userID] = el
	} else {
		entry = el.Value.(*userEntry)
		m.lru.MoveToFront(el)
	}

	h := entry.history
	if len(h.Turns) >= m.maxTurns {
		h.Turns = h.Turns[1:]
	}
	h.Turns = append(h.Turns, turn)
	h.LastActive = time.Now()

	for m.lru.Len() > m.maxUsers {
		back := m.lru.Back()
		if back == nil {
			break
		}
		evicted := back.Value.(*userEntry)
		delete(m.users, evicted.userID)
		m.lru.Remove(back)
	}

	return nil
}

// History returns copies of the user's most recent maxTurns turns as
// stored; the "[role]: content" formatting truncated to
// maxHistoryLineChars is applied by Summary. maxTurns <= 0 uses the
// store's configured cap.
func (m *InMemoryStore) History(ctx context.Context, userID string, maxTurns int) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	entry := el.Value.(*userEntry)
	if entry.history.LastActive.Add(m.ttl).Before(time.Now()) {
		m.removeLocked(userID)
		return nil, nil
	}
	m.lru.MoveToFront(el)
	entry.history.LastActive = time.Now()

	limit := maxTurns
	if limit <= 0 {
		limit = m.maxTurns
	}
	turns := entry.history.Turns
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Summary returns a compact, prompt-ready block of the user's recent
// history for injection into the supervisor/planner prompt, or "" when
// the user has no history — mirrors get_summary.
func (m *InMemoryStore) Summary(ctx context.Context, userID string) (string, error) {
	turns, err := m.History(ctx, userID, defaultSummaryTurns)
	if err != nil || len(turns) == 0 {
		return "", err
	}

	out := "## Conversation History\nThe user has had previous interactions. Recent context:\n"
	for _, t := range turns {
		out += fmt.Sprintf("- [%s]: %s\n", t.Role, truncate(t.Content, maxHistoryLineChars))
	}
	out += "\nUse this context to understand references like \"it\", \"that script\", \"the previous one\", etc."
	return out, nil
}

// SetPending records a pending question for userID, rejecting the
// request with ErrPendingQuestionActive when an unexpired pending
// question from a different source already exists (spec §4.8
// at-most-one-pending-question invariant).
func (m *InMemoryStore) SetPending(ctx context.Context, userID string, pq PendingQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.historyLocked(userID)
	now := time.Now()
	if h.Pending != nil && !h.Pending.Expired(now) && h.Pending.Source != pq.Source {
		return ErrPendingQuestionActive
	}
	h.Pending = &pq
	return nil
}

// ClearOrMatch returns and clears the pending question if it is still
// unexpired and was raised by source, so the caller can resume the
// routing traversal at that stage; returns nil, nil otherwise.
func (m *InMemoryStore) ClearOrMatch(ctx context.Context, userID string, source string) (*PendingQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	h := el.Value.(*userEntry).history
	if h.Pending == nil {
		return nil, nil
	}
	if h.Pending.Expired(time.Now()) || h.Pending.Source != source {
		return nil, nil
	}
	pq := *h.Pending
	h.Pending = nil
	return &pq, nil
}

// ExpireStale clears every pending question that has expired and
// removes every user past the inactivity TTL as of now, returning the
// count of users removed. Intended to run on a periodic sweep.
func (m *InMemoryStore) ExpireStale(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for uid, el := range m.users {
		h := el.Value.(*userEntry).history
		if h.Pending != nil && h.Pending.Expired(now) {
			h.Pending = nil
		}
		if h.LastActive.Add(m.ttl).Before(now) {
			m.removeLocked(uid)
			removed++
		}
	}
	return removed
}

func (m *InMemoryStore) historyLocked(userID string) *UserHistory {
	el, ok := m.users[userID]
	if !ok {
		entry := &userEntry{userID: userID, history: &UserHistory{LastActive: time.Now()}}
		el = m.lru.PushFront(entry)
		m.users[userID] = el
		return entry.history
	}
	m.lru.MoveToFront(el)
	return el.Value.(*userEntry).history
}

func (m *InMemoryStore) evictExpiredLocked(now time.Time) {
	for uid, el := range m.users {
		h := el.Value.(*userEntry).history
		if h.LastActive.Add(m.ttl).Before(now) && !h.LastActive.IsZero() {
			m.removeLocked(uid)
		}
	}
}

func (m *InMemoryStore) removeLocked(userID string) {
	el, ok := m.users[userID]
	if !ok {
		return
	}
	m.lru.Remove(el)
	delete(m.users, userID)
}
