package convmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_StoreTurnAndHistory(t *testing.T) {
	s := NewInMemoryStore(3, 10, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "hi"}))
	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "assistant", Content: "hello"}))

	turns, err := s.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "hi", turns[0].Content)
}

func TestInMemoryStore_FIFOWithinUserAtMaxTurns(t *testing.T) {
	s := NewInMemoryStore(2, 10, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "one"}))
	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "two"}))
	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "three"}))

	turns, err := s.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Content)
	assert.Equal(t, "three", turns[1].Content)
}

func TestInMemoryStore_LRUEvictsOldestUserAtMaxUsers(t *testing.T) {
	s := NewInMemoryStore(5, 2, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "a"}))
	require.NoError(t, s.StoreTurn(ctx, "u2", Turn{Role: "user", Content: "b"}))
	require.NoError(t, s.StoreTurn(ctx, "u3", Turn{Role: "user", Content: "c"}))

	turns, err := s.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)

	turns, err = s.History(ctx, "u3", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestInMemoryStore_TTLExpiresInactiveUser(t *testing.T) {
	s := NewInMemoryStore(5, 10, -time.Second, nil)
	ctx := context.Background()

	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "a"}))
	turns, err := s.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestInMemoryStore_Summary(t *testing.T) {
	s := NewInMemoryStore(5, 10, time.Hour, nil)
	ctx := context.Background()

	summary, err := s.Summary(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, summary)

	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "fix my script"}))
	summary, err = s.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, summary, "Conversation History")
	assert.Contains(t, summary, "fix my script")
}

func TestInMemoryStore_SetPendingRejectsConflictingSource(t *testing.T) {
	s := NewInMemoryStore(5, 10, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.SetPending(ctx, "u1", PendingQuestion{
		Source: "worker", Context: "need clarification", ExpiresAt: time.Now().Add(time.Minute),
	}))

	err := s.SetPending(ctx, "u1", PendingQuestion{
		Source: "planner", Context: "another question", ExpiresAt: time.Now().Add(time.Minute),
	})
	assert.ErrorIs(t, err, ErrPendingQuestionActive)
}

func TestInMemoryStore_SetPendingAllowsExpiredReplacement(t *testing.T) {
	s := NewInMemoryStore(5, 10, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.SetPending(ctx, "u1", PendingQuestion{
		Source: "worker", Context: "q1", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	err := s.SetPending(ctx, "u1", PendingQuestion{
		Source: "planner", Context: "q2", ExpiresAt: time.Now().Add(time.Minute),
	})
	assert.NoError(t, err)
}

func TestInMemoryStore_ClearOrMatch(t *testing.T) {
	s := NewInMemoryStore(5, 10, time.Hour, nil)
	ctx := context.Background()

	require.NoError(t, s.SetPending(ctx, "u1", PendingQuestion{
		Source: "worker", Context: "q1", ExpiresAt: time.Now().Add(time.Minute),
	}))

	pq, err := s.ClearOrMatch(ctx, "u1", "planner")
	require.NoError(t, err)
	assert.Nil(t, pq)

	pq, err = s.ClearOrMatch(ctx, "u1", "worker")
	require.NoError(t, err)
	require.NotNil(t, pq)
	assert.Equal(t, "q1", pq.Context)

	pq, err = s.ClearOrMatch(ctx, "u1", "worker")
	require.NoError(t, err)
	assert.Nil(t, pq)
}

func TestInMemoryStore_ExpireStaleRemovesInactiveUsers(t *testing.T) {
	s := NewInMemoryStore(5, 10, 10*time.Millisecond, nil)
	ctx := context.Background()

	require.NoError(t, s.StoreTurn(ctx, "u1", Turn{Role: "user", Content: "a"}))

	removed := s.ExpireStale(ctx, time.Now().Add(time.Hour))
	assert.Equal(t, 1, removed)
}

func TestDetectPivot_NoPivotWhenLanguageUnchanged(t *testing.T) {
	h := &UserHistory{LastLanguage: "python"}
	pivoted, note := DetectPivot(context.Background(), h, "python", nil)
	assert.False(t, pivoted)
	assert.Empty(t, note)
}

func TestDetectPivot_StubNoteOnLanguageChange(t *testing.T) {
	h := &UserHistory{
		LastLanguage: "python",
		Turns:        []Turn{{Role: "user", Content: "write a script"}},
	}
	pivoted, note := DetectPivot(context.Background(), h, "javascript", nil)
	assert.True(t, pivoted)
	assert.Contains(t, note, "python")
}

func TestDetectPivot_NoPivotOnFirstMessage(t *testing.T) {
	h := &UserHistory{}
	pivoted, _ := DetectPivot(context.Background(), h, "python", nil)
	assert.False(t, pivoted)
}

type stubSummarizer struct {
	note string
	err  error
}

func (s stubSummarizer) SummarizePivot(ctx context.Context, history []Turn, lastLanguage, currentLanguage string) (string, error) {
	return s.note, s.err
}

func TestDetectPivot_UsesSummarizerWhenProvided(t *testing.T) {
	h := &UserHistory{LastLanguage: "python", Turns: []Turn{{Role: "user", Content: "x"}}}
	pivoted, note := DetectPivot(context.Background(), h, "shell", stubSummarizer{note: "custom summary"})
	assert.True(t, pivoted)
	assert.Equal(t, "custom summary", note)
}

func TestDetectPivot_FallsBackToStubOnSummarizerError(t *testing.T) {
	h := &UserHistory{LastLanguage: "python", Turns: []Turn{{Role: "user", Content: "x"}}}
	pivoted, note := DetectPivot(context.Background(), h, "shell", stubSummarizer{err: assert.AnError})
	assert.True(t, pivoted)
	assert.Contains(t, note, "python")
}
