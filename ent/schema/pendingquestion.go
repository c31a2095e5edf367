package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PendingQuestion holds the schema definition for the durable
// complement to internal/convmemory's in-process PendingQuestion,
// giving a multi-coordinator deployment a crash-recoverable record of
// the single outstanding clarification question per user (spec §4.8),
// generalizing the teacher's single-active-chat-per-session guard
// (ErrChatExecutionActive) to one row per user rather than per
// session.
type PendingQuestion struct {
	ent.Schema
}

// Fields of the PendingQuestion.
func (PendingQuestion) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("pending_question_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Unique().
			Immutable().
			Comment("At most one pending question per user"),
		field.String("source").
			Comment("worker|planner|supervisor"),
		field.Text("question_context"),
		field.Time("expires_at"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the PendingQuestion.
func (PendingQuestion) Edges() []ent.Edge {
	return nil
}

// Indexes of the PendingQuestion.
func (PendingQuestion) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("expires_at"),
	}
}
