package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ConversationTurn holds the schema definition for the durable
// per-user conversation history backing internal/convmemory beyond
// the in-process/Redis TTL window, generalizing the teacher's Message
// entity (LLM context building, scoped to one session/stage/execution)
// to Synesis's per-user, cross-run history used for pivot detection
// (spec §4.8).
type ConversationTurn struct {
	ent.Schema
}

// Fields of the ConversationTurn.
func (ConversationTurn) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("turn_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.Enum("role").
			Values("system", "user", "assistant").
			Immutable(),
		field.Text("content").
			Immutable(),
		field.Text("summary").
			Optional().
			Comment("Set when this turn is archived behind a pivot boundary"),
		field.Int("sequence_number"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ConversationTurn.
func (ConversationTurn) Edges() []ent.Edge {
	return nil
}

// Indexes of the ConversationTurn.
func (ConversationTurn) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "sequence_number"),
	}
}
