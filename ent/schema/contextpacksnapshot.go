package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ContextPackSnapshot holds the schema definition for one iteration's
// resolved context pack (state.ContextPack, persisted), letting the
// context-drift check (spec §4.2 "Jaccard similarity against the
// prior iteration's retrieved set") compare against a durable prior
// snapshot instead of only the in-memory previous iteration,
// generalizing the teacher's LLMInteraction (one LLM call's full
// request/response audit row) to one row per curation pass.
type ContextPackSnapshot struct {
	ent.Schema
}

// Fields of the ContextPackSnapshot.
func (ContextPackSnapshot) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("context_pack_id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.Int("iteration").
			Immutable(),
		field.String("context_hash").
			Comment("Fingerprint of the resolved pack, compared across iterations"),
		field.JSON("collections_queried", []string{}).
			Optional(),
		field.Int("total_tokens_estimate").
			Default(0),
		field.String("budget_alert").
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ContextPackSnapshot.
func (ContextPackSnapshot) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", Run.Type).
			Ref("context_pack_snapshots").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ContextPackSnapshot.
func (ContextPackSnapshot) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id", "iteration"),
	}
}
