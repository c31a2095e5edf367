package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// NodeTrace holds the schema definition for one stage's append-only
// audit entry (state.NodeTrace persisted), generalizing the teacher's
// TimelineEvent (Layer 1 user-facing timeline) to Synesis's own
// per-stage reasoning/confidence/outcome audit trail (spec §3).
type NodeTrace struct {
	ent.Schema
}

// Fields of the NodeTrace.
func (NodeTrace) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("trace_id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.String("node_name").
			Immutable(),
		field.Text("reasoning").
			Optional(),
		field.JSON("assumptions", []string{}).
			Optional(),
		field.Float("confidence").
			Default(0),
		field.Enum("outcome").
			Values("success", "needs_revision", "error", "timeout"),
		field.Float("latency_ms").
			Default(0),
		field.Int("tokens_used").
			Default(0),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the NodeTrace.
func (NodeTrace) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", Run.Type).
			Ref("node_traces").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the NodeTrace.
func (NodeTrace) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id", "created_at"),
		index.Fields("node_name", "outcome"),
	}
}
