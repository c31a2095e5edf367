package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Run holds the schema definition for one complete traversal through
// the routing graph, generalizing the teacher's AlertSession (one row
// per top-level request) from an alert-investigation session to one
// classifier→...→respond traversal.
type Run struct {
	ent.Schema
}

// Fields of the Run.
func (Run) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("run_id").
			Unique().
			Immutable(),
		field.String("user_id").
			Immutable(),
		field.Text("task_description").
			Comment("The user's request that started this traversal"),
		field.String("target_language").
			Optional(),
		field.String("task_size").
			Optional().
			Comment("trivial|small|complex, set by the classifier stage"),
		field.String("task_type").
			Optional(),
		field.String("interaction_mode").
			Optional().
			Comment("do|teach"),
		field.Enum("status").
			Values("pending", "in_progress", "completed", "failed", "cancelled").
			Default("pending"),
		field.String("current_node").
			Optional().
			Comment("Last stage the traversal reached"),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Int("iteration_count").
			Default(0),
		field.Int("max_iterations"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Run.
func (Run) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("node_traces", NodeTrace.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("tool_refs", ToolRef.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("context_pack_snapshots", ContextPackSnapshot.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Run.
func (Run) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "created_at"),
		index.Fields("status"),
	}
}
