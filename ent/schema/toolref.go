package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ToolRef holds the schema definition for one external tool-invocation
// evidence record (state.ToolRef persisted), generalizing the
// teacher's MCPInteraction (Layer 3 debug trace of one MCP tool call)
// from tarsy's MCP-server domain to Synesis's own evidence-collection
// contract (spec §3, §7 "evidence commands").
type ToolRef struct {
	ent.Schema
}

// Fields of the ToolRef.
func (ToolRef) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("tool_ref_id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.String("tool").
			Immutable(),
		field.String("request_id").
			Immutable().
			Comment("Correlates to X-Synesis-Request-ID"),
		field.String("parameters_hash"),
		field.String("result_hash"),
		field.Text("result_summary").
			Optional(),
		field.String("result_fingerprint").
			Optional(),
		field.JSON("artifact_hashes", []string{}).
			Optional(),
		field.String("tool_version").
			Optional(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ToolRef.
func (ToolRef) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("run", Run.Type).
			Ref("tool_refs").
			Field("run_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ToolRef.
func (ToolRef) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id", "created_at"),
		index.Fields("request_id"),
		index.Fields("result_fingerprint"),
	}
}
