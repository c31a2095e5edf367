package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// FailureRecord holds the schema definition for the long-term failure
// store backing the retrieval service's failures_v1 collection (spec
// §6 Persisted state: "{failure_id, code, error_output, exit_code,
// error_type, language, task_description, resolution, embedding,
// timestamp}"), generalizing the teacher's SessionScore (a standalone
// scored record with no parent-session cascade) to Synesis's
// fingerprint-keyed failure history consulted by internal/failurecache.
type FailureRecord struct {
	ent.Schema
}

// Fields of the FailureRecord.
func (FailureRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("failure_id").
			Unique().
			Immutable(),
		field.Text("code"),
		field.Text("error_output"),
		field.Int("exit_code"),
		field.String("error_type").
			Comment("lint|security|lsp|runtime|spec_mismatch|integrity_gate"),
		field.String("language"),
		field.Text("task_description"),
		field.Text("resolution").
			Optional().
			Nillable().
			Comment("How this failure was ultimately resolved, once known"),
		field.JSON("embedding", []float32{}).
			Optional().
			Comment("Vector embedding of code+error, upserted via the retrieval client"),
		field.Time("timestamp").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the FailureRecord.
func (FailureRecord) Edges() []ent.Edge {
	return nil
}

// Indexes of the FailureRecord.
func (FailureRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("error_type", "language"),
		index.Fields("timestamp"),
	}
}
