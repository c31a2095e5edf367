package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// KnowledgeGapQuery holds the schema definition for the
// synesis_knowledge_backlog table (spec §6 Persisted state:
// "Knowledge-gap backlog ... with low-RAG-confidence queries"),
// generalizing the teacher's AgentExecution bookkeeping-row pattern
// (a standalone record with no behavior beyond audit) to a backlog an
// operator triages to decide what to add to the retrieval corpus.
type KnowledgeGapQuery struct {
	ent.Schema
}

// Fields of the KnowledgeGapQuery.
func (KnowledgeGapQuery) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("backlog_id").
			Unique().
			Immutable(),
		field.String("run_id").
			Immutable(),
		field.Text("query_text").
			Immutable(),
		field.String("collection").
			Optional(),
		field.Float("confidence").
			Comment("Below-threshold RRF/rerank confidence that triggered the backlog entry"),
		field.Bool("triaged").
			Default(false),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the KnowledgeGapQuery.
func (KnowledgeGapQuery) Edges() []ent.Edge {
	return nil
}

// Indexes of the KnowledgeGapQuery.
func (KnowledgeGapQuery) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("triaged", "created_at"),
	}
}
