package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AgentExecution holds the schema definition for one agent run within a
// pipeline stage.
type AgentExecution struct {
	ent.Schema
}

// Fields of the AgentExecution.
func (AgentExecution) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("execution_id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.String("stage_name").
			Immutable().
			Comment("triage, enrichment, investigation, correlation, response, reporting, knowledge"),
		field.Enum("status").
			Values("pending", "active", "completed", "failed", "skipped", "approval_denied", "timed_out").
			Default("pending"),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
		field.Int("duration_ms").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
		field.String("step_id").
			Optional().
			Nillable().
			Comment("Linked audit step id for this execution"),
	}
}

// Edges of the AgentExecution.
func (AgentExecution) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("agent_executions").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the AgentExecution.
// stage_name is not unique per case: a stage may be idempotently re-run.
func (AgentExecution) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "started_at"),
		index.Fields("case_id", "stage_name"),
	}
}
