package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CaseRecord holds the schema definition for the case entity, the unit of
// work for the enrichment pipeline. Named CaseRecord rather than Case since
// the latter collides with the reserved word in generated package paths.
type CaseRecord struct {
	ent.Schema
}

// Annotations of the CaseRecord. Keeps the table name "cases" despite the
// Go-side rename.
func (CaseRecord) Annotations() []ent.Annotation {
	return []ent.Annotation{
		entsql.Annotation{Table: "cases"},
	}
}

// Fields of the CaseRecord.
func (CaseRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("case_id").
			Unique().
			Immutable(),
		field.String("title").
			Optional(),
		field.Text("description").
			Optional(),
		field.Enum("severity").
			Values("low", "medium", "high", "critical").
			Default("medium"),
		field.Enum("status").
			Values("pending", "analyzing", "completed", "failed", "partial").
			Default("pending"),
		field.String("current_step").
			Optional().
			Nillable().
			Comment("Name of the pipeline stage currently executing"),
		field.Enum("autonomy_level").
			Values("manual", "supervised", "autonomous", "research").
			Default("supervised"),
		field.JSON("entities", map[string]interface{}{}).
			Optional().
			Comment("Canonical entity bag: users/hosts/ips/domains/hashes"),
		field.String("threat_classification").
			Optional().
			Nillable(),
		field.Float("actual_cost_usd").
			Default(0),
		field.Int64("actual_tokens").
			Default(0),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the CaseRecord.
func (CaseRecord) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("audit_steps", AuditStep.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("agent_executions", AgentExecution.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("approvals", Approval.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("case_entities", CaseEntity.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("reports", ReportArtifact.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the CaseRecord.
func (CaseRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("status", "created_at"),
	}
}
