package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AuditStep holds the schema definition for one hash-linked audit chain row
// Append-only: rows are never updated after
// insertion except by the idempotency retry path, which creates a new row.
type AuditStep struct {
	ent.Schema
}

// Fields of the AuditStep.
func (AuditStep) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("step_id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.Int("sequence_number").
			Immutable().
			Comment("0-based insertion order within the case"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.String("agent_name").
			Immutable(),
		field.String("agent_role").
			Immutable(),
		field.String("model").
			Immutable(),
		field.String("prompt_version").
			Immutable(),
		field.String("autonomy_level").
			Immutable(),
		field.JSON("inputs", map[string]interface{}{}).
			Optional(),
		field.JSON("plan", []interface{}{}).
			Optional(),
		field.JSON("observations", []interface{}{}).
			Optional(),
		field.JSON("outputs", map[string]interface{}{}).
			Optional(),
		field.Int64("input_tokens").
			Default(0),
		field.Int64("output_tokens").
			Default(0),
		field.Int64("total_tokens").
			Default(0),
		field.Float("cost_usd").
			Default(0),
		field.String("prev_hash").
			Optional().
			Nillable().
			Immutable(),
		field.String("hash").
			Immutable(),
		field.String("signature").
			Optional().
			Nillable().
			Immutable(),
	}
}

// Edges of the AuditStep.
func (AuditStep) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("audit_steps").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the AuditStep.
func (AuditStep) Indexes() []ent.Index {
	return []ent.Index{
		// Insertion-order retrieval per case; also enforces the total order
		// the audit-monotonicity invariant requires.
		index.Fields("case_id", "sequence_number").
			Unique(),
	}
}
