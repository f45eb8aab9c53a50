package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Approval holds the schema definition for a human approval gate request.
// Terminal states (approved/rejected/expired) are absorbing: Decide() is a
// no-op once a row has left "pending".
type Approval struct {
	ent.Schema
}

// Fields of the Approval.
func (Approval) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("approval_id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.String("agent_name").
			Immutable().
			Comment("Stage name awaiting approval"),
		field.Text("description").
			Immutable(),
		field.Enum("status").
			Values("pending", "approved", "rejected", "expired").
			Default("pending"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("expires_at").
			Immutable(),
		field.String("decided_by").
			Optional().
			Nillable(),
		field.Time("decided_at").
			Optional().
			Nillable(),
		field.String("reason").
			Optional().
			Nillable(),
	}
}

// Edges of the Approval.
func (Approval) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("approvals").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Approval.
func (Approval) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "status"),
		index.Fields("status", "expires_at"),
	}
}
