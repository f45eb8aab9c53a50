package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CaseEntity holds the schema definition for a single normalized entity
// bound to a case. This is the REL-side storage backing "Cases own their
// entities"; the same (type, value) pairs are mirrored
// into the KV inverted index for similarity search.
type CaseEntity struct {
	ent.Schema
}

// Fields of the CaseEntity.
func (CaseEntity) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("case_entity_id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.Enum("entity_type").
			Values("user", "ip", "host", "domain", "hash").
			Immutable(),
		field.String("value").
			Immutable().
			Comment("Normalized, lowercased value"),
		field.String("original_field").
			Optional(),
		field.Float("confidence").
			Default(1.0),
		field.Bool("validation_passed").
			Default(true),
	}
}

// Edges of the CaseEntity.
func (CaseEntity) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("case_entities").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the CaseEntity.
func (CaseEntity) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "entity_type", "value").
			Unique(),
		index.Fields("entity_type", "value"),
	}
}
