package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// PromptVersion holds the schema definition for a versioned per-agent
// prompt. Append-only: Update() inserts a new row and flips is_active on
// the previous row rather than mutating content in place.
type PromptVersion struct {
	ent.Schema
}

// Fields of the PromptVersion.
func (PromptVersion) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("prompt_id").
			Unique().
			Immutable(),
		field.String("agent_name").
			Immutable(),
		field.String("version").
			Immutable().
			Comment("e.g. v1.0, v1.1"),
		field.Text("content").
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.String("modified_by").
			Immutable(),
		field.Bool("is_active").
			Default(true),
	}
}

// Indexes of the PromptVersion.
func (PromptVersion) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("agent_name", "version").
			Unique(),
		index.Fields("agent_name", "is_active"),
	}
}
