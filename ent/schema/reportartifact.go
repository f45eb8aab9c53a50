package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ReportArtifact holds the schema definition for a finished-stage report
// persisted to disk, with REL holding the pointer.
type ReportArtifact struct {
	ent.Schema
}

// Fields of the ReportArtifact.
func (ReportArtifact) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("report_id").
			Unique().
			Immutable(),
		field.String("case_id").
			Immutable(),
		field.String("report_type").
			Immutable().
			Comment("e.g. incident_report, executive_summary"),
		field.String("file_path").
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ReportArtifact.
func (ReportArtifact) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("case", CaseRecord.Type).
			Ref("reports").
			Field("case_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ReportArtifact.
func (ReportArtifact) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("case_id", "report_type"),
	}
}
