// Package prompt builds the text sent to the LLM for each pipeline stage,
// composing the stored prompt template with the stage's inputs and the
// prior stage's output. Stateless and thread-safe.
package prompt

import (
	"encoding/json"
	"strings"
)

// Builder implements agent.PromptBuilder.
type Builder struct{}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Format composes promptText with a rendered inputs section and, when
// present, the prior stage's output — then appends a fixed instruction to
// respond with a single JSON object, since every stage's output contract
// is parsed as JSON.
func (b *Builder) Format(promptText string, inputs map[string]interface{}, prevStageContext string) string {
	var sb strings.Builder
	sb.WriteString(promptText)
	sb.WriteString("\n\n")
	sb.WriteString(formatInputsSection(inputs))

	if prevStageContext != "" {
		sb.WriteString("\n\n")
		sb.WriteString(formatPriorStageSection(prevStageContext))
	}

	sb.WriteString("\n\nRespond with a single JSON object matching this agent's output contract. Do not include prose outside the JSON object.")
	return sb.String()
}

func formatInputsSection(inputs map[string]interface{}) string {
	if len(inputs) == 0 {
		return "## Case Inputs\n(none)"
	}
	encoded, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return "## Case Inputs\n(unavailable: " + err.Error() + ")"
	}
	return "## Case Inputs\n" + string(encoded)
}

func formatPriorStageSection(prevStageContext string) string {
	return "## Prior Stage Output\n" + prevStageContext
}
