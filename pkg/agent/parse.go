package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// ParseJSONObject defensively extracts a JSON object from raw model output.
// It tolerates a surrounding markdown code fence. On failure it returns a
// degraded-but-structured fallback carrying the raw text under
// "raw_response", plus an observation describing the parse failure — per
// the parsing contract, a malformed response never aborts the stage.
func ParseJSONObject(raw string) (map[string]interface{}, []string) {
	candidate := strings.TrimSpace(raw)
	if m := fencedJSON.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return map[string]interface{}{"raw_response": raw}, []string{
			fmt.Sprintf("response was not well-formed JSON, recorded raw fallback: %v", err),
		}
	}
	return out, nil
}

// EnsureDefault sets outputs[key] = fallback when the key is absent, so a
// partially-populated response still satisfies the stage's output contract.
func EnsureDefault(outputs map[string]interface{}, key string, fallback interface{}) {
	if _, ok := outputs[key]; !ok {
		outputs[key] = fallback
	}
}
