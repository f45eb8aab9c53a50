package audit

import "encoding/json"

// canonicalJSON renders v as compact JSON with map keys sorted at every
// nesting level. encoding/json already sorts map[string]interface{} keys
// during Marshal, so round-tripping through a generic representation gives
// a canonical form for arbitrary nested payloads without hand-rolling a
// sorting encoder.
func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
