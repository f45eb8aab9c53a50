// Package entities normalizes raw case fields into the canonical entity bag
// consumed by similarity search and the investigation stage.
package entities

import "github.com/caseforge/caseforge/pkg/models"

// fieldPath is a dot-and-bracket path into raw case data. A trailing
// "[]field" segment means: take the first element of the array at the
// parent path, then resolve field on it.
type fieldPath string

// resolutionOrder lists, per entity type, the ordered field paths to try.
// First match wins, via a single authoritative table driving lookups.
var resolutionOrder = map[models.EntityType][]fieldPath{
	models.EntityUser: {
		"user", "username", "user_name", "email_address",
		"source_user_entity_id",
		"user_entities[]email_address", "user_entities[]username",
		"user_entity.name",
	},
	models.EntityHost: {
		"host", "hostname", "host_name", "source_host_entity_id",
		"host_entities[]hostname", "host_entity.name",
	},
	models.EntityIP: {
		"ip", "ip_address", "source_ip", "src_ip",
		"ip_entities[]address", "ip_entity.address",
	},
	models.EntityDomain: {
		"domain", "domain_name", "fqdn",
		"domain_entities[]name", "domain_entity.name",
	},
}

// resolve walks raw for the first field path that yields a non-empty
// string, returning the value and the field path that produced it.
func resolve(raw map[string]interface{}, paths []fieldPath) (string, string) {
	for _, p := range paths {
		if v, ok := lookup(raw, string(p)); ok {
			if s, ok := asNonEmptyString(v); ok {
				return s, string(p)
			}
		}
	}
	return "", ""
}

// lookup resolves a single field path against raw. Supports a single
// "name[]field" array-then-field segment and a single "a.b" dotted segment;
// the resolution table above never nests both in one path.
func lookup(raw map[string]interface{}, path string) (interface{}, bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '[' && i+2 < len(path) && path[i+1] == ']' {
			arrName := path[:i]
			field := path[i+2:]
			arr, ok := raw[arrName].([]interface{})
			if !ok || len(arr) == 0 {
				return nil, false
			}
			first, ok := arr[0].(map[string]interface{})
			if !ok {
				return nil, false
			}
			v, ok := first[field]
			return v, ok
		}
		if path[i] == '.' {
			parent := path[:i]
			field := path[i+1:]
			nested, ok := raw[parent].(map[string]interface{})
			if !ok {
				return nil, false
			}
			v, ok := nested[field]
			return v, ok
		}
	}
	v, ok := raw[path]
	return v, ok
}

func asNonEmptyString(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
