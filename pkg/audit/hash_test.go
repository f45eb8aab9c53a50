package audit

import "testing"

func TestComputeHash_FirstStepOmitsPrevHash(t *testing.T) {
	canonical := []byte(`{"a":1}`)
	got := computeHash(nil, canonical)
	want := computeHash(nil, canonical)
	if got != want {
		t.Fatalf("hash not deterministic: %s != %s", got, want)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
}

func TestComputeHash_FoldsPrevHash(t *testing.T) {
	canonical := []byte(`{"a":1}`)
	prev := "aaaa"
	withPrev := computeHash(&prev, canonical)
	withoutPrev := computeHash(nil, canonical)
	if withPrev == withoutPrev {
		t.Fatal("expected prev_hash to change the resulting hash")
	}
}

func TestCanonicalJSON_SortsKeysAtEveryLevel(t *testing.T) {
	a := map[string]interface{}{
		"b": 1,
		"a": map[string]interface{}{"z": 1, "y": 2},
	}
	b := map[string]interface{}{
		"a": map[string]interface{}{"y": 2, "z": 1},
		"b": 1,
	}
	ca, err := canonicalJSON(a)
	if err != nil {
		t.Fatal(err)
	}
	cb, err := canonicalJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(ca) != string(cb) {
		t.Fatalf("expected canonical forms to match: %s != %s", ca, cb)
	}
}
