package similarity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	scalars map[string]string
	sets    map[string]map[string]struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{scalars: map[string]string{}, sets: map[string]map[string]struct{}{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.scalars[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scalars[key] = value
	return nil
}

func (f *fakeStore) SAdd(_ context.Context, key string, _ time.Duration, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.sets[key]
	if !ok {
		set = map[string]struct{}{}
		f.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	return nil
}

func (f *fakeStore) SMembers(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

type fakeBagSource struct {
	bags map[string]Bag
}

func (f *fakeBagSource) Bag(_ context.Context, caseID string) (Bag, bool, error) {
	b, ok := f.bags[caseID]
	return b, ok, nil
}

func TestEngine_FindRanksByScoreAndAppliesMinSimilarity(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store)

	strongMatch := Bag{CaseID: "case-strong", Users: []string{"alice"}, IPs: []string{"10.0.0.1"}}
	weakMatch := Bag{CaseID: "case-weak", Hosts: []string{"web-01"}}

	require.NoError(t, index.Commit(context.Background(), strongMatch))
	require.NoError(t, index.Commit(context.Background(), weakMatch))

	source := &fakeBagSource{bags: map[string]Bag{
		"case-strong": strongMatch,
		"case-weak":   weakMatch,
	}}

	engine := NewEngine(index, store, source, DefaultConfig())

	target := Bag{CaseID: "case-target", Users: []string{"alice"}, IPs: []string{"10.0.0.1"}, Hosts: []string{"web-01"}}
	matches, err := engine.Find(context.Background(), target)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "case-strong", matches[0].CaseID)
}

func TestEngine_FindCachesResult(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store)
	match := Bag{CaseID: "case-a", Users: []string{"alice"}}
	require.NoError(t, index.Commit(context.Background(), match))

	calls := 0
	source := &countingBagSource{bags: map[string]Bag{"case-a": match}, calls: &calls}
	engine := NewEngine(index, store, source, DefaultConfig())

	target := Bag{CaseID: "case-target", Users: []string{"alice"}}
	_, err := engine.Find(context.Background(), target)
	require.NoError(t, err)
	_, err = engine.Find(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second Find should be served from the result cache")
}

type countingBagSource struct {
	bags  map[string]Bag
	calls *int
}

func (c *countingBagSource) Bag(_ context.Context, caseID string) (Bag, bool, error) {
	*c.calls++
	b, ok := c.bags[caseID]
	return b, ok, nil
}
