package entities

import (
	"testing"

	"github.com/caseforge/caseforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_ResolvesFirstMatchingField(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]interface{}{
		"username":   "CORP\\jsmith",
		"ip_address": "10.0.0.5",
		"domain":     ".Example.COM",
		"hostname":   "Web-01.Corp.Example.com",
	}

	records, bag := n.Normalize(raw)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"jsmith"}, bag.Users)
	assert.Equal(t, []string{"10.0.0.5"}, bag.IPs)
	assert.Equal(t, []string{"example.com"}, bag.Domains)
	assert.Equal(t, []string{"web-01.corp.example.com"}, bag.Hosts)

	for _, r := range records {
		assert.True(t, r.ValidationPassed, "type %s should validate", r.Type)
		assert.Equal(t, 1.0, r.Confidence)
	}
}

func TestNormalizer_EmailUserKeepsLocalPart(t *testing.T) {
	n := NewNormalizer()
	_, bag := n.Normalize(map[string]interface{}{"email_address": "Jane.Doe@Example.com"})
	assert.Equal(t, []string{"jane.doe"}, bag.Users)
}

func TestNormalizer_InvalidIPRetainedWithLowConfidence(t *testing.T) {
	n := NewNormalizer()
	records, bag := n.Normalize(map[string]interface{}{"ip": "not-an-ip"})
	require.Len(t, records, 1)
	assert.False(t, records[0].ValidationPassed)
	assert.Equal(t, 0.5, records[0].Confidence)
	assert.Equal(t, []string{"not-an-ip"}, bag.IPs)
}

func TestNormalizer_ArrayFieldFallback(t *testing.T) {
	n := NewNormalizer()
	raw := map[string]interface{}{
		"user_entities": []interface{}{
			map[string]interface{}{"email_address": "alice@example.com"},
		},
	}
	_, bag := n.Normalize(raw)
	assert.Equal(t, []string{"alice"}, bag.Users)
}

func TestNormalizer_SkipsMissingEntityTypes(t *testing.T) {
	n := NewNormalizer()
	records, bag := n.Normalize(map[string]interface{}{"user": "alice"})
	assert.Len(t, records, 1)
	assert.Equal(t, models.EntityType("user"), records[0].Type)
	assert.True(t, bag.IsEmpty() == false)
	assert.Empty(t, bag.Hosts)
}
