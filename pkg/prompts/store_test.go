package prompts

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/caseforge/caseforge/ent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestClient(t *testing.T) *ent.Client {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := entsql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	client := ent.NewClient(ent.Driver(drv))
	require.NoError(t, client.Schema.Create(ctx))
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestStore_Get_SeedsDefaultOnFirstUse(t *testing.T) {
	client := newTestClient(t)
	store := NewStore(client)
	ctx := context.Background()

	content, err := store.Get(ctx, "triage", "")
	require.NoError(t, err)
	assert.NotEmpty(t, content)

	info, err := store.GetInfo(ctx, "triage", "")
	require.NoError(t, err)
	assert.Equal(t, "v1.0", info.Version)
}

func TestStore_Update_BumpsMinorVersion(t *testing.T) {
	client := newTestClient(t)
	store := NewStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "enrichment", "")
	require.NoError(t, err)

	v2, err := store.Update(ctx, "enrichment", "revised content", "analyst-1")
	require.NoError(t, err)
	assert.Equal(t, "v1.1", v2)

	active, err := store.Get(ctx, "enrichment", "")
	require.NoError(t, err)
	assert.Equal(t, "revised content", active)

	original, err := store.Get(ctx, "enrichment", "v1.0")
	require.NoError(t, err)
	assert.NotEqual(t, "revised content", original)

	versions, err := store.ListVersions(ctx, "enrichment")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.0", "v1.1"}, versions)
}

func TestStore_Get_UnknownAgent(t *testing.T) {
	client := newTestClient(t)
	store := NewStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "not-a-real-agent", "")
	require.Error(t, err)
}

func TestBumpVersion(t *testing.T) {
	cases := []struct {
		current string
		want    string
	}{
		{"", "v1.0"},
		{"v1.0", "v1.1"},
		{"v1.9", "v1.10"},
		{"v2.3", "v2.4"},
	}
	for _, tc := range cases {
		got, err := bumpVersion(tc.current)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := bumpVersion("not-a-version")
	assert.Error(t, err)
}
