package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/caseforge/caseforge/pkg/vectorstore"
)

func newTestKnowledgeService(t *testing.T) *KnowledgeService {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
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

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := vectorstore.NewStore(db, "knowledge_items_test")
	require.NoError(t, store.EnsureCollection(ctx, embeddingDim, "cosine"))

	return NewKnowledgeService(store, nil)
}

func TestKnowledgeService_Ingest_IsIdempotentForIdenticalContent(t *testing.T) {
	svc := newTestKnowledgeService(t)
	ctx := context.Background()

	id1, err := svc.Ingest(ctx, "Phishing pattern", "click here to reset your password", "ttp", []string{"phishing"}, "analyst1")
	require.NoError(t, err)

	id2, err := svc.Ingest(ctx, "Renamed title", "click here to reset your password", "ttp", []string{"phishing", "email"}, "analyst2")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "re-ingesting identical (kind, content) must yield the same knowledge_id")
}

func TestKnowledgeService_Ingest_DifferentContentYieldsDifferentID(t *testing.T) {
	svc := newTestKnowledgeService(t)
	ctx := context.Background()

	id1, err := svc.Ingest(ctx, "A", "lateral movement via psexec", "ttp", nil, "analyst")
	require.NoError(t, err)
	id2, err := svc.Ingest(ctx, "B", "credential dumping via mimikatz", "ttp", nil, "analyst")
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestKnowledgeService_Search_RanksExactTextHighest(t *testing.T) {
	svc := newTestKnowledgeService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "Mimikatz usage", "attacker ran mimikatz to dump lsass credentials", "ttp", nil, "analyst")
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "Unrelated", "routine scheduled backup completed successfully", "note", nil, "analyst")
	require.NoError(t, err)

	hits, err := svc.Search(ctx, "mimikatz lsass credential dump", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Mimikatz usage", hits[0].Payload["title"])
}

func TestKnowledgeService_GraphSnapshot_WithoutGraphStoreErrors(t *testing.T) {
	svc := newTestKnowledgeService(t)

	_, _, _, err := svc.GraphSnapshot(context.Background(), 50)
	require.Error(t, err)
}
