package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caseforge/caseforge/pkg/graphstore"
	"github.com/caseforge/caseforge/pkg/vectorstore"
)

const embeddingDim = 384

// knowledgeNamespace is a fixed UUID namespace so that re-ingesting an
// identical (kind, content) pair always derives the same knowledge_id.
var knowledgeNamespace = uuid.MustParse("6d0a7f3e-6e4a-4e9f-9c2e-2a6d6c9f9c31")

// KnowledgeItem is the payload stored alongside a knowledge item's vector.
type KnowledgeItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	Author    string    `json:"author"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// KnowledgeService ingests and retrieves analyst-curated knowledge items,
// mirroring them into both the vector store (similarity search) and the
// graph store (relationship browsing). There is no embedding model anywhere
// in this stack, so vectors come from a deterministic hashed bag-of-tokens
// (see embed below) rather than a real language-model embedding.
type KnowledgeService struct {
	vectors *vectorstore.Store
	graph   *graphstore.Store
}

// NewKnowledgeService builds a KnowledgeService. graph may be nil.
func NewKnowledgeService(vectors *vectorstore.Store, graph *graphstore.Store) *KnowledgeService {
	if vectors == nil {
		panic("NewKnowledgeService: vectors must not be nil")
	}
	return &KnowledgeService{vectors: vectors, graph: graph}
}

// Ingest stores a knowledge item, deriving a stable id from its kind and
// content so repeat ingestion of the same material upserts the existing item
// (replacing its title, tags, author and timestamp) rather than adding a
// duplicate.
func (s *KnowledgeService) Ingest(ctx context.Context, title, content, kind string, tags []string, author string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("knowledge content must not be empty")
	}
	if kind == "" {
		kind = "note"
	}

	knowledgeID := uuid.NewSHA1(knowledgeNamespace, []byte(kind+"|"+content)).String()

	item := KnowledgeItem{
		ID:        knowledgeID,
		Title:     title,
		Content:   content,
		Kind:      kind,
		Author:    author,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	vector := embed(title + "\n" + content)
	payload := map[string]interface{}{
		"id":         item.ID,
		"title":      item.Title,
		"content":    item.Content,
		"kind":       item.Kind,
		"author":     item.Author,
		"tags":       item.Tags,
		"created_at": item.CreatedAt,
	}
	if err := s.vectors.Upsert(ctx, knowledgeID, vector, payload); err != nil {
		return "", fmt.Errorf("upsert knowledge item %s: %w", knowledgeID, err)
	}

	if s.graph != nil {
		if err := s.graph.MergeKnowledgeItem(ctx, knowledgeID, kind, author, item.CreatedAt.Format(time.RFC3339), content, tags, 1.0); err != nil {
			return "", fmt.Errorf("mirror knowledge item %s to graph: %w", knowledgeID, err)
		}
	}

	return knowledgeID, nil
}

// Search returns the knowledge items most similar to query.
func (s *KnowledgeService) Search(ctx context.Context, query string, limit int) ([]vectorstore.Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	vector := embed(query)
	hits, err := s.vectors.Search(ctx, vector, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("search knowledge items: %w", err)
	}
	return hits, nil
}

// GraphSnapshot returns a bounded view of the knowledge graph for
// visualization.
func (s *KnowledgeService) GraphSnapshot(ctx context.Context, limit int) ([]graphstore.Node, []graphstore.Edge, graphstore.Summary, error) {
	if s.graph == nil {
		return nil, nil, graphstore.Summary{}, fmt.Errorf("graph store not configured")
	}
	return s.graph.VisualizationSnapshot(ctx, limit)
}

// embed produces a deterministic, L2-normalized 384-dim vector from text by
// hashing each token into a fixed-size bag. There is no embedding model
// anywhere in reach of this service; this keeps cosine similarity search
// functional (near-duplicate and shared-vocabulary text score higher) without
// one, at the cost of real semantic understanding.
func embed(text string) []float32 {
	vec := make([]float32, embeddingDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		for i := 0; i < 8; i++ {
			idx := (int(sum[i*4])<<24 | int(sum[i*4+1])<<16 | int(sum[i*4+2])<<8 | int(sum[i*4+3]))
			if idx < 0 {
				idx = -idx
			}
			bucket := idx % embeddingDim
			sign := float32(1)
			if sum[(i+8)%32]&1 == 1 {
				sign = -1
			}
			vec[bucket] += sign
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
