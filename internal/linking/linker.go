// Package linking groups entity records across documents into canonical
// clusters. A cheap string pass (exact, substring, abbreviation, word
// overlap) is merged with an embedding cosine-similarity pass when an
// embedder is available.
package linking

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/cobalt/internal/core/model"
	"github.com/agenthands/cobalt/internal/llm"
)

type Linker struct {
	embedder  llm.EmbedderClient
	threshold float64
	log       *zap.Logger
}

// New builds a linker. embedder may be nil, in which case only the
// string pass runs.
func New(embedder llm.EmbedderClient, threshold float64, log *zap.Logger) *Linker {
	if log == nil {
		log = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = 0.75
	}
	return &Linker{embedder: embedder, threshold: threshold, log: log}
}

// Link clusters entities and returns the canonical-name to entity-ids
// map consumed by the graph builder. The canonical name of a cluster is
// the text of its first member in input order.
func (l *Linker) Link(ctx context.Context, entities []model.EntityRecord) (model.EntityLinks, error) {
	if len(entities) == 0 {
		return model.EntityLinks{}, nil
	}

	stringClusters := l.stringPass(entities)
	if l.embedder == nil {
		return mergeClusters(entities, stringClusters, nil), nil
	}

	embeddings := make([][]float32, len(entities))
	for i, ent := range entities {
		vec, err := l.embedder.Embed(ctx, ent.Text)
		if err != nil {
			// Embedding failure degrades to string-only linking.
			l.log.Warn("embedding failed, falling back to string linking",
				zap.String("entity_id", ent.EntityID),
				zap.Error(err))
			return mergeClusters(entities, stringClusters, nil), nil
		}
		embeddings[i] = vec
	}
	embeddingClusters := l.embeddingPass(entities, embeddings)
	return mergeClusters(entities, stringClusters, embeddingClusters), nil
}

// stringPass greedily clusters entities of the same type by textual
// similarity. Returns clusters as index lists into entities.
func (l *Linker) stringPass(entities []model.EntityRecord) [][]int {
	var clusters [][]int
	assigned := make([]bool, len(entities))
	for i := range entities {
		if assigned[i] {
			continue
		}
		cluster := []int{i}
		assigned[i] = true
		for j := i + 1; j < len(entities); j++ {
			if assigned[j] || entities[i].Type != entities[j].Type {
				continue
			}
			if similarStrings(normalize(entities[i].Text), normalize(entities[j].Text)) {
				cluster = append(cluster, j)
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func (l *Linker) embeddingPass(entities []model.EntityRecord, embeddings [][]float32) [][]int {
	var clusters [][]int
	assigned := make([]bool, len(entities))
	for i := range entities {
		if assigned[i] {
			continue
		}
		cluster := []int{i}
		assigned[i] = true
		for j := i + 1; j < len(entities); j++ {
			if assigned[j] || entities[i].Type != entities[j].Type {
				continue
			}
			if cosine(embeddings[i], embeddings[j]) >= l.threshold {
				cluster = append(cluster, j)
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// similarStrings checks exact match, containment, short-form
// abbreviation, and word overlap above 0.6.
func similarStrings(a, b string) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	if len(a) <= 5 && len(b) > 10 && strings.Contains(strings.ToUpper(b), strings.ToUpper(a)) {
		return true
	}
	if len(b) <= 5 && len(a) > 10 && strings.Contains(strings.ToUpper(a), strings.ToUpper(b)) {
		return true
	}
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}
	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	overlap := 0
	for _, w := range wordsB {
		if _, ok := setA[w]; ok {
			overlap++
		}
	}
	longest := len(setA)
	if len(wordsB) > longest {
		longest = len(wordsB)
	}
	return float64(overlap)/float64(longest) > 0.6
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// mergeClusters unions the two passes through a disjoint-set over entity
// indices and names each final cluster after its lowest-index member.
func mergeClusters(entities []model.EntityRecord, passes ...[][]int) model.EntityLinks {
	parent := make([]int, len(entities))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			if rb < ra {
				ra, rb = rb, ra
			}
			parent[rb] = ra
		}
	}

	for _, pass := range passes {
		for _, cluster := range pass {
			for _, idx := range cluster[1:] {
				union(cluster[0], idx)
			}
		}
	}

	members := make(map[int][]int)
	for i := range entities {
		root := find(i)
		members[root] = append(members[root], i)
	}

	roots := make([]int, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	links := make(model.EntityLinks, len(roots))
	for _, root := range roots {
		canonical := entities[root].Text
		ids := links[canonical]
		for _, idx := range members[root] {
			ids = append(ids, entities[idx].EntityID)
		}
		sort.Strings(ids)
		links[canonical] = ids
	}
	return links
}
