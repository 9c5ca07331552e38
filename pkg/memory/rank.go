package memory

import (
	"math"
	"sort"

	"github.com/papercomputeco/recall/pkg/storage"
)

// Scored is a turn with its similarity to a query.
type Scored struct {
	Turn  storage.Turn
	Score float64
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths compare over the shorter prefix; a zero vector scores 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores every embedded turn against query and returns the best k,
// highest score first. Equal scores go to the more recent turn. Turns without
// an embedding are skipped. k <= 0 returns all of them.
func Rank(query []float32, turns []storage.Turn, k int) []Scored {
	scored := make([]Scored, 0, len(turns))
	for _, t := range turns {
		if len(t.Embedding) == 0 {
			continue
		}
		scored = append(scored, Scored{Turn: t, Score: CosineSimilarity(query, t.Embedding)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Turn.CreatedAt.Equal(b.Turn.CreatedAt) {
			return a.Turn.CreatedAt.After(b.Turn.CreatedAt)
		}
		return a.Turn.ID > b.Turn.ID
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// Chronological returns the turns of scored ordered oldest first.
func Chronological(scored []Scored) []storage.Turn {
	turns := make([]storage.Turn, len(scored))
	for i, s := range scored {
		turns[i] = s.Turn
	}
	sort.SliceStable(turns, func(i, j int) bool {
		if !turns[i].CreatedAt.Equal(turns[j].CreatedAt) {
			return turns[i].CreatedAt.Before(turns[j].CreatedAt)
		}
		return turns[i].ID < turns[j].ID
	})
	return turns
}
