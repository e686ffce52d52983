package cluster

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pkvault/pkvault/internal/vectorstore"
	"github.com/pkvault/pkvault/pkg/types"
)

// similarityEpsilon keeps the denominator positive for zero vectors.
const similarityEpsilon = 1e-8

// ExtractRelationships scores every pair of members inside each
// cluster with at least two members. The result is sorted by score
// descending across all clusters, most confident pairs first.
func (e *Engine) ExtractRelationships(ctx context.Context, clusters []types.ClusterResult) ([]types.Relationship, error) {
	var relationships []types.Relationship

	for _, c := range clusters {
		if len(c.DocumentIDs) < 2 {
			continue
		}
		data, err := e.store.GetByIDs(ctx, vectorstore.DefaultCollection, c.DocumentIDs,
			vectorstore.Include{Embeddings: true})
		if err != nil {
			return nil, fmt.Errorf("cluster: embeddings for cluster %d: %w", c.ClusterID, err)
		}
		if len(data.IDs) < 2 {
			continue
		}

		for i := 0; i < len(data.IDs); i++ {
			for j := i + 1; j < len(data.IDs); j++ {
				relationships = append(relationships, types.Relationship{
					DocA:      data.IDs[i],
					DocB:      data.IDs[j],
					Score:     cosineSimilarity(data.Embeddings[i], data.Embeddings[j]),
					ClusterID: c.ClusterID,
				})
			}
		}
	}

	sort.SliceStable(relationships, func(i, j int) bool {
		return relationships[i].Score > relationships[j].Score
	})
	return relationships, nil
}

// cosineSimilarity is dot(a,b) / (||a|| * ||b|| + eps), in [-1, 1].
func cosineSimilarity(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + similarityEpsilon)
}
