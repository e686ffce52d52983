// Package cluster groups stored embeddings into density-based
// clusters and scores relationships between cluster members.
package cluster

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/vectorstore"
	"github.com/pkvault/pkvault/pkg/types"
)

// Engine runs density-based clustering over everything in the store.
type Engine struct {
	store vectorstore.Store
	cfg   *config.Config
}

// NewEngine returns an Engine over the given store.
func NewEngine(store vectorstore.Store, cfg *config.Config) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// Run loads every stored embedding and clusters it. Fewer than three
// points yields no clusters. Noise points are dropped. Cluster IDs are
// ephemeral: a re-run over the same data may relabel.
func (e *Engine) Run(ctx context.Context) ([]types.ClusterResult, error) {
	data, err := e.store.GetAll(ctx, vectorstore.DefaultCollection)
	if err != nil {
		return nil, fmt.Errorf("cluster: load embeddings: %w", err)
	}
	if len(data.IDs) < 3 {
		return nil, nil
	}

	minSamples := e.cfg.Clustering.MinSamples
	if minSamples > len(data.IDs) {
		minSamples = len(data.IDs)
	}
	if minSamples < 1 {
		minSamples = 1
	}

	dist := cosineDistanceMatrix(data.Embeddings)
	labels := opticsXi(dist, minSamples, e.cfg.Clustering.Xi, e.cfg.Clustering.MinClusterSize)

	members := map[int][]int{}
	for idx, label := range labels {
		if label == -1 {
			continue
		}
		members[label] = append(members[label], idx)
	}

	clusterIDs := make([]int, 0, len(members))
	for id := range members {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	results := make([]types.ClusterResult, 0, len(clusterIDs))
	for _, id := range clusterIDs {
		idxs := members[id]
		docIDs := make([]string, len(idxs))
		for i, idx := range idxs {
			docIDs[i] = data.IDs[idx]
		}
		results = append(results, types.ClusterResult{
			ClusterID:   id,
			DocumentIDs: docIDs,
			Centroid:    centroid(data.Embeddings, idxs),
		})
	}
	log.Printf("cluster: %d points, %d clusters", len(data.IDs), len(results))
	return results, nil
}

// centroid is the component-wise mean of the selected embeddings.
func centroid(embeddings [][]float64, idxs []int) []float64 {
	if len(idxs) == 0 {
		return nil
	}
	mean := make([]float64, len(embeddings[idxs[0]]))
	for _, idx := range idxs {
		for k, v := range embeddings[idx] {
			mean[k] += v
		}
	}
	for k := range mean {
		mean[k] /= float64(len(idxs))
	}
	return mean
}
