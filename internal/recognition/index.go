package recognition

import (
	"github.com/coder/hnsw"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
)

// Index wraps an HNSW graph over training embeddings. Graph results are
// re-ranked with exact distances.
type Index struct {
	graph   *hnsw.Graph[int]
	samples []Sample
	dim     int
}

// NewIndex builds the graph. All samples must share one dimension.
func NewIndex(samples []Sample) *Index {
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	g.EfSearch = constants.HNSWEfSearch

	x := &Index{graph: g, samples: samples}
	for i := range samples {
		g.Add(hnsw.MakeNode(i, samples[i].Embedding))
	}
	if len(samples) > 0 {
		x.dim = len(samples[0].Embedding)
	}
	return x
}

// Len returns the number of indexed samples
func (x *Index) Len() int {
	return x.graph.Len()
}

// Search returns up to k approximate nearest samples, nearest first
func (x *Index) Search(query []float32, k int) []Neighbor {
	if len(query) != x.dim || x.dim == 0 {
		return nil
	}
	candidates := max(k, constants.HNSWEfSearch)
	nodes := x.graph.Search(query, candidates)

	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		s := x.samples[n.Key]
		neighbors = append(neighbors, Neighbor{Sample: s, Distance: database.EuclideanDistance(query, s.Embedding)})
	}
	sortNeighbors(neighbors)
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
