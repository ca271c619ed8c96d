// Package recognition assigns people to detected faces with a k-nearest
// neighbour classifier over face embeddings.
package recognition

import (
	"math"
	"sort"

	"github.com/kozaktomas/photo-library/internal/database"
)

// Sample is a labelled training embedding
type Sample struct {
	FaceID    int64
	PersonID  int64
	Embedding []float32
}

// Neighbor is a training sample together with its distance to a query
type Neighbor struct {
	Sample
	Distance float64
}

// Prediction is the outcome of classifying one embedding
type Prediction struct {
	PersonID int64   // winner of the distance-weighted vote
	Distance float64 // distance to the nearest training sample
}

// KNN is a k-nearest neighbour classifier using Euclidean distance and
// distance-weighted voting
type KNN struct {
	samples []Sample
	k       int
	index   *Index // nil below the HNSW threshold
}

// NewKNN fits a classifier. k <= 0 selects round(sqrt(n)). Training sets
// of at least hnswMin samples are searched through an HNSW graph; a
// non-positive hnswMin disables the graph.
func NewKNN(samples []Sample, k, hnswMin int) *KNN {
	samples = sameDimension(samples)
	n := len(samples)
	if k <= 0 {
		k = int(math.Round(math.Sqrt(float64(n))))
	}
	k = max(1, min(k, n))

	m := &KNN{samples: samples, k: k}
	if hnswMin > 0 && n >= hnswMin {
		m.index = NewIndex(samples)
	}
	return m
}

// sameDimension drops samples whose length differs from the first one
func sameDimension(samples []Sample) []Sample {
	if len(samples) == 0 {
		return nil
	}
	dim := len(samples[0].Embedding)
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if len(s.Embedding) == dim && dim > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of training samples
func (m *KNN) Len() int {
	return len(m.samples)
}

// K returns the neighbour count used for voting
func (m *KNN) K() int {
	return m.k
}

// Neighbors returns up to k training samples closest to query, nearest first
func (m *KNN) Neighbors(query []float32, k int) []Neighbor {
	if len(m.samples) == 0 || k <= 0 {
		return nil
	}
	if m.index != nil {
		return m.index.Search(query, k)
	}
	return bruteForce(m.samples, query, k)
}

func bruteForce(samples []Sample, query []float32, k int) []Neighbor {
	neighbors := make([]Neighbor, len(samples))
	for i, s := range samples {
		neighbors[i] = Neighbor{Sample: s, Distance: database.EuclideanDistance(query, s.Embedding)}
	}
	sortNeighbors(neighbors)
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// sortNeighbors orders by distance, ties by face id so results are stable
func sortNeighbors(neighbors []Neighbor) {
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].FaceID < neighbors[j].FaceID
	})
}

// Predict classifies query. ok is false for an empty model.
func (m *KNN) Predict(query []float32) (Prediction, bool) {
	neighbors := m.Neighbors(query, m.k)
	if len(neighbors) == 0 {
		return Prediction{}, false
	}
	return Prediction{PersonID: vote(neighbors), Distance: neighbors[0].Distance}, true
}

// vote weighs each neighbour by inverse distance. Exact matches outweigh
// everything else: when any distance is zero only those neighbours vote.
func vote(neighbors []Neighbor) int64 {
	weights := make(map[int64]float64)
	exact := false
	for _, n := range neighbors {
		if n.Distance == 0 {
			if !exact {
				clear(weights)
				exact = true
			}
			weights[n.PersonID]++
			continue
		}
		if !exact {
			weights[n.PersonID] += 1 / n.Distance
		}
	}

	// ties go to the person of the nearer neighbour
	best, bestWeight := neighbors[0].PersonID, -1.0
	for _, n := range neighbors {
		if w := weights[n.PersonID]; w > bestWeight {
			best, bestWeight = n.PersonID, w
		}
	}
	return best
}
