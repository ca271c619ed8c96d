package recognition

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestNewKNN_AutomaticK(t *testing.T) {
	tests := []struct {
		n, k, want int
	}{
		{n: 1, want: 1},
		{n: 4, want: 2},
		{n: 10, want: 3},
		{n: 12, want: 3},
		{n: 13, want: 4},
		{n: 5, k: 2, want: 2},
		{n: 3, k: 10, want: 3},
	}
	for _, tt := range tests {
		samples := make([]Sample, tt.n)
		for i := range samples {
			samples[i] = Sample{FaceID: int64(i + 1), PersonID: 1, Embedding: []float32{float32(i)}}
		}
		if got := NewKNN(samples, tt.k, 0).K(); got != tt.want {
			t.Errorf("n=%d k=%d: K() = %d, want %d", tt.n, tt.k, got, tt.want)
		}
	}
}

func TestNewKNN_DropsMismatchedDimensions(t *testing.T) {
	m := NewKNN([]Sample{
		{FaceID: 1, PersonID: 1, Embedding: []float32{0, 0}},
		{FaceID: 2, PersonID: 1, Embedding: []float32{0, 0, 0}},
		{FaceID: 3, PersonID: 2, Embedding: []float32{1, 1}},
	}, 0, 0)
	if m.Len() != 2 {
		t.Errorf("expected 2 samples, got %d", m.Len())
	}
}

func TestPredict_Empty(t *testing.T) {
	if _, ok := NewKNN(nil, 0, 0).Predict([]float32{1}); ok {
		t.Error("empty model should not predict")
	}
}

func TestPredict_DistanceWeightedVote(t *testing.T) {
	// person 1 has the single nearest sample, person 2 two farther ones
	samples := []Sample{
		{FaceID: 1, PersonID: 1, Embedding: []float32{0.1, 0}},
		{FaceID: 2, PersonID: 2, Embedding: []float32{0.4, 0}},
		{FaceID: 3, PersonID: 2, Embedding: []float32{0, 0.4}},
	}
	m := NewKNN(samples, 3, 0)

	pred, ok := m.Predict([]float32{0, 0})
	if !ok {
		t.Fatal("expected prediction")
	}
	// weights: person 1 = 10, person 2 = 2.5 + 2.5
	if pred.PersonID != 1 {
		t.Errorf("expected person 1, got %d", pred.PersonID)
	}
	if math.Abs(pred.Distance-0.1) > 1e-6 {
		t.Errorf("nearest distance = %v, want 0.1", pred.Distance)
	}

	// far from person 1, person 2 wins on combined weight
	pred, _ = m.Predict([]float32{0.3, 0.3})
	if pred.PersonID != 2 {
		t.Errorf("expected person 2, got %d", pred.PersonID)
	}
}

func TestPredict_ExactMatchWins(t *testing.T) {
	samples := []Sample{
		{FaceID: 1, PersonID: 1, Embedding: []float32{0, 0}},
		{FaceID: 2, PersonID: 2, Embedding: []float32{0.01, 0}},
		{FaceID: 3, PersonID: 2, Embedding: []float32{0, 0.01}},
	}
	pred, _ := NewKNN(samples, 3, 0).Predict([]float32{0, 0})
	if pred.PersonID != 1 || pred.Distance != 0 {
		t.Errorf("expected exact match on person 1, got %+v", pred)
	}
}

func TestNeighbors_Sorted(t *testing.T) {
	samples := []Sample{
		{FaceID: 1, PersonID: 1, Embedding: []float32{3}},
		{FaceID: 2, PersonID: 1, Embedding: []float32{1}},
		{FaceID: 3, PersonID: 1, Embedding: []float32{2}},
	}
	got := NewKNN(samples, 0, 0).Neighbors([]float32{0}, 2)
	if len(got) != 2 || got[0].FaceID != 2 || got[1].FaceID != 3 {
		t.Errorf("unexpected neighbours %+v", got)
	}
}

func randomSamples(rng *rand.Rand, n, dim, people int) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		v := make([]float32, dim)
		for d := range v {
			v[d] = rng.Float32()
		}
		samples[i] = Sample{FaceID: int64(i + 1), PersonID: int64(i%people + 1), Embedding: v}
	}
	return samples
}

func TestIndex_AgreesWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	samples := randomSamples(rng, 600, 4, 5)

	indexed := NewKNN(samples, 0, 512)
	if indexed.index == nil {
		t.Fatal("expected the HNSW index for 600 samples")
	}
	if indexed.index.Len() != len(samples) {
		t.Errorf("index holds %d samples, want %d", indexed.index.Len(), len(samples))
	}
	exact := NewKNN(samples, 0, 0)
	if exact.index != nil {
		t.Fatal("brute force model should not build an index")
	}

	// graph search is approximate, so require near-perfect recall of the
	// nearest sample rather than exact agreement
	const queries = 50
	hits := 0
	for i := range queries {
		q := samples[i*7].Embedding
		got, ok := indexed.Predict(q)
		if !ok {
			t.Fatal("no prediction")
		}
		want, _ := exact.Predict(q)
		if got.Distance == want.Distance {
			hits++
		}
	}
	if hits < queries*9/10 {
		t.Errorf("nearest neighbour recall %d/%d", hits, queries)
	}
}

func TestIndex_SearchOrderAndDimension(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	samples := randomSamples(rng, 100, 4, 2)
	idx := NewIndex(samples)

	got := idx.Search([]float32{0.5, 0.5, 0.5, 0.5}, 5)
	if len(got) != 5 {
		t.Fatalf("expected 5 neighbours, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Fatalf("neighbours not sorted: %+v", got)
		}
	}

	if got := idx.Search([]float32{1, 2}, 5); got != nil {
		t.Errorf("mismatched query dimension should return nothing, got %v", got)
	}
}
