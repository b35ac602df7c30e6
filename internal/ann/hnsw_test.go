package ann

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func randomVector(dims int, rng *rand.Rand) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

func bruteForceNN(query []float32, vectors [][]float32, ids []int64, k int) []Result {
	all := make([]Result, len(vectors))
	for i, v := range vectors {
		all[i] = Result{ID: ids[i], Distance: cosineDistance(query, v)}
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].Distance < all[j-1].Distance; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if len(all) > k {
		all = all[:k]
	}
	return all
}

func recallAgainst(predicted, truth []Result) float64 {
	truthSet := make(map[int64]bool)
	for _, r := range truth {
		truthSet[r.ID] = true
	}
	hits := 0
	for _, r := range predicted {
		if truthSet[r.ID] {
			hits++
		}
	}
	if len(truth) == 0 {
		return 1.0
	}
	return float64(hits) / float64(len(truth))
}

func TestNew(t *testing.T) {
	idx := New(384)
	if idx.dims != 384 {
		t.Errorf("dims = %d, want 384", idx.dims)
	}
	if idx.M != DefaultM {
		t.Errorf("M = %d, want %d", idx.M, DefaultM)
	}
	if idx.Len() != 0 {
		t.Errorf("Len = %d, want 0", idx.Len())
	}
}

func TestInsertAndSearchSmall(t *testing.T) {
	dims := 32
	rng := rand.New(rand.NewSource(42))
	idx := New(dims)

	vectors := make([][]float32, 100)
	ids := make([]int64, 100)
	for i := range vectors {
		vectors[i] = randomVector(dims, rng)
		ids[i] = int64(i + 1)
		idx.Insert(ids[i], vectors[i])
	}
	if idx.Len() != 100 {
		t.Fatalf("Len = %d, want 100", idx.Len())
	}

	query := randomVector(dims, rng)
	results := idx.Search(query, 5)
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not sorted at %d", i)
		}
	}

	if recall := recallAgainst(results, bruteForceNN(query, vectors, ids, 5)); recall < 0.6 {
		t.Errorf("recall = %.2f, want >= 0.6", recall)
	}
}

func TestInsertAndSearchMedium(t *testing.T) {
	dims := 128
	n := 1000
	rng := rand.New(rand.NewSource(123))
	idx := New(dims)

	vectors := make([][]float32, n)
	ids := make([]int64, n)
	for i := range vectors {
		vectors[i] = randomVector(dims, rng)
		ids[i] = int64(i + 1)
		idx.Insert(ids[i], vectors[i])
	}

	total := 0.0
	queries := 10
	k := 10
	for q := 0; q < queries; q++ {
		query := randomVector(dims, rng)
		total += recallAgainst(idx.Search(query, k), bruteForceNN(query, vectors, ids, k))
	}
	avg := total / float64(queries)
	if avg < 0.7 {
		t.Errorf("avg recall = %.2f, want >= 0.7", avg)
	}
	t.Logf("average recall@%d over %d queries on %d vectors: %.2f", k, queries, n, avg)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := New(32)
	if results := idx.Search(randomVector(32, rand.New(rand.NewSource(1))), 5); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchSingleNode(t *testing.T) {
	idx := New(4)
	idx.Insert(42, []float32{1, 0, 0, 0})

	results := idx.Search([]float32{1, 0, 0, 0}, 5)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != 42 {
		t.Errorf("ID = %d, want 42", results[0].ID)
	}
	if results[0].Distance > 0.001 {
		t.Errorf("distance = %f, want ~0 for identical vector", results[0].Distance)
	}
}

func TestDuplicateInsertIsNoOp(t *testing.T) {
	idx := New(4)
	idx.Insert(1, []float32{1, 0, 0, 0})
	idx.Insert(1, []float32{0, 1, 0, 0})
	if idx.Len() != 1 {
		t.Errorf("Len = %d, want 1 after duplicate insert", idx.Len())
	}
}

func TestHas(t *testing.T) {
	idx := New(4)
	idx.Insert(99, []float32{1, 0, 0, 0})
	if !idx.Has(99) {
		t.Error("Has(99) = false, want true")
	}
	if idx.Has(100) {
		t.Error("Has(100) = true, want false")
	}
}

func TestSearchEfImprovesRecall(t *testing.T) {
	dims := 64
	n := 500
	rng := rand.New(rand.NewSource(77))
	idx := New(dims)

	vectors := make([][]float32, n)
	ids := make([]int64, n)
	for i := range vectors {
		vectors[i] = randomVector(dims, rng)
		ids[i] = int64(i)
		idx.Insert(ids[i], vectors[i])
	}

	query := randomVector(dims, rng)
	k := 10
	truth := bruteForceNN(query, vectors, ids, k)
	recallLow := recallAgainst(idx.SearchEf(query, k, 20), truth)
	recallHigh := recallAgainst(idx.SearchEf(query, k, 200), truth)
	t.Logf("recall@%d: ef=20 %.2f, ef=200 %.2f", k, recallLow, recallHigh)
	if recallHigh < recallLow {
		t.Errorf("higher ef lowered recall: %.2f vs %.2f", recallHigh, recallLow)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dims := 32
	rng := rand.New(rand.NewSource(42))
	idx := New(dims)
	for i := 0; i < 50; i++ {
		idx.Insert(int64(i+1), randomVector(dims, rng))
	}

	path := filepath.Join(t.TempDir(), "chunks.hnsw")
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() < 1000 {
		t.Errorf("index file suspiciously small: %d bytes", info.Size())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != idx.Len() || loaded.dims != idx.dims || loaded.M != idx.M {
		t.Errorf("loaded index shape mismatch")
	}
	if loaded.entryPoint != idx.entryPoint {
		t.Errorf("entryPoint = %d, want %d", loaded.entryPoint, idx.entryPoint)
	}

	query := randomVector(dims, rng)
	orig := idx.Search(query, 5)
	after := loaded.Search(query, 5)
	if len(orig) != len(after) {
		t.Fatalf("result count mismatch: %d vs %d", len(orig), len(after))
	}
	for i := range orig {
		if orig[i].ID != after[i].ID {
			t.Errorf("result[%d] = %d, want %d", i, after[i].ID, orig[i].ID)
		}
	}
}

func TestLoadRejectsInvalidMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hnsw")
	os.WriteFile(path, []byte("NOTVALID"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid magic")
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float32
	}{
		{[]float32{1, 0}, []float32{1, 0}, 0},
		{[]float32{1, 0}, []float32{0, 1}, 1},
		{[]float32{1, 0}, []float32{-1, 0}, 2},
		{[]float32{}, []float32{}, 2},
		{[]float32{0, 0}, []float32{1, 0}, 2},
	}
	for _, tt := range tests {
		got := cosineDistance(tt.a, tt.b)
		if math.Abs(float64(got-tt.want)) > 0.001 {
			t.Errorf("cosineDistance(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}
