// Package ann provides approximate nearest neighbor search over
// embedding vectors using HNSW (Hierarchical Navigable Small World
// graphs), per Malkov & Yashunin (2018), arXiv:1603.09320.
//
// Pure Go, no CGO. Backs the semantic index over event and attachment
// text chunks: brute force would do at a few hundred chunks, but a
// decade of medical notes with OCR'd attachments runs well past that.
package ann

import (
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Index is an in-memory HNSW index. Safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	nodes      []node
	idToIdx    map[int64]int // chunk ID -> node index
	entryPoint int           // -1 when empty
	maxLevel   int
	dims       int

	M              int     // max connections per layer
	Mmax0          int     // max connections at layer 0 (2*M)
	EfConstruction int     // build-time beam width
	EfSearch       int     // query-time beam width
	LevelMult      float64 // 1/ln(M)

	rng *rand.Rand
}

type node struct {
	id      int64
	vector  []float32
	friends [][]int // friends[layer] = neighbor node indices
	level   int
}

// Result is one neighbor with its cosine distance (lower = closer).
type Result struct {
	ID       int64
	Distance float32
}

type candidate struct {
	idx  int
	dist float32
}

const (
	DefaultM              = 16
	DefaultEfConstruction = 200
	DefaultEfSearch       = 50
)

// New creates an index for vectors of the given dimensionality.
func New(dims int) *Index {
	return NewWithParams(dims, DefaultM, DefaultEfConstruction, DefaultEfSearch)
}

// NewWithParams creates an index with custom tuning parameters.
func NewWithParams(dims, m, efConstruction, efSearch int) *Index {
	if m < 2 {
		m = 2
	}
	return &Index{
		dims:           dims,
		M:              m,
		Mmax0:          2 * m,
		EfConstruction: efConstruction,
		EfSearch:       efSearch,
		LevelMult:      1.0 / math.Log(float64(m)),
		entryPoint:     -1,
		maxLevel:       -1,
		idToIdx:        make(map[int64]int),
		rng:            rand.New(rand.NewSource(42)),
	}
}

// Len returns the number of vectors in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Has reports whether the given ID is indexed.
func (idx *Index) Has(id int64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.idToIdx[id]
	return ok
}

// Insert adds a vector under an external ID. Inserting an existing ID
// is a no-op.
func (idx *Index) Insert(id int64, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.idToIdx[id]; exists {
		return
	}

	nodeIdx := len(idx.nodes)
	level := idx.randomLevel()
	idx.nodes = append(idx.nodes, node{
		id:      id,
		vector:  vector,
		friends: make([][]int, level+1),
		level:   level,
	})
	idx.idToIdx[id] = nodeIdx

	if idx.entryPoint == -1 {
		idx.entryPoint = nodeIdx
		idx.maxLevel = level
		return
	}

	// Greedy descent through layers above the new node's level.
	ep := idx.entryPoint
	for l := idx.maxLevel; l > level; l-- {
		ep = idx.greedyClosest(vector, ep, l)
	}

	topLayer := level
	if topLayer > idx.maxLevel {
		topLayer = idx.maxLevel
	}
	for l := topLayer; l >= 0; l-- {
		candidates := idx.searchLayer(vector, ep, idx.EfConstruction, l)

		maxConn := idx.M
		if l == 0 {
			maxConn = idx.Mmax0
		}
		neighbors := idx.selectNeighbors(candidates, maxConn)
		idx.nodes[nodeIdx].friends[l] = neighbors

		// Bidirectional links, pruning overfull neighbors.
		for _, neighborIdx := range neighbors {
			idx.nodes[neighborIdx].friends[l] = append(idx.nodes[neighborIdx].friends[l], nodeIdx)
			if len(idx.nodes[neighborIdx].friends[l]) > maxConn {
				idx.nodes[neighborIdx].friends[l] = idx.shrinkNeighbors(
					neighborIdx, idx.nodes[neighborIdx].friends[l], maxConn)
			}
		}

		if len(candidates) > 0 {
			ep = candidates[0].idx
		}
	}

	if level > idx.maxLevel {
		idx.entryPoint = nodeIdx
		idx.maxLevel = level
	}
}

// Search returns the k nearest neighbors, closest first.
func (idx *Index) Search(query []float32, k int) []Result {
	return idx.SearchEf(query, k, idx.EfSearch)
}

// SearchEf searches with a custom beam width. Higher ef improves
// recall at the cost of latency; ef is raised to k when smaller.
func (idx *Index) SearchEf(query []float32, k, ef int) []Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.nodes) == 0 || idx.entryPoint == -1 {
		return nil
	}
	if ef < k {
		ef = k
	}

	ep := idx.entryPoint
	for l := idx.maxLevel; l > 0; l-- {
		ep = idx.greedyClosest(query, ep, l)
	}

	candidates := idx.searchLayer(query, ep, ef, 0)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{ID: idx.nodes[c.idx].id, Distance: c.dist}
	}
	return results
}

// randomLevel draws from the geometric level distribution.
func (idx *Index) randomLevel() int {
	r := idx.rng.Float64()
	if r == 0 {
		r = 1e-10
	}
	return int(math.Floor(-math.Log(r) * idx.LevelMult))
}

// greedyClosest walks to the locally closest node at one layer.
func (idx *Index) greedyClosest(query []float32, ep, layer int) int {
	dist := cosineDistance(query, idx.nodes[ep].vector)
	for {
		improved := false
		if layer < len(idx.nodes[ep].friends) {
			for _, friendIdx := range idx.nodes[ep].friends[layer] {
				if d := cosineDistance(query, idx.nodes[friendIdx].vector); d < dist {
					ep, dist = friendIdx, d
					improved = true
				}
			}
		}
		if !improved {
			return ep
		}
	}
}

// searchLayer is the beam search at one layer, returning up to ef
// candidates sorted ascending by distance.
func (idx *Index) searchLayer(query []float32, ep, ef, layer int) []candidate {
	visited := map[int]bool{ep: true}
	epDist := cosineDistance(query, idx.nodes[ep].vector)
	candidates := []candidate{{idx: ep, dist: epDist}}
	results := []candidate{{idx: ep, dist: epDist}}

	for len(candidates) > 0 {
		closest := candidates[0]
		candidates = candidates[1:]

		if closest.dist > results[len(results)-1].dist && len(results) >= ef {
			break
		}

		if layer < len(idx.nodes[closest.idx].friends) {
			for _, neighborIdx := range idx.nodes[closest.idx].friends[layer] {
				if visited[neighborIdx] {
					continue
				}
				visited[neighborIdx] = true

				d := cosineDistance(query, idx.nodes[neighborIdx].vector)
				if d < results[len(results)-1].dist || len(results) < ef {
					candidates = insertSorted(candidates, candidate{idx: neighborIdx, dist: d})
					results = insertSorted(results, candidate{idx: neighborIdx, dist: d})
					if len(results) > ef {
						results = results[:ef]
					}
				}
			}
		}
	}
	return results
}

// selectNeighbors keeps the maxConn closest candidates.
func (idx *Index) selectNeighbors(candidates []candidate, maxConn int) []int {
	n := len(candidates)
	if n > maxConn {
		n = maxConn
	}
	neighbors := make([]int, n)
	for i := 0; i < n; i++ {
		neighbors[i] = candidates[i].idx
	}
	return neighbors
}

// shrinkNeighbors prunes a neighbor list to the maxConn closest.
func (idx *Index) shrinkNeighbors(nodeIdx int, neighbors []int, maxConn int) []int {
	if len(neighbors) <= maxConn {
		return neighbors
	}
	vec := idx.nodes[nodeIdx].vector
	scored := make([]candidate, len(neighbors))
	for i, nIdx := range neighbors {
		scored[i] = candidate{idx: nIdx, dist: cosineDistance(vec, idx.nodes[nIdx].vector)}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].dist < scored[j].dist })

	out := make([]int, maxConn)
	for i := 0; i < maxConn; i++ {
		out[i] = scored[i].idx
	}
	return out
}

func insertSorted(s []candidate, c candidate) []candidate {
	i := sort.Search(len(s), func(i int) bool { return s[i].dist >= c.dist })
	s = append(s, candidate{})
	copy(s[i+1:], s[i:])
	s[i] = c
	return s
}

// cosineDistance is 1 - cosine similarity, in [0, 2]. Mismatched or
// zero vectors get the maximum distance.
func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}
	sim := dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
	return 1.0 - sim
}
