package ann

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Binary index format, little-endian:
//   magic(8) version(4) dims(4) nodeCount(4) entryPoint(4) maxLevel(4)
//   M(4) Mmax0(4) efConstruction(4) efSearch(4)
// then per node:
//   id(8) level(4) vector(dims*4)
//   per layer 0..level: friendCount(4) friends(friendCount*4)

const (
	indexMagic   = "CHHNSW01"
	indexVersion = 1
)

// Save writes the index to a binary file readable by Load.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if _, err := w.Write([]byte(indexMagic)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	header := []int32{
		indexVersion,
		int32(idx.dims),
		int32(len(idx.nodes)),
		int32(idx.entryPoint),
		int32(idx.maxLevel),
		int32(idx.M),
		int32(idx.Mmax0),
		int32(idx.EfConstruction),
		int32(idx.EfSearch),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, n := range idx.nodes {
		if err := binary.Write(w, binary.LittleEndian, n.id); err != nil {
			return fmt.Errorf("writing node %d: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, int32(n.level)); err != nil {
			return fmt.Errorf("writing node %d: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, n.vector); err != nil {
			return fmt.Errorf("writing node %d vector: %w", i, err)
		}
		for l := 0; l <= n.level; l++ {
			friends := n.friends[l]
			if err := binary.Write(w, binary.LittleEndian, int32(len(friends))); err != nil {
				return fmt.Errorf("writing node %d layer %d: %w", i, l, err)
			}
			for _, fr := range friends {
				if err := binary.Write(w, binary.LittleEndian, int32(fr)); err != nil {
					return fmt.Errorf("writing node %d layer %d: %w", i, l, err)
				}
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing index file: %w", err)
	}
	return f.Sync()
}

// Load restores an index written by Save.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magicBuf := make([]byte, len(indexMagic))
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magicBuf) != indexMagic {
		return nil, fmt.Errorf("invalid index magic %q", string(magicBuf))
	}

	var header [9]int32
	for i := range header {
		if err := binary.Read(r, binary.LittleEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
	}
	version, dims, nodeCount := header[0], header[1], header[2]
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	m := header[5]

	idx := &Index{
		dims:           int(dims),
		M:              int(m),
		Mmax0:          int(header[6]),
		EfConstruction: int(header[7]),
		EfSearch:       int(header[8]),
		LevelMult:      1.0 / math.Log(float64(m)),
		entryPoint:     int(header[3]),
		maxLevel:       int(header[4]),
		nodes:          make([]node, 0, nodeCount),
		idToIdx:        make(map[int64]int, nodeCount),
	}

	for i := int32(0); i < nodeCount; i++ {
		var n node
		if err := binary.Read(r, binary.LittleEndian, &n.id); err != nil {
			return nil, fmt.Errorf("reading node %d: %w", i, err)
		}
		var level int32
		if err := binary.Read(r, binary.LittleEndian, &level); err != nil {
			return nil, fmt.Errorf("reading node %d: %w", i, err)
		}
		n.level = int(level)

		n.vector = make([]float32, dims)
		if err := binary.Read(r, binary.LittleEndian, n.vector); err != nil {
			return nil, fmt.Errorf("reading node %d vector: %w", i, err)
		}

		n.friends = make([][]int, level+1)
		for l := int32(0); l <= level; l++ {
			var friendCount int32
			if err := binary.Read(r, binary.LittleEndian, &friendCount); err != nil {
				return nil, fmt.Errorf("reading node %d layer %d: %w", i, l, err)
			}
			n.friends[l] = make([]int, friendCount)
			for j := int32(0); j < friendCount; j++ {
				var fIdx int32
				if err := binary.Read(r, binary.LittleEndian, &fIdx); err != nil {
					return nil, fmt.Errorf("reading node %d layer %d friend %d: %w", i, l, j, err)
				}
				n.friends[l][j] = int(fIdx)
			}
		}

		idx.nodes = append(idx.nodes, n)
		idx.idToIdx[n.id] = int(i)
	}

	return idx, nil
}
