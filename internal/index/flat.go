package index

import (
	"bufio"
	"container/heap"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// flatMagic identifies the on-disk flat index format. The file layout is the
// magic, a little-endian uint32 dimension, a little-endian uint32 item count,
// then count*dimension float32 components. The ingestion job writes vectors in
// the same order as the ticket metadata file.
var flatMagic = [4]byte{'T', 'I', 'X', '1'}

// Flat is an exact, read-only inner-product index held fully in memory.
// At the catalog sizes this service handles (thousands of tickets) a linear
// scan is exact and sub-millisecond; no approximate structure is needed.
type Flat struct {
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid index dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Add appends a pre-normalized vector. Items are searchable in insertion order.
func (f *Flat) Add(vector []float32) error {
	if len(vector) != f.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), f.dim)
	}
	f.vectors = append(f.vectors, vector)
	return nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int {
	return len(f.vectors)
}

// Dimension returns the dimension the index was built with.
func (f *Flat) Dimension() int {
	return f.dim
}

// Search returns the top-k items by inner product, descending. Ties are broken
// by ascending position so results are deterministic across runs.
func (f *Flat) Search(ctx context.Context, queryVector []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(queryVector) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(queryVector), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	if k > len(f.vectors) {
		k = len(f.vectors)
	}

	h := &hitHeap{}
	heap.Init(h)
	for pos, vec := range f.vectors {
		score := dotProduct(queryVector, vec)
		hit := Hit{Position: pos, Score: score}
		if h.Len() < k {
			heap.Push(h, hit)
		} else if worseThan((*h)[0], hit) {
			(*h)[0] = hit
			heap.Fix(h, 0)
		}
	}

	// Extract results in descending score order.
	results := make([]Hit, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(Hit)
	}
	return results, nil
}

// ReadFlatFile loads a flat index from disk.
func ReadFlatFile(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer file.Close()

	return ReadFlat(bufio.NewReader(file))
}

// ReadFlat loads a flat index from a reader.
func ReadFlat(r io.Reader) (*Flat, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading index header: %w", err)
	}
	if magic != flatMagic {
		return nil, fmt.Errorf("not a flat index file (bad magic %q)", magic)
	}

	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("reading index dimension: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading index count: %w", err)
	}
	if dim == 0 {
		return nil, fmt.Errorf("index file declares zero dimension")
	}

	f := &Flat{dim: int(dim), vectors: make([][]float32, 0, count)}
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("reading vector %d: %w", i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		f.vectors = append(f.vectors, vec)
	}
	return f, nil
}

// WriteFlatFile persists the index for the serving process to load.
func (f *Flat) WriteFlatFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := f.WriteFlat(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing index file: %w", err)
	}
	return nil
}

// WriteFlat writes the index in the on-disk format.
func (f *Flat) WriteFlat(w io.Writer) error {
	if _, err := w.Write(flatMagic[:]); err != nil {
		return fmt.Errorf("writing index header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dim)); err != nil {
		return fmt.Errorf("writing index dimension: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("writing index count: %w", err)
	}

	buf := make([]byte, f.dim*4)
	for i, vec := range f.vectors {
		for j, v := range vec {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("writing vector %d: %w", i, err)
		}
	}
	return nil
}

// hitHeap is a min-heap whose root is the current worst retained hit.
type hitHeap []Hit

func (h hitHeap) Len() int { return len(h) }
func (h hitHeap) Less(i, j int) bool {
	return worseThan(h[i], h[j])
}
func (h hitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)   { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// worseThan reports whether a ranks strictly below b: lower score, or equal
// score at a higher position.
func worseThan(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Position > b.Position
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Ensure Flat implements Searcher.
var _ Searcher = (*Flat)(nil)
