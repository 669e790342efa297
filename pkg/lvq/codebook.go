package lvq

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/therealutkarshpriyadarshi/lvq/internal/vec"
)

// Codebook is an ordered collection of prototype vectors in a fixed
// dimensional space. A prototype's index doubles as its cluster id; in
// supervised mode each prototype additionally carries a class label.
//
// The dimension and prototype count are fixed at construction. Lookup
// operations (Classify, Best, Get) never mutate the codebook; training
// mutates prototype positions in place.
//
// A Codebook is not safe for concurrent mutation. Read-only operations
// may run concurrently with each other but not with training; callers
// embedding the engine are responsible for external locking.
type Codebook struct {
	dim    int
	protos [][]float64
	labels []int // nil until labels are assigned
}

// ClusterWeight pairs a prototype index with a similarity weight.
// Weights returned from Best sum to 1.
type ClusterWeight struct {
	Cluster int
	Weight  float64
}

// New creates a codebook of size prototypes in dim dimensions. All
// prototype components start at zero; callers typically follow up with
// SetRandom or Set before training.
func New(dim, size int) (*Codebook, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dimension must be at least 1, got %d", ErrValue, dim)
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: size must be at least 1, got %d", ErrValue, size)
	}

	protos := make([][]float64, size)
	buf := make([]float64, size*dim)
	for i := range protos {
		protos[i] = buf[i*dim : (i+1)*dim : (i+1)*dim]
	}

	return &Codebook{dim: dim, protos: protos}, nil
}

// Dim returns the vector dimension.
func (c *Codebook) Dim() int { return c.dim }

// Size returns the number of prototypes.
func (c *Codebook) Size() int { return len(c.protos) }

// SetRandom sets every prototype component to an independent uniform
// sample in [0, 1). A zero seed draws one from the wall clock, so pass
// an explicit seed for reproducible initialization.
func (c *Codebook) SetRandom(seed int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	for _, p := range c.protos {
		for i := range p {
			p[i] = r.Float64()
		}
	}
}

// Set places a copy of v into prototype slot i.
func (c *Codebook) Set(v []float64, i int) error {
	if i < 0 || i >= len(c.protos) {
		return fmt.Errorf("%w: prototype index %d out of range [0, %d)", ErrShape, i, len(c.protos))
	}
	if err := c.checkSample(v); err != nil {
		return err
	}

	copy(c.protos[i], v)
	return nil
}

// Get returns a copy of prototype i.
func (c *Codebook) Get(i int) ([]float64, error) {
	if i < 0 || i >= len(c.protos) {
		return nil, fmt.Errorf("%w: prototype index %d out of range [0, %d)", ErrShape, i, len(c.protos))
	}

	out := make([]float64, c.dim)
	copy(out, c.protos[i])
	return out, nil
}

// Labels returns a copy of the prototype labels, or nil if none were
// assigned.
func (c *Codebook) Labels() []int {
	if c.labels == nil {
		return nil
	}
	out := make([]int, len(c.labels))
	copy(out, c.labels)
	return out
}

// SetLabels assigns a class label to every prototype. The slice must
// have one entry per prototype; labels are non-negative and below the
// prototype count.
func (c *Codebook) SetLabels(labels []int) error {
	if len(labels) != len(c.protos) {
		return fmt.Errorf("%w: got %d labels for %d prototypes", ErrShape, len(labels), len(c.protos))
	}
	for i, l := range labels {
		if l < 0 {
			return fmt.Errorf("%w: negative label %d for prototype %d", ErrValue, l, i)
		}
		if l >= len(c.protos) {
			return fmt.Errorf("%w: label %d for prototype %d exceeds codebook size %d", ErrValue, l, i, len(c.protos))
		}
	}

	c.labels = make([]int, len(labels))
	copy(c.labels, labels)
	return nil
}

// Clone returns a deep copy of the codebook.
func (c *Codebook) Clone() *Codebook {
	out, _ := New(c.dim, len(c.protos))
	for i, p := range c.protos {
		copy(out.protos[i], p)
	}
	if c.labels != nil {
		out.labels = make([]int, len(c.labels))
		copy(out.labels, c.labels)
	}
	return out
}

// label returns the class label of prototype i, falling back to the
// prototype index when no labels are assigned.
func (c *Codebook) label(i int) int {
	if c.labels == nil {
		return i
	}
	return c.labels[i]
}

// checkSample validates an input vector against the codebook shape.
func (c *Codebook) checkSample(x []float64) error {
	if len(x) != c.dim {
		return fmt.Errorf("%w: vector has dimension %d, codebook expects %d", ErrShape, len(x), c.dim)
	}
	if !vec.IsFinite(x) {
		return fmt.Errorf("%w: vector contains a non-finite component", ErrValue)
	}
	return nil
}

// nearest returns the index of the prototype closest to x. Ties go to
// the smaller index. x must already be validated.
func (c *Codebook) nearest(x []float64) int {
	best := 0
	bestDist := vec.Dist2(c.protos[0], x)
	for i := 1; i < len(c.protos); i++ {
		if d := vec.Dist2(c.protos[i], x); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Classify returns the index of the prototype nearest to x.
func (c *Codebook) Classify(x []float64) (int, error) {
	if err := c.checkSample(x); err != nil {
		return 0, err
	}
	return c.nearest(x), nil
}

// Best returns the k prototypes nearest to x, ordered by ascending
// distance and paired with inverse-distance weights normalised to sum
// to 1. If any chosen prototype coincides with x, the weight collapses
// onto the zero-distance prototypes in equal shares and the rest get
// weight 0. k below 1 selects all prototypes.
func (c *Codebook) Best(x []float64, k int) ([]ClusterWeight, error) {
	if err := c.checkSample(x); err != nil {
		return nil, err
	}
	if k > len(c.protos) {
		return nil, fmt.Errorf("%w: k=%d exceeds codebook size %d", ErrShape, k, len(c.protos))
	}
	if k < 1 {
		k = len(c.protos)
	}

	dists := make([]float64, len(c.protos))
	order := make([]int, len(c.protos))
	for i, p := range c.protos {
		dists[i] = vec.Dist2(p, x)
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		if dists[order[a]] != dists[order[b]] {
			return dists[order[a]] < dists[order[b]]
		}
		return order[a] < order[b]
	})

	chosen := order[:k]

	// Count exact hits first: a zero distance would blow up the
	// inverse-distance weighting, so those prototypes split the whole
	// weight between themselves.
	zeros := 0
	for _, i := range chosen {
		if dists[i] == 0 {
			zeros++
		}
	}

	out := make([]ClusterWeight, k)
	if zeros > 0 {
		for j, i := range chosen {
			w := 0.0
			if dists[i] == 0 {
				w = 1 / float64(zeros)
			}
			out[j] = ClusterWeight{Cluster: i, Weight: w}
		}
		return out, nil
	}

	var invSum float64
	for _, i := range chosen {
		invSum += 1 / math.Sqrt(dists[i])
	}
	for j, i := range chosen {
		out[j] = ClusterWeight{Cluster: i, Weight: (1 / math.Sqrt(dists[i])) / invSum}
	}
	return out, nil
}
