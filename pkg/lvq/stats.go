package lvq

import (
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/lvq/internal/vec"
)

// ClassifierStats accumulates a confusion matrix over a labeled test
// set and derives the usual classification metrics from it. The matrix
// is indexed [expected][predicted] and its entries always sum to the
// number of evaluated samples.
type ClassifierStats struct {
	matrix [][]int
	total  int
}

// ClusteringStats accumulates, per cluster, the number of assigned
// samples and the sum of squared distances to the cluster's prototype.
type ClusteringStats struct {
	counts []int
	sumSq  []float64
}

// TestClassifier classifies every labeled sample and returns the
// resulting confusion matrix statistics. The codebook is not mutated.
func (c *Codebook) TestClassifier(samples []LabeledSample) (*ClassifierStats, error) {
	n := len(c.protos)
	st := &ClassifierStats{matrix: make([][]int, n)}
	buf := make([]int, n*n)
	for i := range st.matrix {
		st.matrix[i] = buf[i*n : (i+1)*n]
	}

	for i, s := range samples {
		if err := c.checkSample(s.Vector); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if s.Label < 0 {
			return nil, fmt.Errorf("%w: sample %d has negative label %d", ErrValue, i, s.Label)
		}
		if s.Label >= n {
			return nil, fmt.Errorf("%w: sample %d label %d exceeds codebook size %d", ErrValue, i, s.Label, n)
		}
		st.matrix[s.Label][c.label(c.nearest(s.Vector))]++
		st.total++
	}
	return st, nil
}

// TestClustering assigns every vector to its nearest prototype and
// returns the per-cluster quantization error statistics. The codebook
// is not mutated.
func (c *Codebook) TestClustering(vectors [][]float64) (*ClusteringStats, error) {
	st := &ClusteringStats{
		counts: make([]int, len(c.protos)),
		sumSq:  make([]float64, len(c.protos)),
	}

	for i, x := range vectors {
		if err := c.checkSample(x); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		w := c.nearest(x)
		st.counts[w]++
		st.sumSq[w] += vec.Dist2(c.protos[w], x)
	}
	return st, nil
}

// Classes returns the number of classes the matrix covers.
func (s *ClassifierStats) Classes() int { return len(s.matrix) }

// Total returns the number of evaluated samples.
func (s *ClassifierStats) Total() int { return s.total }

// Matrix returns a copy of the confusion matrix, indexed
// [expected][predicted].
func (s *ClassifierStats) Matrix() [][]int {
	out := make([][]int, len(s.matrix))
	for i, row := range s.matrix {
		out[i] = make([]int, len(row))
		copy(out[i], row)
	}
	return out
}

// Accuracy returns the fraction of samples on the matrix diagonal, or
// 0 when no samples were evaluated.
func (s *ClassifierStats) Accuracy() float64 {
	if s.total == 0 {
		return 0
	}
	hits := 0
	for i := range s.matrix {
		hits += s.matrix[i][i]
	}
	return float64(hits) / float64(s.total)
}

func (s *ClassifierStats) checkClass(class int) error {
	if class < 0 || class >= len(s.matrix) {
		return fmt.Errorf("%w: class %d out of range [0, %d)", ErrShape, class, len(s.matrix))
	}
	return nil
}

// Precision returns the column-wise precision of a class, 0 when the
// class was never predicted.
func (s *ClassifierStats) Precision(class int) (float64, error) {
	if err := s.checkClass(class); err != nil {
		return 0, err
	}
	col := 0
	for i := range s.matrix {
		col += s.matrix[i][class]
	}
	if col == 0 {
		return 0, nil
	}
	return float64(s.matrix[class][class]) / float64(col), nil
}

// Recall returns the row-wise recall of a class, 0 when the class has
// no support in the test set.
func (s *ClassifierStats) Recall(class int) (float64, error) {
	if err := s.checkClass(class); err != nil {
		return 0, err
	}
	row := 0
	for _, v := range s.matrix[class] {
		row += v
	}
	if row == 0 {
		return 0, nil
	}
	return float64(s.matrix[class][class]) / float64(row), nil
}

// FBeta returns the F-beta score of a class: the weighted harmonic mean
// of precision and recall with weight beta on recall. Zero denominator
// yields 0.
func (s *ClassifierStats) FBeta(class int, beta float64) (float64, error) {
	if beta < 0 || math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0, fmt.Errorf("%w: beta must be a finite non-negative number, got %f", ErrValue, beta)
	}
	p, err := s.Precision(class)
	if err != nil {
		return 0, err
	}
	r, _ := s.Recall(class)

	b2 := beta * beta
	den := b2*p + r
	if den == 0 {
		return 0, nil
	}
	return (1 + b2) * p * r / den, nil
}

// F1 returns the F-beta score of a class with beta=1.
func (s *ClassifierStats) F1(class int) (float64, error) {
	return s.FBeta(class, 1)
}

// MacroFBeta returns the unweighted mean of the per-class F-beta
// scores. Classes with no support contribute zero terms.
func (s *ClassifierStats) MacroFBeta(beta float64) (float64, error) {
	var sum float64
	for class := range s.matrix {
		f, err := s.FBeta(class, beta)
		if err != nil {
			return 0, err
		}
		sum += f
	}
	return sum / float64(len(s.matrix)), nil
}

// MacroF1 returns the macro-averaged F-beta score with beta=1.
func (s *ClassifierStats) MacroF1() (float64, error) {
	return s.MacroFBeta(1)
}

// Clusters returns the number of clusters the accumulator covers.
func (s *ClusteringStats) Clusters() int { return len(s.counts) }

// Count returns the number of samples assigned to cluster i.
func (s *ClusteringStats) Count(i int) (int, error) {
	if i < 0 || i >= len(s.counts) {
		return 0, fmt.Errorf("%w: cluster %d out of range [0, %d)", ErrShape, i, len(s.counts))
	}
	return s.counts[i], nil
}

// Total returns the number of evaluated samples.
func (s *ClusteringStats) Total() int {
	total := 0
	for _, c := range s.counts {
		total += c
	}
	return total
}

// ClusterAvgError returns the root-mean-square distance from the
// samples assigned to cluster i to its prototype, 0 for an empty
// cluster.
func (s *ClusteringStats) ClusterAvgError(i int) (float64, error) {
	if i < 0 || i >= len(s.counts) {
		return 0, fmt.Errorf("%w: cluster %d out of range [0, %d)", ErrShape, i, len(s.counts))
	}
	if s.counts[i] == 0 {
		return 0, nil
	}
	return math.Sqrt(s.sumSq[i] / float64(s.counts[i])), nil
}

// AvgError returns the root-mean-square distance from all evaluated
// samples to their assigned prototypes, 0 when nothing was evaluated.
func (s *ClusteringStats) AvgError() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.sumSq {
		sum += v
	}
	return math.Sqrt(sum / float64(total))
}
