package lvq

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestNew(t *testing.T) {
	c, err := New(3, 6)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if c.Dim() != 3 {
		t.Errorf("Dim = %d, want 3", c.Dim())
	}
	if c.Size() != 6 {
		t.Errorf("Size = %d, want 6", c.Size())
	}

	// Fresh prototypes are zeroed.
	p, err := c.Get(0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	for i, x := range p {
		if x != 0 {
			t.Errorf("prototype 0 component %d = %f, want 0", i, x)
		}
	}
}

func TestNew_InvalidShape(t *testing.T) {
	if _, err := New(0, 6); !errors.Is(err, ErrValue) {
		t.Errorf("New(0, 6) error = %v, want ErrValue", err)
	}
	if _, err := New(3, 0); !errors.Is(err, ErrValue) {
		t.Errorf("New(3, 0) error = %v, want ErrValue", err)
	}
}

func TestSetRandom_Deterministic(t *testing.T) {
	a, _ := New(4, 5)
	b, _ := New(4, 5)

	a.SetRandom(42)
	b.SetRandom(42)

	for i := 0; i < a.Size(); i++ {
		pa, _ := a.Get(i)
		pb, _ := b.Get(i)
		for j := range pa {
			if pa[j] != pb[j] {
				t.Fatalf("prototype %d differs between identically seeded codebooks", i)
			}
			if pa[j] < 0 || pa[j] >= 1 {
				t.Fatalf("prototype %d component %d = %f outside [0, 1)", i, j, pa[j])
			}
		}
	}
}

func TestSet_CopiesInput(t *testing.T) {
	c, _ := New(2, 2)
	v := []float64{1, 2}

	if err := c.Set(v, 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v[0] = 99
	p, _ := c.Get(1)
	if p[0] != 1 {
		t.Error("Set did not copy the input vector")
	}
}

func TestSet_Errors(t *testing.T) {
	c, _ := New(3, 2)

	if err := c.Set([]float64{1, 2}, 0); !errors.Is(err, ErrShape) {
		t.Errorf("short vector error = %v, want ErrShape", err)
	}
	if err := c.Set([]float64{1, 2, 3}, 2); !errors.Is(err, ErrShape) {
		t.Errorf("out-of-range index error = %v, want ErrShape", err)
	}
	if err := c.Set([]float64{1, 2, math.NaN()}, 0); !errors.Is(err, ErrValue) {
		t.Errorf("NaN component error = %v, want ErrValue", err)
	}
}

func TestClassify_TieBreaksToSmallerIndex(t *testing.T) {
	c, _ := New(2, 2)
	c.Set([]float64{0, 0}, 0)
	c.Set([]float64{1, 1}, 1)

	got, err := c.Classify([]float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got != 0 {
		t.Errorf("Classify tie = %d, want 0", got)
	}
}

func TestClassify_TotalFunction(t *testing.T) {
	c, _ := New(5, 7)
	c.SetRandom(1)

	r := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		x := make([]float64, 5)
		for j := range x {
			x[j] = r.NormFloat64()
		}
		got, err := c.Classify(x)
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if got < 0 || got >= c.Size() {
			t.Fatalf("Classify = %d outside [0, %d)", got, c.Size())
		}
	}
}

func TestClassify_ShapeErrorLeavesCodebookUnchanged(t *testing.T) {
	c, _ := New(3, 2)
	c.Set([]float64{1, 2, 3}, 0)
	before := c.Clone()

	if _, err := c.Classify([]float64{1, 2, 3, 4}); !errors.Is(err, ErrShape) {
		t.Fatalf("Classify error = %v, want ErrShape", err)
	}

	for i := 0; i < c.Size(); i++ {
		got, _ := c.Get(i)
		want, _ := before.Get(i)
		for j := range got {
			if got[j] != want[j] {
				t.Fatal("codebook mutated by failed Classify")
			}
		}
	}
}

func TestBest_WeightsSumToOneAndOrdered(t *testing.T) {
	c, _ := New(4, 6)
	c.SetRandom(3)

	x := []float64{0.3, 0.7, 0.1, 0.9}
	for k := 1; k <= c.Size(); k++ {
		got, err := c.Best(x, k)
		if err != nil {
			t.Fatalf("Best(k=%d) failed: %v", k, err)
		}
		if len(got) != k {
			t.Fatalf("Best(k=%d) returned %d entries", k, len(got))
		}

		var sum float64
		prev := -1.0
		for _, cw := range got {
			sum += cw.Weight
			p, _ := c.Get(cw.Cluster)
			d := 0.0
			for j := range p {
				diff := p[j] - x[j]
				d += diff * diff
			}
			if d < prev {
				t.Errorf("Best(k=%d) distances not non-decreasing", k)
			}
			prev = d
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Best(k=%d) weights sum to %f, want 1", k, sum)
		}
	}
}

func TestBest_ZeroDistanceCollapse(t *testing.T) {
	c, _ := New(3, 3)
	c.Set([]float64{1, 0, 0}, 0)
	c.Set([]float64{0, 1, 0}, 1)
	c.Set([]float64{0, 0, 1}, 2)

	got, err := c.Best([]float64{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Best failed: %v", err)
	}

	if got[0].Cluster != 0 || got[0].Weight != 1 {
		t.Errorf("Best first entry = (%d, %f), want (0, 1)", got[0].Cluster, got[0].Weight)
	}
	for _, cw := range got[1:] {
		if cw.Weight != 0 {
			t.Errorf("non-matching prototype %d has weight %f, want 0", cw.Cluster, cw.Weight)
		}
	}
}

func TestBest_DefaultsToAllPrototypes(t *testing.T) {
	c, _ := New(2, 4)
	c.SetRandom(7)

	got, err := c.Best([]float64{0.5, 0.5}, 0)
	if err != nil {
		t.Fatalf("Best failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("Best(k=0) returned %d entries, want 4", len(got))
	}

	if _, err := c.Best([]float64{0.5, 0.5}, 5); !errors.Is(err, ErrShape) {
		t.Errorf("Best(k>N) error = %v, want ErrShape", err)
	}
}

func TestSetLabels(t *testing.T) {
	c, _ := New(2, 3)

	if err := c.SetLabels([]int{0, 1, 1}); err != nil {
		t.Fatalf("SetLabels failed: %v", err)
	}
	got := c.Labels()
	if len(got) != 3 || got[2] != 1 {
		t.Errorf("Labels = %v, want [0 1 1]", got)
	}

	if err := c.SetLabels([]int{0, 1}); !errors.Is(err, ErrShape) {
		t.Errorf("short labels error = %v, want ErrShape", err)
	}
	if err := c.SetLabels([]int{0, -1, 1}); !errors.Is(err, ErrValue) {
		t.Errorf("negative label error = %v, want ErrValue", err)
	}
	if err := c.SetLabels([]int{0, 3, 1}); !errors.Is(err, ErrValue) {
		t.Errorf("oversized label error = %v, want ErrValue", err)
	}
}

func TestClone_Independent(t *testing.T) {
	c, _ := New(2, 2)
	c.Set([]float64{1, 1}, 0)
	c.SetLabels([]int{1, 0})

	d := c.Clone()
	d.Set([]float64{5, 5}, 0)

	p, _ := c.Get(0)
	if p[0] != 1 {
		t.Error("mutating the clone changed the original")
	}
	if l := d.Labels(); l[0] != 1 {
		t.Errorf("clone labels = %v, want [1 0]", l)
	}
}
