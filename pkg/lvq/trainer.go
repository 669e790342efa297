package lvq

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/therealutkarshpriyadarshi/lvq/internal/vec"
)

// NoLabel marks a sample as unlabeled in containers that mix both
// shapes before dispatch.
const NoLabel = -1

// LabeledSample pairs an input vector with its class label.
type LabeledSample struct {
	Vector []float64
	Label  int
}

// TrainConfig holds the knobs for a training run.
type TrainConfig struct {
	// Epochs is the maximum number of full shuffled passes.
	Epochs int

	// Window is the number of epochs without improvement tolerated
	// before stopping early.
	Window int

	// MaxIter bounds the cumulative number of prototype updates. The
	// count is checked at the end of each epoch, so the run stops after
	// the first epoch that takes it past MaxIter.
	MaxIter int

	// Alpha is the initial learning rate; it decays linearly to zero
	// within each epoch.
	Alpha float64

	// Seed drives the per-epoch shuffle. Zero draws a seed from the
	// wall clock, so set it for reproducible runs.
	Seed int64
}

// DefaultTrainConfig returns the documented training defaults.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:  5,
		Window:  3,
		MaxIter: 1000,
		Alpha:   0.1,
	}
}

// normalize fills in defaults for zero-valued fields.
func (cfg TrainConfig) normalize() TrainConfig {
	def := DefaultTrainConfig()
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = def.Alpha
	}
	return cfg
}

// improvement threshold for the early-stopping window.
const stopEps = 1e-9

// TrainSupervised runs LVQ1 over the labeled samples: each sample pulls
// its nearest prototype closer when the prototype's label matches and
// pushes it away otherwise. The learning rate decays linearly within
// each epoch and the run stops early once the training-set error rate
// stalls for cfg.Window epochs or the update budget is exhausted.
//
// Prototypes without explicit labels are assigned i mod numClasses
// before the first pass, numClasses being the highest label observed
// plus one. An empty sample stream is a no-op.
func (c *Codebook) TrainSupervised(samples []LabeledSample, cfg TrainConfig) error {
	if len(samples) == 0 {
		return nil
	}
	cfg = cfg.normalize()

	numClasses := 0
	for i, s := range samples {
		if err := c.checkSample(s.Vector); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		if s.Label < 0 {
			return fmt.Errorf("%w: sample %d has negative label %d", ErrValue, i, s.Label)
		}
		if s.Label >= len(c.protos) {
			return fmt.Errorf("%w: sample %d label %d exceeds codebook size %d", ErrValue, i, s.Label, len(c.protos))
		}
		if s.Label+1 > numClasses {
			numClasses = s.Label + 1
		}
	}

	if c.labels == nil {
		c.labels = make([]int, len(c.protos))
		for i := range c.labels {
			c.labels[i] = i % numClasses
		}
	}

	c.run(len(samples), cfg, func(t, idx int, alpha float64, diff []float64) {
		s := samples[idx]
		w := c.nearest(s.Vector)
		copy(diff, s.Vector)
		vec.SubScaled(diff, c.protos[w], 1)
		if c.labels[w] == s.Label {
			vec.AddScaled(c.protos[w], diff, alpha)
		} else {
			vec.SubScaled(c.protos[w], diff, alpha)
		}
	}, func() float64 {
		correct := 0
		for _, s := range samples {
			if c.labels[c.nearest(s.Vector)] == s.Label {
				correct++
			}
		}
		return 1 - float64(correct)/float64(len(samples))
	})
	return nil
}

// TrainUnsupervised runs competitive learning (online k-means) over the
// unlabeled samples: each sample pulls its nearest prototype closer.
// Schedule and stopping mirror TrainSupervised, with the mean
// quantization error standing in for the error rate. Labels are left
// untouched.
func (c *Codebook) TrainUnsupervised(samples [][]float64, cfg TrainConfig) error {
	if len(samples) == 0 {
		return nil
	}
	cfg = cfg.normalize()

	for i, x := range samples {
		if err := c.checkSample(x); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}

	c.run(len(samples), cfg, func(t, idx int, alpha float64, diff []float64) {
		x := samples[idx]
		w := c.nearest(x)
		copy(diff, x)
		vec.SubScaled(diff, c.protos[w], 1)
		vec.AddScaled(c.protos[w], diff, alpha)
	}, func() float64 {
		var sum float64
		for _, x := range samples {
			sum += vec.Dist(c.protos[c.nearest(x)], x)
		}
		return sum / float64(len(samples))
	})
	return nil
}

// TrainAuto dispatches on the sample shape: all-labeled streams train
// supervised, streams where every label is NoLabel train unsupervised,
// and a mix of the two is rejected. Kept for callers porting from the
// legacy train entry point.
func (c *Codebook) TrainAuto(samples []LabeledSample, cfg TrainConfig) error {
	if len(samples) == 0 {
		return nil
	}

	unlabeled := 0
	for _, s := range samples {
		if s.Label == NoLabel {
			unlabeled++
		}
	}

	switch unlabeled {
	case 0:
		return c.TrainSupervised(samples, cfg)
	case len(samples):
		vectors := make([][]float64, len(samples))
		for i, s := range samples {
			vectors[i] = s.Vector
		}
		return c.TrainUnsupervised(vectors, cfg)
	default:
		return fmt.Errorf("%w: sample stream mixes labeled and unlabeled entries", ErrShape)
	}
}

// LearnRate reports the fraction of the labeled samples whose nearest
// prototype carries the sample's label.
func (c *Codebook) LearnRate(samples []LabeledSample) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	correct := 0
	for i, s := range samples {
		if err := c.checkSample(s.Vector); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
		if c.label(c.nearest(s.Vector)) == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), nil
}

// run drives the shared epoch loop: a deterministic shuffle per epoch,
// a per-epoch linear learning-rate decay, and early stopping once the
// score returned by score() stalls for cfg.Window epochs or the update
// count passes cfg.MaxIter. Samples are pre-validated, so apply never
// fails mid-epoch.
func (c *Codebook) run(n int, cfg TrainConfig, apply func(t, idx int, alpha float64, diff []float64), score func() float64) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	diff := make([]float64, c.dim)
	updates := 0
	bestScore := 0.0
	stale := 0

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		perm := r.Perm(n)
		for t, idx := range perm {
			alpha := cfg.Alpha * (1 - float64(t)/float64(n))
			apply(t, idx, alpha, diff)
			updates++
		}

		if updates > cfg.MaxIter {
			break
		}

		s := score()
		if epoch == 0 || s < bestScore-stopEps {
			bestScore = s
			stale = 0
		} else {
			stale++
			if stale >= cfg.Window {
				break
			}
		}
	}
}
