// Package statistics summarizes product scores across a batch.
package statistics

import (
	"math"
	"math/rand"
	"sort"
)

// ConfidenceInterval is a percentile-bootstrap interval around a mean score.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of resamples drawn.
const DefaultBootstrapIterations = 10000

// DefaultConfidenceLevel is used when no level is given.
const DefaultConfidenceLevel = 0.95

// Option configures MeanCI.
type Option func(*bootstrapConfig)

type bootstrapConfig struct {
	iterations int
	seed       int64
}

// WithIterations sets the number of resamples (default DefaultBootstrapIterations).
func WithIterations(n int) Option {
	return func(c *bootstrapConfig) {
		if n > 0 {
			c.iterations = n
		}
	}
}

// WithSeed makes the resampling reproducible. Negative seeds are ignored.
func WithSeed(seed int64) Option {
	return func(c *bootstrapConfig) {
		if seed >= 0 {
			c.seed = seed
		}
	}
}

// MeanCI computes a bootstrap confidence interval for the mean of scores.
// Fewer than two scores give a degenerate interval at the mean.
func MeanCI(scores []float64, confidenceLevel float64, opts ...Option) ConfidenceInterval {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = DefaultConfidenceLevel
	}
	cfg := bootstrapConfig{iterations: DefaultBootstrapIterations, seed: -1}
	for _, o := range opts {
		o(&cfg)
	}

	m := Mean(scores)
	n := len(scores)
	if n < 2 {
		return ConfidenceInterval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
		}
	}

	seed := cfg.seed
	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	means := make([]float64, cfg.iterations)
	for i := range means {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += scores[rng.Intn(n)]
		}
		means[i] = sum / float64(n)
	}
	sort.Float64s(means)

	alpha := 1 - confidenceLevel
	lo := int(math.Floor(alpha / 2 * float64(cfg.iterations)))
	hi := int(math.Floor((1 - alpha/2) * float64(cfg.iterations)))
	if hi >= cfg.iterations {
		hi = cfg.iterations - 1
	}

	return ConfidenceInterval{
		Lower:           means[lo],
		Upper:           means[hi],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   cfg.iterations,
	}
}

// Mean returns the arithmetic mean, 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, 0 for no values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
