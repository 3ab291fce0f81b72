// Package iforest implements the Isolation Forest algorithm as the default
// numeric anomaly Scorer, plus an ablation Explainer built on the same forest.
package iforest

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

// Default model parameters.
const (
	DefaultTrees         = 100
	DefaultSampleSize    = 256
	DefaultContamination = 0.1
	DefaultSeed          = 42
)

// Forest fits a fresh isolation forest on every call. It holds only
// configuration, so one Forest can serve concurrent requests.
type Forest struct {
	nTrees        int
	sampleSize    int
	contamination float64
	seed          int64
}

// Option configures a Forest.
type Option func(*Forest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *Forest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *Forest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies.
func WithContamination(c float64) Option {
	return func(f *Forest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed. Every fit starts from this seed, so the same
// input always produces the same labels.
func WithSeed(seed int64) Option {
	return func(f *Forest) {
		f.seed = seed
	}
}

// New creates a Forest with the given options.
func New(opts ...Option) *Forest {
	f := &Forest{
		nTrees:        DefaultTrees,
		sampleSize:    DefaultSampleSize,
		contamination: DefaultContamination,
		seed:          DefaultSeed,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements core.Named.
func (f *Forest) Name() string {
	return "isolation_forest"
}

// Validate checks the configuration.
func (f *Forest) Validate() error {
	if f.nTrees <= 0 {
		return errors.New("iforest: trees must be positive")
	}
	if f.sampleSize < 2 {
		return errors.New("iforest: sample size must be at least 2")
	}
	if f.contamination <= 0 || f.contamination >= 0.5 {
		return errors.New("iforest: contamination must be in (0, 0.5)")
	}
	return nil
}

// FitAndScore implements core.Scorer. Scores are in [0, 1], higher is more
// anomalous. Rows scoring above the (1 - contamination) percentile get label 1.
func (f *Forest) FitAndScore(ctx context.Context, m *core.FeatureMatrix) ([]int, []float64, error) {
	model, err := f.fit(ctx, m.Rows)
	if err != nil {
		return nil, nil, err
	}

	scores := model.scoreAll(m.Rows)
	threshold := core.Percentile(scores, 100*(1-f.contamination))

	labels := make([]int, len(scores))
	for i, s := range scores {
		if s > threshold {
			labels[i] = 1
		}
	}
	return labels, scores, nil
}

// model is a trained forest.
type model struct {
	trees         []*node
	avgPathLength float64
}

// node is a node in an isolation tree.
type node struct {
	splitFeature int
	splitValue   float64
	left         *node
	right        *node
	size         int // Samples that reached this leaf
}

func (f *Forest) fit(ctx context.Context, data [][]float64) (*model, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("iforest: empty training data")
	}

	rng := rand.New(rand.NewSource(f.seed))
	nSamples := len(data)
	nFeatures := len(data[0])

	sampleSize := f.sampleSize
	if sampleSize > nSamples {
		sampleSize = nSamples
	}
	maxDepth := int(math.Ceil(math.Log2(float64(max(sampleSize, 2)))))

	b := builder{rng: rng, nFeatures: nFeatures, maxDepth: maxDepth}
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	trees := make([]*node, f.nTrees)
	for i := range trees {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sample := make([][]float64, sampleSize)
		for j, idx := range sampleIndices(rng, indices, sampleSize) {
			sample[j] = data[idx]
		}
		trees[i] = b.build(sample, 0)
	}

	return &model{trees: trees, avgPathLength: averagePathLength(float64(sampleSize))}, nil
}

// sampleIndices shuffles the first k entries of indices into a uniform sample
// without replacement (partial Fisher-Yates) and returns them. indices is
// reused across calls.
func sampleIndices(rng *rand.Rand, indices []int, k int) []int {
	n := len(indices)
	for j := 0; j < k; j++ {
		m := j + rng.Intn(n-j)
		indices[j], indices[m] = indices[m], indices[j]
	}
	return indices[:k]
}

type builder struct {
	rng       *rand.Rand
	nFeatures int
	maxDepth  int
}

func (b builder) build(data [][]float64, depth int) *node {
	n := len(data)
	if depth >= b.maxDepth || n <= 1 {
		return &node{size: n}
	}

	feature := b.rng.Intn(b.nFeatures)
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		minVal = math.Min(minVal, row[feature])
		maxVal = math.Max(maxVal, row[feature])
	}
	if minVal == maxVal {
		return &node{size: n}
	}

	splitValue := minVal + b.rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         b.build(leftData, depth+1),
		right:        b.build(rightData, depth+1),
	}
}

func (m *model) scoreAll(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = m.score(sample)
	}
	return scores
}

// score returns 2^(-E[h(x)] / c(n)).
func (m *model) score(sample []float64) float64 {
	if m.avgPathLength == 0 {
		return 0.5
	}
	var total float64
	for _, tree := range m.trees {
		total += pathLength(sample, tree, 0)
	}
	avg := total / float64(len(m.trees))
	return math.Pow(2, -avg/m.avgPathLength)
}

func pathLength(sample []float64, n *node, depth int) float64 {
	if n.left == nil && n.right == nil {
		return float64(depth) + averagePathLength(float64(n.size))
	}
	if sample[n.splitFeature] < n.splitValue {
		return pathLength(sample, n.left, depth+1)
	}
	return pathLength(sample, n.right, depth+1)
}

// averagePathLength is c(n), the average path length of an unsuccessful BST search.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	// H(n-1) is approximated by ln(n-1) + Euler-Mascheroni.
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}
