// Package exam implements the attempt state machine: question selection,
// answer capture, leave/violation accounting, timing and scoring for one
// candidate's pass through the exam.
package exam

import "math"

// Strategy selects how the per-attempt question subset is drawn from the pool.
type Strategy string

const (
	// StrategyRandom draws a uniform random subset.
	StrategyRandom Strategy = "random"
	// StrategyBalanced draws an equal share from each contiguous third of the
	// pool (remainder to the last third), then shuffles the combined draw.
	StrategyBalanced Strategy = "balanced"
)

// Config parameterizes one attempt.
type Config struct {
	DurationSec         int
	QuestionsPerAttempt int
	PassRate            float64
	AutoFinishThreshold int
	SelectionStrategy   Strategy
}

// DefaultConfig returns the parameters used when the environment does not
// override them.
func DefaultConfig() Config {
	return Config{
		DurationSec:         600,
		QuestionsPerAttempt: 15,
		PassRate:            0.70,
		AutoFinishThreshold: 3,
		SelectionStrategy:   StrategyRandom,
	}
}

// PassThreshold returns the minimum passing score for a given total.
func (c Config) PassThreshold(total int) int {
	return int(math.Ceil(float64(total) * c.PassRate))
}
