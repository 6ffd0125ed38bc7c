package exam

import (
	"math/rand"

	"github.com/tgexam/backend/internal/model"
)

// Select draws the per-attempt question subset. The result size equals count
// whenever the pool is large enough, otherwise the whole pool is returned.
// The returned slice is always a shuffled copy; the pool is never mutated.
func Select(pool []model.Question, count int, strategy Strategy, rng *rand.Rand) []model.Question {
	if count <= 0 || count >= len(pool) {
		out := make([]model.Question, len(pool))
		copy(out, pool)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	if strategy == StrategyBalanced {
		return selectBalanced(pool, count, rng)
	}
	return selectRandom(pool, count, rng)
}

func selectRandom(pool []model.Question, count int, rng *rand.Rand) []model.Question {
	perm := rng.Perm(len(pool))
	out := make([]model.Question, 0, count)
	for _, idx := range perm[:count] {
		out = append(out, pool[idx])
	}
	return out
}

// selectBalanced partitions the pool into three contiguous thirds and draws an
// equal share from each, with the remainder assigned to the last third. The
// combined draw is shuffled globally so thirds are not visible as blocks.
func selectBalanced(pool []model.Question, count int, rng *rand.Rand) []model.Question {
	t := len(pool) / 3
	thirds := [][]model.Question{pool[:t], pool[t : 2*t], pool[2*t:]}

	share := count / 3
	draws := []int{share, share, count - 2*share}

	out := make([]model.Question, 0, count)
	taken := make(map[string]struct{}, count)

	deficit := 0
	for i, third := range thirds {
		want := draws[i] + deficit
		deficit = 0
		if want > len(third) {
			deficit = want - len(third)
			want = len(third)
		}
		for _, idx := range rng.Perm(len(third))[:want] {
			out = append(out, third[idx])
			taken[third[idx].ID] = struct{}{}
		}
	}

	// A short third can leave a deficit; top up from anywhere in the pool.
	if deficit > 0 {
		for _, idx := range rng.Perm(len(pool)) {
			if len(out) == count {
				break
			}
			q := pool[idx]
			if _, ok := taken[q.ID]; ok {
				continue
			}
			out = append(out, q)
			taken[q.ID] = struct{}{}
		}
	}

	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
