package scheduler

import (
	"cmp"
	"math"
	"slices"
)

// SearchOrder returns person indices sorted by current load, least loaded
// first. Ties keep index order so every run searches in the same sequence.
func SearchOrder(assigned []int) []int {
	order := make([]int, len(assigned))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(assigned[a], assigned[b])
	})
	return order
}

// FairnessScore rates how evenly loads are spread, from 0 to 100. The score
// is 100 minus the coefficient of variation in percent, floored at 0. An
// empty roster or a week with no shifts scores 100.
func FairnessScore(loads []int) float64 {
	n := float64(len(loads))
	total := 0
	for _, l := range loads {
		total += l
	}
	if total == 0 {
		return 100
	}

	mean := float64(total) / n
	var sq float64
	for _, l := range loads {
		d := float64(l) - mean
		sq += d * d
	}
	cv := math.Sqrt(sq/n) / mean
	return math.Max(0, 100*(1-cv))
}
