package stream

import "github.com/riverjin839/riverflow/internal/types"

const supplyWindowSize = 10

// supplyWindow is a fixed-size ring of net-buy observations for one market.
// Not safe for concurrent use; the ingestor guards it.
type supplyWindow struct {
	values [supplyWindowSize]int64
	size   int
	next   int
}

// Push appends one observation, evicting the oldest when full.
func (w *supplyWindow) Push(v int64) {
	w.values[w.next] = v
	w.next = (w.next + 1) % supplyWindowSize

	if w.size < supplyWindowSize {
		w.size++
	}
}

// Values returns the window contents oldest first.
func (w *supplyWindow) Values() []int64 {
	out := make([]int64, 0, w.size)

	start := w.next - w.size
	if start < 0 {
		start += supplyWindowSize
	}

	for i := 0; i < w.size; i++ {
		out = append(out, w.values[(start+i)%supplyWindowSize])
	}

	return out
}

// classifyTrend labels a window of net-buy values. Fewer than three samples is
// always flat. A direction wins when its share of adjacent transitions reaches
// 60%.
func classifyTrend(values []int64) types.TrendDirection {
	if len(values) < 3 {
		return types.TrendFlat
	}

	increases, decreases := 0, 0

	for i := 1; i < len(values); i++ {
		switch {
		case values[i] > values[i-1]:
			increases++
		case values[i] < values[i-1]:
			decreases++
		}
	}

	transitions := len(values) - 1
	threshold := float64(transitions) * 0.6

	switch {
	case float64(increases) >= threshold:
		return types.TrendRising
	case float64(decreases) >= threshold:
		return types.TrendFalling
	default:
		return types.TrendFlat
	}
}
