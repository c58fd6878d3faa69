package queue

import "math"

// Candidate is a search result held by a TopK.
type Candidate struct {
	Label    int64
	Distance float32
}

// TopK keeps the k smallest-distance candidates seen so far.
// It is backed by a max-heap so the current worst candidate is at the root.
type TopK struct {
	k     int
	items []Candidate
}

// NewTopK creates a collector for the k nearest candidates.
func NewTopK(k int) *TopK {
	return &TopK{k: k, items: make([]Candidate, 0, max(k, 0))}
}

// Offer considers a candidate and reports whether it was retained.
func (t *TopK) Offer(label int64, dist float32) bool {
	if t.k <= 0 {
		return false
	}
	c := Candidate{Label: label, Distance: dist}
	if len(t.items) < t.k {
		t.items = append(t.items, c)
		t.up(len(t.items) - 1)
		return true
	}
	if dist >= t.items[0].Distance {
		return false
	}
	t.items[0] = c
	t.down(0)
	return true
}

// Full reports whether k candidates are held.
func (t *TopK) Full() bool { return len(t.items) >= t.k }

// Worst returns the largest retained distance, or +Inf while not full.
func (t *TopK) Worst() float32 {
	if !t.Full() || len(t.items) == 0 {
		return float32(math.Inf(1))
	}
	return t.items[0].Distance
}

// Len returns the number of retained candidates.
func (t *TopK) Len() int { return len(t.items) }

// Drain writes the retained candidates in ascending distance order into
// distances and labels (each at least k long). Unused slots get label -1 and
// distance +Inf. The collector is empty afterwards.
func (t *TopK) Drain(distances []float32, labels []int64) {
	n := len(t.items)
	for i := n; i < t.k; i++ {
		distances[i] = float32(math.Inf(1))
		labels[i] = -1
	}
	for i := n - 1; i >= 0; i-- {
		root := t.items[0]
		last := len(t.items) - 1
		t.items[0] = t.items[last]
		t.items = t.items[:last]
		if last > 0 {
			t.down(0)
		}
		distances[i] = root.Distance
		labels[i] = root.Label
	}
}

func (t *TopK) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if t.items[i].Distance <= t.items[p].Distance {
			return
		}
		t.items[i], t.items[p] = t.items[p], t.items[i]
		i = p
	}
}

func (t *TopK) down(i int) {
	n := len(t.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && t.items[r].Distance > t.items[l].Distance {
			worst = r
		}
		if t.items[worst].Distance <= t.items[i].Distance {
			return
		}
		t.items[i], t.items[worst] = t.items[worst], t.items[i]
		i = worst
	}
}
