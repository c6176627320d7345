// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import "slices"

// History keeps the most recent function evaluations in a ring buffer.
type History struct {
	xs   [][]float64
	fs   []float64
	next int
	full bool
}

func newHistory(size int) *History {
	return &History{xs: make([][]float64, size), fs: make([]float64, size)}
}

func (h *History) add(x []float64, f float64) {
	if h.xs[h.next] == nil {
		h.xs[h.next] = slices.Clone(x)
	} else {
		copy(h.xs[h.next], x)
	}
	h.fs[h.next] = f
	h.next++
	if h.next == len(h.fs) {
		h.next = 0
		h.full = true
	}
}

func (h *History) reset() {
	h.next, h.full = 0, false
}

// Len returns the number of stored evaluations.
func (h *History) Len() int {
	if h.full {
		return len(h.fs)
	}
	return h.next
}

// Entries returns copies of the stored points and values from the oldest to the newest.
func (h *History) Entries() (x [][]float64, f []float64) {
	size := h.Len()
	x = make([][]float64, 0, size)
	f = make([]float64, 0, size)
	start := 0
	if h.full {
		start = h.next
	}
	for i := 0; i < size; i++ {
		k := (start + i) % len(h.fs)
		x = append(x, slices.Clone(h.xs[k]))
		f = append(f, h.fs[k])
	}
	return
}
