package indicator

// Ring is a fixed-capacity ring buffer of float64 samples. Appending past
// capacity overwrites the oldest sample; per-push cost stays O(1).
type Ring struct {
	values []float64
	size   int
	index  int
	filled bool
}

// NewRing allocates a ring holding at most size samples.
func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{values: make([]float64, size), size: size}
}

// Push appends one sample, evicting the oldest when full.
func (r *Ring) Push(v float64) {
	r.values[r.index] = v
	r.index = (r.index + 1) % r.size
	if r.index == 0 {
		r.filled = true
	}
}

// Len returns the number of stored samples.
func (r *Ring) Len() int {
	if r.filled {
		return r.size
	}
	return r.index
}

// At returns the sample `back` positions behind the newest (At(0) is the
// newest). ok is false when that far back is not populated.
func (r *Ring) At(back int) (float64, bool) {
	if back < 0 || back >= r.Len() {
		return 0, false
	}
	idx := (r.index - 1 - back + 2*r.size) % r.size
	return r.values[idx], true
}

// Mean averages all stored samples; zero when empty.
func (r *Ring) Mean() float64 {
	n := r.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for back := 0; back < n; back++ {
		v, _ := r.At(back)
		sum += v
	}
	return sum / float64(n)
}

// Max returns the largest stored sample; ok is false when empty.
func (r *Ring) Max() (float64, bool) {
	n := r.Len()
	if n == 0 {
		return 0, false
	}
	best, _ := r.At(0)
	for back := 1; back < n; back++ {
		if v, _ := r.At(back); v > best {
			best = v
		}
	}
	return best, true
}

// Min returns the smallest stored sample; ok is false when empty.
func (r *Ring) Min() (float64, bool) {
	n := r.Len()
	if n == 0 {
		return 0, false
	}
	best, _ := r.At(0)
	for back := 1; back < n; back++ {
		if v, _ := r.At(back); v < best {
			best = v
		}
	}
	return best, true
}
