package logging

// ProgressSampler suppresses repetitive progress logs while still emitting a
// line whenever the fraction crosses a bucket boundary. Engine progress
// arrives as a fraction in [0,1] and can repeat the same value many times per
// second; logging every event would drown the rest of the output.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the fraction crosses
// bucket boundaries (default 0.05).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 0.05
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress fraction should be logged. Fractions
// outside [0,1] never log; the lifecycle manager filters them before delivery
// anyway, but the sampler stays safe when used directly.
func (s *ProgressSampler) ShouldLog(fraction float64) bool {
	if s == nil {
		return true
	}
	if fraction < 0 || fraction > 1 {
		return false
	}
	bucket := int(fraction / s.bucketSize)
	if fraction >= 1 {
		bucket = int(1 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state when a new job starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
