package dedupe

// Option applies a configuration option to the in-memory seen-set.
type Option func(*inMemorySeen)

// WithMaxSize sets the maximum number of keys kept in memory. Values <= 0
// fall back to the default.
func WithMaxSize(maxSize int) Option {
	return func(s *inMemorySeen) {
		s.maxSize = maxSize
	}
}
