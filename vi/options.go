package vi

import "time"

const defaultListLimit = 1000

type options struct {
	strict            bool
	listLimit         int
	bruteForceTimeout time.Duration
}

func defaultOptions() options {
	return options{
		listLimit: defaultListLimit,
	}
}

// Option adjusts how a File decodes its blocks.
type Option func(*options)

// WithStrict escalates recorded sanity warnings to hard errors.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

// WithListLimit caps every decoded repeat count (descriptor tables,
// client lists, array dimensions) at n. Counts above the cap are either
// truncated with a warning or rejected, depending on the decoder.
func WithListLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.listLimit = n
		}
	}
}

// WithBruteForceTimeout bounds the exhaustive salt search during
// password recovery. Zero means no bound.
func WithBruteForceTimeout(d time.Duration) Option {
	return func(o *options) { o.bruteForceTimeout = d }
}
