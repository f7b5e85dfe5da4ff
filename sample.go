package adcbridge

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultPattern matches the line format printed by the ADC demo firmware,
// e.g. "AD Value: 512". The match is not anchored, so the value may appear
// anywhere in a chunk.
const DefaultPattern = `AD Value: (\d+)`

// Sample is one non-negative integer reading extracted from device output.
type Sample int64

// String returns the decimal representation of the sample. This is also the
// exact text sent to the subscriber.
func (s Sample) String() string {
	return strconv.FormatInt(int64(s), 10)
}

// Extractor pulls a [Sample] out of one trimmed chunk of device text.
//
// Extractor reports false when the chunk carries no sample: a line in another
// format, a partial line, noise, or digits that do not fit in an int64. A
// false result is not an error and the chunk is silently discarded.
//
// Extractors are called from the serial read goroutine, one chunk at a time,
// and must not block.
type Extractor func(text string) (Sample, bool)

// PatternExtractor returns an [Extractor] that matches pattern against the
// chunk and parses the first capture group as a base-10 integer.
//
// The pattern must compile and contain exactly one capture group. Only the
// first match in a chunk is used. Captured text that is not a non-negative
// integer (or overflows int64) yields no sample.
//
// Example:
//
//	// firmware that prints "ch0=1234"
//	extractor, err := adcbridge.PatternExtractor(`ch0=(\d+)`)
func PatternExtractor(pattern string) (Extractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("pattern must have exactly one capture group, got %d", re.NumSubexp())
	}

	return func(text string) (Sample, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return 0, false
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		return Sample(v), true
	}, nil
}

// MustPatternExtractor is like [PatternExtractor] but panics if the pattern
// is invalid.
//
// Use this for compile-time constant patterns where you want to fail fast.
func MustPatternExtractor(pattern string) Extractor {
	extractor, err := PatternExtractor(pattern)
	if err != nil {
		panic("adcbridge: " + err.Error())
	}
	return extractor
}

// DefaultExtractor is the [Extractor] used when none is configured.
// It matches [DefaultPattern].
var DefaultExtractor = MustPatternExtractor(DefaultPattern)
