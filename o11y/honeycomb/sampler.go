package honeycomb

import (
	"fmt"
	"hash/crc32"
	"math"

	dynsampler "github.com/honeycombio/dynsampler-go"
)

// TraceSampler keeps or drops whole traces based on a rate looked up by key.
type TraceSampler struct {
	// KeyFunc maps the event's fields to the key used to look up the sample rate
	KeyFunc func(map[string]interface{}) string

	Sampler dynsampler.Sampler
}

// Hook implements beeline.Config.SamplerHook
func (s *TraceSampler) Hook(fields map[string]interface{}) (sample bool, rate int) {
	if keep, ok := fields["meta.keep.span"].(bool); ok && keep {
		return true, 1
	}

	rate = s.Sampler.GetSampleRate(s.KeyFunc(fields))
	if shouldSample(fmt.Sprintf("%v", fields["trace.trace_id"]), rate) {
		return true, rate
	}
	return false, 0
}

// shouldSample decides deterministically from the trace id, so every span of a
// trace gets the same answer.
func shouldSample(determinant string, rate int) bool {
	if rate <= 1 {
		return true
	}
	threshold := math.MaxUint32 / uint32(rate) //nolint:gosec
	return crc32.ChecksumIEEE([]byte(determinant)) < threshold
}
