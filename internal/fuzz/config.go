// Package fuzz implements the three blueprint-level fuzzers (spec §4.6):
// input (message payload mutation), state (initial-state row perturbation),
// and scenario (combining multiple scenarios into one). Each fuzzer type
// owns a private *rand.Rand seeded deterministically from the driving run's
// seed — never math/rand's global source (spec §9 "per-run RNG ownership").
package fuzz

// Config is the shared FuzzingConfig every fuzzer type reads (spec §4.6):
// per-field/per-row mutation probabilities. The seed each fuzzer derives its
// own private RNG from is passed to the fuzzer's constructor separately.
type Config struct {
	Boundary      float64
	TypeConfusion float64
	Null          float64
	Extreme       float64
	SmallPerturb  float64
}

// DefaultConfig spreads the five mutation kinds evenly, matching spec §4.6's
// "per field, with 50% probability it applies one of" framing: half the
// fields are left alone, the other half split across the five kinds.
func DefaultConfig() Config {
	return Config{
		Boundary:      0.1,
		TypeConfusion: 0.1,
		Null:          0.1,
		Extreme:       0.1,
		SmallPerturb:  0.1,
	}
}
