package kernel

import "encoding/hex"

// nextID draws 16 bytes from the run's RNG and hex-encodes them, producing
// the "deterministic opaque identifier derived from the run's RNG" spec §3
// requires for event_id/correlation_id. Using rand.Rand.Read keeps this a
// single explicit draw against the run's owned source, never the package
// global (spec §9 "per-run RNG ownership").
func (r *Run) nextID() string {
	buf := make([]byte, 16)
	_, _ = r.rng.Read(buf)
	return hex.EncodeToString(buf)
}
