package coverage

import "math"

// Score is the computed reliability figure (spec §4.7): a [0,100] score, its
// 95% Wilson confidence interval over unique/observations, and a Heaps'-law
// estimate of total reachable states (populated only once observations hits
// the 100-sample floor the law requires for a sane estimate).
type Score struct {
	Reliability   float64
	WilsonLow     float64
	WilsonHigh    float64
	StateEstimate float64
	HasEstimate   bool
}

// Compute derives Score from the three raw counters, as pure arithmetic —
// this keeps the formula unit-testable without ever running a kernel.
func Compute(unique int, observations int64, simCount int) Score {
	var s Score
	if observations == 0 {
		return s
	}

	discoveryRate := float64(unique) / float64(observations)
	reliability := discoveryRate * 100
	reliability += math.Min(math.Log10(float64(unique)+1)*10, 30)
	reliability += math.Min(math.Log10(float64(simCount)+1)*5, 15)
	if reliability > 100 {
		reliability = 100
	}
	s.Reliability = reliability

	s.WilsonLow, s.WilsonHigh = wilsonInterval(unique, observations)

	if observations >= 100 {
		s.StateEstimate = heapsEstimate(unique, observations)
		s.HasEstimate = true
	}
	return s
}

// wilsonInterval computes the 95% Wilson score interval for the proportion
// successes/total, using the standard z=1.96 critical value.
func wilsonInterval(successes int, total int64) (low, high float64) {
	if total == 0 {
		return 0, 0
	}
	const z = 1.96
	n := float64(total)
	p := float64(successes) / n
	z2 := z * z

	denom := 1 + z2/n
	center := p + z2/(2*n)
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n))

	low = (center - margin) / denom
	high = (center + margin) / denom
	if low < 0 {
		low = 0
	}
	if high > 1 {
		high = 1
	}
	return low, high
}

// heapsEstimate applies Heaps' Law (vocabulary size ~ K * N^beta) with
// beta=0.5 to estimate total reachable states from the observed
// unique-states/observations curve, per spec §4.7.
func heapsEstimate(unique int, observations int64) float64 {
	if unique == 0 || observations == 0 {
		return 0
	}
	k := float64(unique) / math.Pow(float64(observations), 0.5)
	// Heaps' estimate of the curve's asymptote is read at a substantially
	// larger corpus size than what's been observed so far; 10x the current
	// observation count is a conventional extrapolation horizon.
	return k * math.Pow(float64(observations)*10, 0.5)
}
