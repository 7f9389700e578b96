package exprlang

import lru "github.com/hashicorp/golang-lru/v2"

// parseCacheSize bounds the number of distinct expression sources kept
// pre-parsed. Blueprints reuse the same handful of expressions across every
// simulated event, so a modest bound amortizes parsing cost across an entire
// chaos run without growing unbounded across many blueprints.
const parseCacheSize = 4096

var parseCache *lru.Cache[string, *node]

func init() {
	c, err := lru.New[string, *node](parseCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which parseCacheSize
		// never is.
		panic(err)
	}
	parseCache = c
}

// parseCached parses src, reusing a cached tree when src has been seen
// before. Parsed trees are immutable, so sharing them across concurrent
// fuzzer goroutines is safe.
func parseCached(src string) (*node, error) {
	if n, ok := parseCache.Get(src); ok {
		return n, nil
	}
	n, err := parse(src)
	if err != nil {
		return nil, err
	}
	parseCache.Add(src, n)
	return n, nil
}
