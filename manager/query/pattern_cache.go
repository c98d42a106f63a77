package query

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dot5enko/simple-object-db/ops"
)

const patternCacheSize = 1024

type patternKey struct {
	pattern       string
	caseSensitive bool
}

// compiled wildcards are immutable and shared between plans
var patternCache *lru.Cache[patternKey, *ops.Wildcard]

func init() {
	cache, err := lru.New[patternKey, *ops.Wildcard](patternCacheSize)
	if err != nil {
		panic(err)
	}
	patternCache = cache
}

func compilePattern(pattern string, caseSensitive bool) (*ops.Wildcard, error) {
	key := patternKey{pattern: pattern, caseSensitive: caseSensitive}

	if w, ok := patternCache.Get(key); ok {
		return w, nil
	}

	w, err := ops.CompileWildcard(pattern, caseSensitive)
	if err != nil {
		return nil, err
	}

	patternCache.Add(key, w)
	return w, nil
}
