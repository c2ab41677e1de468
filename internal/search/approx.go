package search

import "sync"

// distanceBuffers holds the two DP rows reused across matches.
type distanceBuffers struct {
	prev []int
	curr []int
}

var distancePool = sync.Pool{
	New: func() any { return &distanceBuffers{} },
}

// substringDistance returns the smallest edit distance between pattern and
// any substring of text (Sellers' algorithm). The match may start and end
// anywhere in text, so position carries no cost. It stops early and returns
// limit+1 once every cell of a row exceeds limit.
func substringDistance(pattern, text []rune, limit int) int {
	m := len(pattern)
	if m == 0 {
		return 0
	}
	if len(text) == 0 {
		return m
	}

	buf := distancePool.Get().(*distanceBuffers)
	defer distancePool.Put(buf)
	prev := grow(buf.prev, len(text)+1)
	curr := grow(buf.curr, len(text)+1)

	// Row 0 is all zeros: an empty prefix of pattern matches anywhere.
	for j := range prev {
		prev[j] = 0
	}
	for i := 1; i <= m; i++ {
		curr[0] = i
		rowMin := curr[0]
		pr := pattern[i-1]
		for j := 1; j <= len(text); j++ {
			cost := 1
			if text[j-1] == pr {
				cost = 0
			}
			best := prev[j-1] + cost
			if v := prev[j] + 1; v < best {
				best = v
			}
			if v := curr[j-1] + 1; v < best {
				best = v
			}
			curr[j] = best
			if best < rowMin {
				rowMin = best
			}
		}
		if rowMin > limit {
			buf.prev, buf.curr = prev, curr
			return limit + 1
		}
		prev, curr = curr, prev
	}

	best := prev[0]
	for _, v := range prev[1:] {
		if v < best {
			best = v
		}
	}
	buf.prev, buf.curr = prev, curr
	return best
}

func grow(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}
