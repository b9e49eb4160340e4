package match

import (
	"math"
	"sort"
	"strings"
)

// Ratio returns the indel similarity of a and b in [0,100]:
// 100 * 2*LCS / (len(a)+len(b)), rounded half to even.
func Ratio(a, b string) float64 {
	return round(rawRatio([]rune(a), []rune(b)))
}

// TokenSortRatio compares a and b after lower-casing, replacing
// punctuation with spaces and sorting the words, so word order does not matter.
func TokenSortRatio(a, b string) float64 {
	sa, sb := sortedTokens(a), sortedTokens(b)
	if sa == "" || sb == "" {
		return 0
	}
	return Ratio(sa, sb)
}

// PartialRatio returns the best Ratio of the shorter string against any
// equally long window of the longer one.
func PartialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	best := bestWindow(ra, rb)
	if len(ra) == len(rb) && best < 100 {
		best = math.Max(best, bestWindow(rb, ra))
	}
	return round(best)
}

// bestWindow slides short across long, including the partial windows
// hanging off either end, and returns the highest raw ratio.
func bestWindow(short, long []rune) float64 {
	m, n := len(short), len(long)
	best := 0.0
	for start := -(m - 1); start < n; start++ {
		lo := max(start, 0)
		hi := min(start+m, n)
		if hi <= lo {
			continue
		}
		r := rawRatio(short, long[lo:hi])
		if r > best {
			best = r
			if best >= 100 {
				break
			}
		}
	}
	return best
}

func rawRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcsLength(a, b)) / float64(total)
}

// lcsLength returns the length of the longest common subsequence using two rows.
func lcsLength(a, b []rune) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(a) == 0 {
		return 0
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for j := 1; j <= len(b); j++ {
		for i := 1; i <= len(a); i++ {
			if a[i-1] == b[j-1] {
				curr[i] = prev[i-1] + 1
			} else {
				curr[i] = max(prev[i], curr[i-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}

// processString drops every non-ASCII rune, lower-cases the rest and turns
// anything that is not a letter or digit into a space. Accented letters are
// dropped rather than folded, so "Kümmerling" compares as "kmmerling".
func processString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r < 0x80:
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

func sortedTokens(s string) string {
	tokens := strings.Fields(processString(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func round(x float64) float64 {
	return math.RoundToEven(x)
}
