package quizsheet

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldMarks decomposes characters and strips combining marks, so accented
// handwriting recognized as "é" or "ö" compares equal to its base letter.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize reduces text to its comparable form: marks folded, uppercased,
// and every character that is not an uppercase letter or digit removed.
// The function is idempotent.
func Normalize(s string) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToUpper(folded) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// alternatives splits an expected answer into its acceptable literal
// alternatives.
func alternatives(expected string) []string {
	return strings.Split(expected, "/")
}

// Similarity scores how close a candidate is to an expected answer, in
// [0, 1]. The expected side may carry "/"-delimited alternatives; each is
// normalized independently and the best-matching one decides the score.
// The score is 1 when any alternative normalizes identically to the
// candidate, and 0 when either normalized string is empty.
//
// The function is deliberately asymmetric: alternatives are only expanded
// on the expected side, so callers must pass the reference answer as
// expected.
func Similarity(candidate, expected string) float64 {
	c := Normalize(candidate)
	best := 0.0
	for _, alt := range alternatives(expected) {
		e := Normalize(alt)
		if c == "" || e == "" {
			continue
		}
		if c == e {
			return 1.0
		}
		longest := len(c)
		if len(e) > longest {
			longest = len(e)
		}
		if score := 1.0 - float64(levenshtein(c, e))/float64(longest); score > best {
			best = score
		}
	}
	return best
}

// bestAlternative returns the alternative of expected that scores highest
// against the candidate, falling back to the first alternative.
func bestAlternative(candidate, expected string) string {
	alts := alternatives(expected)
	best := alts[0]
	bestScore := -1.0
	for _, alt := range alts {
		if score := Similarity(candidate, alt); score > bestScore {
			bestScore = score
			best = alt
		}
	}
	return best
}

// levenshtein computes the edit distance between two normalized strings
// with the usual two-row dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
