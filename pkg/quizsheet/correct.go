package quizsheet

import (
	"sort"
	"strings"
)

// splitPrefixMin is the shortest normalized prefix accepted as evidence of
// an answer split across two cells.
const splitPrefixMin = 3

// Thresholds holds the similarity cutoffs and search window of the
// correction engine. They are tuned per deployment for a given sheet
// layout, not fixed algorithmic constants.
type Thresholds struct {
	// DirectMatch is the score at or above which an extracted answer is
	// replaced with the expected text outright.
	DirectMatch float64
	// AmbiguousLow is the score below which the engine searches nearby
	// questions for a misplaced answer. Scores between AmbiguousLow and
	// DirectMatch are left alone.
	AmbiguousLow float64
	// MergeRemainder is the score a merged cell's remainder must exceed
	// against a later expected answer to confirm a merge.
	MergeRemainder float64
	// Shift is the score that confirms each step of the shift cascade.
	Shift float64
	// MisplacedWindow is how many questions either side of a bad match
	// are searched for its real owner.
	MisplacedWindow int
}

// DefaultThresholds returns the tuning used for the standard 50-question
// sheet layout.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DirectMatch:     0.85,
		AmbiguousLow:    0.5,
		MergeRemainder:  0.8,
		Shift:           0.7,
		MisplacedWindow: 3,
	}
}

// CorrectionStats counts what the correction engine did to one page's
// answers, so silent repairs stay observable.
type CorrectionStats struct {
	Direct    int // answers replaced with the expected text as spelling variants
	Merges    int // cells detected to hold two concatenated answers
	Splits    int // answers detected split across two cells
	Shifted   int // assignments moved by the shift cascade
	Removed   int // stale trailing slots dropped after a shift
	Misplaced int // probable misplacements detected but not resolved
}

// Correct repairs an extracted answer map against the answer key using
// three ordered passes: merge detection, direct fuzzy correction, and
// split detection with a cascading shift of subsequent assignments.
//
// Without a key the engine is a no-op. It never fails; whatever cannot be
// confidently repaired keeps its originally extracted text.
func Correct(answers AnswerMap, key AnswerKey, th Thresholds) (AnswerMap, CorrectionStats) {
	if len(key) == 0 {
		return answers, CorrectionStats{}
	}
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}

	c := &corrector{
		answers:  make(AnswerMap, len(answers)),
		key:      key,
		th:       th,
		assigned: make(map[int]bool),
		pending:  make(map[int]string),
	}
	for id, text := range answers {
		c.answers[id] = text
	}
	c.keyQuestions = sortedQuestions(key)

	c.mergePass()
	c.directPass()
	c.shiftPass()

	return c.answers, c.stats
}

// corrector is the working state of one correction call: a private copy
// of the answers, the set of expected answers already handed out, and the
// second halves of merged cells awaiting placement.
type corrector struct {
	answers      AnswerMap
	key          AnswerKey
	keyQuestions []int
	th           Thresholds
	assigned     map[int]bool
	pending      map[int]string
	stats        CorrectionStats
}

func (c *corrector) expected(n int) (string, bool) {
	exp, ok := c.key[QuestionID(n)]
	return exp, ok
}

// mergePass detects cells whose text is the concatenation of two
// consecutive expected answers. The cell is rewritten to the first half;
// the second half is recorded for the shift pass to place.
func (c *corrector) mergePass() {
	for _, q := range sortedQuestions(c.answers) {
		t := Normalize(c.answers[QuestionID(q)])
		if t == "" {
			continue
		}
		if c.detectMerge(q, t) {
			c.stats.Merges++
		}
	}
}

// detectMerge tries to split the normalized cell text t into an unassigned
// expected answer plus a remainder owned by a later unassigned question.
func (c *corrector) detectMerge(q int, t string) bool {
	for _, i := range c.keyQuestions {
		if c.assigned[i] {
			continue
		}
		expI, _ := c.expected(i)
		for _, alt := range alternatives(expI) {
			e := Normalize(alt)
			if e == "" || len(t) <= len(e) || !strings.HasPrefix(t, e) {
				continue
			}
			remainder := t[len(e):]
			for _, j := range c.keyQuestions {
				if j <= i || c.assigned[j] {
					continue
				}
				if _, taken := c.pending[j]; taken {
					continue
				}
				expJ, _ := c.expected(j)
				if !c.remainderMatches(remainder, expJ) {
					continue
				}
				c.answers[QuestionID(q)] = alt
				c.assigned[i] = true
				c.pending[j] = bestAlternative(remainder, expJ)
				return true
			}
		}
	}
	return false
}

// remainderMatches accepts the remainder when it equals an alternative of
// the expected answer exactly, or scores above the merge threshold.
func (c *corrector) remainderMatches(remainder, expected string) bool {
	for _, alt := range alternatives(expected) {
		if e := Normalize(alt); e != "" && e == remainder {
			return true
		}
	}
	return Similarity(remainder, expected) > c.th.MergeRemainder
}

// directPass replaces confident spelling variants with the expected text
// and flags answers that look like they belong to a nearby question.
// Scores in the ambiguous middle band are left untouched.
func (c *corrector) directPass() {
	for _, q := range sortedQuestions(c.answers) {
		exp, ok := c.expected(q)
		if !ok {
			continue
		}
		cur := c.answers[QuestionID(q)]
		if cur == "" {
			continue
		}

		score := Similarity(cur, exp)
		switch {
		case score >= c.th.DirectMatch:
			alt := bestAlternative(cur, exp)
			if cur != alt {
				c.stats.Direct++
			}
			c.answers[QuestionID(q)] = alt
			c.assigned[q] = true
		case score < c.th.AmbiguousLow:
			// The text matches its own question poorly; look for an
			// unassigned neighbor it fits. Detection only: reassignment
			// across positions is the shift pass's job.
			if c.findMisplaced(q, cur) {
				c.stats.Misplaced++
			}
		}
	}
}

func (c *corrector) findMisplaced(q int, text string) bool {
	for off := -c.th.MisplacedWindow; off <= c.th.MisplacedWindow; off++ {
		if off == 0 {
			continue
		}
		n := q + off
		if n < lowRangeStart || n > highRangeEnd || c.assigned[n] {
			continue
		}
		expN, ok := c.expected(n)
		if !ok {
			continue
		}
		if Similarity(text, expN) > c.th.DirectMatch {
			return true
		}
	}
	return false
}

// shiftPass places the second halves recorded by the merge pass, detects
// strict-prefix splits, and shifts subsequent assignments to compensate.
// Questions are scanned in ascending order; positions a cascade already
// consumed are not revisited.
func (c *corrector) shiftPass() {
	present := make(map[int]bool)
	for _, q := range sortedQuestions(c.answers) {
		present[q] = true
	}
	for j := range c.pending {
		present[j] = true
	}
	var qs []int
	for q := range present {
		qs = append(qs, q)
	}
	sort.Ints(qs)

	resumeAfter := 0
	for _, q := range qs {
		if q <= resumeAfter {
			continue
		}

		if half, ok := c.pending[q]; ok {
			resumeAfter = c.placePending(q, half)
			continue
		}

		if last, ok := c.detectSplit(q); ok {
			resumeAfter = last
		}
	}
}

// placePending writes the recovered second half of a merged cell into its
// slot. The content it displaces either belongs one question later (the
// following cells ran ahead) or the following cells lag behind; the
// direction is decided by which neighbor the displaced text matches.
func (c *corrector) placePending(q int, half string) int {
	displaced := c.answers[QuestionID(q)]
	c.answers[QuestionID(q)] = half
	c.assigned[q] = true

	if expNext, ok := c.expected(q + 1); ok && displaced != "" {
		if matched, _ := c.matchShift(displaced, expNext); matched {
			return c.pushForward(q+1, displaced)
		}
	}
	if last := c.cascade(q+1, false); last > q {
		return last
	}
	return q
}

// detectSplit checks whether the answer at q is a strict prefix of its
// expected text with the remainder sitting in the next cell. On success
// the full expected text is restored and the cascade pulls every
// subsequent assignment one question earlier. Returns the last consumed
// position.
func (c *corrector) detectSplit(q int) (int, bool) {
	exp, ok := c.expected(q)
	if !ok {
		return 0, false
	}
	cur := Normalize(c.answers[QuestionID(q)])
	if len(cur) <= splitPrefixMin {
		return 0, false
	}

	for _, alt := range alternatives(exp) {
		e := Normalize(alt)
		if len(cur) >= len(e) || !strings.HasPrefix(e, cur) {
			continue
		}
		remainder := e[len(cur):]
		next := Normalize(c.answers[QuestionID(q+1)])
		if next == "" || (next != remainder && !strings.HasPrefix(next, remainder)) {
			continue
		}

		c.answers[QuestionID(q)] = alt
		c.assigned[q] = true
		c.stats.Splits++

		last := c.cascade(q+1, true)
		if last < q+1 {
			// Skip the cell whose content was folded into q.
			last = q + 1
		}
		return last, true
	}
	return 0, false
}

// cascade reassigns question k to its own expected text for as long as
// the next slot's content keeps confirming it, halting at the first index
// where neither condition holds. consumedFirst marks that the starting
// slot's content was already folded into the previous question.
//
// When the cascade halts right after consuming a slot's content, that
// slot is removed: its content now lives one question earlier and the
// slot would otherwise keep a stale duplicate.
func (c *corrector) cascade(start int, consumedFirst bool) int {
	k := start
	consumed := consumedFirst
	last := start - 1

	for {
		exp, ok := c.expected(k)
		if !ok {
			c.dropConsumed(k, consumed)
			break
		}
		next, hasNext := c.answers[QuestionID(k+1)]
		if !hasNext {
			c.dropConsumed(k, consumed)
			break
		}
		matched, remainder := c.matchShift(next, exp)
		if !matched {
			c.dropConsumed(k, consumed)
			break
		}

		c.answers[QuestionID(k)] = bestAlternative(next, exp)
		c.assigned[k] = true
		c.stats.Shifted++
		last = k
		consumed = true

		// The next slot's text ran past the matched alternative; see if
		// the remainder already satisfies the question after it.
		if remainder != "" {
			if expNext, ok := c.expected(k + 1); ok && Similarity(remainder, expNext) > c.th.Shift {
				c.answers[QuestionID(k+1)] = bestAlternative(remainder, expNext)
				c.assigned[k+1] = true
				c.stats.Shifted++
				last = k + 1
				k += 2
				consumed = false
				continue
			}
		}
		k++
	}
	return last
}

// pushForward moves displaced content one question later for as long as
// it keeps matching the expected answer of its new slot.
func (c *corrector) pushForward(start int, displaced string) int {
	k := start
	last := start - 1
	for displaced != "" {
		exp, ok := c.expected(k)
		if !ok {
			break
		}
		matched, _ := c.matchShift(displaced, exp)
		if !matched {
			break
		}
		next := c.answers[QuestionID(k)]
		c.answers[QuestionID(k)] = bestAlternative(displaced, exp)
		c.assigned[k] = true
		c.stats.Shifted++
		last = k
		displaced = next
		k++
	}
	return last
}

// dropConsumed removes the slot at k when its content was consumed by the
// previous cascade step.
func (c *corrector) dropConsumed(k int, consumed bool) {
	if !consumed {
		return
	}
	if _, ok := c.answers[QuestionID(k)]; ok {
		delete(c.answers, QuestionID(k))
		c.stats.Removed++
	}
}

// matchShift reports whether extracted text confirms an expected answer
// for the cascade: either it starts with one of the expected
// alternatives (returning what trails it) or it scores above the shift
// threshold.
func (c *corrector) matchShift(text, expected string) (bool, string) {
	t := Normalize(text)
	if t == "" {
		return false, ""
	}
	for _, alt := range alternatives(expected) {
		if e := Normalize(alt); e != "" && strings.HasPrefix(t, e) {
			return true, t[len(e):]
		}
	}
	if Similarity(text, expected) > c.th.Shift {
		return true, ""
	}
	return false, ""
}
