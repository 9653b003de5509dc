package quizsheet

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/quizscan/quizscan/pkg/blockgraph"
)

// DefaultMaxQuestion caps how high a question number extraction accepts
// when the caller does not say otherwise.
const DefaultMaxQuestion = 100

// The printed sheet lays 50 questions out as two column groups of 25.
const (
	lowRangeStart  = 1
	lowRangeEnd    = 25
	highRangeStart = 26
	highRangeEnd   = 50
)

// answerSheetColumns is the cell count of a well-formed row: two
// (number, question, answer) groups side by side.
const answerSheetColumns = 6

// leadingNumber matches a question number that leaked into the start of
// the question-text cell.
var leadingNumber = regexp.MustCompile(`^(\d+)\s+`)

// ExtractOptions parameterizes a single extraction call.
type ExtractOptions struct {
	// MaxQuestion is the highest question number to accept.
	// Zero or negative means DefaultMaxQuestion.
	MaxQuestion int
}

// ExtractStats reports what the table pass saw, for operator review.
type ExtractStats struct {
	Tables      int // TABLE blocks visited
	RowsParsed  int // well-formed six-cell data rows
	RowsSkipped int // malformed or header rows
}

// ExtractAnswers locates every table in the block graph and recovers the
// question-to-answer mapping from its rows.
//
// Rows without exactly six cells are skipped, as are header rows (an
// answer-column cell containing the word "ANSWER"). Within each column
// group the question number is taken from the printed number cell when it
// parses in range and is still free, then from leading digits of the
// question text, and finally from a running sequential counter. The first
// answer recorded for an identifier wins; later rows never overwrite it.
//
// The returned map may be sparse. An empty map means the page carried no
// recognizable table structure and the caller should try the key/value
// fallback path.
func ExtractAnswers(g *blockgraph.Graph, opts ExtractOptions) (AnswerMap, ExtractStats) {
	maxQ := opts.MaxQuestion
	if maxQ <= 0 {
		maxQ = DefaultMaxQuestion
	}

	answers := make(AnswerMap)
	var stats ExtractStats

	for _, table := range g.OfType(blockgraph.BlockTable) {
		stats.Tables++

		// Sequential fallback counters, one per column group.
		low := counter{next: lowRangeStart, lo: lowRangeStart, hi: lowRangeEnd}
		high := counter{next: highRangeStart, lo: highRangeStart, hi: highRangeEnd}

		for _, row := range tableRows(g, table) {
			if len(row) != answerSheetColumns {
				stats.RowsSkipped++
				continue
			}
			if isHeaderRow(g, row) {
				stats.RowsSkipped++
				continue
			}
			stats.RowsParsed++
			parseGroup(g, row[0:3], &low, maxQ, answers)
			parseGroup(g, row[3:6], &high, maxQ, answers)
		}
	}

	return answers, stats
}

// counter tracks the next expected question number for one column group.
type counter struct {
	next   int
	lo, hi int
}

// tableRows collects the CELL children of a table, grouped by row index
// ascending, each row sorted by column index.
func tableRows(g *blockgraph.Graph, table *blockgraph.Block) [][]*blockgraph.Block {
	byRow := make(map[int][]*blockgraph.Block)
	for _, child := range g.Children(table) {
		if child.Type != blockgraph.BlockCell {
			continue
		}
		byRow[child.RowIndex] = append(byRow[child.RowIndex], child)
	}

	indices := make([]int, 0, len(byRow))
	for idx := range byRow {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	rows := make([][]*blockgraph.Block, 0, len(indices))
	for _, idx := range indices {
		cells := byRow[idx]
		sort.Slice(cells, func(i, j int) bool {
			return cells[i].ColumnIndex < cells[j].ColumnIndex
		})
		rows = append(rows, cells)
	}
	return rows
}

// isHeaderRow reports whether either answer-column cell carries the
// printed column heading instead of data.
func isHeaderRow(g *blockgraph.Graph, row []*blockgraph.Block) bool {
	for _, i := range []int{2, 5} {
		if strings.Contains(strings.ToUpper(g.ResolveText(row[i])), "ANSWER") {
			return true
		}
	}
	return false
}

// parseGroup extracts one (number, question, answer) triple from a row's
// column group and records it if a question number can be resolved.
func parseGroup(g *blockgraph.Graph, cells []*blockgraph.Block, c *counter, maxQ int, answers AnswerMap) {
	numText := strings.TrimSpace(g.ResolveText(cells[0]))
	questionText := strings.TrimSpace(g.ResolveText(cells[1]))
	answerText := strings.TrimSpace(g.ResolveText(cells[2]))

	n := 0

	// The printed number cell, when it parses in range and the slot is
	// still free. An already-assigned number is OCR noise; fall through.
	if v, err := strconv.Atoi(numText); err == nil && v >= c.lo && v <= c.hi {
		if _, taken := answers[QuestionID(v)]; !taken {
			n = v
		}
	}

	// A number that leaked into the question-text cell.
	if n == 0 {
		if m := leadingNumber.FindStringSubmatch(questionText); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil && v >= c.lo && v <= c.hi {
				if _, taken := answers[QuestionID(v)]; !taken {
					n = v
				}
			}
		}
	}

	// Sequential inference. The counter always advances past numbers that
	// were already assigned, but a row with no answer text consumes no slot.
	if n == 0 {
		for c.next <= c.hi {
			if _, taken := answers[QuestionID(c.next)]; !taken {
				break
			}
			c.next++
		}
		if answerText != "" && c.next <= c.hi {
			n = c.next
		}
	}

	if n == 0 {
		return
	}

	if n <= maxQ && answerText != "" {
		if _, taken := answers[QuestionID(n)]; !taken {
			answers[QuestionID(n)] = answerText
			c.next = n + 1
			return
		}
	}
	if answerText != "" {
		// The answer could not be placed; treat its slot as consumed.
		c.next++
	}
}
