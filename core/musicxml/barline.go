package musicxml

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/CallumVress/ScoreWeave/core/score"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// handleBarline reads a barline element: style and repeat sign become a
// barline event, ending brackets become measure-scoped spanners.
func handleBarline(n *xmlquery.Node, ps *partState, m *score.Measure, offset float64) {
	b := &score.Barline{
		Location: attr(n, "location"),
		Style:    score.BarStyle(childText(n, "bar-style")),
	}
	if rep := child(n, "repeat"); rep != nil {
		b.Repeat = score.RepeatDirection(attr(rep, "direction"))
		b.RepeatTimes = attrInt(rep, "times", 0)
	}
	if b.Style != "" || b.Repeat != "" {
		m.Insert(offset, score.NewBarlineElement(b))
	}
	if end := child(n, "ending"); end != nil {
		handleEnding(end, ps, m)
	}
}

// handleEnding maintains the open repeat bracket. Brackets span measures,
// not events: each covered measure's number is recorded in order. A stop
// with no open bracket implicitly opens one scoped to this measure.
func handleEnding(n *xmlquery.Node, ps *partState, m *score.Measure) {
	switch attr(n, "type") {
	case "start":
		if ps.openEnding != nil {
			logging.RecoveredInput("ending started inside an open ending", "closing the earlier bracket", "measure", m.Number)
			finishEnding(ps, m)
		}
		sp := score.NewSpanner(score.SpannerEnding, 0)
		sp.EndingNumbers, sp.EndingLabel = parseEndingNumbers(attr(n, "number"))
		sp.MeasureNumbers = []string{m.Number}
		ps.openEnding = sp

	case "stop", "discontinue":
		if ps.openEnding == nil {
			logging.RecoveredInput("ending stop with no open bracket", "bracket scoped to this measure", "measure", m.Number)
			sp := score.NewSpanner(score.SpannerEnding, 0)
			sp.EndingNumbers, sp.EndingLabel = parseEndingNumbers(attr(n, "number"))
			sp.MeasureNumbers = []string{m.Number}
			ps.openEnding = sp
		}
		finishEnding(ps, m)
	}
}

func finishEnding(ps *partState, m *score.Measure) {
	sp := ps.openEnding
	ps.openEnding = nil
	if len(sp.MeasureNumbers) == 0 || sp.MeasureNumbers[len(sp.MeasureNumbers)-1] != m.Number {
		sp.MeasureNumbers = append(sp.MeasureNumbers, m.Number)
	}
	sp.Complete = true
	ps.completed = append(ps.completed, sp)
}

// parseEndingNumbers reads an ending's number attribute. "1,2" yields the
// pass set {1,2}; a non-numeric value defaults to pass 1 with the raw
// text kept as the printed label.
func parseEndingNumbers(s string) ([]int, string) {
	var nums []int
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return []int{1}, s
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return []int{1}, s
	}
	return nums, ""
}
