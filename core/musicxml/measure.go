package musicxml

import (
	"github.com/antchfx/xmlquery"

	"github.com/CallumVress/ScoreWeave/core/score"
)

// translateMeasure walks one measure element in document order, keeping a
// cursor of the current offset in quarter lengths. The returned measure is
// never nil so wrapping errors can name it.
func translateMeasure(mn *xmlquery.Node, ps *partState) (*score.Measure, error) {
	m := score.NewMeasure(attr(mn, "number"))
	m.Implicit = attr(mn, "implicit") == "yes"

	// An ending bracket left open by an earlier measure extends over this
	// one until its stop arrives.
	if ps.openEnding != nil {
		ps.openEnding.MeasureNumbers = append(ps.openEnding.MeasureNumbers, m.Number)
	}

	var cursor float64
	for _, c := range elements(mn) {
		switch c.Data {
		case "note":
			if err := handleNote(c, ps, m, &cursor); err != nil {
				return m, err
			}
		case "backup":
			flushChord(ps, m)
			cursor -= childFloat(c, "duration", 0) / ps.divisions
			if cursor < 0 {
				cursor = 0
			}
		case "forward":
			flushChord(ps, m)
			cursor += childFloat(c, "duration", 0) / ps.divisions
		case "attributes":
			flushChord(ps, m)
			if err := handleAttributes(c, ps, m, cursor); err != nil {
				return m, err
			}
		case "barline":
			flushChord(ps, m)
			handleBarline(c, ps, m, cursor)
		case "direction":
			flushChord(ps, m)
			handleDirection(c, ps, m, cursor)
		case "harmony":
			flushChord(ps, m)
			handleHarmony(c, ps, m, cursor)
		}
	}
	flushChord(ps, m)
	return m, nil
}

// insertAt places an element in the measure, routing it into a voice
// sub-container when the source tagged one.
func insertAt(m *score.Measure, offset float64, voice int, e *score.Element) {
	e.VoiceNumber = voice
	if voice > 0 {
		m.VoiceFor(voice).Insert(offset, e)
		return
	}
	m.Insert(offset, e)
}
