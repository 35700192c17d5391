package musicxml

import (
	"strconv"

	"github.com/antchfx/xmlquery"

	"github.com/CallumVress/ScoreWeave/core/score"
)

// handleDirection reads a direction element: dynamics, tempo marks, text,
// navigation symbols, and the direction-attached spanners (wedges, dashes,
// brackets, octave shifts). The optional offset child shifts the insertion
// point relative to the cursor, in ticks.
func handleDirection(n *xmlquery.Node, ps *partState, m *score.Measure, cursor float64) {
	placement := attr(n, "placement")
	staffN := childInt(n, "staff", 0)
	if staffN > ps.maxStaffSeen {
		ps.maxStaffSeen = staffN
	}
	off := cursor
	if ps.divisions > 0 {
		off += childFloat(n, "offset", 0) / ps.divisions
	}
	if off < 0 {
		off = 0
	}

	insert := func(e *score.Element) {
		e.Staff = staffN
		m.Insert(off, e)
	}

	sawMetronome := false
	for _, dt := range elements(n) {
		if dt.Data != "direction-type" {
			continue
		}
		for _, c := range elements(dt) {
			switch c.Data {
			case "dynamics":
				if marks := elements(c); len(marks) > 0 {
					insert(score.NewDynamicElement(&score.Dynamic{Value: marks[0].Data}))
				}
			case "words":
				if t := text(c); t != "" {
					insert(score.NewTextElement(&score.TextExpression{Text: t}))
				}
			case "metronome":
				bpm, err := strconv.ParseFloat(childText(c, "per-minute"), 64)
				if err != nil {
					bpm = 0
				}
				insert(score.NewTempoElement(&score.TempoMark{
					BPM:      bpm,
					BeatUnit: childText(c, "beat-unit"),
				}))
				sawMetronome = true
			case "segno", "coda":
				insert(score.NewSegnoCodaElement(&score.SegnoCoda{Kind: c.Data}))
			case "wedge":
				num := attrInt(c, "number", 1)
				switch attr(c, "type") {
				case "crescendo", "diminuendo":
					sp := score.NewSpanner(score.SpannerWedge, num)
					sp.WedgeType = attr(c, "type")
					sp.Placement = placement
					ps.openSpanner(sp)
					ps.pendingAssign = append(ps.pendingAssign, sp)
				case "stop":
					ps.closeSpanner(score.SpannerWedge, num, ps.lastNote)
				}
			case "octave-shift":
				num := attrInt(c, "number", 1)
				switch attr(c, "type") {
				case "up", "down":
					sp := score.NewSpanner(score.SpannerOttava, num)
					sp.OttavaSize = attrInt(c, "size", 8)
					sp.OttavaDirection = attr(c, "type")
					ps.openSpanner(sp)
					ps.pendingAssign = append(ps.pendingAssign, sp)
				case "stop":
					ps.closeSpanner(score.SpannerOttava, num, ps.lastNote)
				}
			case "dashes":
				num := attrInt(c, "number", 1)
				switch attr(c, "type") {
				case "start":
					sp := score.NewSpanner(score.SpannerDashes, num)
					sp.Placement = placement
					ps.openSpanner(sp)
					ps.pendingAssign = append(ps.pendingAssign, sp)
				case "stop":
					ps.closeSpanner(score.SpannerDashes, num, ps.lastNote)
				}
			case "bracket":
				num := attrInt(c, "number", 1)
				switch attr(c, "type") {
				case "start":
					sp := score.NewSpanner(score.SpannerBracket, num)
					sp.Placement = placement
					ps.openSpanner(sp)
					ps.pendingAssign = append(ps.pendingAssign, sp)
				case "stop":
					ps.closeSpanner(score.SpannerBracket, num, ps.lastNote)
				}
			}
		}
	}

	// A sound tempo without a printed metronome mark still carries the
	// performance tempo.
	if snd := child(n, "sound"); snd != nil && !sawMetronome {
		if t := attr(snd, "tempo"); t != "" {
			if bpm, err := strconv.ParseFloat(t, 64); err == nil && bpm > 0 {
				insert(score.NewTempoElement(&score.TempoMark{BPM: bpm}))
			}
		}
	}
}
