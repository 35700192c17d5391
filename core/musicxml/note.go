package musicxml

import (
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/CallumVress/ScoreWeave/core/score"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// pendingNote is one parsed note buffered in the chord accumulator. Chord
// membership in the source is marked on the continuation notes, so a note
// cannot be materialized until its next sibling has been seen.
type pendingNote struct {
	pitch    score.Pitch
	duration score.Duration
	tie      score.TieType
	artics   []string
	lyric    string

	staff int
	voice int

	slurStarts []slurInfo
	slurStops  []int
	tieStarted bool
	tieStopped bool

	// tupletStops are the nesting levels whose spanners close on the
	// element this note materializes into.
	tupletStops []int
}

type slurInfo struct {
	number    int
	placement string
}

// handleNote parses one note element. Pitched notes go through the chord
// accumulator; rests materialize immediately. The cursor advances by the
// sounding duration of the event, once per chord.
func handleNote(n *xmlquery.Node, ps *partState, m *score.Measure, cursor *float64) error {
	isChordCont := child(n, "chord") != nil
	restNode := child(n, "rest")
	graceNode := child(n, "grace")

	if !isChordCont || restNode != nil {
		flushChord(ps, m)
	}

	pn := &pendingNote{
		voice: childInt(n, "voice", 0),
		staff: childInt(n, "staff", 0),
	}
	if pn.staff > ps.maxStaffSeen {
		ps.maxStaffSeen = pn.staff
	}

	typeName := childText(n, "type")
	dots := 0
	for _, c := range elements(n) {
		if c.Data == "dot" {
			dots++
		}
	}
	durTicks := childFloat(n, "duration", 0)

	// Tuplet brackets open before the duration snapshot is taken: the
	// start note already sounds inside the tuplet.
	readTuplets(n, ps, pn)

	if graceNode != nil {
		pn.duration = score.DurationFromType(typeName, dots)
		pn.duration.Grace = true
	} else {
		if ps.divisions <= 0 {
			return fmt.Errorf("note carries ticks but divisions is unset")
		}
		pn.duration = score.Duration{
			QuarterLength: durTicks / ps.divisions,
			Type:          typeName,
			Dots:          dots,
			Tuplets:       ps.tupletStack(),
		}
	}

	// Stops close after the snapshot: the closing note is still inside.
	for _, lvl := range pn.tupletStops {
		delete(ps.tuplets, lvl)
	}

	readTies(n, pn)
	readNotations(n, pn)
	pn.lyric = readLyric(n)

	if restNode != nil {
		return handleRest(restNode, pn, ps, m, cursor, graceNode != nil)
	}

	pitchNode := child(n, "pitch")
	if pitchNode == nil {
		pitchNode = child(n, "unpitched")
	}
	if pitchNode == nil {
		return fmt.Errorf("note has neither pitch nor rest")
	}
	pn.pitch = readPitch(pitchNode)

	if isChordCont && len(ps.chord) > 0 {
		ps.chord = append(ps.chord, pn)
		return nil
	}
	if isChordCont {
		logging.RecoveredInput("chord continuation with no preceding note", "treated as chord start")
	}
	ps.chord = []*pendingNote{pn}
	ps.chordOffset = *cursor
	if graceNode == nil {
		*cursor += pn.duration.QuarterLength
	}
	return nil
}

// handleRest materializes a rest immediately. A whole-measure rest with no
// tick count takes the current time signature's bar duration.
func handleRest(restNode *xmlquery.Node, pn *pendingNote, ps *partState, m *score.Measure, cursor *float64, grace bool) error {
	whole := attr(restNode, "measure") == "yes"
	if whole && pn.duration.QuarterLength == 0 {
		if ts := ps.staff(pn.staff).time; ts != nil {
			pn.duration.QuarterLength = ts.BarDuration()
		}
	}
	e := score.NewRestElement(&score.Rest{Duration: pn.duration, WholeMeasure: whole})
	e.Staff = pn.staff
	insertAt(m, *cursor, pn.voice, e)
	ps.assignPending(e)
	ps.lastNote = e
	if !grace {
		*cursor += pn.duration.QuarterLength
	}
	return nil
}

// flushChord materializes the pending chord accumulator: one buffered note
// becomes a Note element, several become a Chord sharing the first note's
// duration. Spanner starts and stops recorded on the buffered notes attach
// to the materialized element.
func flushChord(ps *partState, m *score.Measure) {
	if len(ps.chord) == 0 {
		return
	}
	notes := ps.chord
	ps.chord = nil
	first := notes[0]

	var e *score.Element
	if len(notes) == 1 {
		e = score.NewNoteElement(&score.Note{
			Pitch:         first.pitch,
			Duration:      first.duration,
			Tie:           first.tie,
			Articulations: first.artics,
			Lyric:         first.lyric,
		})
	} else {
		ch := &score.Chord{
			Pitches:       make([]score.Pitch, 0, len(notes)),
			Duration:      first.duration,
			Tie:           first.tie,
			Articulations: first.artics,
		}
		for _, pn := range notes {
			ch.Pitches = append(ch.Pitches, pn.pitch)
		}
		e = score.NewChordElement(ch)
	}
	e.Staff = first.staff
	insertAt(m, ps.chordOffset, first.voice, e)
	ps.assignPending(e)
	ps.lastNote = e

	for _, pn := range notes {
		for _, si := range pn.slurStarts {
			sp := score.NewSpanner(score.SpannerSlur, si.number)
			sp.Placement = si.placement
			sp.AddEndpoint(e)
			ps.openSpanner(sp)
		}
		for _, num := range pn.slurStops {
			ps.closeSpanner(score.SpannerSlur, num, e)
		}
		if pn.tieStarted {
			sp := score.NewSpanner(score.SpannerTie, 0)
			sp.AddEndpoint(e)
			ps.openSpanner(sp)
		}
		if pn.tieStopped {
			ps.closeSpanner(score.SpannerTie, 0, e)
		}
		for _, lvl := range pn.tupletStops {
			ps.closeSpanner(score.SpannerTuplet, lvl, e)
		}
	}
}

// readTuplets reads tuplet brackets from the note's notations, updating
// the level-keyed ratio map and the spanner bundle. Levels are keyed
// independently so closing brackets arriving out of order across sibling
// voices still pair correctly.
func readTuplets(n *xmlquery.Node, ps *partState, pn *pendingNote) {
	nots := child(n, "notations")
	if nots == nil {
		return
	}
	for _, t := range elements(nots) {
		if t.Data != "tuplet" {
			continue
		}
		lvl := attrInt(t, "number", 1)
		switch attr(t, "type") {
		case "start":
			ratio := score.TupletRatio{Actual: 3, Normal: 2, Level: lvl}
			if tm := child(n, "time-modification"); tm != nil {
				ratio.Actual = childInt(tm, "actual-notes", 3)
				ratio.Normal = childInt(tm, "normal-notes", 2)
			}
			ratio.Bracket = attr(t, "bracket") != "no"
			ps.tuplets[lvl] = ratio

			sp := score.NewSpanner(score.SpannerTuplet, lvl)
			r := ratio
			sp.Ratio = &r
			ps.openSpanner(sp)
			ps.pendingAssign = append(ps.pendingAssign, sp)
		case "stop":
			pn.tupletStops = append(pn.tupletStops, lvl)
		}
	}
}

// readTies reads the sound-level tie children. A note carrying both start
// and stop continues a tie chain.
func readTies(n *xmlquery.Node, pn *pendingNote) {
	for _, c := range elements(n) {
		if c.Data != "tie" {
			continue
		}
		switch attr(c, "type") {
		case "start":
			pn.tieStarted = true
		case "stop":
			pn.tieStopped = true
		}
	}
	switch {
	case pn.tieStarted && pn.tieStopped:
		pn.tie = score.TieContinue
	case pn.tieStarted:
		pn.tie = score.TieStart
	case pn.tieStopped:
		pn.tie = score.TieStop
	}
}

// readNotations collects slurs, articulations, ornaments, and fermatas.
func readNotations(n *xmlquery.Node, pn *pendingNote) {
	nots := child(n, "notations")
	if nots == nil {
		return
	}
	for _, c := range elements(nots) {
		switch c.Data {
		case "slur":
			num := attrInt(c, "number", 1)
			switch attr(c, "type") {
			case "start":
				pn.slurStarts = append(pn.slurStarts, slurInfo{
					number:    num,
					placement: attr(c, "placement"),
				})
			case "stop":
				pn.slurStops = append(pn.slurStops, num)
			}
		case "articulations", "ornaments", "technical":
			for _, a := range elements(c) {
				pn.artics = append(pn.artics, a.Data)
			}
		case "fermata":
			pn.artics = append(pn.artics, "fermata")
		}
	}
}

// readLyric returns the first lyric syllable, if any.
func readLyric(n *xmlquery.Node) string {
	ly := child(n, "lyric")
	if ly == nil {
		return ""
	}
	return childText(ly, "text")
}

// readPitch reads a pitch or unpitched display position.
func readPitch(n *xmlquery.Node) score.Pitch {
	if n.Data == "unpitched" {
		return score.Pitch{
			Step:   childText(n, "display-step"),
			Octave: childInt(n, "display-octave", 4),
		}
	}
	return score.Pitch{
		Step:   childText(n, "step"),
		Alter:  childFloat(n, "alter", 0),
		Octave: childInt(n, "octave", 4),
	}
}
