// Package score defines the uniform in-memory Score graph that every
// format handler produces.
//
// # Core Types
//
// The graph is organized hierarchically:
//
//   - Score: Top-level container for one musical work
//   - Part: One instrumental or vocal line, Measures in score-time order
//   - Measure: Owns the events inserted into it; Voice sub-containers are
//     created lazily when the source tags simultaneous material
//   - Element: One event (note, chord, rest, clef, barline, direction, ...)
//
// # Ownership vs. spanning references
//
// A Measure owns its elements exclusively; measure order within a Part is
// score time. Spanners (slurs, ties, tuplet brackets, wedges, ottavas,
// repeat endings) reference two or more events by identity without owning
// them, and belong to the innermost container common to their endpoints
// once complete.
//
// # Serialization
//
// The whole graph is JSON-serializable. Spanner endpoints are written as
// element IDs; Score.Relink restores the identity references after decode.
// A cached graph is logically frozen - Clone yields a working copy.
//
// # Example
//
//	s := score.NewScore()
//	p := &score.Part{ID: "P1", Name: "Flute"}
//	m := score.NewMeasure("1")
//	m.Insert(0, score.NewNoteElement(&score.Note{
//	    Pitch:    score.Pitch{Step: "C", Octave: 4},
//	    Duration: score.Duration{QuarterLength: 1, Type: "quarter"},
//	}))
//	p.Append(m)
//	s.AddPart(p)
package score
