package musicxml

import (
	"github.com/antchfx/xmlquery"

	"github.com/CallumVress/ScoreWeave/core/score"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// handleHarmony reads a chord symbol. Kind words go through the alias
// table so historical spellings of the same quality fold together; unknown
// words keep the source spelling.
func handleHarmony(n *xmlquery.Node, ps *partState, m *score.Measure, cursor float64) {
	cs := &score.ChordSymbol{}

	if r := child(n, "root"); r != nil {
		cs.Root = score.Pitch{
			Step:  childText(r, "root-step"),
			Alter: childFloat(r, "root-alter", 0),
		}
	}
	if b := child(n, "bass"); b != nil {
		cs.Bass = &score.Pitch{
			Step:  childText(b, "bass-step"),
			Alter: childFloat(b, "bass-alter", 0),
		}
	}
	if k := child(n, "kind"); k != nil {
		raw := text(k)
		canonical, known := score.CanonicalChordKind(raw)
		cs.Kind = canonical
		cs.KindText = attr(k, "text")
		if !known && raw != "" {
			logging.RecoveredInput("unknown chord kind", "kept source spelling", "kind", raw)
		}
	}
	for _, d := range elements(n) {
		if d.Data != "degree" {
			continue
		}
		cs.Degrees = append(cs.Degrees, score.DegreeModification{
			Degree: childInt(d, "degree-value", 0),
			Alter:  childInt(d, "degree-alter", 0),
			Type:   childText(d, "degree-type"),
		})
	}

	off := cursor
	if ps.divisions > 0 {
		off += childFloat(n, "offset", 0) / ps.divisions
	}
	if off < 0 {
		off = 0
	}
	m.Insert(off, score.NewChordSymbolElement(cs))
}
