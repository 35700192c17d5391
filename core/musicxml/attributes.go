package musicxml

import (
	"github.com/antchfx/xmlquery"

	"github.com/CallumVress/ScoreWeave/core/score"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// handleAttributes applies a measure's attributes block: divisions, staff
// count, and clef/key/time changes. Signature elements are inserted at the
// current offset; the per-staff state keeps them current for measures that
// inherit rather than restate them.
func handleAttributes(n *xmlquery.Node, ps *partState, m *score.Measure, offset float64) error {
	if d := childFloat(n, "divisions", 0); d > 0 {
		ps.divisions = d
	}
	if st := childInt(n, "staves", 0); st > 0 {
		ps.staves = st
	}

	for _, c := range elements(n) {
		switch c.Data {
		case "clef":
			staffN := attrInt(c, "number", 0)
			clef := &score.Clef{
				Sign:         childText(c, "sign"),
				Line:         childInt(c, "line", 0),
				OctaveChange: childInt(c, "clef-octave-change", 0),
			}
			if clef.Line == 0 {
				clef.Line = defaultClefLine(clef.Sign)
			}
			ps.staff(staffN).clef = clef
			e := score.NewClefElement(clef)
			e.Staff = staffN
			m.Insert(offset, e)

		case "key":
			staffN := attrInt(c, "number", 0)
			key := &score.KeySignature{
				Fifths: childInt(c, "fifths", 0),
				Mode:   childText(c, "mode"),
			}
			ps.staff(staffN).key = key
			e := score.NewKeyElement(key)
			e.Staff = staffN
			m.Insert(offset, e)

		case "time":
			staffN := attrInt(c, "number", 0)
			ts, err := score.ParseTimeSignature(childText(c, "beats"), childText(c, "beat-type"))
			if err != nil {
				logging.RecoveredInput("unreadable time signature", "skipped", "measure", m.Number, "err", err.Error())
				continue
			}
			ts.Symbol = attr(c, "symbol")
			ps.staff(staffN).time = ts
			if staffN == 0 {
				// An unnumbered time signature applies to every staff.
				for _, st := range ps.byStaff {
					st.time = ts
				}
			}
			e := score.NewTimeElement(ts)
			e.Staff = staffN
			m.Insert(offset, e)

		case "transpose":
			if ps.transpose == nil {
				ps.transpose = readTranspose(c)
			}
		}
	}
	return nil
}

// defaultClefLine returns the conventional staff line for a clef sign when
// the source omits it.
func defaultClefLine(sign string) int {
	switch sign {
	case "G":
		return 2
	case "F":
		return 4
	case "C":
		return 3
	}
	return 0
}
