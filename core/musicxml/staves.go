package musicxml

import (
	"fmt"

	"github.com/CallumVress/ScoreWeave/core/score"
)

// splitStaves divides a multi-staff part into one part per staff with a
// single filtering pass. Staff-tagged events are routed to their staff's
// part only; untagged events (time signatures, directions without a staff)
// are shared by identity, the same element appearing in every sibling.
// Nothing is copied and nothing is pruned afterwards.
func splitStaves(p *score.Part, staves int) []*score.Part {
	parts := make([]*score.Part, staves)
	for i := range parts {
		sub := p.ClonePartShell()
		if i > 0 {
			sub.ID = fmt.Sprintf("%s-staff%d", p.ID, i+1)
		}
		parts[i] = sub
	}

	clamp := func(staff int) int {
		if staff < 1 {
			return 0
		}
		if staff > staves {
			return staves
		}
		return staff
	}

	for _, m := range p.Measures {
		subMeasures := make([]*score.Measure, staves)
		for i := range subMeasures {
			subMeasures[i] = &score.Measure{Number: m.Number, Implicit: m.Implicit}
			parts[i].Measures = append(parts[i].Measures, subMeasures[i])
		}
		for _, e := range m.Elements {
			if s := clamp(e.Staff); s > 0 {
				subMeasures[s-1].Elements = append(subMeasures[s-1].Elements, e)
				continue
			}
			for _, sm := range subMeasures {
				sm.Elements = append(sm.Elements, e)
			}
		}
		for _, v := range m.Voices {
			for _, e := range v.Elements {
				if s := clamp(e.Staff); s > 0 {
					subMeasures[s-1].VoiceFor(v.Number).Elements = append(subMeasures[s-1].VoiceFor(v.Number).Elements, e)
					continue
				}
				for _, sm := range subMeasures {
					sm.VoiceFor(v.Number).Elements = append(sm.VoiceFor(v.Number).Elements, e)
				}
			}
		}
	}

	// A spanner follows its first endpoint's staff; endpoint-less spanners
	// (ending brackets) stay with the first staff.
	for _, sp := range p.Spanners {
		idx := 0
		if first := sp.First(); first != nil {
			if s := clamp(first.Staff); s > 0 {
				idx = s - 1
			}
		}
		parts[idx].Spanners = append(parts[idx].Spanners, sp)
	}

	// Splitting can leave a staff with a lone voice that no longer carries
	// information.
	for _, sub := range parts {
		for _, m := range sub.Measures {
			m.FlattenSingleVoice()
		}
	}
	return parts
}
