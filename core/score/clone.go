package score

import "encoding/json"

// Clone returns a deep working copy of the score. Element IDs are
// preserved so spanner endpoints relink to the copied elements; the copy
// shares no pointers with the original, making it safe to hand out from a
// logically frozen cached graph.
func (s *Score) Clone() (*Score, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out Score
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	out.Relink()
	return &out, nil
}

// ClonePartShell copies a part's identity fields without its measures,
// used by the staff-splitting pass to build sibling containers.
func (p *Part) ClonePartShell() *Part {
	shell := &Part{
		ID:           p.ID,
		Name:         p.Name,
		Abbreviation: p.Abbreviation,
	}
	if p.Instrument != nil {
		inst := *p.Instrument
		if p.Instrument.Transposition != nil {
			tr := *p.Instrument.Transposition
			inst.Transposition = &tr
		}
		shell.Instrument = &inst
	}
	return shell
}
