package musicxml

import (
	"testing"

	"github.com/CallumVress/ScoreWeave/core/score"
)

// pianoDoc is a two-staff keyboard part: treble clef material tagged staff
// 1, bass clef material tagged staff 2, one shared time signature.
const pianoDoc = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="4.0">
  <part-list>
    <score-part id="P1"><part-name>Piano</part-name></score-part>
  </part-list>
  <part id="P1">
    <measure number="1">
      <attributes>
        <divisions>1</divisions>
        <staves>2</staves>
        <time><beats>4</beats><beat-type>4</beat-type></time>
        <clef number="1"><sign>G</sign><line>2</line></clef>
        <clef number="2"><sign>F</sign><line>4</line></clef>
      </attributes>
      <note><pitch><step>C</step><octave>5</octave></pitch><duration>4</duration><type>whole</type><voice>1</voice><staff>1</staff></note>
      <backup><duration>4</duration></backup>
      <note><pitch><step>C</step><octave>3</octave></pitch><duration>4</duration><type>whole</type><voice>2</voice><staff>2</staff></note>
    </measure>
  </part>
</score-partwise>`

func TestStaffSplit(t *testing.T) {
	s := mustParse(t, pianoDoc)

	if len(s.Parts) != 2 {
		t.Fatalf("parts = %d, want 2 (one per staff)", len(s.Parts))
	}
	upper, lower := s.Parts[0], s.Parts[1]
	if upper.ID != "P1" || lower.ID != "P1-staff2" {
		t.Errorf("part ids = %q %q", upper.ID, lower.ID)
	}
	if upper.Name != "Piano" || lower.Name != "Piano" {
		t.Errorf("part names = %q %q", upper.Name, lower.Name)
	}

	// Tagged material reaches only its own staff.
	upperNotes := elementsOfKind(upper.Measures[0], score.KindNote)
	lowerNotes := elementsOfKind(lower.Measures[0], score.KindNote)
	if len(upperNotes) != 1 || upperNotes[0].Note.Pitch.Octave != 5 {
		t.Errorf("upper staff notes = %+v", upperNotes)
	}
	if len(lowerNotes) != 1 || lowerNotes[0].Note.Pitch.Octave != 3 {
		t.Errorf("lower staff notes = %+v", lowerNotes)
	}

	upperClefs := elementsOfKind(upper.Measures[0], score.KindClef)
	lowerClefs := elementsOfKind(lower.Measures[0], score.KindClef)
	if len(upperClefs) != 1 || upperClefs[0].Clef.Sign != "G" {
		t.Errorf("upper clefs = %+v", upperClefs)
	}
	if len(lowerClefs) != 1 || lowerClefs[0].Clef.Sign != "F" {
		t.Errorf("lower clefs = %+v", lowerClefs)
	}

	// The untagged time signature is shared by identity, not copied.
	upperTimes := elementsOfKind(upper.Measures[0], score.KindTime)
	lowerTimes := elementsOfKind(lower.Measures[0], score.KindTime)
	if len(upperTimes) != 1 || len(lowerTimes) != 1 {
		t.Fatalf("times = %d/%d, want 1 each", len(upperTimes), len(lowerTimes))
	}
	if upperTimes[0] != lowerTimes[0] {
		t.Error("shared time signature was duplicated instead of shared")
	}

	// Tagged elements appear in exactly one staff.
	seen := make(map[*score.Element]int)
	for _, p := range s.Parts {
		for _, m := range p.Measures {
			for _, e := range m.AllElements() {
				seen[e]++
			}
		}
	}
	for e, n := range seen {
		if e.Staff > 0 && n != 1 {
			t.Errorf("staff-tagged %s element appears %d times", e.Kind, n)
		}
	}
}

func TestStaffSplitRoutesSpanners(t *testing.T) {
	xml := `<?xml version="1.0"?>
<score-partwise>
  <part-list><score-part id="P1"><part-name>Piano</part-name></score-part></part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>1</divisions><staves>2</staves></attributes>
      <note><pitch><step>C</step><octave>3</octave></pitch><duration>2</duration><type>half</type><staff>2</staff>
        <notations><slur type="start" number="1"/></notations></note>
      <note><pitch><step>D</step><octave>3</octave></pitch><duration>2</duration><type>half</type><staff>2</staff>
        <notations><slur type="stop" number="1"/></notations></note>
    </measure>
  </part>
</score-partwise>`
	s := mustParse(t, xml)
	if len(s.Parts) != 2 {
		t.Fatalf("parts = %d", len(s.Parts))
	}
	if n := len(s.Parts[0].Spanners); n != 0 {
		t.Errorf("upper staff spanners = %d, want 0", n)
	}
	if n := len(s.Parts[1].Spanners); n != 1 {
		t.Errorf("lower staff spanners = %d, want 1", n)
	}
}

// Round-trip stability: serializing the graph and decoding it back yields
// the same shape, and relinked endpoints resolve to the decoded elements.
func TestRoundTripStability(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 1, `<notations><slur type="start" number="1"/></notations>`)+
		note("E", 4, 1, "<chord/>")+
		note("D", 4, 1, "")+
		note("E", 4, 1, `<notations><slur type="stop" number="1"/></notations>`)+
		note("F", 4, 1, "")+
		`</measure>`))

	clone, err := s.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if s.Counts() != clone.Counts() {
		t.Errorf("counts drifted: %+v vs %+v", s.Counts(), clone.Counts())
	}
	if len(clone.Parts[0].Spanners) != len(s.Parts[0].Spanners) {
		t.Fatalf("spanner count drifted")
	}
	for _, sp := range clone.Parts[0].Spanners {
		if len(sp.Endpoints) != len(sp.EndpointIDs) {
			t.Errorf("spanner %s endpoints did not relink: %d of %d",
				sp.Kind, len(sp.Endpoints), len(sp.EndpointIDs))
		}
	}
}
