package musicxml

import (
	"strconv"
	"strings"
	"testing"

	"github.com/CallumVress/ScoreWeave/core/score"
)

// doc wraps measure content in a minimal single-part score-partwise
// document.
func doc(measures string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="4.0">
  <work><work-title>Test Piece</work-title></work>
  <identification>
    <creator type="composer">A. Composer</creator>
  </identification>
  <part-list>
    <score-part id="P1"><part-name>Music</part-name></score-part>
  </part-list>
  <part id="P1">` + measures + `</part>
</score-partwise>`
}

// attrs44 is the standard opening attributes block: divisions 1, treble
// clef, C major, common time.
const attrs44 = `<attributes>
  <divisions>1</divisions>
  <key><fifths>0</fifths></key>
  <time><beats>4</beats><beat-type>4</beat-type></time>
  <clef><sign>G</sign><line>2</line></clef>
</attributes>`

func note(step string, octave int, dur int, extra string) string {
	return `<note><pitch><step>` + step + `</step><octave>` + strconv.Itoa(octave) +
		`</octave></pitch><duration>` + strconv.Itoa(dur) +
		`</duration><type>quarter</type>` + extra + `</note>`
}

func mustParse(t *testing.T, xml string) *score.Score {
	t.Helper()
	c := New()
	if err := c.ParseData([]byte(xml), 0); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	s := c.Score()
	if s == nil {
		t.Fatal("no score produced")
	}
	return s
}

// elementsOfKind filters a measure's flat list by kind.
func elementsOfKind(m *score.Measure, kind score.ElementKind) []*score.Element {
	var out []*score.Element
	for _, e := range m.AllElements() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestMinimalScore(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 1, "")+note("D", 4, 1, "")+note("E", 4, 1, "")+note("F", 4, 1, "")+
		`</measure>`))

	if s.Metadata.Title != "Test Piece" {
		t.Errorf("title = %q", s.Metadata.Title)
	}
	if s.Metadata.Composer != "A. Composer" {
		t.Errorf("composer = %q", s.Metadata.Composer)
	}
	if len(s.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(s.Parts))
	}
	p := s.Parts[0]
	if p.ID != "P1" || p.Name != "Music" {
		t.Errorf("part identity = %q %q", p.ID, p.Name)
	}
	if len(p.Measures) != 1 {
		t.Fatalf("measures = %d, want 1", len(p.Measures))
	}
	m := p.Measures[0]

	if len(m.Voices) != 0 {
		t.Errorf("single un-voiced line should have no voice containers, got %d", len(m.Voices))
	}
	notes := elementsOfKind(m, score.KindNote)
	if len(notes) != 4 {
		t.Fatalf("notes = %d, want 4", len(notes))
	}
	wantSteps := []string{"C", "D", "E", "F"}
	for i, e := range notes {
		if e.Note.Pitch.Step != wantSteps[i] {
			t.Errorf("note %d step = %q, want %q", i, e.Note.Pitch.Step, wantSteps[i])
		}
		if e.Offset != float64(i) {
			t.Errorf("note %d offset = %v, want %d", i, e.Offset, i)
		}
		if e.Note.Duration.QuarterLength != 1 {
			t.Errorf("note %d ql = %v, want 1", i, e.Note.Duration.QuarterLength)
		}
	}

	if clefs := elementsOfKind(m, score.KindClef); len(clefs) != 1 || clefs[0].Clef.Sign != "G" {
		t.Errorf("clef not translated: %+v", clefs)
	}
	if times := elementsOfKind(m, score.KindTime); len(times) != 1 || times[0].Time.String() != "4/4" {
		t.Errorf("time not translated: %+v", times)
	}
}

func TestChordAccumulation(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 2, "")+
		note("E", 4, 2, "<chord/>")+
		note("G", 4, 2, "<chord/>")+
		note("D", 4, 2, "")+
		`</measure>`))

	m := s.Parts[0].Measures[0]
	chords := elementsOfKind(m, score.KindChord)
	if len(chords) != 1 {
		t.Fatalf("chords = %d, want 1", len(chords))
	}
	ch := chords[0].Chord
	if len(ch.Pitches) != 3 {
		t.Fatalf("chord pitches = %d, want 3", len(ch.Pitches))
	}
	for i, want := range []string{"C", "E", "G"} {
		if ch.Pitches[i].Step != want {
			t.Errorf("pitch %d = %q, want %q", i, ch.Pitches[i].Step, want)
		}
	}
	if chords[0].Offset != 0 {
		t.Errorf("chord offset = %v, want 0", chords[0].Offset)
	}
	// The cursor advanced once for the whole chord.
	notes := elementsOfKind(m, score.KindNote)
	if len(notes) != 1 || notes[0].Offset != 2 {
		t.Fatalf("following note misplaced: %+v", notes)
	}
}

func TestChordMarkerOnFirstNoteRecovered(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 1, "<chord/>")+
		`</measure>`))
	m := s.Parts[0].Measures[0]
	if got := len(elementsOfKind(m, score.KindNote)); got != 1 {
		t.Fatalf("notes = %d, want 1 (recovered chord start)", got)
	}
}

func TestNestedTuplets(t *testing.T) {
	// Outer triplet of quarters in divisions=60: each sounding quarter is
	// 40 ticks. The middle triplet member is itself a quintuplet of
	// 16ths: five notes of 8 ticks in the time of the 40-tick slot.
	tripletNote := func(extra string) string {
		return `<note><pitch><step>C</step><octave>4</octave></pitch>
<duration>40</duration><type>quarter</type>
<time-modification><actual-notes>3</actual-notes><normal-notes>2</normal-notes></time-modification>
<notations>` + extra + `</notations></note>`
	}
	quintNote := func(extra string) string {
		return `<note><pitch><step>D</step><octave>4</octave></pitch>
<duration>8</duration><type>16th</type>
<time-modification><actual-notes>5</actual-notes><normal-notes>4</normal-notes></time-modification>
<notations>` + extra + `</notations></note>`
	}
	s := mustParse(t, doc(`<measure number="1">
<attributes><divisions>60</divisions><time><beats>4</beats><beat-type>4</beat-type></time></attributes>`+
		tripletNote(`<tuplet type="start" number="1"/>`)+
		quintNote(`<tuplet type="start" number="2"/>`)+
		quintNote("")+quintNote("")+quintNote("")+
		quintNote(`<tuplet type="stop" number="2"/>`)+
		tripletNote(`<tuplet type="stop" number="1"/>`)+
		`</measure>`))

	m := s.Parts[0].Measures[0]
	notes := elementsOfKind(m, score.KindNote)
	if len(notes) != 7 {
		t.Fatalf("notes = %d, want 7", len(notes))
	}

	// First triplet note: one tuplet level.
	d := notes[0].Note.Duration
	if len(d.Tuplets) != 1 || d.Tuplets[0].Actual != 3 || d.Tuplets[0].Normal != 2 {
		t.Errorf("outer note tuplets = %+v", d.Tuplets)
	}
	if got := d.QuarterLength; got != 40.0/60.0 {
		t.Errorf("outer note ql = %v, want %v", got, 40.0/60.0)
	}

	// Quintuplet members: two levels, outermost first.
	d = notes[2].Note.Duration
	if len(d.Tuplets) != 2 {
		t.Fatalf("inner note tuplets = %+v", d.Tuplets)
	}
	if d.Tuplets[0].Actual != 3 || d.Tuplets[1].Actual != 5 {
		t.Errorf("tuplet stack order = %+v", d.Tuplets)
	}
	if got := d.QuarterLength; got != 8.0/60.0 {
		t.Errorf("inner note ql = %v, want %v", got, 8.0/60.0)
	}

	// The closing triplet note is back to one level.
	d = notes[6].Note.Duration
	if len(d.Tuplets) != 1 {
		t.Errorf("closing note tuplets = %+v", d.Tuplets)
	}

	// Both bracket spanners completed.
	var tuplets int
	for _, sp := range s.Parts[0].Spanners {
		if sp.Kind == score.SpannerTuplet && sp.Complete {
			tuplets++
		}
	}
	if tuplets != 2 {
		t.Errorf("completed tuplet spanners = %d, want 2", tuplets)
	}
}

func TestSlurPairsAndTolerance(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 1, `<notations><slur type="start" number="1"/></notations>`)+
		note("D", 4, 1, "")+
		note("E", 4, 1, `<notations><slur type="stop" number="1"/></notations>`)+
		// Unmatched stop: tolerated, dropped.
		note("F", 4, 1, `<notations><slur type="stop" number="3"/></notations>`)+
		`</measure>`))

	p := s.Parts[0]
	var slurs []*score.Spanner
	for _, sp := range p.Spanners {
		if sp.Kind == score.SpannerSlur {
			slurs = append(slurs, sp)
		}
	}
	if len(slurs) != 1 {
		t.Fatalf("slurs = %d, want 1", len(slurs))
	}
	sp := slurs[0]
	if !sp.Complete {
		t.Error("slur not complete")
	}
	if len(sp.Endpoints) != 2 {
		t.Fatalf("slur endpoints = %d, want 2", len(sp.Endpoints))
	}
	if sp.First().Note.Pitch.Step != "C" || sp.Last().Note.Pitch.Step != "E" {
		t.Errorf("slur endpoints = %s..%s", sp.First().Note.Pitch.Step, sp.Last().Note.Pitch.Step)
	}
}

func TestUnclosedSlurAbandoned(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 1, `<notations><slur type="start" number="1"/></notations>`)+
		note("D", 4, 1, "")+
		`</measure>`))
	for _, sp := range s.Parts[0].Spanners {
		if sp.Kind == score.SpannerSlur {
			t.Fatalf("abandoned slur reached the finished graph: %+v", sp)
		}
	}
}

func TestTieChain(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 1, `<tie type="start"/>`)+
		note("C", 4, 1, `<tie type="stop"/><tie type="start"/>`)+
		note("C", 4, 1, `<tie type="stop"/>`)+
		`</measure>`))

	m := s.Parts[0].Measures[0]
	notes := elementsOfKind(m, score.KindNote)
	if len(notes) != 3 {
		t.Fatalf("notes = %d", len(notes))
	}
	wantTies := []score.TieType{score.TieStart, score.TieContinue, score.TieStop}
	for i, e := range notes {
		if e.Note.Tie != wantTies[i] {
			t.Errorf("note %d tie = %q, want %q", i, e.Note.Tie, wantTies[i])
		}
	}
	var ties int
	for _, sp := range s.Parts[0].Spanners {
		if sp.Kind == score.SpannerTie && sp.Complete {
			ties++
		}
	}
	if ties != 2 {
		t.Errorf("completed tie spanners = %d, want 2", ties)
	}
}

func TestRepeatEndings(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		`<barline location="left"><ending type="start" number="1,2"/></barline>`+
		note("C", 4, 4, "")+
		`</measure>
<measure number="2">`+
		note("D", 4, 4, "")+
		`<barline location="right">
  <bar-style>light-heavy</bar-style>
  <repeat direction="backward"/>
  <ending type="stop" number="1,2"/>
</barline>
</measure>`))

	p := s.Parts[0]
	var endings []*score.Spanner
	for _, sp := range p.Spanners {
		if sp.Kind == score.SpannerEnding {
			endings = append(endings, sp)
		}
	}
	if len(endings) != 1 {
		t.Fatalf("endings = %d, want 1", len(endings))
	}
	e := endings[0]
	if len(e.EndingNumbers) != 2 || e.EndingNumbers[0] != 1 || e.EndingNumbers[1] != 2 {
		t.Errorf("ending numbers = %v, want [1 2]", e.EndingNumbers)
	}
	if len(e.MeasureNumbers) != 2 || e.MeasureNumbers[0] != "1" || e.MeasureNumbers[1] != "2" {
		t.Errorf("ending measures = %v, want [1 2]", e.MeasureNumbers)
	}

	bars := elementsOfKind(p.Measures[1], score.KindBarline)
	if len(bars) != 1 {
		t.Fatalf("barlines = %d, want 1", len(bars))
	}
	if bars[0].Barline.Style != score.BarLightHeavy || bars[0].Barline.Repeat != score.RepeatBackward {
		t.Errorf("barline = %+v", bars[0].Barline)
	}
}

func TestEndingStopWithoutStart(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 4, 4, "")+
		`<barline location="right"><ending type="stop" number="2"/></barline>
</measure>`))
	p := s.Parts[0]
	if len(p.Spanners) != 1 {
		t.Fatalf("spanners = %d, want 1 implicit ending", len(p.Spanners))
	}
	e := p.Spanners[0]
	if e.Kind != score.SpannerEnding || !e.Complete {
		t.Fatalf("spanner = %+v", e)
	}
	if len(e.MeasureNumbers) != 1 || e.MeasureNumbers[0] != "1" {
		t.Errorf("implicit bracket scope = %v, want this measure only", e.MeasureNumbers)
	}
}

func TestNonNumericEndingLabel(t *testing.T) {
	nums, label := parseEndingNumbers("final")
	if len(nums) != 1 || nums[0] != 1 || label != "final" {
		t.Errorf("parseEndingNumbers(final) = %v %q", nums, label)
	}
	nums, label = parseEndingNumbers("1, 2")
	if len(nums) != 2 || label != "" {
		t.Errorf("parseEndingNumbers(1, 2) = %v %q", nums, label)
	}
}

func TestWedgeAttachesToNotes(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		`<direction placement="below"><direction-type><wedge type="crescendo"/></direction-type></direction>`+
		note("C", 4, 1, "")+
		note("D", 4, 1, "")+
		`<direction><direction-type><wedge type="stop"/></direction-type></direction>`+
		note("E", 4, 1, "")+
		`</measure>`))

	var wedges []*score.Spanner
	for _, sp := range s.Parts[0].Spanners {
		if sp.Kind == score.SpannerWedge {
			wedges = append(wedges, sp)
		}
	}
	if len(wedges) != 1 {
		t.Fatalf("wedges = %d, want 1", len(wedges))
	}
	w := wedges[0]
	if w.WedgeType != "crescendo" || w.Placement != "below" {
		t.Errorf("wedge = %+v", w)
	}
	if len(w.Endpoints) != 2 {
		t.Fatalf("wedge endpoints = %d, want 2", len(w.Endpoints))
	}
	if w.First().Note.Pitch.Step != "C" || w.Last().Note.Pitch.Step != "D" {
		t.Errorf("wedge spans %s..%s, want C..D", w.First().Note.Pitch.Step, w.Last().Note.Pitch.Step)
	}
}

func TestDirectionsAndTempo(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		`<direction placement="below"><direction-type><dynamics><ff/></dynamics></direction-type></direction>`+
		`<direction><direction-type><words>dolce</words></direction-type></direction>`+
		`<direction><direction-type><metronome><beat-unit>quarter</beat-unit><per-minute>96</per-minute></metronome></direction-type>
<sound tempo="96"/></direction>`+
		note("C", 4, 4, "")+
		`</measure>`))

	m := s.Parts[0].Measures[0]
	if dyn := elementsOfKind(m, score.KindDynamic); len(dyn) != 1 || dyn[0].Dynamic.Value != "ff" {
		t.Errorf("dynamics = %+v", dyn)
	}
	if txt := elementsOfKind(m, score.KindText); len(txt) != 1 || txt[0].Text.Text != "dolce" {
		t.Errorf("words = %+v", txt)
	}
	tempi := elementsOfKind(m, score.KindTempo)
	if len(tempi) != 1 {
		t.Fatalf("tempo marks = %d, want 1 (sound tempo folded into metronome)", len(tempi))
	}
	if tempi[0].Tempo.BPM != 96 || tempi[0].Tempo.BeatUnit != "quarter" {
		t.Errorf("tempo = %+v", tempi[0].Tempo)
	}
}

func TestHarmonyKindAlias(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		`<harmony><root><root-step>G</root-step></root><kind text="7">dominant</kind></harmony>`+
		note("G", 3, 4, "")+
		`</measure>`))
	m := s.Parts[0].Measures[0]
	syms := elementsOfKind(m, score.KindChordSymbol)
	if len(syms) != 1 {
		t.Fatalf("chord symbols = %d, want 1", len(syms))
	}
	cs := syms[0].ChordSymbol
	if cs.Root.Step != "G" || cs.Kind != "dominant-seventh" || cs.KindText != "7" {
		t.Errorf("chord symbol = %+v", cs)
	}
}

func TestGraceNote(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		`<note><grace/><pitch><step>D</step><octave>5</octave></pitch><type>16th</type></note>`+
		note("C", 4, 4, "")+
		`</measure>`))
	m := s.Parts[0].Measures[0]
	notes := elementsOfKind(m, score.KindNote)
	if len(notes) != 2 {
		t.Fatalf("notes = %d, want 2", len(notes))
	}
	g := notes[0].Note
	if !g.Duration.Grace {
		t.Error("grace flag not set")
	}
	if g.Duration.QuarterLength != 0.25 {
		t.Errorf("grace ql = %v, want 0.25 (pure 16th)", g.Duration.QuarterLength)
	}
	// The grace note does not advance the cursor.
	if notes[1].Offset != 0 {
		t.Errorf("principal note offset = %v, want 0", notes[1].Offset)
	}
}

func TestWholeMeasureRest(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">
<attributes><divisions>1</divisions><time><beats>3</beats><beat-type>4</beat-type></time></attributes>
<note><rest measure="yes"/></note>
</measure>`))
	m := s.Parts[0].Measures[0]
	rests := elementsOfKind(m, score.KindRest)
	if len(rests) != 1 {
		t.Fatalf("rests = %d, want 1", len(rests))
	}
	r := rests[0].Rest
	if !r.WholeMeasure {
		t.Error("whole-measure flag not set")
	}
	if r.Duration.QuarterLength != 3 {
		t.Errorf("rest ql = %v, want 3 (from 3/4)", r.Duration.QuarterLength)
	}
}

func TestBackupCreatesVoices(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">`+attrs44+
		note("C", 5, 2, "<voice>1</voice>")+note("D", 5, 2, "<voice>1</voice>")+
		`<backup><duration>4</duration></backup>`+
		note("E", 3, 4, "<voice>2</voice>")+
		`</measure>`))
	m := s.Parts[0].Measures[0]
	if len(m.Voices) != 2 {
		t.Fatalf("voices = %d, want 2", len(m.Voices))
	}
	v2 := m.VoiceFor(2)
	if len(v2.Elements) != 1 || v2.Elements[0].Offset != 0 {
		t.Errorf("voice 2 = %+v", v2.Elements)
	}
}

func TestDottedDurationFromTicks(t *testing.T) {
	s := mustParse(t, doc(`<measure number="1">
<attributes><divisions>2</divisions><time><beats>4</beats><beat-type>4</beat-type></time></attributes>
<note><pitch><step>C</step><octave>4</octave></pitch><duration>3</duration><type>quarter</type><dot/></note>
<note><pitch><step>D</step><octave>4</octave></pitch><duration>1</duration><type>eighth</type></note>
</measure>`))
	m := s.Parts[0].Measures[0]
	notes := elementsOfKind(m, score.KindNote)
	if notes[0].Note.Duration.QuarterLength != 1.5 || notes[0].Note.Duration.Dots != 1 {
		t.Errorf("dotted quarter = %+v", notes[0].Note.Duration)
	}
	if notes[1].Offset != 1.5 {
		t.Errorf("following offset = %v, want 1.5", notes[1].Offset)
	}
}

func TestTimewiseRejected(t *testing.T) {
	c := New()
	err := c.ParseData([]byte(`<score-timewise/>`), 0)
	if err == nil {
		t.Fatal("expected error for score-timewise")
	}
}

func TestTranslateErrorNamesPartAndMeasure(t *testing.T) {
	c := New()
	err := c.ParseData([]byte(doc(`<measure number="7">`+attrs44+
		`<note><duration>1</duration><type>quarter</type></note>`+
		`</measure>`)), 0)
	if err == nil {
		t.Fatal("expected error for pitchless non-rest note")
	}
	msg := err.Error()
	if !strings.Contains(msg, "P1") || !strings.Contains(msg, "7") {
		t.Errorf("error should name part and measure: %v", msg)
	}
}

func TestOpusWorkSelection(t *testing.T) {
	opus := `<?xml version="1.0"?>
<opus>
  <score-partwise>
    <movement-title>First</movement-title>
    <part-list><score-part id="P1"><part-name>A</part-name></score-part></part-list>
    <part id="P1"><measure number="1">` + attrs44 + note("C", 4, 4, "") + `</measure></part>
  </score-partwise>
  <score-partwise>
    <movement-title>Second</movement-title>
    <part-list><score-part id="P1"><part-name>B</part-name></score-part></part-list>
    <part id="P1"><measure number="1">` + attrs44 + note("D", 4, 4, "") + `</measure></part>
  </score-partwise>
</opus>`

	c := New()
	if err := c.ParseData([]byte(opus), 0); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if len(c.Scores()) != 2 {
		t.Fatalf("works = %d, want 2", len(c.Scores()))
	}

	c2 := New()
	if err := c2.ParseData([]byte(opus), 2); err != nil {
		t.Fatalf("ParseData(number=2): %v", err)
	}
	if got := c2.Score().Metadata.MovementTitle; got != "Second" {
		t.Errorf("selected work = %q, want Second", got)
	}

	c3 := New()
	if err := c3.ParseData([]byte(opus), 5); err == nil {
		t.Error("expected error for out-of-range work number")
	}
}
