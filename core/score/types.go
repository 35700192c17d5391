package score

// types.go - Consolidated score graph type definitions.
// This file contains the container types of the Score graph used throughout
// ScoreWeave. All format handlers should import these types from core/score
// rather than defining their own.

import (
	"sort"

	"github.com/google/uuid"
)

// Score is the top-level container for one musical work: an ordered list of
// Parts plus document metadata. A Score is complete - safe to return to a
// caller or to cache - only once every spanner with an unseen closing
// endpoint has been resolved or abandoned at document end.
type Score struct {
	// ID is a unique identifier assigned when the score is constructed.
	ID string `json:"id"`

	// Metadata holds title/composer/movement information from the source.
	Metadata Metadata `json:"metadata"`

	// Parts are the score's parts in document order.
	Parts []*Part `json:"parts,omitempty"`

	// Spanners owned at score level (relationships whose endpoints lie in
	// different parts, and repeat structures spanning the whole system).
	Spanners []*Spanner `json:"spanners,omitempty"`
}

// Metadata holds work-level information.
type Metadata struct {
	Title          string `json:"title,omitempty"`
	WorkNumber     string `json:"work_number,omitempty"`
	MovementNumber string `json:"movement_number,omitempty"`
	MovementTitle  string `json:"movement_title,omitempty"`
	Composer       string `json:"composer,omitempty"`
	Lyricist       string `json:"lyricist,omitempty"`
	Rights         string `json:"rights,omitempty"`
	Software       string `json:"software,omitempty"`
	SourceFormat   string `json:"source_format,omitempty"`
}

// NewScore constructs an empty Score with a fresh identity.
func NewScore() *Score {
	return &Score{ID: uuid.NewString()}
}

// AddPart appends a part in document order.
func (s *Score) AddPart(p *Part) {
	s.Parts = append(s.Parts, p)
}

// Part is one instrumental or vocal line: an ordered list of Measures.
// Measure order is score time, not incidental.
type Part struct {
	// ID is the part id from the source document (e.g. "P1").
	ID string `json:"id"`

	// Name is the human-readable part name.
	Name string `json:"name,omitempty"`

	// Abbreviation is the short part name, if any.
	Abbreviation string `json:"abbreviation,omitempty"`

	// Instrument describes the sounding instrument, including transposition.
	Instrument *Instrument `json:"instrument,omitempty"`

	// Measures are the part's measures in score-time order.
	Measures []*Measure `json:"measures,omitempty"`

	// Spanners owned by this part (both endpoints inside it).
	Spanners []*Spanner `json:"spanners,omitempty"`
}

// Instrument describes the sounding instrument of a Part.
type Instrument struct {
	ID            string         `json:"id,omitempty"`
	Name          string         `json:"name,omitempty"`
	MIDIProgram   int            `json:"midi_program,omitempty"`
	MIDIChannel   int            `json:"midi_channel,omitempty"`
	Transposition *Transposition `json:"transposition,omitempty"`
}

// Transposition is the written-to-sounding interval of a transposing
// instrument (e.g. B-flat clarinet: diatonic -1, chromatic -2).
type Transposition struct {
	Diatonic     int `json:"diatonic"`
	Chromatic    int `json:"chromatic"`
	OctaveChange int `json:"octave_change,omitempty"`
}

// Append adds a measure to the end of the part.
func (p *Part) Append(m *Measure) {
	p.Measures = append(p.Measures, m)
}

// AddSpanner records a completed (or abandoned-as-complete) spanner owned
// by this part.
func (p *Part) AddSpanner(sp *Spanner) {
	p.Spanners = append(p.Spanners, sp)
}

// Measure owns the events inserted into it. Events either live in the flat
// Elements list (un-voiced material) or inside a numbered Voice
// sub-container created lazily on first sighting.
type Measure struct {
	// Number is the measure number as written in the source. Sources may
	// use non-numeric numbers ("X1") for pickup measures, so it stays a string.
	Number string `json:"number"`

	// Implicit marks a pickup/anacrusis measure that does not count.
	Implicit bool `json:"implicit,omitempty"`

	// Elements holds un-voiced events in score-time order.
	Elements []*Element `json:"elements,omitempty"`

	// Voices holds voice sub-containers ordered by first sighting.
	Voices []*Voice `json:"voices,omitempty"`
}

// NewMeasure constructs an empty measure with the given source number.
func NewMeasure(number string) *Measure {
	return &Measure{Number: number}
}

// Insert places an element into the measure at the given offset, keeping
// Elements sorted by offset (stable for equal offsets: insertion order
// encodes simultaneity the way the source document wrote it).
func (m *Measure) Insert(offset float64, e *Element) {
	e.Offset = offset
	idx := sort.Search(len(m.Elements), func(i int) bool {
		return m.Elements[i].Offset > offset
	})
	m.Elements = append(m.Elements, nil)
	copy(m.Elements[idx+1:], m.Elements[idx:])
	m.Elements[idx] = e
}

// VoiceFor returns the voice sub-container with the given number, creating
// it on first sighting.
func (m *Measure) VoiceFor(number int) *Voice {
	for _, v := range m.Voices {
		if v.Number == number {
			return v
		}
	}
	v := &Voice{Number: number}
	m.Voices = append(m.Voices, v)
	return v
}

// FlattenSingleVoice dissolves a lone voice back into the measure's flat
// element list. A single voice carries no information.
func (m *Measure) FlattenSingleVoice() {
	if len(m.Voices) != 1 {
		return
	}
	v := m.Voices[0]
	for _, e := range v.Elements {
		m.Insert(e.Offset, e)
	}
	m.Voices = nil
}

// AllElements returns every element in the measure - voiced and un-voiced -
// without copying the elements themselves.
func (m *Measure) AllElements() []*Element {
	out := make([]*Element, 0, len(m.Elements))
	out = append(out, m.Elements...)
	for _, v := range m.Voices {
		out = append(out, v.Elements...)
	}
	return out
}

// Voice is a sub-stream of simultaneous, independent material sharing a
// Measure.
type Voice struct {
	// Number is the voice number from the source document.
	Number int `json:"number"`

	// Elements holds the voice's events in score-time order.
	Elements []*Element `json:"elements,omitempty"`
}

// Insert places an element into the voice at the given offset, keeping
// elements ordered by offset.
func (v *Voice) Insert(offset float64, e *Element) {
	e.Offset = offset
	idx := sort.Search(len(v.Elements), func(i int) bool {
		return v.Elements[i].Offset > offset
	})
	v.Elements = append(v.Elements, nil)
	copy(v.Elements[idx+1:], v.Elements[idx:])
	v.Elements[idx] = e
}

// Counts is a shape summary of a score graph, used to check round-trip
// stability between cached and freshly translated graphs.
type Counts struct {
	Parts    int `json:"parts"`
	Measures int `json:"measures"`
	Voices   int `json:"voices"`
	Events   int `json:"events"`
	Spanners int `json:"spanners"`
}

// Counts walks the graph and reports its shape.
func (s *Score) Counts() Counts {
	c := Counts{Spanners: len(s.Spanners)}
	for _, p := range s.Parts {
		c.Parts++
		c.Spanners += len(p.Spanners)
		for _, m := range p.Measures {
			c.Measures++
			c.Events += len(m.Elements)
			for _, v := range m.Voices {
				c.Voices++
				c.Events += len(v.Elements)
			}
		}
	}
	return c
}
