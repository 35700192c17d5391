package score

import "github.com/google/uuid"

// ElementKind discriminates the payload of an Element.
type ElementKind string

// Element kind constants.
const (
	KindNote        ElementKind = "note"
	KindChord       ElementKind = "chord"
	KindRest        ElementKind = "rest"
	KindClef        ElementKind = "clef"
	KindKey         ElementKind = "key"
	KindTime        ElementKind = "time"
	KindBarline     ElementKind = "barline"
	KindDynamic     ElementKind = "dynamic"
	KindTempo       ElementKind = "tempo"
	KindText        ElementKind = "text"
	KindSegnoCoda   ElementKind = "segno_coda"
	KindChordSymbol ElementKind = "chord_symbol"
)

// validElementKinds is the set of valid element kinds.
var validElementKinds = map[ElementKind]bool{
	KindNote:        true,
	KindChord:       true,
	KindRest:        true,
	KindClef:        true,
	KindKey:         true,
	KindTime:        true,
	KindBarline:     true,
	KindDynamic:     true,
	KindTempo:       true,
	KindText:        true,
	KindSegnoCoda:   true,
	KindChordSymbol: true,
}

// IsValid returns true if the element kind is valid.
func (k ElementKind) IsValid() bool {
	return validElementKinds[k]
}

// Element is one event inserted into a Measure or Voice. Exactly one payload
// pointer matching Kind is non-nil. Elements are referenced by identity:
// spanners point at elements without owning them, and the staff-splitting
// pass prunes by identity rather than copying.
type Element struct {
	// ID is a unique identifier used to relink spanner endpoints after a
	// graph has been serialized and decoded.
	ID string `json:"id"`

	// Kind discriminates the payload.
	Kind ElementKind `json:"kind"`

	// Offset is the element's position within its measure in quarter lengths.
	Offset float64 `json:"offset"`

	// Staff tags the element with a staff number for multi-staff parts.
	// Zero means untagged: the element belongs to every staff.
	Staff int `json:"staff,omitempty"`

	// VoiceNumber records the source voice tag. Zero means un-voiced.
	VoiceNumber int `json:"voice_number,omitempty"`

	// Payload - exactly one is set, matching Kind.
	Note        *Note          `json:"note,omitempty"`
	Chord       *Chord         `json:"chord,omitempty"`
	Rest        *Rest          `json:"rest,omitempty"`
	Clef        *Clef          `json:"clef,omitempty"`
	Key         *KeySignature  `json:"key,omitempty"`
	Time        *TimeSignature `json:"time,omitempty"`
	Barline     *Barline       `json:"barline,omitempty"`
	Dynamic     *Dynamic       `json:"dynamic,omitempty"`
	Tempo       *TempoMark     `json:"tempo,omitempty"`
	Text        *TextExpression `json:"text,omitempty"`
	SegnoCoda   *SegnoCoda     `json:"segno_coda,omitempty"`
	ChordSymbol *ChordSymbol   `json:"chord_symbol,omitempty"`
}

func newElement(kind ElementKind) *Element {
	return &Element{ID: uuid.NewString(), Kind: kind}
}

// NewNoteElement wraps a Note in an Element.
func NewNoteElement(n *Note) *Element {
	e := newElement(KindNote)
	e.Note = n
	return e
}

// NewChordElement wraps a Chord in an Element.
func NewChordElement(c *Chord) *Element {
	e := newElement(KindChord)
	e.Chord = c
	return e
}

// NewRestElement wraps a Rest in an Element.
func NewRestElement(r *Rest) *Element {
	e := newElement(KindRest)
	e.Rest = r
	return e
}

// NewClefElement wraps a Clef in an Element.
func NewClefElement(c *Clef) *Element {
	e := newElement(KindClef)
	e.Clef = c
	return e
}

// NewKeyElement wraps a KeySignature in an Element.
func NewKeyElement(k *KeySignature) *Element {
	e := newElement(KindKey)
	e.Key = k
	return e
}

// NewTimeElement wraps a TimeSignature in an Element.
func NewTimeElement(ts *TimeSignature) *Element {
	e := newElement(KindTime)
	e.Time = ts
	return e
}

// NewBarlineElement wraps a Barline in an Element.
func NewBarlineElement(b *Barline) *Element {
	e := newElement(KindBarline)
	e.Barline = b
	return e
}

// NewDynamicElement wraps a Dynamic in an Element.
func NewDynamicElement(d *Dynamic) *Element {
	e := newElement(KindDynamic)
	e.Dynamic = d
	return e
}

// NewTempoElement wraps a TempoMark in an Element.
func NewTempoElement(t *TempoMark) *Element {
	e := newElement(KindTempo)
	e.Tempo = t
	return e
}

// NewTextElement wraps a TextExpression in an Element.
func NewTextElement(t *TextExpression) *Element {
	e := newElement(KindText)
	e.Text = t
	return e
}

// NewSegnoCodaElement wraps a SegnoCoda in an Element.
func NewSegnoCodaElement(sc *SegnoCoda) *Element {
	e := newElement(KindSegnoCoda)
	e.SegnoCoda = sc
	return e
}

// NewChordSymbolElement wraps a ChordSymbol in an Element.
func NewChordSymbolElement(cs *ChordSymbol) *Element {
	e := newElement(KindChordSymbol)
	e.ChordSymbol = cs
	return e
}

// Duration returns the payload's duration, or nil for durationless kinds
// (clefs, barlines, directions).
func (e *Element) Duration() *Duration {
	switch e.Kind {
	case KindNote:
		return &e.Note.Duration
	case KindChord:
		return &e.Chord.Duration
	case KindRest:
		return &e.Rest.Duration
	}
	return nil
}
