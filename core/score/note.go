package score

import (
	"fmt"
	"strings"
)

// Pitch is a notated pitch: step letter, chromatic alteration, octave.
type Pitch struct {
	// Step is the diatonic letter, one of C D E F G A B.
	Step string `json:"step"`

	// Alter is the chromatic alteration in semitones (1 sharp, -1 flat).
	// Fractional values express microtones.
	Alter float64 `json:"alter,omitempty"`

	// Octave in scientific pitch notation (middle C = C4).
	Octave int `json:"octave"`
}

// stepToSemitone maps diatonic steps to semitones above C.
var stepToSemitone = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// MIDI returns the MIDI note number of the pitch (C4 = 60). Microtonal
// alterations are truncated toward the nearest lower semitone.
func (p Pitch) MIDI() int {
	return (p.Octave+1)*12 + stepToSemitone[strings.ToUpper(p.Step)] + int(p.Alter)
}

// String renders the pitch in scientific notation, e.g. "C#4", "Bb3".
func (p Pitch) String() string {
	acc := ""
	switch {
	case p.Alter >= 2:
		acc = "##"
	case p.Alter >= 1:
		acc = "#"
	case p.Alter <= -2:
		acc = "bb"
	case p.Alter <= -1:
		acc = "b"
	}
	return fmt.Sprintf("%s%s%d", strings.ToUpper(p.Step), acc, p.Octave)
}

// TupletRatio is one level of tuplet nesting: Actual notes in the time of
// Normal (a triplet is 3:2).
type TupletRatio struct {
	Actual int `json:"actual"`
	Normal int `json:"normal"`

	// Bracket reports whether the source drew a bracket for this tuplet.
	Bracket bool `json:"bracket,omitempty"`

	// Level is the nesting depth this ratio was opened at (1 = outermost).
	Level int `json:"level,omitempty"`
}

// Duration is a quarter-length based duration. QuarterLength is the fully
// resolved value: raw ticks divided by the document's divisions, with every
// enclosing tuplet ratio already applied.
type Duration struct {
	// QuarterLength is the duration in quarter notes.
	QuarterLength float64 `json:"quarter_length"`

	// Type is the notated type name (e.g. "quarter", "eighth", "half").
	Type string `json:"type,omitempty"`

	// Dots is the number of augmentation dots.
	Dots int `json:"dots,omitempty"`

	// Grace marks a grace note: no tick count in the source, duration
	// derived purely from Type.
	Grace bool `json:"grace,omitempty"`

	// Tuplets is the full ordered tuplet stack this duration sits under,
	// outermost first.
	Tuplets []TupletRatio `json:"tuplets,omitempty"`
}

// typeQuarterLengths maps notated type names to undotted quarter lengths.
var typeQuarterLengths = map[string]float64{
	"maxima":  32.0,
	"long":    16.0,
	"breve":   8.0,
	"whole":   4.0,
	"half":    2.0,
	"quarter": 1.0,
	"eighth":  0.5,
	"16th":    0.25,
	"32nd":    0.125,
	"64th":    0.0625,
	"128th":   0.03125,
	"256th":   0.015625,
	"512th":   0.0078125,
	"1024th":  0.00390625,
}

// QuarterLengthForType returns the undotted quarter length of a notated
// type name. Unknown names report ok=false.
func QuarterLengthForType(name string) (float64, bool) {
	ql, ok := typeQuarterLengths[name]
	return ql, ok
}

// DurationFromType builds a duration purely from a notated type name and
// dot count, used for grace notes and other tickless events. An unknown or
// empty type name falls back to an eighth, the conventional grace default.
func DurationFromType(name string, dots int) Duration {
	ql, ok := typeQuarterLengths[name]
	if !ok {
		name = "eighth"
		ql = typeQuarterLengths[name]
	}
	base := ql
	add := ql
	for i := 0; i < dots; i++ {
		add /= 2
		base += add
	}
	return Duration{QuarterLength: base, Type: name, Dots: dots}
}

// AppliedRatio returns the combined tuplet scaling of the duration's stack:
// the factor a raw type length is multiplied by (2.0/3 for a triplet).
func (d Duration) AppliedRatio() float64 {
	r := 1.0
	for _, t := range d.Tuplets {
		if t.Actual != 0 {
			r *= float64(t.Normal) / float64(t.Actual)
		}
	}
	return r
}

// TieType marks how a note participates in a tie.
type TieType string

// Tie type constants.
const (
	TieStart    TieType = "start"
	TieStop     TieType = "stop"
	TieContinue TieType = "continue"
)

// Note is a single pitched event.
type Note struct {
	Pitch    Pitch    `json:"pitch"`
	Duration Duration `json:"duration"`

	// Tie is set when the note starts, continues, or stops a tie.
	Tie TieType `json:"tie,omitempty"`

	// Articulations attached to the note (staccato, accent, ...).
	Articulations []string `json:"articulations,omitempty"`

	// Lyric is the syllable sung on this note, if any.
	Lyric string `json:"lyric,omitempty"`
}

// Chord is two or more pitches sounding together with one duration.
type Chord struct {
	Pitches  []Pitch  `json:"pitches"`
	Duration Duration `json:"duration"`

	Tie           TieType  `json:"tie,omitempty"`
	Articulations []string `json:"articulations,omitempty"`
}

// Rest is a silent event.
type Rest struct {
	Duration Duration `json:"duration"`

	// WholeMeasure marks a rest that fills the measure regardless of type.
	WholeMeasure bool `json:"whole_measure,omitempty"`
}
