package score

import "strings"

// Dynamic is a loudness marking attached at an offset (p, mf, sfz, ...).
type Dynamic struct {
	// Value is the marking as written ("p", "ff", "sfz").
	Value string `json:"value"`
}

// TempoMark is a metronome or textual tempo indication.
type TempoMark struct {
	// BPM is beats per minute; zero when the mark is purely textual.
	BPM float64 `json:"bpm,omitempty"`

	// BeatUnit is the note value carrying the beat ("quarter" by default).
	BeatUnit string `json:"beat_unit,omitempty"`

	// Text is the printed tempo text ("Allegro"), if any.
	Text string `json:"text,omitempty"`
}

// TextExpression is free text attached at an offset ("dolce", rehearsal
// letters).
type TextExpression struct {
	Text string `json:"text"`
}

// SegnoCoda marks a navigation symbol.
type SegnoCoda struct {
	// Kind is "segno" or "coda".
	Kind string `json:"kind"`
}

// DegreeModification alters one chord degree of a chord symbol.
type DegreeModification struct {
	// Degree is the scale degree number (9, 11, 13...).
	Degree int `json:"degree"`

	// Alter is the chromatic alteration of the degree in semitones.
	Alter int `json:"alter,omitempty"`

	// Type is "add", "alter", or "subtract".
	Type string `json:"type"`
}

// ChordSymbol is a harmony indication: root, optional bass, harmonic kind,
// and degree modifications.
type ChordSymbol struct {
	Root Pitch  `json:"root"`
	Bass *Pitch `json:"bass,omitempty"`

	// Kind is the canonical harmonic quality ("major", "dominant", ...).
	Kind string `json:"kind"`

	// KindText is the printed text for the kind, when it differs.
	KindText string `json:"kind_text,omitempty"`

	Degrees []DegreeModification `json:"degrees,omitempty"`
}

// chordKindAliases folds historical spellings of the same harmonic quality
// to one canonical kind. Real-world files mix generations of the
// vocabulary freely.
var chordKindAliases = map[string]string{
	"dominant":         "dominant-seventh",
	"dominant-seventh": "dominant-seventh",
	"major-seventh":    "major-seventh",
	"maj7":             "major-seventh",
	"minor-seventh":    "minor-seventh",
	"min7":             "minor-seventh",
	"major":            "major",
	"maj":              "major",
	"minor":            "minor",
	"min":              "minor",
	"augmented":        "augmented",
	"aug":              "augmented",
	"diminished":       "diminished",
	"dim":              "diminished",
	"half-diminished":  "half-diminished",
	"major-minor":      "minor-major-seventh",
	"minor-major":      "minor-major-seventh",
	"dominant-ninth":   "dominant-ninth",
	"dominant-11th":    "dominant-11th",
	"dominant-13th":    "dominant-13th",
	"suspended-second": "suspended-second",
	"sus2":             "suspended-second",
	"suspended-fourth": "suspended-fourth",
	"sus4":             "suspended-fourth",
	"power":            "power",
	"pedal":            "pedal",
	"none":             "none",
	"other":            "other",
}

// CanonicalChordKind resolves a kind vocabulary word, tolerating historical
// aliases for the same harmonic quality. Unknown words come back unchanged
// with ok=false so callers can keep the source spelling.
func CanonicalChordKind(kind string) (string, bool) {
	canonical, ok := chordKindAliases[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return kind, false
	}
	return canonical, true
}
