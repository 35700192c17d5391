package score

import (
	"fmt"
	"strconv"
	"strings"
)

// Clef positions pitches on a staff: sign letter, staff line, and an
// optional octave shift (a vocal tenor clef is G on line 2 shifted -1).
type Clef struct {
	Sign         string `json:"sign"`
	Line         int    `json:"line,omitempty"`
	OctaveChange int    `json:"octave_change,omitempty"`
}

// TrebleClef returns the standard G clef.
func TrebleClef() *Clef { return &Clef{Sign: "G", Line: 2} }

// BassClef returns the standard F clef.
func BassClef() *Clef { return &Clef{Sign: "F", Line: 4} }

// KeySignature is a signed count of fifths from C (positive sharps,
// negative flats) plus an optional mode name.
type KeySignature struct {
	Fifths int    `json:"fifths"`
	Mode   string `json:"mode,omitempty"`
}

// String renders the signature for diagnostics, e.g. "3 sharps (minor)".
func (k KeySignature) String() string {
	var base string
	switch {
	case k.Fifths == 0:
		base = "no sharps or flats"
	case k.Fifths == 1:
		base = "1 sharp"
	case k.Fifths > 1:
		base = fmt.Sprintf("%d sharps", k.Fifths)
	case k.Fifths == -1:
		base = "1 flat"
	default:
		base = fmt.Sprintf("%d flats", -k.Fifths)
	}
	if k.Mode != "" {
		return fmt.Sprintf("%s (%s)", base, k.Mode)
	}
	return base
}

// TimeSignature is beat-count over beat-type. Compound numerators joined
// with "+" ("3+2") keep every addend in BeatCounts.
type TimeSignature struct {
	// BeatCounts holds the numerator addends; a plain numerator is a
	// one-element slice.
	BeatCounts []int `json:"beat_counts"`

	// BeatType is the denominator (4 = quarter note beats).
	BeatType int `json:"beat_type"`

	// Symbol is an optional display symbol ("common", "cut").
	Symbol string `json:"symbol,omitempty"`
}

// ParseTimeSignature parses numerator/denominator strings as written in a
// source document, accepting "+"-joined compound numerators.
func ParseTimeSignature(beats, beatType string) (*TimeSignature, error) {
	var counts []int
	for _, p := range strings.Split(beats, "+") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad beat count %q: %w", beats, err)
		}
		counts = append(counts, n)
	}
	bt, err := strconv.Atoi(strings.TrimSpace(beatType))
	if err != nil {
		return nil, fmt.Errorf("bad beat type %q: %w", beatType, err)
	}
	return &TimeSignature{BeatCounts: counts, BeatType: bt}, nil
}

// Numerator returns the summed beat count.
func (ts TimeSignature) Numerator() int {
	total := 0
	for _, c := range ts.BeatCounts {
		total += c
	}
	return total
}

// BarDuration returns the measure length in quarter notes.
func (ts TimeSignature) BarDuration() float64 {
	if ts.BeatType == 0 {
		return 0
	}
	return float64(ts.Numerator()) * 4.0 / float64(ts.BeatType)
}

// String renders the signature, e.g. "4/4" or "3+2/8".
func (ts TimeSignature) String() string {
	parts := make([]string, len(ts.BeatCounts))
	for i, c := range ts.BeatCounts {
		parts[i] = strconv.Itoa(c)
	}
	return fmt.Sprintf("%s/%d", strings.Join(parts, "+"), ts.BeatType)
}

// BarStyle is the notated style of a barline.
type BarStyle string

// Bar style constants.
const (
	BarRegular    BarStyle = "regular"
	BarDotted     BarStyle = "dotted"
	BarDashed     BarStyle = "dashed"
	BarHeavy      BarStyle = "heavy"
	BarLightLight BarStyle = "light-light"
	BarLightHeavy BarStyle = "light-heavy"
	BarHeavyLight BarStyle = "heavy-light"
	BarHeavyHeavy BarStyle = "heavy-heavy"
	BarTick       BarStyle = "tick"
	BarShort      BarStyle = "short"
	BarNone       BarStyle = "none"
)

// RepeatDirection marks a repeat sign on a barline.
type RepeatDirection string

// Repeat direction constants.
const (
	RepeatForward  RepeatDirection = "forward"
	RepeatBackward RepeatDirection = "backward"
)

// Barline is a measure boundary marking: style plus optional repeat sign.
// Repeat brackets (endings) are spanners, not barline payload, because they
// span measures.
type Barline struct {
	// Location is where the barline sits in its measure ("left", "right").
	Location string `json:"location,omitempty"`

	Style  BarStyle        `json:"style,omitempty"`
	Repeat RepeatDirection `json:"repeat,omitempty"`

	// RepeatTimes is the play count of a backward repeat (0 = default 2).
	RepeatTimes int `json:"repeat_times,omitempty"`
}
