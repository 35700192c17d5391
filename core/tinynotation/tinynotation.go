// Package tinynotation translates the compact text dialect for quick
// musical sketches: a meter token followed by note tokens, e.g.
// "4/4 c4 d8 e8 f2". Note letters carry octave by case (c = C4, C = C3,
// apostrophes raise, doubled capitals lower), suffixes carry accidentals
// (#, -), the duration denominator, dots, and a tie marker (~). A missing
// duration repeats the previous one.
package tinynotation

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/CallumVress/ScoreWeave/core/errors"
	"github.com/CallumVress/ScoreWeave/core/score"
)

//nolint:govet // participle grammar tags are not standard struct tags
type tinyGrammar struct {
	Meter  string   `parser:"@Meter"`
	Tokens []string `parser:"@Token*"`
}

var tinyLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Meter", Pattern: `[0-9]+/[0-9]+`},
	{Name: "Token", Pattern: `[A-Ga-gr][A-Ga-g']*[#n-]*[0-9]*\.*~?`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var tinyParser = participle.MustBuild[tinyGrammar](
	participle.Lexer(tinyLexer),
	participle.Elide("Whitespace"),
)

// Converter translates tinynotation text into a single-part score.
type Converter struct {
	scores []*score.Score
}

// New returns a fresh tinynotation converter.
func New() *Converter { return &Converter{} }

// Score returns the translated score, or nil before a successful parse.
func (c *Converter) Score() *score.Score {
	if len(c.scores) == 0 {
		return nil
	}
	return c.scores[0]
}

// Scores returns the translated works; tinynotation is always one.
func (c *Converter) Scores() []*score.Score { return c.scores }

// ParseFile translates the document at path.
func (c *Converter) ParseFile(path string, number int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIO("read", path, err)
	}
	return c.ParseData(data, number)
}

// ParseData translates tinynotation text. The number argument exists for
// the handler contract; the dialect has no multi-work form.
func (c *Converter) ParseData(data []byte, _ int) error {
	text := strings.TrimSpace(string(data))
	g, err := tinyParser.ParseString("", text)
	if err != nil {
		return errors.NewParse("tinynotation", "", err.Error())
	}

	meterParts := strings.SplitN(g.Meter, "/", 2)
	ts, err := score.ParseTimeSignature(meterParts[0], meterParts[1])
	if err != nil {
		return errors.NewParse("tinynotation", "", err.Error())
	}

	s, err := build(ts, g.Tokens)
	if err != nil {
		return err
	}
	c.scores = []*score.Score{s}
	return nil
}

// build lays tokens into measures, starting a new measure whenever the
// meter's bar duration fills up.
func build(ts *score.TimeSignature, tokens []string) (*score.Score, error) {
	s := score.NewScore()
	p := &score.Part{ID: "P1"}
	s.AddPart(p)

	barLen := ts.BarDuration()
	m := score.NewMeasure("1")
	m.Insert(0, score.NewTimeElement(ts))
	p.Append(m)

	cursor := 0.0
	lastQL := 1.0
	var openTie *score.Spanner

	for i, tok := range tokens {
		ev, err := parseToken(tok, lastQL)
		if err != nil {
			return nil, errors.NewTranslate(p.ID, m.Number, fmt.Errorf("token %d %q: %w", i+1, tok, err))
		}
		lastQL = ev.ql

		if barLen > 0 && cursor >= barLen {
			m = score.NewMeasure(fmt.Sprintf("%d", len(p.Measures)+1))
			p.Append(m)
			cursor = 0
		}

		var e *score.Element
		if ev.rest {
			e = score.NewRestElement(&score.Rest{Duration: ev.duration()})
		} else {
			n := &score.Note{Pitch: ev.pitch, Duration: ev.duration()}
			if openTie != nil {
				n.Tie = score.TieStop
			}
			e = score.NewNoteElement(n)
		}
		m.Insert(cursor, e)
		cursor += ev.ql

		if openTie != nil && !ev.rest {
			openTie.AddEndpoint(e)
			openTie.Complete = true
			p.AddSpanner(openTie)
			openTie = nil
		}
		if ev.tie && !ev.rest {
			e.Note.Tie = combineTie(e.Note.Tie)
			openTie = score.NewSpanner(score.SpannerTie, 0)
			openTie.AddEndpoint(e)
		}
	}
	// A trailing tie has nothing to connect to.
	return s, nil
}

func combineTie(existing score.TieType) score.TieType {
	if existing == score.TieStop {
		return score.TieContinue
	}
	return score.TieStart
}

// event is one parsed token.
type event struct {
	rest  bool
	pitch score.Pitch
	ql    float64
	typ   string
	dots  int
	tie   bool
}

func (ev event) duration() score.Duration {
	return score.Duration{QuarterLength: ev.ql, Type: ev.typ, Dots: ev.dots}
}

// denominators maps the duration digit to quarter length and type name.
var denominators = map[string]struct {
	ql  float64
	typ string
}{
	"1":  {4, "whole"},
	"2":  {2, "half"},
	"4":  {1, "quarter"},
	"8":  {0.5, "eighth"},
	"16": {0.25, "16th"},
	"32": {0.125, "32nd"},
}

// parseToken decodes one note token. lastQL is the inherited duration for
// tokens that omit their own.
func parseToken(tok string, lastQL float64) (event, error) {
	var ev event
	rest := tok

	if rest[len(rest)-1] == '~' {
		ev.tie = true
		rest = rest[:len(rest)-1]
	}

	dots := 0
	for len(rest) > 0 && rest[len(rest)-1] == '.' {
		dots++
		rest = rest[:len(rest)-1]
	}
	ev.dots = dots

	// Split off the trailing duration digits.
	digits := ""
	for len(rest) > 0 && rest[len(rest)-1] >= '0' && rest[len(rest)-1] <= '9' {
		digits = string(rest[len(rest)-1]) + digits
		rest = rest[:len(rest)-1]
	}

	base := lastQL
	if digits != "" {
		den, ok := denominators[digits]
		if !ok {
			return ev, fmt.Errorf("unknown duration %q", digits)
		}
		base = den.ql
		ev.typ = den.typ
	}
	ev.ql = base
	add := base
	for i := 0; i < dots; i++ {
		add /= 2
		ev.ql += add
	}

	if rest == "" {
		return ev, fmt.Errorf("no pitch letter")
	}
	if rest == "r" {
		ev.rest = true
		return ev, nil
	}

	// Accidentals.
	alter := 0.0
	for len(rest) > 0 {
		switch rest[len(rest)-1] {
		case '#':
			alter++
		case '-':
			alter--
		case 'n':
			alter = 0
		default:
			goto letters
		}
		rest = rest[:len(rest)-1]
	}
letters:
	if rest == "" {
		return ev, fmt.Errorf("no pitch letter")
	}

	head := rest[0]
	octave := 0
	switch {
	case head >= 'a' && head <= 'g':
		octave = 4
		for _, r := range rest[1:] {
			if r != '\'' {
				return ev, fmt.Errorf("unexpected octave mark %q", r)
			}
			octave++
		}
	case head >= 'A' && head <= 'G':
		octave = 3
		for _, r := range rest[1:] {
			if byte(r) != head {
				return ev, fmt.Errorf("unexpected octave mark %q", r)
			}
			octave--
		}
	default:
		return ev, fmt.Errorf("bad pitch letter %q", head)
	}

	ev.pitch = score.Pitch{
		Step:   strings.ToUpper(string(head)),
		Alter:  alter,
		Octave: octave,
	}
	return ev, nil
}
