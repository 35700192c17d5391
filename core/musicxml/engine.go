// Package musicxml translates MusicXML documents into the score graph.
//
// The translator walks a score-partwise tree part by part, measure by
// measure, keeping a running state of divisions, open spanners, and the
// pending chord accumulator. Malformed notation is recovered where a
// sensible reading exists and logged; structural failures surface as
// typed errors carrying the part and measure where translation stopped.
package musicxml

import (
	"fmt"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/CallumVress/ScoreWeave/core/archive"
	"github.com/CallumVress/ScoreWeave/core/errors"
	"github.com/CallumVress/ScoreWeave/core/score"
)

// EngineVersion identifies the translation semantics. Cached artifacts
// produced by a different version are flagged on load.
const EngineVersion = "1.4.0"

// Converter translates MusicXML into score graphs. The zero value is
// ready to use; New exists for registry wiring.
type Converter struct {
	scores []*score.Score
}

// New returns a fresh MusicXML converter.
func New() *Converter { return &Converter{} }

// Score returns the selected work of the last successful parse, or nil.
func (c *Converter) Score() *score.Score {
	if len(c.scores) == 0 {
		return nil
	}
	return c.scores[0]
}

// Scores returns every work of the last successful parse.
func (c *Converter) Scores() []*score.Score { return c.scores }

// ParseFile translates the document at path. Compressed archives are
// unpacked and decoded in place; number selects the work of a multi-work
// document (0 means the first).
func (c *Converter) ParseFile(path string, number int) error {
	if archive.IsArchive(path) {
		doc, err := archive.ExtractXML(path, "")
		if err != nil {
			return err
		}
		return c.parseText(doc, number)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIO("read", path, err)
	}
	return c.ParseData(data, number)
}

// ParseData translates an in-memory document. Compressed container bytes
// are resolved to their XML payload first; plain bytes are normalized to
// UTF-8 before the tree walk. number selects the work of a multi-work
// document.
func (c *Converter) ParseData(data []byte, number int) error {
	if archive.HasMagic(data) {
		doc, err := archive.ExtractXMLData(data, "")
		if err != nil {
			return err
		}
		return c.parseText(doc, number)
	}
	return c.parseText(archive.DecodeDocument(data), number)
}

func (c *Converter) parseText(text string, number int) error {
	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return errors.NewParse("musicxml", "", err.Error())
	}
	root := documentRoot(doc)
	if root == nil {
		return errors.NewParse("musicxml", "", "no document element")
	}

	var works []*xmlquery.Node
	switch root.Data {
	case "score-partwise":
		works = []*xmlquery.Node{root}
	case "score-timewise":
		return errors.NewUnsupported("score-timewise", "only score-partwise documents are translated")
	case "opus":
		works = collectOpusWorks(root)
		if len(works) == 0 {
			return errors.NewParse("musicxml", "", "opus contains no embedded scores")
		}
	default:
		return errors.NewParse("musicxml", "", fmt.Sprintf("unexpected root element <%s>", root.Data))
	}

	if number > 0 {
		if number > len(works) {
			return errors.NewNotFound("work", fmt.Sprintf("%d of %d", number, len(works)))
		}
		works = works[number-1 : number]
	}

	scores := make([]*score.Score, 0, len(works))
	for _, w := range works {
		s, err := translateScore(w)
		if err != nil {
			return err
		}
		scores = append(scores, s)
	}
	c.scores = scores
	return nil
}

// documentRoot finds the document element, skipping prolog nodes.
func documentRoot(doc *xmlquery.Node) *xmlquery.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// collectOpusWorks gathers embedded score-partwise elements from an opus
// wrapper. Linked external movements are not resolvable from a byte
// stream and are skipped.
func collectOpusWorks(opus *xmlquery.Node) []*xmlquery.Node {
	var works []*xmlquery.Node
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for _, c := range elements(n) {
			if c.Data == "score-partwise" {
				works = append(works, c)
				continue
			}
			walk(c)
		}
	}
	walk(opus)
	return works
}

// partInfo is the part-list entry cross-referenced into each part.
type partInfo struct {
	name         string
	abbreviation string
	instrument   *score.Instrument
}

// translateScore walks one score-partwise element into a score graph.
func translateScore(root *xmlquery.Node) (*score.Score, error) {
	s := score.NewScore()
	s.Metadata = readMetadata(root)

	infos := readPartList(root)

	for _, pn := range elements(root) {
		if pn.Data != "part" {
			continue
		}
		id := attr(pn, "id")
		info := infos[id]
		parts, err := translatePart(pn, id, info)
		if err != nil {
			return nil, err
		}
		s.Parts = append(s.Parts, parts...)
	}
	return s, nil
}

// readMetadata collects work and identification headers.
func readMetadata(root *xmlquery.Node) score.Metadata {
	var md score.Metadata
	if w := child(root, "work"); w != nil {
		md.Title = childText(w, "work-title")
		md.WorkNumber = childText(w, "work-number")
	}
	md.MovementNumber = childText(root, "movement-number")
	md.MovementTitle = childText(root, "movement-title")
	if md.Title == "" {
		md.Title = md.MovementTitle
	}
	if ident := child(root, "identification"); ident != nil {
		for _, c := range elements(ident) {
			switch c.Data {
			case "creator":
				switch attr(c, "type") {
				case "composer", "":
					if md.Composer == "" {
						md.Composer = text(c)
					}
				case "lyricist", "poet":
					if md.Lyricist == "" {
						md.Lyricist = text(c)
					}
				}
			case "rights":
				if md.Rights == "" {
					md.Rights = text(c)
				}
			case "encoding":
				md.Software = childText(c, "software")
			}
		}
	}
	return md
}

// readPartList indexes score-part declarations by part id.
func readPartList(root *xmlquery.Node) map[string]partInfo {
	infos := make(map[string]partInfo)
	pl := child(root, "part-list")
	if pl == nil {
		return infos
	}
	for _, sp := range elements(pl) {
		if sp.Data != "score-part" {
			continue
		}
		id := attr(sp, "id")
		info := partInfo{
			name:         childText(sp, "part-name"),
			abbreviation: childText(sp, "part-abbreviation"),
		}
		if si := child(sp, "score-instrument"); si != nil {
			info.ensureInstrument().ID = attr(si, "id")
			info.instrument.Name = childText(si, "instrument-name")
		}
		if mi := child(sp, "midi-instrument"); mi != nil {
			info.ensureInstrument().MIDIProgram = childInt(mi, "midi-program", 0)
			info.instrument.MIDIChannel = childInt(mi, "midi-channel", 0)
		}
		infos[id] = info
	}
	return infos
}

// translatePart walks one part element. Multi-staff parts come back split
// into one part per staff; otherwise the slice holds a single part.
func translatePart(pn *xmlquery.Node, id string, info partInfo) ([]*score.Part, error) {
	p := &score.Part{
		ID:           id,
		Name:         info.name,
		Abbreviation: info.abbreviation,
		Instrument:   info.instrument,
	}
	ps := newPartState()

	for _, mn := range elements(pn) {
		if mn.Data != "measure" {
			continue
		}
		m, err := translateMeasure(mn, ps)
		if err != nil {
			return nil, errors.NewTranslate(id, m.Number, err)
		}
		p.Measures = append(p.Measures, m)
	}
	ps.abandonOpen()
	if ps.transpose != nil {
		if p.Instrument == nil {
			p.Instrument = &score.Instrument{}
		}
		p.Instrument.Transposition = ps.transpose
	}
	p.Spanners = append(p.Spanners, ps.completed...)

	for _, m := range p.Measures {
		m.FlattenSingleVoice()
	}

	if staves := maxStaves(ps); staves > 1 {
		return splitStaves(p, staves), nil
	}
	return []*score.Part{p}, nil
}

func maxStaves(ps *partState) int {
	n := ps.staves
	if ps.maxStaffSeen > n {
		n = ps.maxStaffSeen
	}
	return n
}

func (pi *partInfo) ensureInstrument() *score.Instrument {
	if pi.instrument == nil {
		pi.instrument = &score.Instrument{}
	}
	return pi.instrument
}

// readTranspose parses a transpose element into the written-to-sounding
// interval of a transposing instrument.
func readTranspose(n *xmlquery.Node) *score.Transposition {
	return &score.Transposition{
		Diatonic:     childInt(n, "diatonic", 0),
		Chromatic:    childInt(n, "chromatic", 0),
		OctaveChange: childInt(n, "octave-change", 0),
	}
}
