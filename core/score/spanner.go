package score

import "github.com/google/uuid"

// SpannerKind identifies the relationship a spanner expresses.
type SpannerKind string

// Spanner kind constants.
const (
	SpannerSlur    SpannerKind = "slur"
	SpannerTie     SpannerKind = "tie"
	SpannerTuplet  SpannerKind = "tuplet"
	SpannerWedge   SpannerKind = "wedge"
	SpannerOttava  SpannerKind = "ottava"
	SpannerEnding  SpannerKind = "ending"
	SpannerDashes  SpannerKind = "dashes"
	SpannerBracket SpannerKind = "bracket"
)

// validSpannerKinds is the set of valid spanner kinds.
var validSpannerKinds = map[SpannerKind]bool{
	SpannerSlur:    true,
	SpannerTie:     true,
	SpannerTuplet:  true,
	SpannerWedge:   true,
	SpannerOttava:  true,
	SpannerEnding:  true,
	SpannerDashes:  true,
	SpannerBracket: true,
}

// IsValid returns true if the spanner kind is valid.
func (k SpannerKind) IsValid() bool {
	return validSpannerKinds[k]
}

// Spanner is a relationship object connecting two or more events without
// owning them. At runtime endpoints are identity references into the
// measure-owned element lists; for serialization only the element IDs are
// written and Relink restores the pointers on decode.
type Spanner struct {
	// ID is a unique identifier for the spanner itself.
	ID string `json:"id"`

	// Kind is the relationship expressed.
	Kind SpannerKind `json:"kind"`

	// Number is the source-local id used to pair starts with stops when
	// several spanners of one kind overlap. Zero when the source gave none.
	Number int `json:"number,omitempty"`

	// Complete reports that the closing endpoint was seen. Incomplete
	// spanners never appear in a finished graph: they are resolved or
	// abandoned at document end.
	Complete bool `json:"complete"`

	// Endpoints are the connected events, first and last at minimum.
	// Runtime-only; EndpointIDs is the serialized form.
	Endpoints []*Element `json:"-"`

	// EndpointIDs holds the element IDs of Endpoints for serialization.
	EndpointIDs []string `json:"endpoint_ids,omitempty"`

	// Placement is the notated placement ("above", "below"), if any.
	Placement string `json:"placement,omitempty"`

	// WedgeType is "crescendo" or "diminuendo" for wedge spanners.
	WedgeType string `json:"wedge_type,omitempty"`

	// OttavaSize is the octave-shift size in diatonic steps (8, 15) and
	// OttavaDirection "up" or "down", for ottava spanners.
	OttavaSize      int    `json:"ottava_size,omitempty"`
	OttavaDirection string `json:"ottava_direction,omitempty"`

	// Ratio is the tuplet ratio for tuplet-bracket spanners.
	Ratio *TupletRatio `json:"ratio,omitempty"`

	// EndingNumbers is the set of repeat passes an ending applies to.
	EndingNumbers []int `json:"ending_numbers,omitempty"`

	// EndingLabel is the ending's printed label when it is not numeric.
	EndingLabel string `json:"ending_label,omitempty"`

	// MeasureNumbers records the measures an ending bracket covers, in
	// order. Endings span measures rather than notes.
	MeasureNumbers []string `json:"measure_numbers,omitempty"`
}

// NewSpanner constructs an open spanner of the given kind and local id.
func NewSpanner(kind SpannerKind, number int) *Spanner {
	return &Spanner{ID: uuid.NewString(), Kind: kind, Number: number}
}

// AddEndpoint appends an event reference and mirrors its ID for
// serialization.
func (sp *Spanner) AddEndpoint(e *Element) {
	sp.Endpoints = append(sp.Endpoints, e)
	sp.EndpointIDs = append(sp.EndpointIDs, e.ID)
}

// First returns the opening endpoint, or nil for an endpoint-less spanner
// (an ending bracket spans measures, not events).
func (sp *Spanner) First() *Element {
	if len(sp.Endpoints) == 0 {
		return nil
	}
	return sp.Endpoints[0]
}

// Last returns the closing endpoint, or nil.
func (sp *Spanner) Last() *Element {
	if len(sp.Endpoints) == 0 {
		return nil
	}
	return sp.Endpoints[len(sp.Endpoints)-1]
}

// Relink restores Endpoints pointers from EndpointIDs after the graph has
// been decoded from its serialized form. IDs that no longer resolve are
// dropped silently: a pruned staff copy may not carry every endpoint.
func (s *Score) Relink() {
	byID := make(map[string]*Element)
	for _, p := range s.Parts {
		for _, m := range p.Measures {
			for _, e := range m.AllElements() {
				byID[e.ID] = e
			}
		}
	}
	relink := func(spanners []*Spanner) {
		for _, sp := range spanners {
			sp.Endpoints = sp.Endpoints[:0]
			for _, id := range sp.EndpointIDs {
				if e, ok := byID[id]; ok {
					sp.Endpoints = append(sp.Endpoints, e)
				}
			}
		}
	}
	relink(s.Spanners)
	for _, p := range s.Parts {
		relink(p.Spanners)
	}
}
