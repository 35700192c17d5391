package musicxml

import (
	"sort"

	"github.com/CallumVress/ScoreWeave/core/score"
	"github.com/CallumVress/ScoreWeave/internal/logging"
)

// spannerKey pairs a spanner kind with its source-local id for O(1)
// stop-matching in the open-spanner bundle.
type spannerKey struct {
	kind   score.SpannerKind
	number int
}

// staffState is the most recent clef/key/time seen on one staff. A measure
// lacking its own attributes inherits these.
type staffState struct {
	clef *score.Clef
	key  *score.KeySignature
	time *score.TimeSignature
}

// partState is the running translation state of one part. It is scoped to
// the part being processed and never shared across translations.
type partState struct {
	// divisions is the current duration ticks per quarter note. Sources
	// may change it mid-document.
	divisions float64

	// tuplets holds the currently open tuplet ratios keyed by nesting
	// level, so correctly nested tuplets resolve even when closing
	// brackets arrive out of order across sibling voices.
	tuplets map[int]score.TupletRatio

	// open is the open-spanner bundle keyed by (kind, local id).
	open map[spannerKey]*score.Spanner

	// pendingAssign holds spanners whose start attached to a direction
	// rather than a note; the next materialized note becomes their first
	// endpoint.
	pendingAssign []*score.Spanner

	// chord is the pending-chord accumulator: notes buffered until the
	// next sibling proves they do or do not continue a chord.
	chord []*pendingNote

	// chordOffset is the measure offset the buffered chord starts at.
	chordOffset float64

	// staves is the declared staff count of the part.
	staves int

	// maxStaffSeen tracks staff tags actually used.
	maxStaffSeen int

	// byStaff is the most recent clef/key/time per staff number.
	byStaff map[int]*staffState

	// lastNote is the most recently materialized note-bearing element,
	// used as the closing endpoint of direction spanners.
	lastNote *score.Element

	// completed collects spanners resolved within this part.
	completed []*score.Spanner

	// openEnding is the repeat bracket currently spanning measures.
	openEnding *score.Spanner

	// transpose is the part's written-to-sounding interval, set by the
	// first transpose attribute seen.
	transpose *score.Transposition
}

func newPartState() *partState {
	return &partState{
		divisions: 1,
		tuplets:   make(map[int]score.TupletRatio),
		open:      make(map[spannerKey]*score.Spanner),
		byStaff:   make(map[int]*staffState),
		staves:    1,
	}
}

// staff returns the state for one staff, creating it on first use.
func (ps *partState) staff(n int) *staffState {
	if n <= 0 {
		n = 1
	}
	st, ok := ps.byStaff[n]
	if !ok {
		st = &staffState{}
		ps.byStaff[n] = st
	}
	return st
}

// tupletStack snapshots the open tuplet ratios ordered by nesting level,
// outermost first.
func (ps *partState) tupletStack() []score.TupletRatio {
	if len(ps.tuplets) == 0 {
		return nil
	}
	levels := make([]int, 0, len(ps.tuplets))
	for lvl := range ps.tuplets {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)
	out := make([]score.TupletRatio, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, ps.tuplets[lvl])
	}
	return out
}

// openSpanner registers a new pending spanner in the bundle. A duplicate
// start for a live key replaces the abandoned one.
func (ps *partState) openSpanner(sp *score.Spanner) {
	key := spannerKey{kind: sp.Kind, number: sp.Number}
	if _, exists := ps.open[key]; exists {
		logging.RecoveredInput("duplicate spanner start", "replacing open spanner",
			"kind", string(sp.Kind), "number", sp.Number)
	}
	ps.open[key] = sp
}

// closeSpanner completes the open spanner matching (kind, number) with the
// given final endpoint. An unmatched stop is tolerated and dropped, not
// fatal: ok reports whether a spanner was completed.
func (ps *partState) closeSpanner(kind score.SpannerKind, number int, endpoint *score.Element) (*score.Spanner, bool) {
	key := spannerKey{kind: kind, number: number}
	sp, ok := ps.open[key]
	if !ok {
		logging.RecoveredInput("unmatched spanner stop", "dropped",
			"kind", string(kind), "number", number)
		return nil, false
	}
	delete(ps.open, key)
	if endpoint != nil {
		sp.AddEndpoint(endpoint)
	}
	sp.Complete = true
	ps.completed = append(ps.completed, sp)
	return sp, true
}

// abandonOpen resolves the bundle at document end: spanners that never saw
// their closing endpoint are dropped so no dangling single-endpoint
// spanner reaches the finished graph.
func (ps *partState) abandonOpen() {
	for key, sp := range ps.open {
		logging.RecoveredInput("spanner never closed", "abandoned",
			"kind", string(sp.Kind), "number", sp.Number)
		delete(ps.open, key)
	}
	ps.pendingAssign = nil
}

// assignPending gives direction-attached spanners their first note
// endpoint.
func (ps *partState) assignPending(e *score.Element) {
	for _, sp := range ps.pendingAssign {
		sp.AddEndpoint(e)
	}
	ps.pendingAssign = nil
}
