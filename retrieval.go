package zambezi

import (
	"context"
	"fmt"
	"sort"
)

// Algorithm selects a retrieval strategy. SVS, BwandOr, Wand and Mbwand
// produce identical top-k membership for a disjunctive query at sufficient
// result depth; they differ only in how aggressively they skip candidates
// that cannot enter the final result set. BwandAnd is conjunctive and
// returns only docids present in every queried term's list.
type Algorithm int

const (
	// SVS (Sorted-Vector-Scan) visits every candidate docid in turn with
	// no pruning. It is the default and the reference against which the
	// others are tested for agreement.
	SVS Algorithm = iota
	// BwandOr applies a single global bound check: once no live cursor's
	// remaining contribution could unseat the current weakest top-k hit,
	// the whole union scan stops early.
	BwandOr
	// BwandAnd requires every queried term's cursor to agree on a docid
	// before it is considered a candidate (boolean AND semantics).
	BwandAnd
	// Wand is the classic pivoted WAND algorithm: cursors are sorted by
	// current docid, a pivot is chosen from prefix sums of per-term upper
	// bounds, and non-competitive regions are skipped with AdvanceTo
	// instead of being visited one docid at a time.
	Wand
	// Mbwand is block-max WAND. The posting block format carries no
	// per-block max-impact field, only the term-level bound the
	// dictionary tracks, so it shares Wand's implementation — see
	// DESIGN.md.
	Mbwand
)

// String returns the selector's configuration name.
func (a Algorithm) String() string {
	switch a {
	case SVS:
		return "SVS"
	case BwandOr:
		return "BWAND_OR"
	case BwandAnd:
		return "BWAND_AND"
	case Wand:
		return "WAND"
	case Mbwand:
		return "MBWAND"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Filter answers whether a docid may appear in a result set. A nil Filter
// passes every docid.
type Filter func(DocID) bool

// checkCancel is consulted between docid candidates. Cooperative
// cancellation keeps the retrieval loop free of blocking on a hot path
// that performs no I/O.
func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("zambezi: %w", ErrCanceled)
	default:
		return nil
	}
}

// saturate32 truncates a score accumulated in 64 bits (so summing many
// terms' weighted impacts can never silently wrap) to the 32-bit result
// space, clamping to the maximum representable score instead of wrapping.
func saturate32(acc uint64) uint32 {
	const max32 = uint64(^uint32(0))
	if acc > max32 {
		return ^uint32(0)
	}
	return uint32(acc)
}

// Search runs the retrieval engine over this property for one query: it
// opens one cursor per token (tokens absent from the dictionary contribute
// nothing), walks them with algo under filter, and returns the best limit
// hits ordered by descending score, docid breaking ties in traversal
// order. The property's read lock is held for the whole call; cursors
// never outlive it.
func (p *PropertyIndex) Search(ctx context.Context, tokens []TokenWeight, filter Filter, limit int, algo Algorithm) ([]Hit, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return runRetrieval(ctx, p.openCursors(tokens), filter, limit, p.cfg.Reverse, algo)
}

// collect is the merge-bound form of Search: it walks the same cursors to
// exhaustion and returns every surviving candidate in docid-traversal
// order with no top-k truncation, because a cross-property merge can still
// lift a docid a single property's top-k would have dropped.
func (p *PropertyIndex) collect(ctx context.Context, tokens []TokenWeight, filter Filter, algo Algorithm) ([]Hit, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return collectAll(ctx, p.openCursors(tokens), filter, p.cfg.Reverse, algo)
}

// openCursors opens one weighted cursor per token. Caller holds the read
// lock. Tokens with no posting list get no cursor in the returned slice.
func (p *PropertyIndex) openCursors(tokens []TokenWeight) []*Cursor {
	cursors := make([]*Cursor, 0, len(tokens))
	for _, tw := range tokens {
		c, err := p.OpenCursor(HashTerm(tw.Token))
		if err != nil {
			continue
		}
		c.setWeight(tw.Weight)
		cursors = append(cursors, c)
	}
	return cursors
}

// extremeDocID returns the minimum current docid across cursors in
// ascending mode, or the maximum in reverse mode — the next docid the
// traversal direction surfaces.
func extremeDocID(cursors []*Cursor, reverse bool) DocID {
	extreme := cursors[0].CurrentDocID()
	for _, c := range cursors[1:] {
		d := c.CurrentDocID()
		if reverse {
			if d > extreme {
				extreme = d
			}
		} else if d < extreme {
			extreme = d
		}
	}
	return extreme
}

// precedes reports whether a comes strictly before b in the traversal
// direction named by reverse (ascending if !reverse, descending if
// reverse).
func precedes(a, b DocID, reverse bool) bool {
	if reverse {
		return a > b
	}
	return a < b
}

// runRetrieval drains cursors according to algo, applying filter and
// keeping the best limit hits. Nil cursors are ignored. All cursors must
// share the same traversal direction.
func runRetrieval(ctx context.Context, cursors []*Cursor, filter Filter, limit int, reverse bool, algo Algorithm) ([]Hit, error) {
	live := make([]*Cursor, 0, len(cursors))
	for _, c := range cursors {
		if c != nil && !c.Done() {
			live = append(live, c)
		}
	}
	if len(live) == 0 || limit <= 0 {
		return nil, nil
	}

	if algo == BwandAnd {
		return intersectAnd(ctx, live, filter, limit, reverse)
	}
	return unionWalk(ctx, live, filter, limit, reverse, algo)
}

// unionWalk implements SVS, BwandOr, Wand and Mbwand: all are OR-semantics
// document-at-a-time walks over the union of live cursors, summing tied
// weighted impacts into one candidate score, differing only in how they
// skip ahead.
func unionWalk(ctx context.Context, live []*Cursor, filter Filter, limit int, reverse bool, algo Algorithm) ([]Hit, error) {
	h := newTopKHeap(limit, reverse)

	for len(live) > 0 {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}

		if algo == BwandOr {
			if minScore, full := h.Min(); full {
				var bound uint64
				for _, c := range live {
					bound += c.UpperBound()
				}
				if bound <= uint64(minScore) {
					break
				}
			}
		}

		if algo == Wand || algo == Mbwand {
			advanced := wandSkip(live, h, reverse)
			if advanced {
				live = compactLive(live)
				continue
			}
		}

		extreme := extremeDocID(live, reverse)

		var acc uint64
		for _, c := range live {
			if c.CurrentDocID() == extreme {
				acc += c.CurrentScore()
			}
		}
		if filter == nil || filter(extreme) {
			h.Offer(extreme, saturate32(acc))
		}
		for _, c := range live {
			if c.CurrentDocID() == extreme {
				c.Advance()
			}
		}
		live = compactLive(live)
	}

	return h.Sorted(), nil
}

// wandSkip performs one pivoting step of WAND: cursors are sorted by
// current docid in traversal order, and the pivot is the first cursor
// whose prefix sum of upper bounds exceeds the current top-k threshold.
// If the pivot's docid differs from the nearest cursor's, the nearest
// cursor is galloped straight to the pivot via AdvanceTo. It reports true
// if it moved a cursor (the caller should re-evaluate live cursors and
// loop) or false if the caller should fall through to normal
// accumulation.
func wandSkip(live []*Cursor, h *topKHeap, reverse bool) bool {
	threshold, full := h.Min()
	if !full {
		return false
	}

	sorted := make([]*Cursor, len(live))
	copy(sorted, live)
	sort.Slice(sorted, func(i, j int) bool {
		return precedes(sorted[i].CurrentDocID(), sorted[j].CurrentDocID(), reverse)
	})

	var prefix uint64
	pivot := -1
	for i, c := range sorted {
		prefix += c.UpperBound()
		if prefix > uint64(threshold) {
			pivot = i
			break
		}
	}
	if pivot < 0 {
		// No prefix can beat the threshold; nothing left in any list can
		// enter the top-k, so drain by advancing the nearest cursor.
		sorted[0].Advance()
		return true
	}

	pivotDoc := sorted[pivot].CurrentDocID()
	nearestDoc := sorted[0].CurrentDocID()
	if pivotDoc == nearestDoc {
		return false
	}
	sorted[0].AdvanceTo(pivotDoc)
	return true
}

// intersectAnd implements BwandAnd: a docid is a candidate only if every
// live cursor currently agrees on it. Cursors that lag are galloped
// forward with AdvanceTo rather than stepped one docid at a time. A single
// exhausted cursor ends the walk, since no further docid can appear in
// every list.
func intersectAnd(ctx context.Context, live []*Cursor, filter Filter, limit int, reverse bool) ([]Hit, error) {
	h := newTopKHeap(limit, reverse)

	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}

		target := live[0].CurrentDocID()
		for _, c := range live[1:] {
			if precedes(target, c.CurrentDocID(), reverse) {
				target = c.CurrentDocID()
			}
		}

		allMatch := true
		for _, c := range live {
			if c.CurrentDocID() != target {
				allMatch = false
				c.AdvanceTo(target)
			}
		}

		if allMatch {
			var acc uint64
			for _, c := range live {
				acc += c.CurrentScore()
			}
			if filter == nil || filter(target) {
				h.Offer(target, saturate32(acc))
			}
			for _, c := range live {
				c.Advance()
			}
		}

		for _, c := range live {
			if c.Done() {
				return h.Sorted(), nil
			}
		}
	}
}

// compactLive drops exhausted cursors in place, preserving relative order.
func compactLive(cursors []*Cursor) []*Cursor {
	out := cursors[:0]
	for _, c := range cursors {
		if !c.Done() {
			out = append(out, c)
		}
	}
	return out
}
