package zambezi

import "context"

// collectAll walks live cursors to exhaustion and returns every surviving
// (docid, score) candidate in docid-traversal order, with no top-k
// truncation. It is the form per-property retrieval takes when its output
// still has to pass through mergeProperties: bound-based pruning only
// terminates a walk early because the caller cares about that property's
// top-k alone, and a cross-property merge can still lift a docid a single
// property would have pruned. BwandAnd keeps its AND agreement among this
// property's query tokens; the other algorithms all take the plain union
// walk here since pruning would be unsound.
func collectAll(ctx context.Context, cursors []*Cursor, filter Filter, reverse bool, algo Algorithm) ([]Hit, error) {
	live := make([]*Cursor, 0, len(cursors))
	for _, c := range cursors {
		if c != nil && !c.Done() {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return nil, nil
	}
	if algo == BwandAnd {
		return collectAllAnd(ctx, live, filter, reverse)
	}

	var out []Hit
	for len(live) > 0 {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		extreme := extremeDocID(live, reverse)
		var acc uint64
		for _, c := range live {
			if c.CurrentDocID() == extreme {
				acc += c.CurrentScore()
			}
		}
		if filter == nil || filter(extreme) {
			out = append(out, Hit{Doc: extreme, Score: saturate32(acc)})
		}
		for _, c := range live {
			if c.CurrentDocID() == extreme {
				c.Advance()
			}
		}
		live = compactLive(live)
	}
	return out, nil
}

func collectAllAnd(ctx context.Context, live []*Cursor, filter Filter, reverse bool) ([]Hit, error) {
	var out []Hit
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
				out = append(out, Hit{Doc: target, Score: saturate32(acc)})
			}
			for _, c := range live {
				c.Advance()
			}
		}
		// One exhausted list ends the intersection: no later docid can be
		// present in every list.
		for _, c := range live {
			if c.Done() {
				return out, nil
			}
		}
	}
}

// mergeProperties fuses per-property result lists into one docid-ordered
// list: a k-way lock-step walk that picks the extremum docid across all
// live lists (minimum ascending, maximum if reverse), sums the score of
// every list tied at that docid into a single output entry, and advances
// only the tied lists. Once one list remains, its unconsumed tail is
// spliced onto the output as-is — still in docid order, never re-sorted by
// score. Final ranking by score is the caller's job.
func mergeProperties(lists [][]Hit, reverse bool) []Hit {
	type stream struct {
		hits []Hit
		pos  int
	}

	live := make([]*stream, 0, len(lists))
	for _, l := range lists {
		if len(l) > 0 {
			live = append(live, &stream{hits: l})
		}
	}

	var out []Hit
	for len(live) > 1 {
		extreme := live[0].hits[live[0].pos].Doc
		for _, s := range live[1:] {
			d := s.hits[s.pos].Doc
			if reverse {
				if d > extreme {
					extreme = d
				}
			} else if d < extreme {
				extreme = d
			}
		}

		var score uint64
		for _, s := range live {
			if s.hits[s.pos].Doc == extreme {
				score += uint64(s.hits[s.pos].Score)
			}
		}
		out = append(out, Hit{Doc: extreme, Score: saturate32(score)})

		next := live[:0]
		for _, s := range live {
			if s.hits[s.pos].Doc == extreme {
				s.pos++
			}
			if s.pos < len(s.hits) {
				next = append(next, s)
			}
		}
		live = next
	}

	if len(live) == 1 {
		out = append(out, live[0].hits[live[0].pos:]...)
	}

	return out
}

// truncateTopK reduces a docid-ordered candidate list, such as the output
// of mergeProperties, down to its best limit hits, best-first. No function
// in this package calls it.
func truncateTopK(hits []Hit, limit int, reverse bool) []Hit {
	h := newTopKHeap(limit, reverse)
	for _, hit := range hits {
		h.Offer(hit.Doc, hit.Score)
	}
	return h.Sorted()
}
