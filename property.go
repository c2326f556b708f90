package zambezi

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// PropertyConfig configures a single PropertyIndex. BlockCapacity is the
// number of (docid, impact) entries a posting block holds before it rolls
// over; PoolCapacityBlocks is how many blocks a single segment pool may
// hold before a new pool is started; PoolCountCap bounds how many pools the
// property may allocate in total before further writes fail with
// ErrPoolsExhausted.
type PropertyConfig struct {
	BlockCapacity      int
	PoolCapacityBlocks int
	PoolCountCap       int
	Reverse            bool
}

// DefaultPropertyConfig returns production-scale sizing. Tests shrink the
// block and pool capacities to force rollover with a handful of postings.
func DefaultPropertyConfig() PropertyConfig {
	return PropertyConfig{
		BlockCapacity:      128,
		PoolCapacityBlocks: 1024,
		PoolCountCap:       64,
		Reverse:            false,
	}
}

// PropertyIndex is the inverted index of one searchable property: a set of
// segment pools, a term dictionary pointing at each term's tail block, and
// the direction flag. Reads are concurrent; writes are exclusive against
// both reads and other writes.
type PropertyIndex struct {
	mu sync.RWMutex

	cfg        PropertyConfig
	pools      []*segmentPool
	activePool int // index into pools, or -1 before the first allocation
	dict       *termDictionary
	readOnly   bool // set once PoolCountCap is reached; further writes fail hard

	// termBitmaps is a document-level view of "which docs contain this
	// term", maintained in lockstep with the block writer. Bitmaps make
	// boolean membership an O(1) bitmap operation instead of a
	// posting-block walk; the blocks keep the ordered impact data the
	// bitmaps cannot hold.
	termBitmaps map[Term]*roaring.Bitmap
	docs        *roaring.Bitmap // every docid ever appended to this property
}

// NewPropertyIndex constructs an empty PropertyIndex.
func NewPropertyIndex(cfg PropertyConfig) *PropertyIndex {
	return &PropertyIndex{
		cfg:         cfg,
		activePool:  -1,
		dict:        newTermDictionary(),
		termBitmaps: make(map[Term]*roaring.Bitmap),
		docs:        roaring.NewBitmap(),
	}
}

// Reverse reports the direction postings are written and traversed in.
func (p *PropertyIndex) Reverse() bool { return p.cfg.Reverse }

// blockAt resolves a BlockLocation to its block. Callers hold the
// appropriate lock already.
func (p *PropertyIndex) blockAt(loc BlockLocation) (*block, error) {
	if loc.Pool < 0 || int(loc.Pool) >= len(p.pools) {
		return nil, fmt.Errorf("zambezi: pool index %d out of range", loc.Pool)
	}
	return p.pools[loc.Pool].blockAt(loc.Offset)
}

// allocateNewBlock starts a new tail block, rolling over to a fresh segment
// pool if the active one is full, and failing with ErrPoolsExhausted once
// the property's pool ceiling has been hit. Caller must hold the write
// lock.
func (p *PropertyIndex) allocateNewBlock(prev BlockLocation) (BlockLocation, *block, error) {
	if p.readOnly {
		return BlockLocation{}, nil, ErrPoolsExhausted
	}
	if p.activePool < 0 || p.pools[p.activePool].full() {
		if len(p.pools) >= p.cfg.PoolCountCap {
			p.readOnly = true
			return BlockLocation{}, nil, ErrPoolsExhausted
		}
		p.pools = append(p.pools, newSegmentPool(p.cfg.PoolCapacityBlocks))
		p.activePool = len(p.pools) - 1
		slog.Info("zambezi: started new segment pool", slog.Int("poolIndex", p.activePool))
	}
	loc, blk := p.pools[p.activePool].allocateBlock(p.cfg.BlockCapacity, prev)
	loc.Pool = int32(p.activePool)
	return loc, blk, nil
}

// Append adds a (docid, impact) posting for term. Docids must arrive in the
// property's traversal order; a violation fails with ErrOutOfOrder and
// leaves the list unchanged. If (term, doc) matches the most recently
// written pair, the impacts are summed in place rather than duplicated, so
// a cursor sees one entry per doc with additive impact while docids stay
// strictly monotonic. Once the pool ceiling has been hit, every Append
// fails with ErrPoolsExhausted.
func (p *PropertyIndex) Append(term Term, doc DocID, impact Impact) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readOnly {
		return ErrPoolsExhausted
	}

	entry, exists := p.dict.tail(term)

	if exists && entry.hasLast {
		outOfOrder := false
		if p.cfg.Reverse {
			outOfOrder = doc > entry.lastDocID
		} else {
			outOfOrder = doc < entry.lastDocID
		}
		if outOfOrder {
			return fmt.Errorf("zambezi: term %d doc %d after last %d: %w", term, doc, entry.lastDocID, ErrOutOfOrder)
		}
		if doc == entry.lastDocID {
			blk, err := p.blockAt(entry.tail)
			if err != nil {
				return err
			}
			blk.impacts[blk.count-1] += impact
			p.dict.bumpMax(term, blk.impacts[blk.count-1])
			p.addToBitmap(term, doc)
			return nil
		}
	}

	var tailLoc BlockLocation
	var tailBlk *block
	var err error

	if !exists {
		tailLoc, tailBlk, err = p.allocateNewBlock(headLocation)
		if err != nil {
			return err
		}
	} else {
		tailBlk, err = p.blockAt(entry.tail)
		if err != nil {
			return err
		}
		tailLoc = entry.tail
		if tailBlk.full() {
			tailLoc, tailBlk, err = p.allocateNewBlock(tailLoc)
			if err != nil {
				return err
			}
		}
	}

	tailBlk.append(doc, impact)

	total := uint32(1)
	if exists {
		total = entry.total + 1
	}
	p.dict.setTail(term, tailLoc, doc, total)
	p.dict.bumpMax(term, impact)
	p.addToBitmap(term, doc)
	return nil
}

func (p *PropertyIndex) addToBitmap(term Term, doc DocID) {
	bm, ok := p.termBitmaps[term]
	if !ok {
		bm = roaring.NewBitmap()
		p.termBitmaps[term] = bm
	}
	bm.Add(uint32(doc))
	p.docs.Add(uint32(doc))
}

// DocBitmap returns the roaring bitmap of docids known to contain term, or
// nil if the term has never been indexed. The returned bitmap must not be
// mutated by the caller (clone it first).
func (p *PropertyIndex) DocBitmap(term Term) *roaring.Bitmap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.termBitmaps[term]
}

// allDocs returns the live bitmap of every docid in this property. Callers
// must clone before mutating.
func (p *PropertyIndex) allDocs() *roaring.Bitmap {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.docs
}

// OpenCursor returns a Cursor over term's posting list. It returns
// ErrNoPostingList if the term was never indexed in this property —
// callers treat that as "contributes nothing", not a failure. The cursor
// is a point-in-time snapshot: it must not outlive the caller's read-lock
// scope, which is why Search opens and drains cursors entirely within a
// single RLock-held call.
func (p *PropertyIndex) OpenCursor(term Term) (*Cursor, error) {
	entry, ok := p.dict.tail(term)
	if !ok {
		return nil, ErrNoPostingList
	}

	// Walk backward from the tail using back-pointers, collecting blocks
	// tail-to-head, then reverse once to get write order — which, because
	// Append enforces monotonic docids in the configured direction, is
	// already the order a cursor must yield entries in.
	var chain []*block
	loc := entry.tail
	for !loc.isHead() {
		blk, err := p.blockAt(loc)
		if err != nil {
			return nil, err
		}
		chain = append(chain, blk)
		loc = blk.prev
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	c := &Cursor{blocks: chain, reverse: p.cfg.Reverse, weight: 1, maxImpact: entry.maxImpact}
	if len(chain) == 0 || chain[0].count == 0 {
		c.exhausted = true
	}
	return c, nil
}

// RLock/RUnlock expose the property's read lock so the retrieval engine can
// hold a single shared lock across opening every token's cursor and
// draining them.
func (p *PropertyIndex) RLock()   { p.mu.RLock() }
func (p *PropertyIndex) RUnlock() { p.mu.RUnlock() }

// Cursor streams one term's posting list in the direction dictated by its
// property's reverse flag. It is built once per OpenCursor call over a
// materialized, immutable slice of blocks, so advancing it never touches
// the dictionary or mutates shared state.
type Cursor struct {
	blocks    []*block
	blockIdx  int
	entryIdx  int
	reverse   bool
	exhausted bool

	// weight is the query-time token weight this cursor contributes per
	// posting; each hit scores weight × impact. OpenCursor sets it to 1;
	// the retrieval engine overrides it per query token.
	weight uint64

	// maxImpact is the largest single impact ever recorded for this term,
	// a pruning upper bound for the WAND-family algorithms.
	maxImpact Impact
}

// setWeight fixes the query-time token weight for this cursor.
func (c *Cursor) setWeight(w Impact) { c.weight = uint64(w) }

// UpperBound returns the largest weighted score this cursor could still
// contribute for any remaining docid. The WAND-family algorithms use it to
// skip candidates that cannot enter the top-k.
func (c *Cursor) UpperBound() uint64 { return c.weight * uint64(c.maxImpact) }

// Done reports whether the cursor has been advanced past its last entry.
func (c *Cursor) Done() bool { return c.exhausted }

// CurrentDocID returns the docid at the cursor's current position.
// Callers must check Done() first.
func (c *Cursor) CurrentDocID() DocID {
	return c.blocks[c.blockIdx].docIDs[c.entryIdx]
}

// CurrentImpact returns the impact at the cursor's current position.
// Callers must check Done() first.
func (c *Cursor) CurrentImpact() Impact {
	return c.blocks[c.blockIdx].impacts[c.entryIdx]
}

// CurrentScore returns the weighted contribution of the current posting.
func (c *Cursor) CurrentScore() uint64 {
	return c.weight * uint64(c.CurrentImpact())
}

// Advance moves to the next entry, in the direction this cursor's property
// was configured with.
func (c *Cursor) Advance() {
	if c.exhausted {
		return
	}
	c.entryIdx++
	if c.entryIdx >= c.blocks[c.blockIdx].count {
		c.blockIdx++
		c.entryIdx = 0
		if c.blockIdx >= len(c.blocks) {
			c.exhausted = true
		}
	}
}

// before reports whether current still lies ahead of target in this
// cursor's traversal direction: ascending cursors approach targets from
// below, descending cursors from above. An explicit comparator, so the
// direction logic never leans on sentinel values.
func (c *Cursor) before(current, target DocID) bool {
	if c.reverse {
		return current > target
	}
	return current < target
}

// AdvanceTo moves the cursor forward until its current docid reaches or
// passes target in the traversal direction, galloping within each block
// via binary search before crossing to the next block. It never moves past
// the logical end of the posting list.
func (c *Cursor) AdvanceTo(target DocID) {
	for !c.exhausted {
		blk := c.blocks[c.blockIdx]

		if !c.before(blk.docIDs[blk.count-1], target) {
			// target lies within (or before) this block; binary-search it.
			lo, hi := c.entryIdx, blk.count-1
			for lo < hi {
				mid := (lo + hi) / 2
				if c.before(blk.docIDs[mid], target) {
					lo = mid + 1
				} else {
					hi = mid
				}
			}
			c.entryIdx = lo
			return
		}

		// Whole remainder of this block is still before target; skip it.
		c.blockIdx++
		c.entryIdx = 0
		if c.blockIdx >= len(c.blocks) {
			c.exhausted = true
			return
		}
	}
}

// Remaining returns the number of entries left to consume, inclusive of
// the current one.
func (c *Cursor) Remaining() int {
	if c.exhausted {
		return 0
	}
	n := c.blocks[c.blockIdx].count - c.entryIdx
	for i := c.blockIdx + 1; i < len(c.blocks); i++ {
		n += c.blocks[i].count
	}
	return n
}
