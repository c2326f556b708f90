package zambezi

import "github.com/cespare/xxhash/v2"

// Term is the opaque hashable token identifier used throughout the index
// (§3 Term). It is derived from a UTF-8 token string by a stable 64-bit
// hash — the same string always yields the same Term across build and
// query, and across a save/open round-trip (§3 invariant 5).
type Term uint64

// HashTerm derives a Term from a token string.
func HashTerm(token string) Term {
	return Term(xxhash.Sum64String(token))
}

// DocID is the embedding system's monotonic 32-bit document identifier.
// The index stores no document payload, only this identifier (§3 Docid).
type DocID uint32

// Impact is the non-negative per-(term,doc) contribution to a query score
// (§3 Impact/weight).
type Impact uint32

// TokenWeight pairs a query token with its weight, the unit Search and
// collect consume: one entry per queried term.
type TokenWeight struct {
	Token  string
	Weight Impact
}
