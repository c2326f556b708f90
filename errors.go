package zambezi

import "errors"

// Sentinel error kinds (§7). Compare with errors.Is; call sites wrap these
// with fmt.Errorf("...: %w", ...) to attach term/docid/property context.
var (
	// ErrOutOfOrder is returned by PropertyIndex.Append when a docid
	// violates the monotonicity invariant for a term's posting list.
	ErrOutOfOrder = errors.New("zambezi: docid out of order for term")

	// ErrPoolsExhausted is returned when a property's pool-count ceiling
	// has been reached and a new pool cannot be allocated. The property
	// is read-only from this point on.
	ErrPoolsExhausted = errors.New("zambezi: pool count ceiling reached")

	// ErrCorruptIndex reports a persisted property file that fails a
	// magic, version, capacity, or length sanity check. This package has
	// no loader, so nothing in it returns this error.
	ErrCorruptIndex = errors.New("zambezi: corrupt index file")

	// ErrUnknownProperty reports a search or append that names a property
	// outside the configuration. This package has no multi-property
	// manager, so nothing in it returns this error.
	ErrUnknownProperty = errors.New("zambezi: unknown property")

	// ErrCanceled is returned when a Search observes its context
	// canceled between docid candidates.
	ErrCanceled = errors.New("zambezi: search canceled")

	// ErrTokenizerFailure marks an error surfaced by a tokenizer during
	// ingest or query analysis. This package contains no tokenizer code,
	// so nothing in it returns this error.
	ErrTokenizerFailure = errors.New("zambezi: tokenizer failure")

	// ErrNoPostingList is returned by Cursor construction when a term
	// has no entry in the dictionary. Callers treat this as "contributes
	// nothing", not a hard failure (§4.6.2 edge cases).
	ErrNoPostingList = errors.New("zambezi: no posting list for term")
)
