package zambezi

// VirtualProperty names an index whose tokens are derived from one or more
// base properties but which is stored and searched as a first-class
// PropertyIndex of its own.
type VirtualProperty struct {
	Name    string
	Sources []string // base property names whose text feeds this index
}

// Config holds the index-wide options. It is constructed by the embedding
// host; this package does no flag or file parsing. Only PoolSize,
// PoolCount, BlockCapacity and Reverse are read here, by propertyConfig;
// the package has no manager, persistence or tokenizer code, so the other
// fields are carried for the host and not read by any code in it.
type Config struct {
	// Properties lists the searchable property names, in the host's
	// preferred search order.
	Properties []string

	// VirtualProperties are derived indexes built from base properties.
	VirtualProperties []VirtualProperty

	// PoolSize is the approximate byte budget of one segment pool. It is
	// translated into a block count via BlockCapacity.
	PoolSize int

	// PoolCount caps how many pools a single property may allocate. Once
	// reached, further appends to that property fail and it becomes
	// read-only.
	PoolCount int

	// BlockCapacity is the number of (docid, impact) entries one posting
	// block holds before the writer rolls to a new block.
	BlockCapacity int

	// Reverse selects descending docid traversal for every property.
	Reverse bool

	// Algorithm selects the retrieval strategy. SVS is the default.
	Algorithm Algorithm

	// IndexFilePath is the base path for persisted property files, named
	// "{IndexFilePath}_{property}".
	IndexFilePath string

	// TokenPath locates the tokenizer's dictionary. It is opaque to the
	// index.
	TokenPath string

	// HasAttrtoken means the host supplies (token, weight) pairs directly.
	HasAttrtoken bool
}

// DefaultConfig returns production-scale defaults. Tests override the pool
// and block sizes to force rollover with a handful of postings.
func DefaultConfig() Config {
	return Config{
		PoolSize:      1 << 22,
		PoolCount:     64,
		BlockCapacity: 128,
		Reverse:       false,
		Algorithm:     SVS,
	}
}

// propertyConfig derives the per-property sizing from the byte-level
// options: a block stores BlockCapacity docid/impact pairs plus its count
// and back-pointer, and a pool holds as many such blocks as fit in
// PoolSize.
func (c Config) propertyConfig() PropertyConfig {
	blockCap := c.BlockCapacity
	if blockCap <= 0 {
		blockCap = DefaultConfig().BlockCapacity
	}
	blockBytes := blockCap*8 + blockHeaderBytes
	poolBlocks := c.PoolSize / blockBytes
	if poolBlocks <= 0 {
		poolBlocks = 1
	}
	poolCount := c.PoolCount
	if poolCount <= 0 {
		poolCount = DefaultConfig().PoolCount
	}
	return PropertyConfig{
		BlockCapacity:      blockCap,
		PoolCapacityBlocks: poolBlocks,
		PoolCountCap:       poolCount,
		Reverse:            c.Reverse,
	}
}

// blockHeaderBytes is the per-block overhead outside the entry arrays: the
// entry count plus the (pool, offset) back-pointer, as laid out on disk.
const blockHeaderBytes = 2 + 4 + 4
