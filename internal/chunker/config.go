package chunker

import "chunklab/internal/tokens"

// Strategy keys.
const (
	KeyFixed     = "fixed"
	KeyRecursive = "recursive"
	KeySentence  = "sentence"
	KeyStructure = "structure"
	KeySemantic  = "semantic"
)

// Units accepted by the fixed strategy.
const (
	UnitChars  = "chars"
	UnitTokens = "tokens"
)

// FixedConfig windows the text by a constant number of units.
type FixedConfig struct {
	Unit      string
	Size      int
	Overlap   int
	Tokenizer string
}

// DefaultFixedConfig: 700 tokens with 70 tokens of overlap.
func DefaultFixedConfig() FixedConfig {
	return FixedConfig{Unit: UnitTokens, Size: 700, Overlap: 70, Tokenizer: tokens.DefaultTokenizer}
}

func FixedConfigFrom(p Params) FixedConfig {
	cfg := DefaultFixedConfig()
	cfg.Unit = p.String("unit", cfg.Unit)
	if cfg.Unit != UnitChars && cfg.Unit != UnitTokens {
		cfg.Unit = UnitTokens
	}
	cfg.Size = p.PositiveInt("size", cfg.Size)
	cfg.Overlap = p.NonNegativeInt("overlap", cfg.Overlap)
	cfg.Tokenizer = p.String("tokenizer", cfg.Tokenizer)
	return cfg
}

// RecursiveConfig takes size-character windows and prefers cutting at the
// most significant separator found in the second half of the window.
type RecursiveConfig struct {
	Size       int
	Overlap    int
	Separators []string
	Tokenizer  string
}

func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", " "}
}

// DefaultRecursiveConfig: 800 chars with 80 chars of overlap.
func DefaultRecursiveConfig() RecursiveConfig {
	return RecursiveConfig{Size: 800, Overlap: 80, Separators: DefaultSeparators(), Tokenizer: tokens.DefaultTokenizer}
}

func RecursiveConfigFrom(p Params) RecursiveConfig {
	cfg := DefaultRecursiveConfig()
	cfg.Size = p.PositiveInt("size", cfg.Size)
	cfg.Overlap = p.NonNegativeInt("overlap", cfg.Overlap)
	cfg.Separators = p.Strings("separators", cfg.Separators)
	cfg.Tokenizer = p.String("tokenizer", cfg.Tokenizer)
	return cfg
}

// SentenceConfig packs whole sentences up to a token budget.
type SentenceConfig struct {
	Size      int
	Overlap   int
	Tokenizer string
}

// DefaultSentenceConfig: 750 tokens with 75 tokens of overlap.
func DefaultSentenceConfig() SentenceConfig {
	return SentenceConfig{Size: 750, Overlap: 75, Tokenizer: tokens.DefaultTokenizer}
}

func SentenceConfigFrom(p Params) SentenceConfig {
	cfg := DefaultSentenceConfig()
	cfg.Size = p.PositiveInt("size", cfg.Size)
	cfg.Overlap = p.NonNegativeInt("overlap", cfg.Overlap)
	cfg.Tokenizer = p.String("tokenizer", cfg.Tokenizer)
	return cfg
}

// StructureConfig splits on markdown headers and oversized sections.
// HeaderDepth, KeepLists and Overlap are accepted and reported but do not
// influence where sections are cut.
type StructureConfig struct {
	HeaderDepth      int
	KeepLists        bool
	MaxSectionTokens int
	Overlap          int
	Tokenizer        string
}

func DefaultStructureConfig() StructureConfig {
	return StructureConfig{HeaderDepth: 3, KeepLists: true, MaxSectionTokens: 1000, Overlap: 80, Tokenizer: tokens.DefaultTokenizer}
}

func StructureConfigFrom(p Params) StructureConfig {
	cfg := DefaultStructureConfig()
	cfg.HeaderDepth = p.PositiveInt("headerDepth", cfg.HeaderDepth)
	cfg.KeepLists = p.Bool("keepLists", cfg.KeepLists)
	cfg.MaxSectionTokens = p.PositiveInt("maxSectionTokens", cfg.MaxSectionTokens)
	cfg.Overlap = p.NonNegativeInt("overlap", cfg.Overlap)
	cfg.Tokenizer = p.String("tokenizer", cfg.Tokenizer)
	return cfg
}
