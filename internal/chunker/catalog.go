package chunker

// ParamInfo describes one accepted strategy parameter.
type ParamInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Default     any      `json:"default"`
	Min         *int     `json:"min,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Reserved    bool     `json:"reserved,omitempty"`
	Description string   `json:"description"`
}

// StrategyInfo is one entry of the strategy catalog.
type StrategyInfo struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Available   bool        `json:"available"`
	Params      []ParamInfo `json:"params"`
}

func intPtr(n int) *int { return &n }

func tokenizerParam() ParamInfo {
	return ParamInfo{
		Name:        "tokenizer",
		Type:        "string",
		Default:     DefaultFixedConfig().Tokenizer,
		Description: "Tokenizer name used for token_count estimates.",
	}
}

// Catalog lists every strategy key with its parameter schema and defaults.
func Catalog() []StrategyInfo {
	fixed := DefaultFixedConfig()
	rec := DefaultRecursiveConfig()
	sent := DefaultSentenceConfig()
	st := DefaultStructureConfig()

	return []StrategyInfo{
		{
			Key:         KeyRecursive,
			Name:        "Recursive character splitter",
			Description: "Fixed-size windows cut at the most significant separator in the second half of the window.",
			Available:   true,
			Params: []ParamInfo{
				{Name: "size", Type: "int", Default: rec.Size, Min: intPtr(1), Description: "Window size in characters."},
				{Name: "overlap", Type: "int", Default: rec.Overlap, Min: intPtr(0), Description: "Characters repeated between consecutive chunks."},
				{Name: "separators", Type: "string[]", Default: rec.Separators, Description: "Preferred cut points, most significant first."},
				tokenizerParam(),
			},
		},
		{
			Key:         KeyFixed,
			Name:        "Fixed size",
			Description: "Sliding window of a constant number of characters or tokens.",
			Available:   true,
			Params: []ParamInfo{
				{Name: "unit", Type: "string", Default: fixed.Unit, Enum: []string{UnitChars, UnitTokens}, Description: "Window unit; tokens are converted at 4 characters per token."},
				{Name: "size", Type: "int", Default: fixed.Size, Min: intPtr(1), Description: "Window size in units."},
				{Name: "overlap", Type: "int", Default: fixed.Overlap, Min: intPtr(0), Description: "Units repeated between consecutive windows."},
				tokenizerParam(),
			},
		},
		{
			Key:         KeySentence,
			Name:        "Sentence window",
			Description: "Whole sentences packed up to a token budget, overlapping by trailing sentences.",
			Available:   true,
			Params: []ParamInfo{
				{Name: "size", Type: "int", Default: sent.Size, Min: intPtr(1), Description: "Token budget per chunk."},
				{Name: "overlap", Type: "int", Default: sent.Overlap, Min: intPtr(0), Description: "Tokens of trailing sentences carried into the next chunk."},
				tokenizerParam(),
			},
		},
		{
			Key:         KeyStructure,
			Name:        "Document structure",
			Description: "Sections delimited by markdown headers, split further when a section grows past its token limit.",
			Available:   true,
			Params: []ParamInfo{
				{Name: "headerDepth", Type: "int", Default: st.HeaderDepth, Min: intPtr(1), Reserved: true, Description: "Deepest header level considered."},
				{Name: "keepLists", Type: "bool", Default: st.KeepLists, Reserved: true, Description: "Keep list items together."},
				{Name: "maxSectionTokens", Type: "int", Default: st.MaxSectionTokens, Min: intPtr(1), Description: "Token limit before a section is split."},
				{Name: "overlap", Type: "int", Default: st.Overlap, Min: intPtr(0), Reserved: true, Description: "Tokens repeated between sections."},
				tokenizerParam(),
			},
		},
		{
			Key:         KeySemantic,
			Name:        "Semantic",
			Description: "Embedding-based boundaries. Requires an embedding API key and is not available.",
			Available:   false,
			Params:      []ParamInfo{},
		},
	}
}
