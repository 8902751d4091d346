package tokens

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// encodings maps tokenizer names accepted in chunking params to BPE encodings.
var encodings = map[string]string{
	"cl100k": "cl100k_base",
	"o200k":  "o200k_base",
	"p50k":   "p50k_base",
}

// Tiktoken counts tokens with the BPE encoding that matches the tokenizer
// name. Names without an encoding, and encodings that fail to load, are
// estimated by the heuristic instead.
type Tiktoken struct {
	fallback Estimator

	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
	failed   map[string]bool
}

func NewTiktoken() *Tiktoken {
	return &Tiktoken{
		fallback: Heuristic{},
		encoders: make(map[string]*tiktoken.Tiktoken),
		failed:   make(map[string]bool),
	}
}

func (t *Tiktoken) EstimateTokens(text, tokenizer string) int {
	if text == "" {
		return 0
	}
	if tokenizer == "" {
		tokenizer = DefaultTokenizer
	}
	enc := t.encoder(tokenizer)
	if enc == nil {
		return t.fallback.EstimateTokens(text, tokenizer)
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *Tiktoken) encoder(tokenizer string) *tiktoken.Tiktoken {
	name, ok := encodings[tokenizer]
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if enc, ok := t.encoders[name]; ok {
		return enc
	}
	if t.failed[name] {
		return nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		t.failed[name] = true
		return nil
	}
	t.encoders[name] = enc
	return enc
}
