package chunker

import (
	"context"
	"strings"
	"unicode"
)

type span struct {
	start, end int
}

// Sentence packs sentences into chunks of at most cfg.Size estimated tokens.
// A sentence larger than the budget becomes a chunk of its own. After a
// chunk is closed, the next one is seeded with floor(Overlap / average
// tokens per sentence) of its trailing sentences.
//
// Sentence spans tile the text, so chunk offsets come from the spans
// directly and stay exact even when a sentence repeats verbatim.
func (e *Engine) Sentence(text string, cfg SentenceConfig) []Chunk {
	chunks, _ := e.sentence(context.Background(), text, cfg)
	return chunks
}

func (e *Engine) sentence(ctx context.Context, text string, cfg SentenceConfig) ([]Chunk, error) {
	src := []rune(text)
	b := newBuilder(ctx, src, e.est, cfg.Tokenizer)
	if strings.TrimSpace(text) == "" {
		return b.result()
	}

	sentences := splitSentences(src)
	counts := make([]int, len(sentences))
	for i, s := range sentences {
		if b.stopped() {
			return b.result()
		}
		counts[i] = e.est.EstimateTokens(strings.TrimSpace(string(src[s.start:s.end])), cfg.Tokenizer)
	}

	first, budget := 0, 0
	for i := range sentences {
		if b.stopped() {
			return b.result()
		}
		if i > first && budget+counts[i] > cfg.Size {
			b.add(sentences[first].start, sentences[i-1].end)

			carry := overlapSentences(cfg.Overlap, budget, i-first)
			first = i - carry
			budget = 0
			for j := first; j < i; j++ {
				budget += counts[j]
			}
		}
		budget += counts[i]
	}
	b.add(sentences[first].start, sentences[len(sentences)-1].end)
	return b.result()
}

// overlapSentences returns how many trailing sentences of a closed chunk to
// repeat. At least one sentence of the chunk is always left behind.
func overlapSentences(overlap, chunkTokens, sentences int) int {
	if overlap <= 0 || chunkTokens <= 0 || sentences <= 1 {
		return 0
	}
	avg := float64(chunkTokens) / float64(sentences)
	carry := int(float64(overlap) / avg)
	return min(carry, sentences-1)
}

// splitSentences tiles src into spans. A span ends after a run of '.', '!'
// or '?' and the whitespace following it; text after the last terminator is
// the final span.
func splitSentences(src []rune) []span {
	var spans []span
	start := 0
	for i := 0; i < len(src); {
		if !isTerminator(src[i]) {
			i++
			continue
		}
		for i < len(src) && isTerminator(src[i]) {
			i++
		}
		for i < len(src) && unicode.IsSpace(src[i]) {
			i++
		}
		spans = append(spans, span{start, i})
		start = i
	}
	if start < len(src) {
		spans = append(spans, span{start, len(src)})
	}
	return spans
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
