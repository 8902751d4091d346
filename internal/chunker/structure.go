package chunker

import "context"

// Structure walks the text line by line. A new section starts at a markdown
// header line, or at the first line reached once the accumulated section is
// estimated above cfg.MaxSectionTokens. Sections that are blank after
// trimming are dropped; the last section is always flushed.
func (e *Engine) Structure(text string, cfg StructureConfig) []Chunk {
	chunks, _ := e.structure(context.Background(), text, cfg)
	return chunks
}

// structure keeps the section estimate as a running sum of per-line
// estimates, so each line is estimated once.
func (e *Engine) structure(ctx context.Context, text string, cfg StructureConfig) ([]Chunk, error) {
	src := []rune(text)
	b := newBuilder(ctx, src, e.est, cfg.Tokenizer)

	sectionStart, sectionTokens := 0, 0
	for lineStart := 0; lineStart < len(src); {
		if b.stopped() {
			return b.result()
		}
		lineEnd := lineStart
		for lineEnd < len(src) && src[lineEnd] != '\n' {
			lineEnd++
		}
		next := min(lineEnd+1, len(src))

		if lineStart > sectionStart && (sectionTokens > cfg.MaxSectionTokens || isHeaderLine(src[lineStart:lineEnd])) {
			b.addNonBlank(sectionStart, lineStart)
			sectionStart, sectionTokens = lineStart, 0
		}
		sectionTokens += e.est.EstimateTokens(string(src[lineStart:next]), cfg.Tokenizer)
		lineStart = next
	}
	b.addNonBlank(sectionStart, len(src))
	return b.result()
}

// isHeaderLine matches 1-6 '#' followed by a space or tab.
func isHeaderLine(line []rune) bool {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	return n >= 1 && n <= 6 && n < len(line) && (line[n] == ' ' || line[n] == '\t')
}
